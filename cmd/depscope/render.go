package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"depscope/internal/analysis"
)

// Ayu-ish adaptive palette.
var (
	colorWarn = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorFail = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMute = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorLink = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorLink)
	sectionStyle = lipgloss.NewStyle().Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	failStyle    = lipgloss.NewStyle().Foreground(colorFail)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMute)
	linkStyle    = lipgloss.NewStyle().Foreground(colorLink)
)

// renderResult writes a human-readable analysis report. Color is dropped when
// stdout is not a terminal.
func renderResult(w io.Writer, result *analysis.Result) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Dependency analysis: %s", result.Key)))
	fmt.Fprintln(w)

	g := result.DependencyGraph
	fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("Dependencies (%d)", result.Insights.TotalDependencies)))
	if len(g.Edges) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none"))
	}
	for _, e := range g.Edges {
		line := fmt.Sprintf("  %s %s %s", e.From, mutedStyle.Render(e.Type), e.To)
		if _, expanded := nodeSet(g)[e.To]; !expanded {
			line += mutedStyle.Render(" (not expanded)")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	if len(g.CircularDeps) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("Circular dependencies"))
		for _, c := range g.CircularDeps {
			fmt.Fprintln(w, failStyle.Render("  ⚠ "+c))
		}
		fmt.Fprintln(w)
	}

	if len(result.Blockers) > 0 {
		fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("Blockers (%d)", len(result.Blockers))))
		for _, b := range result.Blockers {
			fmt.Fprintf(w, "  %s %s: %s [%s], blocked ~%d days\n",
				failStyle.Render("✗"), b.Key, b.Summary, b.Status, b.DaysBlocked)
		}
		fmt.Fprintln(w)
	}

	if len(result.Insights.Patterns) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("Patterns"))
		for _, p := range result.Insights.Patterns {
			fmt.Fprintln(w, warnStyle.Render("  • "+p))
		}
		fmt.Fprintln(w)
	}

	if len(result.DocumentReferences) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("Referenced documents"))
		for _, ref := range result.DocumentReferences {
			title := ref.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(w, "  %s %s\n", title, linkStyle.Render(ref.URL))
		}
		fmt.Fprintln(w)
	}

	if kw := result.Keywords; len(kw.TechnicalTerms) > 0 || len(kw.SearchKeywords) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("Keywords"))
		if len(kw.TechnicalTerms) > 0 {
			fmt.Fprintf(w, "  technical: %s\n", strings.Join(kw.TechnicalTerms, ", "))
		}
		if len(kw.SearchKeywords) > 0 {
			fmt.Fprintf(w, "  search:    %s\n", strings.Join(kw.SearchKeywords, ", "))
		}
		fmt.Fprintln(w)
	}

	if sim := result.SimilarRecords; sim != nil {
		fmt.Fprintln(w, sectionStyle.Render("Similar records"))
		fmt.Fprintln(w, mutedStyle.Render("  "+sim.Summary))
		for _, cand := range sim.Candidates {
			fmt.Fprintf(w, "  %.2f %s: %s %s\n",
				cand.ConfidenceScore, cand.Key, cand.Summary,
				mutedStyle.Render("("+cand.MatchReason+")"))
		}
	}
}

func nodeSet(g analysis.GraphResult) map[string]struct{} {
	set := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		set[n.Key] = struct{}{}
	}
	return set
}
