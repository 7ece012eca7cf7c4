package analysis

import (
	"fmt"
	"strings"
	"time"

	"depscope/internal/graph"
)

const secondsPerDay = 86400

// longBlockerThresholdDays is the average age past which blockers are called
// out as long-lived.
const longBlockerThresholdDays = 30

// isBlockingRelation reports whether an edge label describes a blocking
// relationship, in either direction ("blocks", "is blocked by").
func isBlockingRelation(label string) bool {
	return strings.Contains(strings.ToLower(label), "block")
}

// FindBlockers derives the root's blockers from the graph: targets of
// blocking-type edges that were expanded into nodes. The root's own creation
// time stands in for when each block began; link creation times are not
// exposed by the source system.
func FindBlockers(g *graph.Graph, rootKey string, rootCreated, now time.Time) []Blocker {
	days := int(now.Sub(rootCreated).Seconds()) / secondsPerDay
	if days < 0 {
		days = 0
	}

	var blockers []Blocker
	seen := make(map[string]bool)
	for _, e := range g.Edges {
		if !isBlockingRelation(e.Type) {
			continue
		}
		rec, ok := g.Nodes[e.To]
		if !ok || e.To == rootKey || seen[e.To] {
			continue
		}
		seen[e.To] = true
		blockers = append(blockers, Blocker{
			Key:          rec.Key,
			Summary:      rec.Summary,
			Status:       rec.Status,
			BlockedSince: rootCreated,
			DaysBlocked:  days,
		})
	}
	return blockers
}

// BuildInsights summarizes the graph and blocker shape into human-readable
// signals. BlockingChainLength is a 0/1 flag: 1 when the root has at least
// one outbound blocking edge. It is not a longest-path length; consumers
// depend on the flag semantics.
func BuildInsights(g *graph.Graph, rootKey string, blockers []Blocker) Insights {
	insights := Insights{
		TotalDependencies: len(g.Nodes) - 1,
		Patterns:          []string{},
	}
	if insights.TotalDependencies < 0 {
		insights.TotalDependencies = 0
	}

	for _, e := range g.OutboundEdges(rootKey) {
		if isBlockingRelation(e.Type) {
			insights.BlockingChainLength = 1
			break
		}
	}

	if len(blockers) > 0 {
		var total int
		for _, b := range blockers {
			total += b.DaysBlocked
		}
		avg := float64(total) / float64(len(blockers))
		insights.AvgBlockerAgeDays = &avg
	}

	if len(blockers) >= 2 {
		insights.Patterns = append(insights.Patterns,
			fmt.Sprintf("Multiple blockers (%d) impede this record; unblocking may need coordination", len(blockers)))
	}
	if len(g.CircularDeps) > 0 {
		insights.Patterns = append(insights.Patterns,
			fmt.Sprintf("Circular dependencies detected (%d); the dependency structure needs untangling", len(g.CircularDeps)))
	}
	if insights.AvgBlockerAgeDays != nil && *insights.AvgBlockerAgeDays > longBlockerThresholdDays {
		insights.Patterns = append(insights.Patterns,
			fmt.Sprintf("Blockers have been open for %.0f days on average; they may be stale or forgotten", *insights.AvgBlockerAgeDays))
	}

	return insights
}
