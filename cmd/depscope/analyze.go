package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"depscope/internal/analysis"
	"depscope/internal/config"
	"depscope/internal/graph"
	"depscope/internal/jira"
	"depscope/internal/telemetry"
)

var (
	depthFlag        int
	similarLimitFlag int
	noSimilarFlag    bool
	formatFlag       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <KEY>",
	Short: "Analyze a record's dependency graph",
	Long: `Fetch a record, walk its link graph to a bounded depth, and report
dependencies, cycles, blockers with aging, referenced Confluence pages,
extracted keywords, and (for under-described records) similar records.

Examples:
  depscope analyze PROJ-123
  depscope analyze PROJ-123 --depth 5 --format json
  depscope analyze PROJ-123 --no-similar`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&depthFlag, "depth", 0,
		fmt.Sprintf("traversal depth (%d-%d, 0 = config default)", graph.MinDepth, graph.MaxDepth))
	analyzeCmd.Flags().IntVar(&similarLimitFlag, "similar-limit", 0, "max similar records (0 = config default)")
	analyzeCmd.Flags().BoolVar(&noSimilarFlag, "no-similar", false, "skip similar-record search")
	analyzeCmd.Flags().StringVar(&formatFlag, "format", "text", "output format: text, json, or yaml")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	key := args[0]

	baseURL := config.GetString(config.KeyJiraURL)
	if baseURL == "" {
		return fmt.Errorf("jira URL not configured (set jira.url in .depscope.yaml or DEPSCOPE_JIRA_URL)")
	}

	client := jira.NewClient(baseURL,
		config.GetString(config.KeyJiraUsername),
		config.GetString(config.KeyJiraAPIToken))
	client.CommentWindow = config.GetInt(config.KeyCommentWindow)
	if timeout := config.GetDuration(config.KeyHTTPTimeout); timeout > 0 {
		client.HTTPClient.Timeout = timeout
	}

	depth := depthFlag
	if depth == 0 {
		depth = config.GetInt(config.KeyMaxDepth)
	}
	limit := similarLimitFlag
	if limit == 0 {
		limit = config.GetInt(config.KeySimilarLimit)
	}

	opts := analysis.Options{
		MaxDepth:     depth,
		SimilarLimit: limit,
		DetectSparse: config.GetBool(config.KeyDetectSparse) && !noSimilarFlag,
	}

	slog.Debug("starting analysis", "key", key, "depth", depth, "format", formatFlag)

	analyzer := analysis.NewAnalyzer(telemetry.WrapClient(client), baseURL, opts)
	result, err := analyzer.Analyze(cmd.Context(), key)
	if err != nil {
		return err
	}

	switch formatFlag {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer func() { _ = enc.Close() }()
		return enc.Encode(result)
	case "text":
		renderResult(os.Stdout, result)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json, or yaml)", formatFlag)
	}
}
