// Command depscope analyzes dependency graphs of Jira records: bounded-depth
// traversal with cycle detection, blocker aging, Confluence reference
// extraction, keyword mining, and similar-record discovery.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"depscope/internal/config"
	"depscope/internal/telemetry"
)

const version = "0.4.0"

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:           "depscope",
	Short:         "Dependency analysis for Jira records",
	Long: `depscope turns a Jira instance's link graph into structured dependency
analysis: a bounded-depth dependency graph with cycle detection, blocker
identification with aging, Confluence document references, extracted search
keywords, and confidence-scored similar records.

Connection settings come from .depscope.yaml or environment variables:

  DEPSCOPE_JIRA_URL        https://company.atlassian.net
  DEPSCOPE_JIRA_USERNAME   you@company.com (cloud basic auth)
  DEPSCOPE_JIRA_API_TOKEN  API token or PAT`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		setupLogging()
		if err := config.Initialize(); err != nil {
			return err
		}
		return telemetry.Init(cmd.Context(), "depscope", version)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
	},
}

func setupLogging() {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug output")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
