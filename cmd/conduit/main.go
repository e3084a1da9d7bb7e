// Package main provides the CLI entry point for conduit, a conversational
// autonomous-agent runtime fronting a messaging webhook.
//
// Conduit routes each inbound message through a layered pipeline: intent
// classification and tool selection, a bounded LLM<->tool loop, guardrails,
// and an optional long-lived background agent session with human-in-the-loop
// approval for destructive actions.
//
// # Basic Usage
//
// Start the server:
//
//	conduit serve --config conduit.yaml
//
// Apply pending database migrations without starting the server:
//
//	conduit migrate
//
// # Environment Variables
//
//   - CONDUIT_HTTP_PORT: overrides server.http_port
//   - DATABASE_URL: overrides database.dsn
//   - CONDUIT_WEBHOOK_VERIFY_TOKEN: overrides messaging.verify_token
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY: LLM provider credentials, referenced
//     from the config file via ${ANTHROPIC_API_KEY}-style expansion
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "conduit",
		Short: "Conduit - conversational autonomous-agent runtime",
		Long: `Conduit fronts a messaging webhook with a tool-calling LLM pipeline and
an optional background agent runtime for multi-step objectives.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildMigrateCmd(),
		buildCancelCmd(),
		buildApproveCmd(),
		buildRejectCmd(),
	)

	return rootCmd
}

func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("CONDUIT_CONFIG"); env != "" {
		return env
	}
	return "conduit.yaml"
}
