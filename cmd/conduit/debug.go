package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relaymind/conduit/internal/agentruntime"
	"github.com/relaymind/conduit/internal/config"
)

// buildCancelCmd exposes the chat-text "/cancel" command as a CLI
// convenience (spec §6 non-goal: "the full CLI surface beyond /cancel,
// /approve, /reject"). Unlike /approve and /reject, cancellation is backed
// entirely by the repository (agentruntime.Manager.CancelSession marks the
// session row), so it works against a stopped server too.
func buildCancelCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cancel <handle>",
		Short: "Cancel a handle's active background agent session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(cmd.Context(), resolveConfigPath(configPath), args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")

	return cmd
}

func runCancel(ctx context.Context, configPath, handle string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	manager := agentruntime.NewManager(store)
	if err := manager.CancelSession(ctx, handle); err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	fmt.Printf("cancelled active session for %s\n", handle)
	return nil
}

// buildApproveCmd and buildRejectCmd exist for command-surface parity with
// the chat-text /approve and /reject commands, but a HITL approval's
// rendezvous (internal/hitl.Coordinator) lives only in the memory of the
// conduit serve process that opened it — there is no persisted pending-
// approval row a separate CLI invocation can resolve. These commands are
// therefore a stub that explains the limitation rather than silently
// no-opping; approving or rejecting a pending action must happen through
// the same conversation channel that asked for it.
func buildApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "approve <handle>",
		Short:  "Approve a pending human-in-the-loop request (see note below)",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return hitlCLIUnsupported("approve")
		},
	}
}

func buildRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "reject <handle>",
		Short:  "Reject a pending human-in-the-loop request (see note below)",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return hitlCLIUnsupported("reject")
		},
	}
}

func hitlCLIUnsupported(verb string) error {
	return fmt.Errorf("%s requires replying from the conversation that received the approval request; "+
		"pending approvals live in the memory of the running conduit serve process and aren't reachable from a separate CLI invocation", verb)
}
