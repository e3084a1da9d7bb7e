package agentruntime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/pkg/models"
)

// BackgroundLauncher runs fn in its own tracked goroutine, detached from the
// triggering request's lifetime. cmd/conduit wires this to
// dispatcher.Dispatcher.TrackBackgroundTask so a session started mid-turn
// drains on shutdown like any other background work.
type BackgroundLauncher func(ctx context.Context, fn func(context.Context))

// CreateSessionTool lets the main tool-calling loop hand an objective off to
// the planner/worker pipeline instead of working it inline, the entry point
// spec §4.7 assumes for any multi-step background objective.
type CreateSessionTool struct {
	manager *Manager
	runner  *Runner
	launch  BackgroundLauncher
}

// NewCreateSessionTool builds the tool. launch is invoked with the session's
// run context and runner.Run once the session is durably created.
func NewCreateSessionTool(manager *Manager, runner *Runner, launch BackgroundLauncher) *CreateSessionTool {
	return &CreateSessionTool{manager: manager, runner: runner, launch: launch}
}

func (t *CreateSessionTool) Name() string { return "create_session" }

func (t *CreateSessionTool) Description() string {
	return "Start a background agent session for a multi-step objective. Progress and the final result are delivered as ordinary chat messages; use this instead of trying to finish a long task inline."
}

func (t *CreateSessionTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"objective":{"type":"string"},"max_iterations":{"type":"integer"}},"required":["objective"]}`)
}

func (t *CreateSessionTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		Objective     string `json:"objective"`
		MaxIterations int    `json:"max_iterations"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	if args.Objective == "" {
		return &models.ToolResult{Content: "objective is required", IsError: true}, nil
	}

	handle, _ := ctx.Value(obslog.HandleKey).(string)
	if handle == "" {
		return &models.ToolResult{Content: "no conversation handle in context", IsError: true}, nil
	}

	session, runCtx, err := t.manager.CreateSession(ctx, handle, args.Objective, args.MaxIterations)
	if err != nil {
		if err == ErrSessionAlreadyActive {
			return &models.ToolResult{Content: "a session is already running for this conversation; cancel it with /cancel before starting another"}, nil
		}
		return &models.ToolResult{Content: fmt.Sprintf("failed to start session: %v", err), IsError: true}, nil
	}

	t.launch(runCtx, func(bg context.Context) { t.runner.Run(bg, session) })

	return &models.ToolResult{Content: fmt.Sprintf("started background session %s for: %s", session.ID, args.Objective)}, nil
}

var _ toolrouter.Tool = (*CreateSessionTool)(nil)
