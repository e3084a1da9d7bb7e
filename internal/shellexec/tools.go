package shellexec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/relaymind/conduit/pkg/models"
)

const defaultSyncTimeout = 30 * time.Second

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// RunCommandTool is the "run_command" tool exposed under the "shell"
// category. It is gated by the WriteEnabled flag in addition to whatever
// outcome the executor's ShellAwarePolicy reaches.
type RunCommandTool struct {
	manager      *Manager
	writeEnabled func() bool
}

// NewRunCommandTool builds the run_command tool. writeEnabled is read at
// call time so a live config toggle takes effect without restarting.
func NewRunCommandTool(manager *Manager, writeEnabled func() bool) *RunCommandTool {
	return &RunCommandTool{manager: manager, writeEnabled: writeEnabled}
}

func (t *RunCommandTool) Name() string        { return "run_command" }
func (t *RunCommandTool) Description() string { return "Run a shell command, optionally in the background." }

func (t *RunCommandTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {"type": "string", "description": "Shell command to execute."},
			"timeout_seconds": {"type": "integer", "minimum": 0, "description": "Timeout in seconds (default 30)."},
			"background": {"type": "boolean", "description": "Run detached and return a process id."}
		},
		"required": ["command"]
	}`)
}

type runCommandArgs struct {
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Background     bool   `json:"background"`
}

// Execute assumes the caller's ShellAwarePolicy has already run
// ValidateCommand over args.Command and either allowed it outright or
// gotten human approval for it (spec §4.8 steps 3/5); Execute itself only
// applies the independent WriteEnabled gate and then runs the command.
func (t *RunCommandTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	if t.writeEnabled != nil && !t.writeEnabled() {
		return &models.ToolResult{Content: "shell execution is disabled", IsError: true}, nil
	}

	var args runCommandArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	command := strings.TrimSpace(args.Command)
	if command == "" {
		return &models.ToolResult{Content: "command is required", IsError: true}, nil
	}

	if args.Background {
		proc, err := t.manager.StartBackground(ctx, "", command)
		if err != nil {
			return &models.ToolResult{Content: err.Error(), IsError: true}, nil
		}
		payload, _ := json.Marshal(map[string]string{"status": "running", "process_id": proc.ProcessID})
		return &models.ToolResult{Content: string(payload)}, nil
	}

	timeout := defaultSyncTimeout
	if args.TimeoutSeconds > 0 {
		timeout = secondsToDuration(args.TimeoutSeconds)
	}
	result, err := t.manager.RunSync(ctx, command, timeout)
	if err != nil {
		msg := err.Error()
		if result != nil && result.TimedOut {
			return &models.ToolResult{Content: msg, IsError: true}, nil
		}
		return &models.ToolResult{Content: msg, IsError: true}, nil
	}
	payload, _ := json.Marshal(result)
	return &models.ToolResult{Content: string(payload)}, nil
}

// ManageProcessTool is the "manage_process" tool exposed under "shell":
// list | poll | log | kill of background processes.
type ManageProcessTool struct {
	manager *Manager
}

// NewManageProcessTool builds the manage_process tool.
func NewManageProcessTool(manager *Manager) *ManageProcessTool {
	return &ManageProcessTool{manager: manager}
}

func (t *ManageProcessTool) Name() string { return "manage_process" }
func (t *ManageProcessTool) Description() string {
	return "Inspect or control a background process started by run_command."
}

func (t *ManageProcessTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["list", "poll", "log", "kill"]},
			"process_id": {"type": "string"}
		},
		"required": ["action"]
	}`)
}

type manageProcessArgs struct {
	Action    string `json:"action"`
	ProcessID string `json:"process_id"`
}

func (t *ManageProcessTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args manageProcessArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}

	switch args.Action {
	case "list":
		payload, _ := json.Marshal(map[string]any{"processes": t.manager.List()})
		return &models.ToolResult{Content: string(payload)}, nil
	case "poll", "log":
		if args.ProcessID == "" {
			return &models.ToolResult{Content: "process_id is required", IsError: true}, nil
		}
		result, err := t.manager.Poll(args.ProcessID)
		if err != nil {
			return &models.ToolResult{Content: err.Error(), IsError: true}, nil
		}
		payload, _ := json.Marshal(result)
		return &models.ToolResult{Content: string(payload)}, nil
	case "kill":
		if args.ProcessID == "" {
			return &models.ToolResult{Content: "process_id is required", IsError: true}, nil
		}
		if err := t.manager.Kill(args.ProcessID); err != nil {
			return &models.ToolResult{Content: err.Error(), IsError: true}, nil
		}
		return &models.ToolResult{Content: `{"status":"killed"}`}, nil
	default:
		return &models.ToolResult{Content: "unsupported action", IsError: true}, nil
	}
}
