package agentruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaymind/conduit/internal/hitl"
	"github.com/relaymind/conduit/internal/messaging"
	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/pkg/models"
)

// SessionTools closes over a running AgentSession and exposes the four
// session-scoped tools reactive mode offers the model (spec §4.7 step 3).
type SessionTools struct {
	session   *models.AgentSession
	manager   *Manager
	coord     *hitl.Coordinator
	messaging messaging.Client
}

// NewSessionTools builds the tool set bound to session.
func NewSessionTools(session *models.AgentSession, manager *Manager, coord *hitl.Coordinator, msg messaging.Client) *SessionTools {
	return &SessionTools{session: session, manager: manager, coord: coord, messaging: msg}
}

// CreateTaskPlanTool lets a reactive-mode model lay down its own markdown
// checklist, used by the deterministic completion check.
type CreateTaskPlanTool struct{ st *SessionTools }

func (t *CreateTaskPlanTool) Name() string { return "create_task_plan" }
func (t *CreateTaskPlanTool) Description() string {
	return "Record a markdown checklist of steps for this objective, using '- [ ] step' per item."
}
func (t *CreateTaskPlanTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"plan_markdown":{"type":"string"}},"required":["plan_markdown"]}`)
}
func (t *CreateTaskPlanTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		PlanMarkdown string `json:"plan_markdown"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	t.st.session.TaskPlan = args.PlanMarkdown
	if err := t.st.manager.Save(ctx, t.st.session); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("saved plan in memory but failed to persist: %v", err)}, nil
	}
	return &models.ToolResult{Content: "task plan recorded"}, nil
}

// GetTaskPlanTool returns the session's current checklist.
type GetTaskPlanTool struct{ st *SessionTools }

func (t *GetTaskPlanTool) Name() string        { return "get_task_plan" }
func (t *GetTaskPlanTool) Description() string { return "Return the current task plan checklist." }
func (t *GetTaskPlanTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (t *GetTaskPlanTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	if t.st.session.TaskPlan == "" {
		return &models.ToolResult{Content: "no task plan recorded yet"}, nil
	}
	return &models.ToolResult{Content: t.st.session.TaskPlan}, nil
}

// UpdateTaskStatusTool flips one checklist item from "[ ]" to "[x]" by
// matching its description text, the simplest markdown-native update.
type UpdateTaskStatusTool struct{ st *SessionTools }

func (t *UpdateTaskStatusTool) Name() string { return "update_task_status" }
func (t *UpdateTaskStatusTool) Description() string {
	return "Mark a task plan item done by matching its description text."
}
func (t *UpdateTaskStatusTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"description_contains":{"type":"string"}},"required":["description_contains"]}`)
}
func (t *UpdateTaskStatusTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		DescriptionContains string `json:"description_contains"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}

	lines := strings.Split(t.st.session.TaskPlan, "\n")
	updated := false
	for i, line := range lines {
		if strings.Contains(line, "[ ]") && strings.Contains(line, args.DescriptionContains) {
			lines[i] = strings.Replace(line, "[ ]", "[x]", 1)
			updated = true
			break
		}
	}
	if !updated {
		return &models.ToolResult{Content: "no matching pending item found", IsError: true}, nil
	}
	t.st.session.TaskPlan = strings.Join(lines, "\n")
	if err := t.st.manager.Save(ctx, t.st.session); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("updated in memory but failed to persist: %v", err)}, nil
	}
	return &models.ToolResult{Content: "task marked done"}, nil
}

// RequestUserApprovalTool suspends the session on the HITL rendezvous until
// the user's next message resolves it, or it times out.
type RequestUserApprovalTool struct{ st *SessionTools }

func (t *RequestUserApprovalTool) Name() string { return "request_user_approval" }
func (t *RequestUserApprovalTool) Description() string {
	return "Ask the user a yes/no or free-text question and block until they answer."
}
func (t *RequestUserApprovalTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"question":{"type":"string"}},"required":["question"]}`)
}
func (t *RequestUserApprovalTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}

	if _, err := t.st.messaging.SendMessage(ctx, t.st.session.Handle, args.Question); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("failed to send approval question: %v", err), IsError: true}, nil
	}
	answer := t.st.coord.RequestApproval(ctx, t.st.session.Handle, args.Question)
	if answer == hitl.TimeoutSentinel {
		return &models.ToolResult{Content: "user did not respond in time"}, nil
	}
	return &models.ToolResult{Content: answer}, nil
}

// All returns every session-scoped tool, ready for toolrouter.Registry
// registration under a session-private category.
func (st *SessionTools) All() []toolrouter.Tool {
	return []toolrouter.Tool{
		&CreateTaskPlanTool{st: st},
		&GetTaskPlanTool{st: st},
		&UpdateTaskStatusTool{st: st},
		&RequestUserApprovalTool{st: st},
	}
}
