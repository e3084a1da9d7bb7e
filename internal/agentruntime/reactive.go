package agentruntime

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/toolloop"
	"github.com/relaymind/conduit/pkg/models"
)

// reactiveMaxTools is the tool budget spec §4.7.2 fixes for every reactive
// round, independent of the runtime's normal max_tools_per_call config.
const reactiveMaxTools = 8

// taskPlanMarker prefixes the injected task-plan system message so a later
// round can find and replace it instead of duplicating it in history.
const taskPlanMarker = "<<CURRENT_TASK_PLAN>>"

var scratchpadPattern = regexp.MustCompile(`(?s)<scratchpad>(.*?)</scratchpad>`)
var pendingItemPattern = regexp.MustCompile(`\[ \]`)
var completionMarkerPattern = regexp.MustCompile(`(?i)\b(task complete|all done|objective (achieved|complete)|finished the (task|objective))\b`)

// runReactive drives the outer bounded loop when planner-orchestrator mode
// didn't produce a usable plan (spec §4.7.2).
func (r *Runner) runReactive(ctx context.Context, traceID string, session *models.AgentSession, bootstrap []llmclient.Message) models.SessionStatus {
	sessionLog := NewSessionLog(r.sessionLogDir, session.Handle, session.ID, r.log)
	detector := NewLoopDetector()
	messages := append([]llmclient.Message{}, bootstrap...)

	for round := 0; round < session.MaxIterations; round++ {
		if ctx.Err() != nil {
			return models.SessionCancelled
		}

		messages = injectTaskPlan(messages, session.TaskPlan)
		messages = injectScratchpad(messages, session.Scratchpad)

		var mu sync.Mutex
		var calls []Entry
		onToolCall := func(name, argsHash string) {
			mu.Lock()
			calls = append(calls, Entry{ToolName: name, ParamsHash: argsHash})
			mu.Unlock()
		}

		result, err := r.executor.Run(ctx, toolloop.Request{
			Handle:       session.Handle,
			UserRequest:  session.Objective,
			Messages:     messages,
			Categories:   []string{sessionToolCategory, "selfcode", "conversation", "debugging"},
			MaxTools:     reactiveMaxTools,
			TraceID:      traceID,
			OnToolCall:   onToolCall,
		})
		if err != nil {
			r.log.Warn(ctx, "agentruntime: reactive round failed", "round", round, "error", err)
			return models.SessionFailed
		}
		messages = append(messages, llmclient.Message{Role: models.RoleAssistant, Content: result})

		if scratch := extractScratchpad(result); scratch != "" {
			session.Scratchpad = scratch
		}
		session.Iteration = round + 1
		_ = r.manager.Save(ctx, session)

		toolNames := make([]string, 0, len(calls))
		for _, c := range calls {
			toolNames = append(toolNames, c.ToolName)
		}
		sessionLog.Append(ctx, RoundRecord{
			Round: round, Iteration: session.Iteration,
			ToolCalls:        toolNames,
			ReplyPreview:     result,
			TaskPlanSnapshot: session.TaskPlan,
		})

		if isComplete(session.TaskPlan, result) {
			return models.SessionCompleted
		}

		det := detector.Observe(calls...)
		switch det.Action {
		case ActionCircuitBreak:
			r.log.Warn(ctx, "agentruntime: loop circuit breaker tripped", "session_id", session.ID, "detector", det.Detector)
			return models.SessionFailed
		case ActionWarn:
			r.log.Warn(ctx, "agentruntime: loop warning", "session_id", session.ID, "detector", det.Detector)
			messages = append(messages, llmclient.Message{Role: models.RoleSystem, Content: "You appear to be repeating the same action. Try a different approach or conclude the task."})
		}
	}
	return models.SessionFailed
}

// injectTaskPlan replaces any previous task-plan system message (identified
// by taskPlanMarker) with a fresh one reflecting session.TaskPlan, or
// appends one if none exists yet and a plan has been recorded.
func injectTaskPlan(messages []llmclient.Message, plan string) []llmclient.Message {
	if plan == "" {
		return messages
	}
	content := taskPlanMarker + "\n" + plan

	for i, m := range messages {
		if m.Role == models.RoleSystem && strings.HasPrefix(m.Content, taskPlanMarker) {
			messages[i].Content = content
			return messages
		}
	}
	return append(messages, llmclient.Message{Role: models.RoleSystem, Content: content})
}

func injectScratchpad(messages []llmclient.Message, scratch string) []llmclient.Message {
	if scratch == "" {
		return messages
	}
	return append(messages, llmclient.Message{Role: models.RoleSystem, Content: "Scratchpad from previous round:\n" + scratch})
}

func extractScratchpad(reply string) string {
	m := scratchpadPattern.FindStringSubmatch(reply)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// isComplete checks deterministically first (a recorded plan with no
// remaining "[ ]" items) before falling back to natural-language markers in
// the reply.
func isComplete(taskPlan, reply string) bool {
	if taskPlan != "" && !pendingItemPattern.MatchString(taskPlan) {
		return true
	}
	return completionMarkerPattern.MatchString(reply)
}
