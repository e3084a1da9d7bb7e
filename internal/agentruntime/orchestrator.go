package agentruntime

import (
	"context"
	"fmt"

	"github.com/relaymind/conduit/internal/hitl"
	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/messaging"
	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/toolloop"
	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/internal/tracing"
	"github.com/relaymind/conduit/pkg/models"
)

// sessionToolCategory is the private category name session-scoped tools are
// registered under, distinct from any static category.
const sessionToolCategory = "agent_session"

// Runner wires the planner, workers, reactive loop, and persistence into
// one background-session execution (spec §4.7, "Entry point").
type Runner struct {
	llm         llmclient.Client
	baseRegistry *toolrouter.Registry
	executor    *toolloop.Executor
	manager     *Manager
	coord       *hitl.Coordinator
	messaging   messaging.Client
	tracer      *tracing.Recorder
	log         *obslog.Logger
	planner     *Planner
	bootstrapDir string
	sessionLogDir string
}

// NewRunner builds a Runner. executor must have been constructed with the
// same baseRegistry so session-scoped tools (registered per run) are
// visible to it.
func NewRunner(llm llmclient.Client, baseRegistry *toolrouter.Registry, executor *toolloop.Executor, manager *Manager, coord *hitl.Coordinator, msg messaging.Client, tracer *tracing.Recorder, log *obslog.Logger, bootstrapDir, sessionLogDir string) *Runner {
	return &Runner{
		llm: llm, baseRegistry: baseRegistry, executor: executor, manager: manager,
		coord: coord, messaging: msg, tracer: tracer, log: log.WithFields("component", "agentruntime"),
		planner: NewPlanner(llm), bootstrapDir: bootstrapDir, sessionLogDir: sessionLogDir,
	}
}

// Run executes session to completion (or cancellation). It opens its own
// trace, since the webhook trace that triggered the session has already
// closed by the time a background session starts.
func (r *Runner) Run(ctx context.Context, session *models.AgentSession) {
	trace := r.tracer.StartTrace(ctx, session.Handle, models.MessageTypeAgent, session.Objective)
	ctx = trace.Context()
	traceID := trace.ID()

	tools := NewSessionTools(session, r.manager, r.coord, r.messaging)
	for _, t := range tools.All() {
		r.baseRegistry.Register(t)
		r.baseRegistry.AddToCategory(sessionToolCategory, t.Name())
	}

	bootstrap := LoadBootstrapMessages(r.bootstrapDir)

	planSpan := r.tracer.StartSpan(ctx, traceID, "", "planner:create_plan", models.SpanKindGeneration, session.Objective)
	plan := r.planner.CreatePlan(planSpan.Context(), session.Objective, "")
	if plan != nil {
		planSpan.End(fmt.Sprintf("%d tasks", len(plan.Tasks)), nil)
	} else {
		planSpan.End("", nil)
	}
	if plan != nil && len(plan.Tasks) > 0 {
		session.Plan = plan
		status := r.runPlanner(ctx, traceID, session, bootstrap)
		trace.End(session.TaskPlan, nil)
		_ = r.manager.Finish(ctx, session, status)
		return
	}

	status := r.runReactive(ctx, traceID, session, bootstrap)
	trace.End(session.Scratchpad, nil)
	_ = r.manager.Finish(ctx, session, status)
}

func (r *Runner) sendProgress(ctx context.Context, handle, text string) {
	if _, err := r.messaging.SendMessage(ctx, handle, text); err != nil {
		r.log.Warn(ctx, "agentruntime: progress send failed", "error", err)
	}
}

// runPlanner drives UNDERSTAND (already done by the caller) through EXECUTE
// and SYNTHESIZE.
func (r *Runner) runPlanner(ctx context.Context, traceID string, session *models.AgentSession, bootstrap []llmclient.Message) models.SessionStatus {
	plan := session.Plan
	done := 0
	total := len(plan.Tasks)

	for {
		if ctx.Err() != nil {
			return models.SessionCancelled
		}
		task := plan.NextRunnable()
		if task == nil {
			if plan.AllDone() {
				break
			}
			// Nothing runnable but not all done: a dependency cycle or a
			// stuck failed task with no replan budget left.
			return models.SessionFailed
		}

		task.Status = models.TaskInProgress
		prior := completedTasks(plan)
		prompt := BuildWorkerPrompt(plan, *task, prior)
		categories := WorkerToolSets[task.WorkerType]

		span := r.tracer.StartSpan(ctx, traceID, "", fmt.Sprintf("worker:task_%d", task.ID), models.SpanKindTool, prompt)
		messages := append(append([]llmclient.Message{}, bootstrap...), llmclient.Message{Role: models.RoleUser, Content: prompt})
		result, err := r.executor.Run(span.Context(), toolloop.Request{
			Handle:       session.Handle,
			UserRequest:  prompt,
			Messages:     messages,
			Categories:   categories,
			TraceID:      traceID,
			ParentSpanID: span.ID(),
		})
		span.End(result, err)

		if err != nil {
			task.Status = models.TaskFailed
			task.Result = err.Error()
		} else {
			task.Status = models.TaskDone
			task.Result = result
			done++
		}

		r.sendProgress(ctx, session.Handle, fmt.Sprintf("🔧 %d/%d", done, total))

		if task.Status == models.TaskFailed {
			if plan.Replans >= models.MaxReplans {
				return models.SessionFailed
			}
			replanSpan := r.tracer.StartSpan(ctx, traceID, "", "planner:replan", models.SpanKindGeneration, task.Result)
			revised := r.planner.Replan(replanSpan.Context(), plan, *task)
			replanSpan.End(fmt.Sprintf("%d tasks", len(revised.Tasks)), nil)
			revised.Replans = plan.Replans + 1
			plan = revised
			session.Plan = plan
			total = len(plan.Tasks)
		}
	}

	synthSpan := r.tracer.StartSpan(ctx, traceID, "", "planner:synthesize", models.SpanKindGeneration, "")
	reply, err := r.planner.Synthesize(synthSpan.Context(), plan)
	synthSpan.End(reply, err)
	if err != nil {
		return models.SessionFailed
	}
	r.sendProgress(ctx, session.Handle, reply)
	return models.SessionCompleted
}

func completedTasks(plan *models.AgentPlan) []models.TaskStep {
	var out []models.TaskStep
	for _, t := range plan.Tasks {
		if t.Status == models.TaskDone {
			out = append(out, t)
		}
	}
	return out
}
