// Package dispatcher implements the request pipeline that fans inbound
// webhook messages out to dedup, HITL routing, command handling, context
// assembly, classification, generation, guardrails, and delivery (spec
// §4.1).
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relaymind/conduit/internal/config"
	"github.com/relaymind/conduit/internal/contextbuilder"
	"github.com/relaymind/conduit/internal/guardrails"
	"github.com/relaymind/conduit/internal/hitl"
	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/messaging"
	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/internal/toolloop"
	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/internal/tracing"
	"github.com/relaymind/conduit/pkg/models"
)

// AgentSessions is the subset of agentruntime.Manager the dispatcher's
// /cancel command needs. A narrow interface here avoids dispatcher
// importing agentruntime (which itself needs the tool registry and
// executor the dispatcher already owns), keeping the dependency one-way:
// cmd/conduit wires both, dispatcher only knows the shape it calls.
type AgentSessions interface {
	CancelSession(ctx context.Context, handle string) error
}

// Dispatcher owns the full request pipeline. It is safe for concurrent use
// by multiple webhook handler goroutines.
type Dispatcher struct {
	repo       repository.Repository
	llm        llmclient.Client
	messaging  messaging.Client
	tracer     *tracing.Recorder
	log        *obslog.Logger
	guardrails *guardrails.Pipeline
	classifier *toolrouter.Classifier
	registry   *toolrouter.Registry
	executor   *toolloop.Executor
	hitlCoord  *hitl.Coordinator
	sessions   AgentSessions

	cfg        config.DispatcherConfig
	memCfg     config.MemoryConfig
	evalCfg    config.EvalConfig
	dailyLogDir string

	tasks *taskTracker
}

// New builds a Dispatcher. The executor and registry are expected to have
// already been wired with every static and dynamic tool category.
func New(
	repo repository.Repository,
	llm llmclient.Client,
	msg messaging.Client,
	tracer *tracing.Recorder,
	log *obslog.Logger,
	gr *guardrails.Pipeline,
	classifier *toolrouter.Classifier,
	registry *toolrouter.Registry,
	executor *toolloop.Executor,
	hitlCoord *hitl.Coordinator,
	sessions AgentSessions,
	cfg config.DispatcherConfig,
	memCfg config.MemoryConfig,
	evalCfg config.EvalConfig,
	dailyLogDir string,
) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		llm:         llm,
		messaging:   msg,
		tracer:      tracer,
		log:         log.WithFields("component", "dispatcher"),
		guardrails:  gr,
		classifier:  classifier,
		registry:    registry,
		executor:    executor,
		hitlCoord:   hitlCoord,
		sessions:    sessions,
		cfg:         cfg,
		memCfg:      memCfg,
		evalCfg:     evalCfg,
		dailyLogDir: dailyLogDir,
		tasks:       newTaskTracker(),
	}
}

// HandleInbound runs one inbound user message through the full pipeline.
// externalID is the provider's message id, used for dedup; handle
// identifies the conversation (e.g. a phone number or chat id).
func (d *Dispatcher) HandleInbound(ctx context.Context, externalID, handle, text string) error {
	ctx = obslog.WithHandle(ctx, handle)

	// 1. Dedup.
	dup, err := d.repo.SeenExternalID(ctx, externalID)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if dup {
		d.log.Debug(ctx, "dispatcher: dropping duplicate message", "external_id", externalID)
		return nil
	}

	// 2. HITL pre-check: any in-flight approval wins over new processing.
	if d.hitlCoord.HasPending(handle) {
		if d.hitlCoord.Resolve(handle, text) {
			return nil
		}
	}

	// 3. Command check.
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		return d.handleCommand(ctx, handle, text)
	}

	// 4. Trace root.
	trace := d.tracer.StartTrace(ctx, handle, models.MessageTypeText, text)
	ctx = trace.Context()
	traceID := trace.ID()

	reply, toolsUsed, genErr := d.runTurn(ctx, traceID, handle, text)
	if genErr != nil {
		trace.End("", genErr)
		return genErr
	}

	// 9. Guardrails.
	results := d.guardrails.Evaluate(ctx, traceID, text, reply, toolsUsed)
	remediated := false
	for _, r := range results {
		if !r.Pass {
			remediated = true
			break
		}
	}
	if remediated {
		regen := guardrails.DefaultRegenerator(d.llm, []llmclient.Message{
			{Role: models.RoleUser, Content: text},
			{Role: models.RoleAssistant, Content: reply},
		})
		reply = d.guardrails.Remediate(ctx, traceID, "", results, reply, text, regen)
	}

	// 10. Deliver.
	externalOutID, err := d.messaging.SendMessage(ctx, handle, reply)
	if err != nil {
		trace.End(reply, err)
		return fmt.Errorf("send message: %w", err)
	}

	// 11. Persist & curate.
	conv, err := d.repo.GetOrCreateConversation(ctx, handle)
	if err == nil {
		_ = d.repo.AppendMessage(ctx, &models.Message{
			ConversationID: conv.ID,
			Role:           models.RoleAssistant,
			Content:        reply,
			Metadata:       map[string]any{"external_id": externalOutID},
		})
	}
	_ = contextbuilder.AppendDailyLog(d.dailyLogDir, time.Now(), fmt.Sprintf("replied to %s", handle))

	trace.End(reply, nil)

	if d.evalCfg.AutoCurate {
		d.scheduleCuration(traceID, text, reply, results, remediated)
	}

	return nil
}

// TrackBackgroundTask launches fn in its own goroutine, tracked so
// WaitForInFlight can drain it on shutdown. It is a no-op if the dispatcher
// is already shutting down.
func (d *Dispatcher) TrackBackgroundTask(ctx context.Context, fn func(context.Context)) {
	d.tasks.track(ctx, fn)
}

// WaitForInFlight blocks until every tracked background task has returned,
// or timeout elapses first.
func (d *Dispatcher) WaitForInFlight(timeout time.Duration) error {
	return d.tasks.wait(timeout)
}

// Shutdown stops new background tasks from being tracked and drains
// existing ones up to timeout.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.tasks.shutdown()
	return d.tasks.wait(timeout)
}
