// Package toolloop drives the bounded LLM<->tool iteration loop: up to
// MAX_TOOL_ITERATIONS rounds of LLM -> tool_calls -> execute -> observe,
// parallel tool dispatch, the request_more_tools meta-tool, context
// compaction, and tool-result clearing (spec §4.2).
package toolloop

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relaymind/conduit/internal/hitl"
	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/messaging"
	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/policyengine"
	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/internal/tracing"
	"github.com/relaymind/conduit/pkg/models"
)

// DefaultMaxIterations bounds how many LLM<->tool rounds a single call to
// Run performs before returning whatever text the model last produced.
const DefaultMaxIterations = 8

// keepLastNToolMessages is how many of the most recent role=tool messages
// survive clearing; anything older is replaced by a placeholder.
const keepLastNToolMessages = 2

// PolicyChecker is the cross-cutting authorization gate every regular tool
// call (never the meta-tool) is wrapped by.
type PolicyChecker interface {
	Evaluate(toolName string, args map[string]string) policyengine.Decision
}

// Auditor records one completed tool call dispatch to the hash-chained
// audit trail (spec invariant 9). A nil Auditor on Executor disables
// auditing entirely, e.g. in tests that don't exercise it.
type Auditor interface {
	Append(entry *models.CommandAuditEntry) error
}

// Executor runs the bounded tool-calling loop.
type Executor struct {
	llm          llmclient.Client
	registry     *toolrouter.Registry
	policy       PolicyChecker
	auditor      Auditor
	hitl         *hitl.Coordinator
	msg          messaging.Client
	tracer       *tracing.Recorder
	log          *obslog.Logger
	maxIters     int
	compactAt    int
	compactor    func(ctx context.Context, toolName, text, userRequest string) string
	schemas      *schemaCache
}

// Options configures an Executor; zero values take spec defaults.
type Options struct {
	MaxIterations       int
	CompactionThreshold int
	// Compact overrides the default compaction strategy (for tests); nil
	// uses CompactToolOutput with no LLM summarizer.
	Compact func(ctx context.Context, toolName, text, userRequest string) string
}

// New builds an Executor. auditor may be nil to disable audit recording.
// msg may be nil, in which case an "ask" suspension still waits on the HITL
// rendezvous but never sends the question anywhere — only useful in tests.
func New(llm llmclient.Client, registry *toolrouter.Registry, policy PolicyChecker, auditor Auditor, coordinator *hitl.Coordinator, msg messaging.Client, tracer *tracing.Recorder, log *obslog.Logger, opts Options) *Executor {
	maxIters := opts.MaxIterations
	if maxIters <= 0 {
		maxIters = DefaultMaxIterations
	}
	threshold := opts.CompactionThreshold
	if threshold <= 0 {
		threshold = DefaultCompactionThreshold
	}
	compact := opts.Compact
	if compact == nil {
		compact = func(ctx context.Context, toolName, text, userRequest string) string {
			return CompactToolOutput(toolName, text, userRequest, threshold, nil)
		}
	}
	return &Executor{
		llm:       llm,
		registry:  registry,
		policy:    policy,
		auditor:   auditor,
		hitl:      coordinator,
		msg:       msg,
		tracer:    tracer,
		log:       log.WithFields("component", "toolloop"),
		maxIters:  maxIters,
		compactAt: threshold,
		compactor: compact,
		schemas:   newSchemaCache(),
	}
}

// Request bundles the inputs for a single tool-loop run.
type Request struct {
	Handle       string
	// SessionID identifies the agentruntime background session driving this
	// run, empty for a dispatcher-originated turn with no session.
	SessionID    string
	UserRequest  string
	Messages     []llmclient.Message
	Categories   []string
	MaxTools     int
	TraceID      string
	ParentSpanID string
	// OnToolCall, when set, is invoked once per dispatched regular tool
	// call (never the meta-tool) with the tool name and a stable hash of
	// its arguments — used by callers that need a fingerprint stream, e.g.
	// agentruntime's reactive-mode loop detector.
	OnToolCall func(toolName, argsHash string)
}

// toolCallKey is a (tool_name, params_hash) pair. Nothing in this package
// uses it: the meta-tool merge step dedups by tool name alone, and callers
// implementing loop detection receive (name, hash) pairs via OnToolCall.
type toolCallKey struct {
	Name string
	Args string
}

// Run drives the bounded loop and returns the model's final text reply.
func (e *Executor) Run(ctx context.Context, req Request) (string, error) {
	messages := append([]llmclient.Message{}, req.Messages...)
	maxTools := req.MaxTools
	if maxTools <= 0 {
		maxTools = toolrouter.DefaultMaxTools
	}

	tools := toolrouter.Select(req.Categories, e.registry, maxTools)
	allCategories := e.registry.Categories()

	var lastText string
	for i := 0; i < e.maxIters; i++ {
		spanName := fmt.Sprintf("llm:iteration_%d", i+1)
		span := e.tracer.StartSpan(ctx, req.TraceID, req.ParentSpanID, spanName, models.SpanKindGeneration, "")

		resp, err := e.llm.Chat(span.Context(), llmclient.ChatRequest{
			Messages: messages,
			Tools:    append([]llmclient.ToolDef{metaToolDef(allCategories)}, toDefs(tools)...),
		})
		if err != nil {
			span.End("", err)
			return "", fmt.Errorf("toolloop: llm chat iteration %d: %w", i+1, err)
		}
		span.SetMetadata(map[string]any{
			models.MetaGenInputTokens:  resp.InputTokens,
			models.MetaGenOutputTokens: resp.OutputTokens,
		})

		resp.Text = llmclient.StripReasoningTags(resp.Text)

		if len(resp.ToolCalls) == 0 {
			span.End(resp.Text, nil)
			messages = append(messages, llmclient.Message{Role: models.RoleAssistant, Content: resp.Text})
			return resp.Text, nil
		}
		span.End("", nil)
		lastText = resp.Text

		metaCalls, regularCalls := partitionToolCalls(resp.ToolCalls)

		for _, call := range metaCalls {
			tools = e.applyMetaCall(span.Context(), call, tools, allCategories, &messages)
		}

		if len(regularCalls) > 0 {
			results := e.dispatchRegular(span.Context(), req, regularCalls, span.ID())
			for _, r := range results {
				messages = append(messages, llmclient.Message{
					Role:       models.RoleTool,
					ToolCallID: r.ToolCallID,
					Content:    e.maybeCompact(span.Context(), regularCallName(regularCalls, r.ToolCallID), r.Content, req.UserRequest),
				})
			}
		}

		clearOldToolMessages(messages, keepLastNToolMessages)
	}

	return lastText, nil
}

func regularCallName(calls []models.ToolCall, id string) string {
	for _, c := range calls {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (e *Executor) maybeCompact(ctx context.Context, toolName, text, userRequest string) string {
	if len(text) <= e.compactAt {
		return text
	}
	return e.compactor(ctx, toolName, text, userRequest)
}

// partitionToolCalls splits calls into meta and regular groups while
// preserving each group's original relative order (spec §4.2 step 2).
func partitionToolCalls(calls []models.ToolCall) (meta, regular []models.ToolCall) {
	for _, c := range calls {
		if c.Name == toolrouter.MetaToolName {
			meta = append(meta, c)
		} else {
			regular = append(regular, c)
		}
	}
	return meta, regular
}

// applyMetaCall resolves the requested categories to tool schemas, merges
// them into tools deduped by name, and appends a synthetic observation
// message. Meta calls run sequentially and are never policy-checked or
// audited.
func (e *Executor) applyMetaCall(ctx context.Context, call models.ToolCall, tools []toolrouter.Schema, allCategories []string, messages *[]llmclient.Message) []toolrouter.Schema {
	args, err := toolrouter.ParseMetaToolArgs(call.Input)
	if err != nil {
		*messages = append(*messages, llmclient.Message{Role: models.RoleTool, ToolCallID: call.ID, Content: "could not parse requested categories"})
		return tools
	}

	added := toolrouter.Select(args.Categories, e.registry, len(args.Categories)*toolrouter.DefaultMaxTools)
	seen := make(map[string]bool, len(tools))
	for _, t := range tools {
		seen[t.Name] = true
	}
	var newNames []string
	for _, a := range added {
		if seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		tools = append(tools, a)
		newNames = append(newNames, a.Name)
	}

	summary := fmt.Sprintf("Loaded %d tools: %v", len(newNames), newNames)
	*messages = append(*messages, llmclient.Message{Role: models.RoleTool, ToolCallID: call.ID, Content: summary})
	e.log.Debug(ctx, "toolloop: request_more_tools", "categories", args.Categories, "reason", args.Reason, "added", newNames)
	return tools
}

// dispatchRegular runs every regular tool call concurrently, each wrapped
// by the policy engine, reassembling results in original index order
// regardless of completion order (invariant 5).
func (e *Executor) dispatchRegular(ctx context.Context, req Request, calls []models.ToolCall, parentSpanID string) []models.ToolResult {
	results := make([]models.ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			result := e.dispatchOne(gctx, req, call, parentSpanID)
			mu.Lock()
			results[i] = result
			mu.Unlock()
			return nil // a single tool failure never cancels siblings
		})
	}
	_ = g.Wait()
	return results
}

func (e *Executor) dispatchOne(ctx context.Context, req Request, call models.ToolCall, parentSpanID string) models.ToolResult {
	if req.OnToolCall != nil {
		req.OnToolCall(call.Name, hashArgs(call.Input))
	}

	started := time.Now()
	span := e.tracer.StartSpan(ctx, req.TraceID, parentSpanID, "tool:"+call.Name, models.SpanKindTool, string(call.Input))
	defer func() {
		if r := recover(); r != nil {
			span.End("", fmt.Errorf("panic: %v", r))
		}
	}()

	decision := e.evaluatePolicy(call)
	switch decision.Outcome {
	case models.DecisionDeny:
		msg := fmt.Sprintf("🚫 Command blocked: %s", decision.Reason)
		span.End(msg, nil)
		e.audit(ctx, req, call, decision.Outcome, started, msg, "")
		return models.ToolResult{ToolCallID: call.ID, Content: msg, IsError: true}
	case models.DecisionAsk:
		approved := e.requestApproval(ctx, req.Handle, call, decision.Reason)
		if !approved {
			span.End("permission denied", nil)
			e.audit(ctx, req, call, models.DecisionAskRejected, started, "permission denied", "")
			return models.ToolResult{ToolCallID: call.ID, Content: "permission denied", IsError: true}
		}
		decision.Outcome = models.DecisionAskApproved
	}

	tool, ok := e.registry.Lookup(call.Name)
	if !ok {
		msg := fmt.Sprintf("unknown tool %q", call.Name)
		span.End(msg, nil)
		e.audit(ctx, req, call, decision.Outcome, started, "", msg)
		return models.ToolResult{ToolCallID: call.ID, Content: msg, IsError: true}
	}

	if err := e.schemas.validateArgs(call.Name, tool.Schema(), call.Input); err != nil {
		msg := err.Error()
		span.End(msg, nil)
		e.audit(ctx, req, call, decision.Outcome, started, "", msg)
		return models.ToolResult{ToolCallID: call.ID, Content: msg, IsError: true}
	}

	result, err := tool.Execute(span.Context(), call.Input)
	if err != nil {
		msg := err.Error()
		span.End(msg, err)
		e.audit(ctx, req, call, decision.Outcome, started, "", msg)
		return models.ToolResult{ToolCallID: call.ID, Content: msg, IsError: true}
	}
	result.ToolCallID = call.ID
	span.End(result.Content, nil)
	e.audit(ctx, req, call, decision.Outcome, started, result.Content, "")
	return *result
}

// audit records one dispatched tool call to the hash-chained trail. Audit
// failures are logged, never surfaced to the caller: a broken audit sink
// must not block tool execution.
func (e *Executor) audit(ctx context.Context, req Request, call models.ToolCall, decision models.PolicyDecision, started time.Time, stdout, errText string) {
	if e.auditor == nil {
		return
	}
	now := time.Now()
	entry := &models.CommandAuditEntry{
		SessionID:     req.SessionID,
		Handle:        req.Handle,
		Command:       call.Name,
		Arguments:     flattenArgsAny(call.Input),
		Decision:      decision,
		DurationMS:    now.Sub(started).Milliseconds(),
		StdoutPreview: truncatePreview(stdout),
		StderrPreview: "",
		Error:         errText,
		StartedAt:     started,
		CompletedAt:   now,
	}
	if err := e.auditor.Append(entry); err != nil {
		e.log.Warn(ctx, "toolloop: audit append failed", "error", err, "tool", call.Name)
	}
}

const auditPreviewLimit = 500

func truncatePreview(s string) string {
	if len(s) <= auditPreviewLimit {
		return s
	}
	return s[:auditPreviewLimit] + "...[truncated]"
}

func flattenArgsAny(raw json.RawMessage) map[string]any {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	return generic
}

func (e *Executor) evaluatePolicy(call models.ToolCall) policyengine.Decision {
	if e.policy == nil {
		return policyengine.Decision{Outcome: models.DecisionAllow}
	}
	args := flattenArgs(call.Input)
	return e.policy.Evaluate(call.Name, args)
}

func (e *Executor) requestApproval(ctx context.Context, handle string, call models.ToolCall, reason string) bool {
	if e.hitl == nil {
		return false
	}
	question := fmt.Sprintf("Approve running %s? (%s)", call.Name, reason)
	if e.msg != nil {
		if _, err := e.msg.SendMessage(ctx, handle, question); err != nil {
			e.log.Warn(ctx, "toolloop: failed to send approval question", "error", err, "handle", handle)
		}
	}
	answer := e.hitl.RequestApproval(ctx, handle, question)
	return hitl.IsApproval(answer)
}

// hashArgs fingerprints a tool call's raw arguments for loop detection.
func hashArgs(raw json.RawMessage) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}

func flattenArgs(raw json.RawMessage) map[string]string {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	out := make(map[string]string, len(generic))
	for k, v := range generic {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func toDefs(schemas []toolrouter.Schema) []llmclient.ToolDef {
	defs := make([]llmclient.ToolDef, 0, len(schemas))
	for _, s := range schemas {
		defs = append(defs, llmclient.ToolDef{Name: s.Name, Description: s.Description, Schema: s.Input})
	}
	return defs
}

func metaToolDef(categories []string) llmclient.ToolDef {
	s := toolrouter.MetaToolSchema(categories)
	return llmclient.ToolDef{Name: s.Name, Description: s.Description, Schema: s.Input}
}

// clearOldToolMessages replaces the content of every role=tool message
// older than the keepLast most recent with a one-line placeholder, keeping
// history bounded across iterations without losing the turn structure.
func clearOldToolMessages(messages []llmclient.Message, keepLast int) {
	var toolIdx []int
	for i, m := range messages {
		if m.Role == models.RoleTool {
			toolIdx = append(toolIdx, i)
		}
	}
	if len(toolIdx) <= keepLast {
		return
	}
	cutoff := len(toolIdx) - keepLast
	for _, i := range toolIdx[:cutoff] {
		if strings.HasPrefix(messages[i].Content, "[tool output cleared") {
			continue // already cleared in an earlier iteration
		}
		messages[i].Content = fmt.Sprintf("[tool output cleared, %d chars]", len(messages[i].Content))
	}
}
