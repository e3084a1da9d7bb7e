// Package guardrails validates outbound replies through deterministic and
// LLM-based checks, emits pass/fail scores to the trace, and performs
// single-shot remediation on failure (spec §4.4).
package guardrails

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/tracing"
	"github.com/relaymind/conduit/pkg/models"
)

// CheckName enumerates the closed set of guardrail identifiers.
type CheckName string

const (
	CheckNotEmpty       CheckName = "not_empty"
	CheckExcessiveLen   CheckName = "excessive_length"
	CheckNoRawToolJSON  CheckName = "no_raw_tool_json"
	CheckLanguageMatch  CheckName = "language_match"
	CheckNoPII          CheckName = "no_pii"
	CheckToolCoherence  CheckName = "tool_coherence"
	CheckHallucination  CheckName = "hallucination_check"
)

// minLanguageCheckLen is the character floor below which language_match is
// skipped entirely (spec invariant 8).
const minLanguageCheckLen = 30

// Config controls which checks run and their bounds.
type Config struct {
	Enabled       bool
	LLMChecks     bool
	LLMTimeout    time.Duration
	MaxReplyChars int
}

// Result is the outcome of one check.
type Result struct {
	Check CheckName
	Pass  bool
	Score float64
	Note  string
}

// Pipeline runs deterministic and optional LLM checks over a reply and can
// remediate single-shot failures.
type Pipeline struct {
	cfg    Config
	llm    llmclient.Client
	tracer *tracing.Recorder
	log    *obslog.Logger
}

// New builds a guardrails Pipeline.
func New(cfg Config, llm llmclient.Client, tracer *tracing.Recorder, log *obslog.Logger) *Pipeline {
	if cfg.MaxReplyChars <= 0 {
		cfg.MaxReplyChars = 8000
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 3 * time.Second
	}
	return &Pipeline{cfg: cfg, llm: llm, tracer: tracer, log: log.WithFields("component", "guardrails")}
}

var rawToolJSONPattern = regexp.MustCompile(`(?i)"tool_calls"\s*:|"function_call"\s*:|\{\s*"name"\s*:\s*"[a-z_]+"\s*,\s*"arguments"`)

// Evaluate runs every enabled check and emits a pass/fail score per check
// onto the trace. It fails open: an internal panic/error in any single
// check counts as a pass (spec "Evaluation policy").
func (p *Pipeline) Evaluate(ctx context.Context, traceID, userText, reply string, toolsUsed bool) []Result {
	if !p.cfg.Enabled {
		return nil
	}

	var results []Result
	results = append(results, p.runSafe(CheckNotEmpty, func() Result { return checkNotEmpty(reply) }))
	results = append(results, p.runSafe(CheckExcessiveLen, func() Result { return checkExcessiveLength(reply, p.cfg.MaxReplyChars) }))
	results = append(results, p.runSafe(CheckNoRawToolJSON, func() Result { return checkNoRawToolJSON(reply) }))
	results = append(results, p.runSafe(CheckLanguageMatch, func() Result { return checkLanguageMatch(userText, reply) }))
	results = append(results, p.runSafe(CheckNoPII, func() Result { return checkNoPII(userText, reply) }))

	if p.cfg.LLMChecks && p.llm != nil {
		if toolsUsed {
			results = append(results, p.runLLMCheck(ctx, CheckToolCoherence, toolCoherencePrompt(userText, reply)))
		}
		results = append(results, p.runLLMCheck(ctx, CheckHallucination, hallucinationPrompt(userText, reply)))
	}

	for _, r := range results {
		if err := p.tracer.RecordScore(ctx, traceID, "", string(r.Check), r.Score, models.ScoreSourceSystem, r.Note); err != nil {
			p.log.Warn(ctx, "guardrails: record score failed", "check", r.Check, "error", err)
		}
	}
	return results
}

func (p *Pipeline) runSafe(name CheckName, fn func() Result) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Check: name, Pass: true, Score: 1.0, Note: fmt.Sprintf("check panicked, failing open: %v", r)}
		}
	}()
	return fn()
}

func (p *Pipeline) runLLMCheck(ctx context.Context, name CheckName, prompt string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()

	resp, err := p.llm.Chat(ctx, llmclient.ChatRequest{Messages: []llmclient.Message{{Role: models.RoleUser, Content: prompt}}})
	if err != nil {
		// Timeout or failure counts as pass (fail-open + "Timeouts count as pass").
		return Result{Check: name, Pass: true, Score: 1.0, Note: "llm check unavailable, passed by default"}
	}
	answer := strings.ToLower(strings.TrimSpace(llmclient.StripReasoningTags(resp.Text)))
	pass := strings.HasPrefix(answer, "yes")
	score := 0.0
	if pass {
		score = 1.0
	}
	return Result{Check: name, Pass: pass, Score: score}
}

func checkNotEmpty(reply string) Result {
	pass := len(strings.TrimSpace(reply)) > 0
	return boolResult(CheckNotEmpty, pass)
}

func checkExcessiveLength(reply string, max int) Result {
	pass := len(reply) <= max
	return boolResult(CheckExcessiveLen, pass)
}

func checkNoRawToolJSON(reply string) Result {
	pass := !rawToolJSONPattern.MatchString(reply)
	return boolResult(CheckNoRawToolJSON, pass)
}

// checkLanguageMatch compares the detected language of userText and reply,
// but only when both are at least minLanguageCheckLen characters (invariant
// 8); shorter text always passes.
func checkLanguageMatch(userText, reply string) Result {
	if utf8.RuneCountInString(userText) < minLanguageCheckLen || utf8.RuneCountInString(reply) < minLanguageCheckLen {
		return Result{Check: CheckLanguageMatch, Pass: true, Score: 1.0}
	}
	inLang := detectLanguage(userText)
	outLang := detectLanguage(reply)
	pass := inLang == outLang
	r := boolResult(CheckLanguageMatch, pass)
	r.Note = inLang
	return r
}

func checkNoPII(userText, reply string) Result {
	redacted, found := RedactPII(reply, userText)
	pass := !found
	r := boolResult(CheckNoPII, pass)
	r.Note = redacted
	return r
}

func boolResult(name CheckName, pass bool) Result {
	score := 0.0
	if pass {
		score = 1.0
	}
	return Result{Check: name, Pass: pass, Score: score}
}

func toolCoherencePrompt(userText, reply string) string {
	return fmt.Sprintf("User asked: %q\nAssistant used tools and replied: %q\nIs the reply coherent with the tool-assisted context? Answer yes or no.", userText, reply)
}

func hallucinationPrompt(userText, reply string) string {
	return fmt.Sprintf("User asked: %q\nAssistant replied: %q\nDoes the reply avoid fabricating facts not supported by context? Answer yes or no.", userText, reply)
}
