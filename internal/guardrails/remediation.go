package guardrails

import (
	"context"
	"fmt"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/tracing"
	"github.com/relaymind/conduit/pkg/models"
)

// cannedApology is returned when not_empty remediation's single retry is
// still empty.
const cannedApology = "Sorry, I couldn't put together a reply to that. Could you rephrase?"

// Regenerator re-runs the reply-generating LLM call with additional
// context, used by remediation to retry once.
type Regenerator func(ctx context.Context, extraSystemHint string) (string, error)

// Remediate performs the single-shot, non-recursive remediation described
// in spec §4.4. It returns the (possibly remediated) reply to deliver.
func (p *Pipeline) Remediate(ctx context.Context, traceID, parentSpanID string, failed []Result, originalReply, userText string, regen Regenerator) string {
	reply := originalReply

	for _, r := range failed {
		if r.Pass {
			continue
		}
		switch r.Check {
		case CheckNoPII:
			redacted, _ := RedactPII(reply, userText)
			reply = redacted
		case CheckNotEmpty:
			if regen == nil {
				reply = cannedApology
				continue
			}
			retried, err := regen(ctx, "")
			if err != nil || len(retried) == 0 {
				reply = cannedApology
			} else {
				reply = retried
			}
		case CheckLanguageMatch:
			lang := r.Note
			if regen == nil {
				continue
			}
			hint := fmt.Sprintf("IMPORTANT: user wrote in %s. Rewrite ONLY in %s. IMPORTANTE: el usuario escribió en %s. Reescribe SOLO en %s.", lang, lang, lang, lang)
			span := p.tracer.StartSpan(ctx, traceID, parentSpanID, "guardrails:remediation", models.SpanKindGeneration, reply)
			span.SetMetadata(map[string]any{"check": string(CheckLanguageMatch), "lang_code": lang})
			retried, err := regen(span.Context(), hint)
			if err == nil && retried != "" {
				reply = retried
				span.End(retried, nil)
			} else {
				span.End("", err)
			}
		default:
			p.log.Info(ctx, "guardrails: check failed, passing through", "check", r.Check)
		}
	}
	return reply
}

// DefaultRegenerator adapts an llmclient.Client into a Regenerator over a
// fixed message history, appending extraSystemHint as a trailing system
// message when non-empty.
func DefaultRegenerator(llm llmclient.Client, messages []llmclient.Message) Regenerator {
	return func(ctx context.Context, extraSystemHint string) (string, error) {
		req := llmclient.ChatRequest{Messages: messages}
		if extraSystemHint != "" {
			req.Messages = append(append([]llmclient.Message{}, messages...), llmclient.Message{Role: models.RoleSystem, Content: extraSystemHint})
		}
		resp, err := llm.Chat(ctx, req)
		if err != nil {
			return "", err
		}
		return llmclient.StripReasoningTags(resp.Text), nil
	}
}
