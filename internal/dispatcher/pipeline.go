package dispatcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relaymind/conduit/internal/contextbuilder"
	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/internal/toolloop"
	"github.com/relaymind/conduit/pkg/models"
)

// runTurn drives phases A-D: ingest, retrieval, classification, and
// build+generate. It saves the conversation's sticky categories (or clears
// them when no categories apply) itself, and returns the model's reply and
// whether tools were used, for the guardrails step that follows.
func (d *Dispatcher) runTurn(ctx context.Context, traceID, handle, text string) (string, bool, error) {
	conv, err := d.repo.GetOrCreateConversation(ctx, handle)
	if err != nil {
		return "", false, fmt.Errorf("get or create conversation: %w", err)
	}

	// Phase A (ingest), in parallel.
	var queryEmbedding []float64
	var dailyLog string
	ingest, ingestCtx := errgroup.WithContext(ctx)
	ingest.Go(func() error {
		vec, err := d.llm.Embed(ingestCtx, text)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		queryEmbedding = vec
		return nil
	})
	ingest.Go(func() error {
		return d.repo.AppendMessage(ingestCtx, &models.Message{
			ConversationID: conv.ID,
			Role:           models.RoleUser,
			Content:        text,
		})
	})
	ingest.Go(func() error {
		dailyLog = contextbuilder.LoadDailyLogExcerpt(d.dailyLogDir, time.Now())
		return nil
	})
	if err := ingest.Wait(); err != nil {
		return "", false, err
	}

	// Phase B (retrieval), in parallel.
	var memories []models.ScoredMemory
	var notes []models.ScoredMemory
	var history []models.Message
	var summary *models.ConversationSummary
	var sticky *models.StickyCategories
	var activeMemories []models.Memory

	retrieval, retrievalCtx := errgroup.WithContext(ctx)
	retrieval.Go(func() error {
		m, err := contextbuilder.RelevantMemories(retrievalCtx, d.repo, handle, queryEmbedding, d.memCfg.TopKFallback, d.memCfg.SimilarityThreshold)
		if err != nil {
			return fmt.Errorf("relevant memories: %w", err)
		}
		memories = m
		return nil
	})
	retrieval.Go(func() error {
		n, err := contextbuilder.RelevantNotes(retrievalCtx, d.repo, handle, queryEmbedding, d.memCfg.TopKFallback)
		if err != nil {
			return fmt.Errorf("relevant notes: %w", err)
		}
		notes = n
		return nil
	})
	retrieval.Go(func() error {
		h, s, err := contextbuilder.GetWindowedHistory(retrievalCtx, d.repo, handle, d.cfg.HistoryVerbatimCount)
		if err != nil {
			return fmt.Errorf("windowed history: %w", err)
		}
		history, summary = h, s
		return nil
	})
	retrieval.Go(func() error {
		s, err := d.repo.GetStickyCategories(retrievalCtx, conv.ID)
		if err != nil && err != repository.ErrNotFound {
			return fmt.Errorf("sticky categories: %w", err)
		}
		sticky = s
		return nil
	})
	retrieval.Go(func() error {
		m, err := d.repo.ActiveMemories(retrievalCtx, handle)
		if err != nil {
			return fmt.Errorf("active memories: %w", err)
		}
		activeMemories = m
		return nil
	})
	if err := retrieval.Wait(); err != nil {
		return "", false, err
	}

	var stickyCategories []string
	if sticky != nil {
		stickyCategories = sticky.Categories
	}

	// Phase C (classification).
	categories := d.classify(ctx, text, history, stickyCategories)

	// Phase D (build + generate).
	sections := contextbuilder.New(agentBasePrompt).
		AddSection("user_memories", contextbuilder.RenderMemories(memories)).
		AddSection("relevant_notes", contextbuilder.RenderNotes(notes)).
		AddSection("recent_activity", dailyLog).
		AddSection("capabilities", contextbuilder.BuildCapabilitiesSection(categories))
	if summary != nil {
		sections.AddSection("conversation_summary", summary.Content)
	}
	systemPrompt := sections.BuildSystemMessage()

	messages := make([]llmclient.Message, 0, len(history)+2)
	messages = append(messages, llmclient.Message{Role: models.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, llmclient.Message{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID, ToolCalls: m.ToolCalls})
	}
	if facts := contextbuilder.RenderUserFacts(contextbuilder.ExtractUserFacts(activeMemories)); facts != "" {
		messages = append(messages, llmclient.Message{Role: models.RoleSystem, Content: facts})
	}
	messages = append(messages, llmclient.Message{Role: models.RoleUser, Content: text})

	contextbuilder.LogContextBudget(ctx, d.log, messages, contextbuilder.DefaultTokenLimit)

	if len(categories) == 0 || (len(categories) == 1 && categories[0] == "none") {
		resp, err := d.llm.Chat(ctx, llmclient.ChatRequest{Messages: messages})
		if err != nil {
			return "", false, fmt.Errorf("chat: %w", err)
		}
		if err := d.repo.SetStickyCategories(ctx, &models.StickyCategories{ConversationID: conv.ID, Categories: nil}); err != nil {
			d.log.Warn(ctx, "dispatcher: failed to clear sticky categories", "error", err)
		}
		return llmclient.StripReasoningTags(resp.Text), false, nil
	}

	reply, err := d.executor.Run(ctx, toolloop.Request{
		Handle:      handle,
		UserRequest: text,
		Messages:    messages,
		Categories:  categories,
		MaxTools:    d.cfg.MaxToolsPerCall,
		TraceID:     traceID,
	})
	if err != nil {
		return "", true, fmt.Errorf("tool loop: %w", err)
	}
	if err := d.repo.SetStickyCategories(ctx, &models.StickyCategories{ConversationID: conv.ID, Categories: categories, UpdatedAt: time.Now()}); err != nil {
		d.log.Warn(ctx, "dispatcher: failed to save sticky categories", "error", err)
	}
	return reply, true, nil
}

// agentBasePrompt is the fixed preamble every turn's system message starts
// from, before ContextBuilder appends the per-turn XML sections.
const agentBasePrompt = "You are a helpful, proactive personal assistant with access to tools for this conversation. Use them when they help; answer directly otherwise."
