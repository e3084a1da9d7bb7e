package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/relaymind/conduit/pkg/models"
)

// OpenAIClient implements Client against OpenAI's chat and embeddings APIs.
type OpenAIClient struct {
	client         *openai.Client
	defaultModel   string
	embeddingModel string
	maxRetries     int
	retryDelay     time.Duration
}

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	DefaultModel   string
	EmbeddingModel string
	MaxRetries     int
	RetryDelay     time.Duration
}

// NewOpenAIClient builds an OpenAIClient from config.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llmclient: openai api key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}

	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(conf),
		defaultModel:   cfg.DefaultModel,
		embeddingModel: cfg.EmbeddingModel,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
	}, nil
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages, err := c.convertMessages(req.System, req.Messages)
	if err != nil {
		return nil, fmt.Errorf("llmclient: convert messages: %w", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = c.convertTools(req.Tools)
	}

	var resp openai.ChatCompletionResponse
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err = c.client.CreateChatCompletion(ctx, chatReq)
		if err == nil {
			break
		}
		if !isRetryableOpenAIError(err) {
			return nil, fmt.Errorf("llmclient: openai request failed: %w", err)
		}
		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay * time.Duration(attempt+1)):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("llmclient: openai max retries exceeded: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("llmclient: openai returned no choices")
	}

	choice := resp.Choices[0]
	out := &ChatResponse{
		Text:         StripReasoningTags(choice.Message.Content),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, models.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("llmclient: openai embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("llmclient: openai returned no embedding")
	}
	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, f := range resp.Data[0].Embedding {
		vec[i] = float64(f)
	}
	return vec, nil
}

func (c *OpenAIClient) convertMessages(system string, messages []Message) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		role := string(m.Role)
		if m.Role == models.RoleTool {
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
			continue
		}
		msg := openai.ChatCompletionMessage{Role: role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Input),
				},
			})
		}
		result = append(result, msg)
	}
	return result, nil
}

func (c *OpenAIClient) convertTools(tools []ToolDef) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		var params any
		_ = json.Unmarshal(t.Schema, &params)
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return result
}

func isRetryableOpenAIError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection reset")
}
