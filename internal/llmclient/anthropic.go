package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/relaymind/conduit/pkg/models"
)

// AnthropicClient implements Client against the Claude Messages API.
type AnthropicClient struct {
	client       anthropic.Client
	defaultModel string
	maxRetries   int
	retryDelay   time.Duration
}

// AnthropicConfig configures an AnthropicClient.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

// NewAnthropicClient builds an AnthropicClient from config.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llmclient: anthropic api key is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}, nil
}

func (c *AnthropicClient) Name() string { return "anthropic" }

func (c *AnthropicClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}

	messages, err := c.convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("llmclient: convert messages: %w", err)
	}
	params.Messages = messages

	if len(req.Tools) > 0 {
		tools, err := c.convertTools(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("llmclient: convert tools: %w", err)
		}
		params.Tools = tools
	}

	var msg *anthropic.Message
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		msg, err = c.client.Messages.New(ctx, params)
		if err == nil {
			break
		}
		if !isRetryableAnthropicError(err) {
			return nil, fmt.Errorf("llmclient: anthropic request failed: %w", err)
		}
		if attempt == c.maxRetries {
			break
		}
		backoff := c.retryDelay * time.Duration(math.Pow(2, float64(attempt)))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("llmclient: anthropic max retries exceeded: %w", err)
	}

	resp := &ChatResponse{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	var text strings.Builder
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			input, _ := json.Marshal(variant.Input)
			resp.ToolCalls = append(resp.ToolCalls, models.ToolCall{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: input,
			})
		}
	}
	resp.Text = StripReasoningTags(text.String())
	return resp, nil
}

func (c *AnthropicClient) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, errors.New("llmclient: anthropic does not provide an embeddings endpoint; configure memory.embedding_provider to openai")
}

func (c *AnthropicClient) convertMessages(messages []Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		if m.Content != "" {
			content = append(content, anthropic.NewTextBlock(m.Content))
		}
		if m.Role == models.RoleTool {
			content = append(content, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		}
		for _, tc := range m.ToolCalls {
			var input map[string]any
			if len(tc.Input) > 0 {
				if err := json.Unmarshal(tc.Input, &input); err != nil {
					return nil, fmt.Errorf("invalid tool call input for %s: %w", tc.Name, err)
				}
			}
			content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}

		if m.Role == models.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}
	return result, nil
}

func (c *AnthropicClient) convertTools(tools []ToolDef) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(t.Schema, &schema); err != nil {
			return nil, fmt.Errorf("invalid schema for tool %s: %w", t.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid schema for tool %s", t.Name)
		}
		param.OfTool.Description = anthropic.String(t.Description)
		result = append(result, param)
	}
	return result, nil
}

func isRetryableAnthropicError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection reset")
}
