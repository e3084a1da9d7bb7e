// Package evaltools implements the "evaluation" tool category (spec §4.3):
// read/write access to the curated eval dataset (spec §6
// EvalDatasetEntry), the same store the background curation worker
// (internal/agentruntime/curation.go) writes into automatically.
package evaltools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/pkg/models"
)

var allEntryTypes = []models.EntryType{models.EntryGolden, models.EntryFailure, models.EntryCorrection}

// GetDatasetStatsTool reports per-type counts in the eval dataset.
type GetDatasetStatsTool struct {
	repo repository.EvalRepository
}

func NewGetDatasetStatsTool(repo repository.EvalRepository) *GetDatasetStatsTool {
	return &GetDatasetStatsTool{repo: repo}
}

func (t *GetDatasetStatsTool) Name() string        { return "get_dataset_stats" }
func (t *GetDatasetStatsTool) Description() string { return "Get counts of golden/failure/correction entries in the eval dataset." }
func (t *GetDatasetStatsTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *GetDatasetStatsTool) Execute(ctx context.Context, _ json.RawMessage) (*models.ToolResult, error) {
	var b strings.Builder
	total := 0
	for _, et := range allEntryTypes {
		entries, err := t.repo.ListEvalEntries(ctx, et)
		if err != nil {
			return &models.ToolResult{Content: fmt.Sprintf("list failed: %v", err), IsError: true}, nil
		}
		fmt.Fprintf(&b, "%s: %d\n", et, len(entries))
		total += len(entries)
	}
	fmt.Fprintf(&b, "total: %d\n", total)
	return &models.ToolResult{Content: b.String()}, nil
}

// AddDatasetEntryTool manually curates one interaction into the eval dataset.
type AddDatasetEntryTool struct {
	repo repository.EvalRepository
}

func NewAddDatasetEntryTool(repo repository.EvalRepository) *AddDatasetEntryTool {
	return &AddDatasetEntryTool{repo: repo}
}

func (t *AddDatasetEntryTool) Name() string        { return "add_dataset_entry" }
func (t *AddDatasetEntryTool) Description() string { return "Add a golden/failure/correction entry to the eval dataset." }
func (t *AddDatasetEntryTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"trace_id":{"type":"string"},"entry_type":{"type":"string","enum":["golden","failure","correction"]},"input":{"type":"string"},"output":{"type":"string"},"expected_output":{"type":"string"}},"required":["entry_type","input","output"]}`)
}

func (t *AddDatasetEntryTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		TraceID        string `json:"trace_id"`
		EntryType      string `json:"entry_type"`
		Input          string `json:"input"`
		Output         string `json:"output"`
		ExpectedOutput string `json:"expected_output"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("invalid arguments: %v", err), IsError: true}, nil
	}
	entryType := models.EntryType(args.EntryType)
	valid := false
	for _, et := range allEntryTypes {
		if et == entryType {
			valid = true
			break
		}
	}
	if !valid {
		return &models.ToolResult{Content: "entry_type must be golden, failure, or correction", IsError: true}, nil
	}
	entry := &models.EvalDatasetEntry{
		TraceID:        args.TraceID,
		EntryType:      entryType,
		Input:          args.Input,
		Output:         args.Output,
		ExpectedOutput: args.ExpectedOutput,
	}
	if err := t.repo.SaveEvalEntry(ctx, entry); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("save failed: %v", err), IsError: true}, nil
	}
	return &models.ToolResult{Content: "entry added"}, nil
}

// ListEvalEntriesTool lists entries of a given type.
type ListEvalEntriesTool struct {
	repo repository.EvalRepository
}

func NewListEvalEntriesTool(repo repository.EvalRepository) *ListEvalEntriesTool {
	return &ListEvalEntriesTool{repo: repo}
}

func (t *ListEvalEntriesTool) Name() string        { return "list_eval_entries" }
func (t *ListEvalEntriesTool) Description() string { return "List eval dataset entries of a given type." }
func (t *ListEvalEntriesTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"entry_type":{"type":"string","enum":["golden","failure","correction"]}},"required":["entry_type"]}`)
}

func (t *ListEvalEntriesTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		EntryType string `json:"entry_type"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.EntryType == "" {
		return &models.ToolResult{Content: "entry_type is required", IsError: true}, nil
	}
	entries, err := t.repo.ListEvalEntries(ctx, models.EntryType(args.EntryType))
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("list failed: %v", err), IsError: true}, nil
	}
	if len(entries) == 0 {
		return &models.ToolResult{Content: "no entries"}, nil
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "#%d trace=%s input=%q\n", e.ID, e.TraceID, e.Input)
	}
	return &models.ToolResult{Content: b.String()}, nil
}

// ActivatePromptVersionTool switches which version of a named prompt
// template is active, deactivating every other version in the same
// transaction (spec invariant 10).
type ActivatePromptVersionTool struct {
	repo repository.EvalRepository
}

func NewActivatePromptVersionTool(repo repository.EvalRepository) *ActivatePromptVersionTool {
	return &ActivatePromptVersionTool{repo: repo}
}

func (t *ActivatePromptVersionTool) Name() string { return "activate_prompt_version" }
func (t *ActivatePromptVersionTool) Description() string {
	return "Activate a specific version of a named prompt template, deactivating all others."
}
func (t *ActivatePromptVersionTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"prompt_name":{"type":"string"},"version":{"type":"integer"}},"required":["prompt_name","version"]}`)
}

func (t *ActivatePromptVersionTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		PromptName string `json:"prompt_name"`
		Version    int    `json:"version"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.PromptName == "" {
		return &models.ToolResult{Content: "prompt_name is required", IsError: true}, nil
	}
	if err := t.repo.ActivatePromptVersion(ctx, args.PromptName, args.Version); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("activate failed: %v", err), IsError: true}, nil
	}
	return &models.ToolResult{Content: fmt.Sprintf("%s v%d is now active", args.PromptName, args.Version)}, nil
}

var (
	_ toolrouter.Tool = (*GetDatasetStatsTool)(nil)
	_ toolrouter.Tool = (*AddDatasetEntryTool)(nil)
	_ toolrouter.Tool = (*ListEvalEntriesTool)(nil)
	_ toolrouter.Tool = (*ActivatePromptVersionTool)(nil)
)
