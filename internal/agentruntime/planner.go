package agentruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/pkg/models"
)

// Planner drives the UNDERSTAND, replan, and SYNTHESIZE phases of
// planner-orchestrator mode. It never calls tools itself; workers do.
type Planner struct {
	llm llmclient.Client
}

// NewPlanner builds a Planner over llm.
func NewPlanner(llm llmclient.Client) *Planner {
	return &Planner{llm: llm}
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
var firstObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parsePlanJSON tolerantly extracts a JSON object from raw model output:
// fenced code block, raw JSON, or the first {...} substring, in that order.
func parsePlanJSON(raw string, out any) error {
	candidates := []string{}
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	trimmed := strings.TrimSpace(raw)
	candidates = append(candidates, trimmed)
	if m := firstObjectPattern.FindString(raw); m != "" {
		candidates = append(candidates, m)
	}

	var lastErr error
	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), out); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON object found")
	}
	return lastErr
}

// planJSON mirrors the wire shape the planner prompt asks for.
type planJSON struct {
	Objective      string `json:"objective"`
	ContextSummary string `json:"context_summary"`
	Tasks          []struct {
		ID          int      `json:"id"`
		Description string   `json:"description"`
		WorkerType  string   `json:"worker_type"`
		Tools       []string `json:"tools"`
		DependsOn   []int    `json:"depends_on"`
	} `json:"tasks"`
}

func (p planJSON) toPlan() *models.AgentPlan {
	plan := &models.AgentPlan{Objective: p.Objective, ContextSummary: p.ContextSummary}
	for _, t := range p.Tasks {
		wt := models.WorkerType(t.WorkerType)
		if _, ok := WorkerToolSets[wt]; !ok {
			wt = models.WorkerGeneral
		}
		plan.Tasks = append(plan.Tasks, models.TaskStep{
			ID:          t.ID,
			Description: t.Description,
			WorkerType:  wt,
			Tools:       t.Tools,
			Status:      models.TaskPending,
			DependsOn:   t.DependsOn,
		})
	}
	return plan
}

// fallbackPlan produces the single-task plan used when the planner's JSON
// cannot be parsed at all.
func fallbackPlan(objective string) *models.AgentPlan {
	return &models.AgentPlan{
		Objective: objective,
		Tasks: []models.TaskStep{
			{ID: 1, Description: objective, WorkerType: models.WorkerGeneral, Status: models.TaskPending},
		},
	}
}

const planPrompt = `Produce a JSON plan to accomplish the objective below. Respond with ONLY a JSON object shaped exactly as:
{"objective": "...", "context_summary": "...", "tasks": [{"id": 1, "description": "...", "worker_type": "reader|analyzer|coder|reporter|general", "tools": ["category", ...], "depends_on": []}]}

Objective: %s

Context:
%s`

// CreatePlan runs the UNDERSTAND phase. On JSON-parse failure it returns a
// one-task fallback plan rather than an error, per spec §4.7.1.
func (p *Planner) CreatePlan(ctx context.Context, objective, contextSummary string) *models.AgentPlan {
	resp, err := p.llm.Chat(ctx, llmclient.ChatRequest{
		Messages: []llmclient.Message{{Role: models.RoleUser, Content: fmt.Sprintf(planPrompt, objective, contextSummary)}},
	})
	if err != nil {
		return fallbackPlan(objective)
	}

	var parsed planJSON
	if err := parsePlanJSON(llmclient.StripReasoningTags(resp.Text), &parsed); err != nil || len(parsed.Tasks) == 0 {
		return fallbackPlan(objective)
	}
	return parsed.toPlan()
}

const replanPrompt = `Task %d ("%s") failed with result: %s

Current plan (JSON): %s

Produce a revised JSON plan in the same shape to recover and still reach the objective: %s`

// Replan asks the planner to revise plan after failedTask failed, returning
// the new plan. On parse failure the original plan is returned unchanged
// with its replan counter still incremented by the caller.
func (p *Planner) Replan(ctx context.Context, plan *models.AgentPlan, failedTask models.TaskStep) *models.AgentPlan {
	currentJSON, _ := json.Marshal(plan)
	resp, err := p.llm.Chat(ctx, llmclient.ChatRequest{
		Messages: []llmclient.Message{{Role: models.RoleUser, Content: fmt.Sprintf(replanPrompt, failedTask.ID, failedTask.Description, failedTask.Result, string(currentJSON), plan.Objective)}},
	})
	if err != nil {
		return plan
	}

	var parsed planJSON
	if err := parsePlanJSON(llmclient.StripReasoningTags(resp.Text), &parsed); err != nil || len(parsed.Tasks) == 0 {
		return plan
	}
	revised := parsed.toPlan()
	revised.Replans = plan.Replans
	return revised
}

const synthesizePrompt = `Objective: %s

All task results:
%s

Write the final user-facing reply summarizing what was accomplished.`

// Synthesize produces the final user-facing reply from every task's result.
func (p *Planner) Synthesize(ctx context.Context, plan *models.AgentPlan) (string, error) {
	var results strings.Builder
	for _, t := range plan.Tasks {
		fmt.Fprintf(&results, "- Task %d (%s): %s\n", t.ID, t.Status, t.Result)
	}

	resp, err := p.llm.Chat(ctx, llmclient.ChatRequest{
		Messages: []llmclient.Message{{Role: models.RoleUser, Content: fmt.Sprintf(synthesizePrompt, plan.Objective, results.String())}},
	})
	if err != nil {
		return "", fmt.Errorf("agentruntime: synthesize: %w", err)
	}
	return llmclient.StripReasoningTags(resp.Text), nil
}
