package agentruntime

import (
	"fmt"
	"strings"

	"github.com/relaymind/conduit/pkg/models"
)

// WorkerToolSets maps each typed worker to the tool categories it may draw
// from (spec §4.7.1 table). WorkerGeneral is the fallback with every
// category available.
var WorkerToolSets = map[models.WorkerType][]string{
	models.WorkerReader:   {"conversation", "selfcode", "evaluation", "notes", "debugging"},
	models.WorkerAnalyzer: {"evaluation", "selfcode", "debugging"},
	models.WorkerCoder:    {"selfcode", "shell"},
	models.WorkerReporter: {"evaluation", "notes", "debugging"},
	models.WorkerGeneral:  {"selfcode", "conversation", "notes", "evaluation", "debugging", "shell", "projects", "github"},
}

// BuildWorkerPrompt assembles a worker's instructions: the original
// objective, this task's description, the expected output format, and any
// prior task results it may need as input.
func BuildWorkerPrompt(plan *models.AgentPlan, task models.TaskStep, priorResults []models.TaskStep) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall objective: %s\n\n", plan.Objective)
	fmt.Fprintf(&sb, "Your task: %s\n\n", task.Description)
	sb.WriteString("Respond with plain text describing what you did and what you found; this becomes the task result.\n")

	if len(priorResults) > 0 {
		sb.WriteString("\nPrior task results:\n")
		for _, pr := range priorResults {
			if pr.Result == "" {
				continue
			}
			fmt.Fprintf(&sb, "- Task %d: %s\n", pr.ID, pr.Result)
		}
	}
	return sb.String()
}
