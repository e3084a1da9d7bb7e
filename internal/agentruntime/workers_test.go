package agentruntime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaymind/conduit/pkg/models"
)

func TestWorkerToolSets_CoversEveryWorkerType(t *testing.T) {
	for _, wt := range []models.WorkerType{models.WorkerReader, models.WorkerAnalyzer, models.WorkerCoder, models.WorkerReporter, models.WorkerGeneral} {
		cats, ok := WorkerToolSets[wt]
		assert.True(t, ok, "missing tool set for %s", wt)
		assert.NotEmpty(t, cats)
	}
}

func TestBuildWorkerPrompt_IncludesObjectiveTaskAndPriorResults(t *testing.T) {
	plan := &models.AgentPlan{Objective: "ship the feature"}
	task := models.TaskStep{ID: 2, Description: "write tests"}
	prior := []models.TaskStep{{ID: 1, Result: "read the code"}}

	prompt := BuildWorkerPrompt(plan, task, prior)
	assert.Contains(t, prompt, "ship the feature")
	assert.Contains(t, prompt, "write tests")
	assert.Contains(t, prompt, "read the code")
}

func TestBuildWorkerPrompt_SkipsEmptyPriorResults(t *testing.T) {
	plan := &models.AgentPlan{Objective: "x"}
	task := models.TaskStep{ID: 1, Description: "y"}
	prior := []models.TaskStep{{ID: 0, Result: ""}}
	prompt := BuildWorkerPrompt(plan, task, prior)
	assert.NotContains(t, prompt, "Task 0")
}
