package agentruntime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/pkg/models"
)

func TestInjectTaskPlan_ReplacesPriorMessageInsteadOfDuplicating(t *testing.T) {
	messages := []llmclient.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleSystem, Content: taskPlanMarker + "\nold plan"},
	}
	updated := injectTaskPlan(messages, "new plan")

	markerCount := 0
	for _, m := range updated {
		if strings.HasPrefix(m.Content, taskPlanMarker) {
			markerCount++
		}
	}
	assert.Equal(t, 1, markerCount)
	assert.Len(t, updated, 2)
	assert.Contains(t, updated[1].Content, "new plan")
}

func TestInjectTaskPlan_NoOpWhenPlanEmpty(t *testing.T) {
	messages := []llmclient.Message{{Role: models.RoleUser, Content: "hi"}}
	updated := injectTaskPlan(messages, "")
	assert.Len(t, updated, 1)
}

func TestExtractScratchpad_FindsFragment(t *testing.T) {
	reply := "Here's my update.\n<scratchpad>remember X and Y</scratchpad>\nDone for now."
	assert.Equal(t, "remember X and Y", extractScratchpad(reply))
}

func TestExtractScratchpad_EmptyWhenAbsent(t *testing.T) {
	assert.Equal(t, "", extractScratchpad("no scratchpad here"))
}

func TestIsComplete_DeterministicChecklist(t *testing.T) {
	assert.True(t, isComplete("- [x] step one\n- [x] step two", "still working"))
	assert.False(t, isComplete("- [x] step one\n- [ ] step two", "still working"))
}

func TestIsComplete_NaturalLanguageFallback(t *testing.T) {
	assert.True(t, isComplete("", "I have finished the objective now."))
	assert.False(t, isComplete("", "still in progress"))
}
