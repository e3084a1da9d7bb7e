package evaltools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

func TestAddDatasetEntryTool_ValidatesEntryType(t *testing.T) {
	tool := NewAddDatasetEntryTool(repository.NewInMemory())
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"entry_type":"bogus","input":"x","output":"y"}`))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestAddDatasetEntryTool_SavesValidEntry(t *testing.T) {
	repo := repository.NewInMemory()
	tool := NewAddDatasetEntryTool(repo)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"entry_type":"golden","input":"2+2","output":"4"}`))
	require.NoError(t, err)
	require.False(t, result.IsError)

	list := NewListEvalEntriesTool(repo)
	listResult, err := list.Execute(context.Background(), json.RawMessage(`{"entry_type":"golden"}`))
	require.NoError(t, err)
	require.Contains(t, listResult.Content, "2+2")
}

func TestGetDatasetStatsTool_CountsByType(t *testing.T) {
	repo := repository.NewInMemory()
	add := NewAddDatasetEntryTool(repo)
	_, err := add.Execute(context.Background(), json.RawMessage(`{"entry_type":"golden","input":"a","output":"b"}`))
	require.NoError(t, err)
	_, err = add.Execute(context.Background(), json.RawMessage(`{"entry_type":"failure","input":"c","output":"d"}`))
	require.NoError(t, err)

	stats := NewGetDatasetStatsTool(repo)
	result, err := stats.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Contains(t, result.Content, "golden: 1")
	require.Contains(t, result.Content, "failure: 1")
	require.Contains(t, result.Content, "total: 2")
}

func TestListEvalEntriesTool_RequiresEntryType(t *testing.T) {
	tool := NewListEvalEntriesTool(repository.NewInMemory())
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestActivatePromptVersionTool_SwitchesActiveVersion(t *testing.T) {
	repo := repository.NewInMemory()
	require.NoError(t, repo.SavePromptVersion(context.Background(), &models.PromptVersion{PromptName: "greeting", Version: 1, Content: "hi", IsActive: true}))
	require.NoError(t, repo.SavePromptVersion(context.Background(), &models.PromptVersion{PromptName: "greeting", Version: 2, Content: "hello"}))

	tool := NewActivatePromptVersionTool(repo)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"prompt_name":"greeting","version":2}`))
	require.NoError(t, err)
	require.False(t, result.IsError)

	active, err := repo.ActivePromptVersion(context.Background(), "greeting")
	require.NoError(t, err)
	require.Equal(t, 2, active.Version)
}

func TestActivatePromptVersionTool_UnknownVersion(t *testing.T) {
	repo := repository.NewInMemory()
	require.NoError(t, repo.SavePromptVersion(context.Background(), &models.PromptVersion{PromptName: "greeting", Version: 1, Content: "hi", IsActive: true}))

	tool := NewActivatePromptVersionTool(repo)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"prompt_name":"greeting","version":99}`))
	require.NoError(t, err)
	require.True(t, result.IsError)
}
