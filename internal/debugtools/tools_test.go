package debugtools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/pkg/models"
)

func ctxWithHandle(handle string) context.Context {
	return context.WithValue(context.Background(), obslog.HandleKey, handle)
}

func TestGetTraceTool_ReturnsTraceAndSpans(t *testing.T) {
	repo := repository.NewInMemory()
	trace := &models.Trace{ID: "trace-1", Handle: "+15551234567", Input: "hi", Output: "hello", Status: models.StatusCompleted}
	require.NoError(t, repo.SaveTrace(context.Background(), trace))
	span := &models.Span{TraceID: trace.ID, Name: "tool:search", Kind: models.SpanKindTool, Status: models.StatusCompleted, DurationMS: 12}
	require.NoError(t, repo.SaveSpan(context.Background(), span))

	tool := NewGetTraceTool(repo)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"trace_id":"`+trace.ID+`"}`))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Contains(t, result.Content, "tool:search")
}

func TestGetTraceTool_UnknownID(t *testing.T) {
	tool := NewGetTraceTool(repository.NewInMemory())
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"trace_id":"nope"}`))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestGetRecentTracesTool_FiltersByHandle(t *testing.T) {
	repo := repository.NewInMemory()
	require.NoError(t, repo.SaveTrace(context.Background(), &models.Trace{ID: "trace-a", Handle: "+15551234567", Status: models.StatusCompleted}))
	require.NoError(t, repo.SaveTrace(context.Background(), &models.Trace{ID: "trace-b", Handle: "+19998887777", Status: models.StatusCompleted}))

	tool := NewGetRecentTracesTool(repo)
	result, err := tool.Execute(ctxWithHandle("+15551234567"), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, result.IsError)
}

func TestGetLogsTool_NoPathConfigured(t *testing.T) {
	tool := NewGetLogsTool("")
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Contains(t, result.Content, "stdout")
}

func TestGetLogsTool_TailsConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conduit.log")
	require.NoError(t, os.WriteFile(path, []byte("line1\nline2\nline3\n"), 0o644))

	tool := NewGetLogsTool(path)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"lines":2}`))
	require.NoError(t, err)
	require.NotContains(t, result.Content, "line1")
	require.Contains(t, result.Content, "line3")
}
