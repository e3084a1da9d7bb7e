package shellexec

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/obslog"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), 5, obslog.New(obslog.Config{}))
}

func TestRunCommandTool_RunsAllowlistedCommand(t *testing.T) {
	mgr := newTestManager(t)
	tool := NewRunCommandTool(mgr, func() bool { return true })

	args, _ := json.Marshal(map[string]any{"command": "echo hello"})
	result, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content, "hello")
}

func TestRunCommandTool_RespectsWriteDisabled(t *testing.T) {
	mgr := newTestManager(t)
	tool := NewRunCommandTool(mgr, func() bool { return false })

	args, _ := json.Marshal(map[string]any{"command": "echo hi"})
	result, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestManageProcessTool_ListEmpty(t *testing.T) {
	mgr := newTestManager(t)
	tool := NewManageProcessTool(mgr)

	args, _ := json.Marshal(map[string]any{"action": "list"})
	result, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	assert.Contains(t, result.Content, "processes")
}

func TestManager_BackgroundCapEnforced(t *testing.T) {
	mgr := NewManager(t.TempDir(), 1, obslog.New(obslog.Config{}))
	_, err := mgr.StartBackground(context.Background(), "h", "sleep 1")
	require.NoError(t, err)
	_, err = mgr.StartBackground(context.Background(), "h", "sleep 1")
	assert.Error(t, err)
}
