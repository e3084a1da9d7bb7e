package agentruntime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/repository"
)

func TestCreateSessionTool_RequiresHandleInContext(t *testing.T) {
	manager := NewManager(repository.NewInMemory())
	var launched bool
	tool := NewCreateSessionTool(manager, nil, func(context.Context, func(context.Context)) { launched = true })

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"objective":"do the thing"}`))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.False(t, launched)
}

func TestCreateSessionTool_RequiresObjective(t *testing.T) {
	manager := NewManager(repository.NewInMemory())
	tool := NewCreateSessionTool(manager, nil, func(context.Context, func(context.Context)) {})

	ctx := obslog.WithHandle(context.Background(), "h1")
	result, err := tool.Execute(ctx, json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestCreateSessionTool_LaunchesSessionAndReportsID(t *testing.T) {
	manager := NewManager(repository.NewInMemory())
	var launched bool
	tool := NewCreateSessionTool(manager, nil, func(ctx context.Context, fn func(context.Context)) {
		launched = true
	})

	ctx := obslog.WithHandle(context.Background(), "h1")
	result, err := tool.Execute(ctx, json.RawMessage(`{"objective":"research the bug"}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.True(t, launched)
	assert.Contains(t, result.Content, "research the bug")
}

func TestCreateSessionTool_RejectsSecondConcurrentSession(t *testing.T) {
	manager := NewManager(repository.NewInMemory())
	tool := NewCreateSessionTool(manager, nil, func(context.Context, func(context.Context)) {})

	ctx := obslog.WithHandle(context.Background(), "h1")
	_, err := tool.Execute(ctx, json.RawMessage(`{"objective":"first"}`))
	require.NoError(t, err)

	result, err := tool.Execute(ctx, json.RawMessage(`{"objective":"second"}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content, "already running")
}
