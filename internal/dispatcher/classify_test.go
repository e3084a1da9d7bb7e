package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaymind/conduit/internal/toolrouter"
)

func newBareDispatcher(t *testing.T, llm *fakeLLM) *Dispatcher {
	t.Helper()
	return newTestDispatcher(t, llm, nil, nil)
}

func TestClassify_URLFastPathForcesFetchCategory(t *testing.T) {
	d := newBareDispatcher(t, &fakeLLM{})
	cats := d.classify(context.Background(), "check out https://example.com/page", nil, nil)
	assert.Contains(t, cats, toolrouter.FetchCategory)
}

func TestClassify_FallsBackToStickyWhenClassifierLLMIsNil(t *testing.T) {
	d := newBareDispatcher(t, &fakeLLM{})
	cats := d.classify(context.Background(), "what's the weather", nil, []string{"weather"})
	assert.Equal(t, []string{"weather"}, cats)
}

func TestClassify_NoStickyAndNilLLMReturnsEmpty(t *testing.T) {
	d := newBareDispatcher(t, &fakeLLM{})
	cats := d.classify(context.Background(), "hi there", nil, nil)
	assert.Empty(t, cats)
}
