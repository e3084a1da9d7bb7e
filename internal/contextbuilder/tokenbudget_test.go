package contextbuilder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/internal/obslog"
)

func TestEstimateTokens_MinimumOne(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
}

func TestLogContextBudget_CrossesThresholds(t *testing.T) {
	var buf strings.Builder
	log := obslog.New(obslog.Config{Output: &buf, Format: "text"})

	small := []llmclient.Message{{Content: "hi"}}
	LogContextBudget(context.Background(), log, small, 100)
	assert.Contains(t, buf.String(), "level=INFO")

	buf.Reset()
	warn := []llmclient.Message{{Content: strings.Repeat("a", 340)}}
	LogContextBudget(context.Background(), log, warn, 100)
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	over := []llmclient.Message{{Content: strings.Repeat("a", 500)}}
	LogContextBudget(context.Background(), log, over, 100)
	assert.Contains(t, buf.String(), "level=ERROR")
}
