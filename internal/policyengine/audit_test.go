package policyengine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/pkg/models"
)

func TestAuditLog_ChainsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := OpenAuditLog(path)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		entry := &models.CommandAuditEntry{
			SessionID:   "s1",
			Handle:      "user1",
			Command:     "ls",
			Decision:    models.DecisionAllow,
			StartedAt:   time.Now(),
			CompletedAt: time.Now(),
		}
		require.NoError(t, log.Append(entry))
	}

	reopened, err := OpenAuditLog(path)
	require.NoError(t, err)
	assert.NotEqual(t, GenesisHash, reopened.lastHash)
}

func TestAuditLog_FirstEntryChainsFromGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := OpenAuditLog(path)
	require.NoError(t, err)

	entry := &models.CommandAuditEntry{SessionID: "s1", Command: "ls", Decision: models.DecisionAllow}
	require.NoError(t, log.Append(entry))
	assert.Equal(t, GenesisHash, entry.PreviousHash)
	assert.NotEmpty(t, entry.EntryHash)
}

func TestVerifyChain_DetectsTamper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := OpenAuditLog(path)
	require.NoError(t, err)

	var entries []models.CommandAuditEntry
	for i := 0; i < 3; i++ {
		e := &models.CommandAuditEntry{SessionID: "s1", Command: "ls", Decision: models.DecisionAllow}
		require.NoError(t, log.Append(e))
		entries = append(entries, *e)
	}
	assert.Equal(t, -1, VerifyChain(entries))

	entries[1].Command = "tampered"
	assert.NotEqual(t, -1, VerifyChain(entries))
}
