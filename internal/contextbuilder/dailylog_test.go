package contextbuilder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDailyLogExcerpt_MissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", LoadDailyLogExcerpt(dir, time.Now()))
}

func TestAppendThenLoadDailyLog_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, AppendDailyLog(dir, now, "ran the nightly report"))
	require.NoError(t, AppendDailyLog(dir, now, "sent summary to handle h1"))

	excerpt := LoadDailyLogExcerpt(dir, now)
	assert.Contains(t, excerpt, "ran the nightly report")
	assert.Contains(t, excerpt, "sent summary to handle h1")
}

func TestLoadDailyLogExcerpt_TruncatesToTail(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	long := make([]byte, dailyLogExcerptChars*2)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, AppendDailyLog(dir, now, string(long)))

	excerpt := LoadDailyLogExcerpt(dir, now)
	assert.LessOrEqual(t, len(excerpt), dailyLogExcerptChars)
}
