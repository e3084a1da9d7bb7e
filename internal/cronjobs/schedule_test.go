package cronjobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExpression_AcceptsStandardFiveField(t *testing.T) {
	assert.NoError(t, ValidateExpression("0 9 * * *"))
}

func TestValidateExpression_RejectsGarbage(t *testing.T) {
	assert.Error(t, ValidateExpression("not a cron expression"))
}

func TestNextRun_ComputesNextFireTime(t *testing.T) {
	after := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	next, err := NextRun("0 9 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, 9, next.Hour())
	assert.True(t, next.After(after))
}

func TestNextRun_RejectsInvalidExpression(t *testing.T) {
	_, err := NextRun("garbage", time.Now())
	assert.Error(t, err)
}
