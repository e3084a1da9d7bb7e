package guardrails

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactPII_RedactsNewEmail(t *testing.T) {
	redacted, found := RedactPII("Here's your contact: leaked@example.com", "what's my contact info")
	assert.True(t, found)
	assert.NotContains(t, redacted, "leaked@example.com")
	assert.Contains(t, redacted, "[REDACTED]")
}

func TestRedactPII_PreservesEchoedUserInput(t *testing.T) {
	userInput := "my email is leaked@example.com, please reply there"
	reply := "Sure, I'll reach out to leaked@example.com shortly."
	redacted, found := RedactPII(reply, userInput)
	assert.False(t, found)
	assert.Equal(t, reply, redacted)
}

func TestRedactPII_RedactsBearerToken(t *testing.T) {
	reply := "Use this: Bearer abcdefghijklmnopqrstuvwx123456"
	redacted, found := RedactPII(reply, "")
	assert.True(t, found)
	assert.False(t, strings.Contains(redacted, "abcdefghijklmnopqrstuvwx123456"))
}

func TestRedactPII_NoMatchesPassesThrough(t *testing.T) {
	reply := "The weather is nice today."
	redacted, found := RedactPII(reply, "")
	assert.False(t, found)
	assert.Equal(t, reply, redacted)
}
