package contextbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemMessage_OmitsEmptySections(t *testing.T) {
	msg := New("You are conduit.").
		AddSection("user_memories", "").
		AddSection("active_projects", "  ").
		BuildSystemMessage()
	assert.Equal(t, "You are conduit.", msg)
}

func TestBuildSystemMessage_OrdersKnownSections(t *testing.T) {
	msg := New("base").
		AddSection("conversation_summary", "summary text").
		AddSection("user_memories", "likes go").
		AddSection("capabilities", "can run shell").
		BuildSystemMessage()

	memIdx := indexOf(msg, "<user_memories>")
	capIdx := indexOf(msg, "<capabilities>")
	sumIdx := indexOf(msg, "<conversation_summary>")
	assert.True(t, memIdx < capIdx)
	assert.True(t, capIdx < sumIdx)
}

func TestBuildSystemMessage_XMLDelimited(t *testing.T) {
	msg := New("base").AddSection("relevant_notes", "note one").BuildSystemMessage()
	assert.Contains(t, msg, "<relevant_notes>\nnote one\n</relevant_notes>")
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
