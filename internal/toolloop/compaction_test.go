package toolloop

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactToolOutput_ShortTextUnchanged(t *testing.T) {
	out := CompactToolOutput("t", "short", "req", 100, nil)
	assert.Equal(t, "short", out)
}

func TestCompactToolOutput_PreservesIdentifierField(t *testing.T) {
	payload := `{"full_name":"wasap-assistant","description":"` + strings.Repeat("x", 50) + `"}`
	out := CompactToolOutput("repo_tool", payload, "req", 10, nil)
	assert.Contains(t, out, "wasap-assistant")
}

func TestCompactToolOutput_ListAnnotatesTruncation(t *testing.T) {
	var items []string
	for i := 0; i < 50; i++ {
		items = append(items, `{"id":"item-`+strings.Repeat("0", 3)+`","name":"n"}`)
	}
	payload := "[" + strings.Join(items, ",") + "]"
	out := CompactToolOutput("list_tool", payload, "req", 200, nil)
	assert.Contains(t, out, "Showing")
}

func TestCompactToolOutput_FallsBackToSummarizer(t *testing.T) {
	longText := strings.Repeat("not json ", 3000)
	out := CompactToolOutput("t", longText, "req", 100, func(tool, userReq, text string) string {
		return "summary: " + tool
	})
	assert.Equal(t, "summary: t", out)
}

func TestCompactToolOutput_HardTruncatesWhenNoSummarizer(t *testing.T) {
	longText := strings.Repeat("a", 500)
	out := CompactToolOutput("t", longText, "req", 100, nil)
	assert.True(t, strings.HasPrefix(out, strings.Repeat("a", 100)))
	assert.Contains(t, out, "truncated")
}
