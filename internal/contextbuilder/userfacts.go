package contextbuilder

import (
	"regexp"
	"strings"

	"github.com/relaymind/conduit/pkg/models"
)

// factPattern captures first-person declarative statements worth repeating
// back to the model verbatim ("my name is...", "I work at...", "I prefer
// ..."), the shape spec §4.1 phase B calls "user facts (regex-extracted
// from active memories)".
var factPattern = regexp.MustCompile(`(?i)\b(my name is|i work at|i live in|i prefer|i use|i'm|i am)\b.*`)

// ExtractUserFacts scans a handle's active memories for first-person fact
// sentences, regardless of MemoryCategory — a preference or project-context
// memory can still contain a fact worth surfacing verbatim.
func ExtractUserFacts(memories []models.Memory) []string {
	seen := make(map[string]bool)
	var facts []string
	for _, m := range memories {
		for _, sentence := range splitSentences(m.Content) {
			if !factPattern.MatchString(sentence) {
				continue
			}
			trimmed := strings.TrimSpace(sentence)
			if trimmed == "" || seen[trimmed] {
				continue
			}
			seen[trimmed] = true
			facts = append(facts, trimmed)
		}
	}
	return facts
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '\n' || r == ';'
	})
}

// RenderUserFacts formats facts as the high-priority system message spec
// §4.1 phase D injects "just before the tool loop".
func RenderUserFacts(facts []string) string {
	if len(facts) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Known facts about this user:\n")
	for _, f := range facts {
		sb.WriteString("- ")
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
