// Package contextbuilder assembles the single consolidated system message
// sent to the LLM for each turn: a base prompt followed by XML-delimited
// sections for memories, projects, notes, recent activity, capabilities, and
// the rolling conversation summary (spec §4.9). It also estimates and logs
// the token budget consumed by the assembled message set.
package contextbuilder

import (
	"fmt"
	"sort"
	"strings"
)

// sectionOrder fixes the order sections are emitted in, regardless of the
// order add_section was called in.
var sectionOrder = []string{
	"user_memories",
	"active_projects",
	"relevant_notes",
	"recent_activity",
	"capabilities",
	"conversation_summary",
}

// Builder accumulates named, XML-delimited sections around a base prompt.
type Builder struct {
	basePrompt string
	sections   map[string]string
}

// New starts a Builder from the agent's base system prompt.
func New(basePrompt string) *Builder {
	return &Builder{basePrompt: basePrompt, sections: make(map[string]string)}
}

// AddSection registers content under tag. An empty content is a no-op so
// callers can unconditionally call AddSection for optional context.
func (b *Builder) AddSection(tag, content string) *Builder {
	content = strings.TrimSpace(content)
	if content == "" {
		return b
	}
	b.sections[tag] = content
	return b
}

// BuildSystemMessage renders the base prompt followed by every non-empty
// section, in sectionOrder, as a single string. Sections added under a tag
// not in sectionOrder are appended afterward in an arbitrary-but-stable
// order, so a caller experimenting with a new section tag never loses it.
func (b *Builder) BuildSystemMessage() string {
	var sb strings.Builder
	sb.WriteString(b.basePrompt)

	seen := make(map[string]bool, len(sectionOrder))
	for _, tag := range sectionOrder {
		seen[tag] = true
		if content, ok := b.sections[tag]; ok {
			writeSection(&sb, tag, content)
		}
	}
	var extra []string
	for tag := range b.sections {
		if !seen[tag] {
			extra = append(extra, tag)
		}
	}
	sort.Strings(extra)
	for _, tag := range extra {
		writeSection(&sb, tag, b.sections[tag])
	}
	return sb.String()
}

func writeSection(sb *strings.Builder, tag, content string) {
	fmt.Fprintf(sb, "\n\n<%s>\n%s\n</%s>", tag, content, tag)
}
