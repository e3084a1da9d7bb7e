package contextbuilder

import "strings"

// capabilityDescriptions documents, per tool category, what the model is
// capable of doing when that category is in scope for the turn. Keyed the
// same way toolrouter.StaticCategories is.
var capabilityDescriptions = map[string]string{
	"selfcode":     "Read, search, and (when write access is enabled) modify this codebase's own source files.",
	"conversation": "Recall recent messages, prior summaries, and stored memories for this conversation.",
	"notes":        "Search, list, and create free-form notes.",
	"evaluation":   "Inspect and curate the eval dataset used to track reply quality over time.",
	"debugging":    "Inspect traces and logs for recent turns.",
	"shell":        "Run shell commands and manage background processes, subject to policy approval.",
	"projects":     "Browse and update tracked project notes, files, status, and tasks.",
	"github":       "Search, read, and comment on GitHub issues, pull requests, and code.",
}

// alwaysIncludedCommands are surfaced in every non-empty capabilities
// section regardless of classified category, since command dispatch
// (/cancel, /approve, /reject) is always in scope.
const alwaysIncludedCommands = "Handle /cancel, /approve, and /reject commands that control an in-flight agent session or pending approval."

// BuildCapabilitiesSection renders the <capabilities> section body for the
// given classified categories. An empty or ["none"] category set means no
// capabilities beyond the conversation itself are in scope, signaled by
// returning an empty string so the caller's AddSection omits the section
// entirely.
func BuildCapabilitiesSection(categories []string) string {
	if len(categories) == 0 || (len(categories) == 1 && categories[0] == "none") {
		return ""
	}

	var lines []string
	for _, cat := range categories {
		if desc, ok := capabilityDescriptions[cat]; ok {
			lines = append(lines, "- "+desc)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	lines = append(lines, "- "+alwaysIncludedCommands)
	return strings.Join(lines, "\n")
}
