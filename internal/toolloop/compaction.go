package toolloop

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultCompactionThreshold is the tool-output length, in characters,
// beyond which CompactToolOutput kicks in (spec config key
// compaction_threshold, default 20000).
const DefaultCompactionThreshold = 20000

// whitelistedFields are preserved verbatim when compacting a JSON tool
// result, since a summarizing LLM tends to hallucinate real identifiers
// (repo names, issue numbers, urls) as placeholders.
var whitelistedFields = []string{
	"name", "full_name", "id", "title", "description", "html_url", "url",
	"state", "number", "login", "status",
}

// Summarizer is an optional LLM-backed fallback used when the raw text is
// neither small enough nor structured JSON. Returning "" signals "could not
// summarize"; the caller then hard-truncates.
type Summarizer func(toolName, userRequest, text string) string

// CompactToolOutput implements spec §4.5: return text unchanged if it fits,
// otherwise extract a whitelisted field summary from JSON, otherwise
// delegate to summarize, otherwise hard-truncate with a trailing marker.
func CompactToolOutput(toolName, text, userRequest string, maxLength int, summarize Summarizer) string {
	if len(text) <= maxLength {
		return text
	}

	if compacted, ok := compactJSON(text, maxLength); ok {
		return compacted
	}

	if summarize != nil {
		if out := summarize(toolName, userRequest, text); out != "" {
			return out
		}
	}

	return text[:maxLength] + "\n...[truncated]"
}

func compactJSON(text string, maxLength int) (string, bool) {
	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		return "", false
	}

	switch v := generic.(type) {
	case []any:
		return compactList(v, maxLength), true
	case map[string]any:
		if items, ok := v["items"].([]any); ok {
			return compactList(items, maxLength), true
		}
		return compactObject(v), true
	default:
		return "", false
	}
}

func compactObject(obj map[string]any) string {
	extracted := extractWhitelisted(obj)
	raw, _ := json.Marshal(extracted)
	return string(raw)
}

func compactList(items []any, maxLength int) string {
	var b strings.Builder
	b.WriteString("[")
	shown := 0
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		piece, _ := json.Marshal(extractWhitelisted(obj))
		candidate := string(piece)
		if i > 0 {
			candidate = "," + candidate
		}
		if b.Len()+len(candidate) > maxLength-40 {
			break
		}
		b.WriteString(candidate)
		shown++
	}
	b.WriteString("]")
	if shown < len(items) {
		return fmt.Sprintf("%s\n(Showing %d of %d)", b.String(), shown, len(items))
	}
	return b.String()
}

func extractWhitelisted(obj map[string]any) map[string]any {
	out := make(map[string]any, len(whitelistedFields))
	for _, field := range whitelistedFields {
		if v, ok := obj[field]; ok {
			out[field] = v
			continue
		}
		// Flatten one level of nested user/login objects.
		if nested, ok := obj["user"].(map[string]any); ok {
			if v, ok := nested[field]; ok {
				out[field] = v
			}
		}
	}
	return out
}
