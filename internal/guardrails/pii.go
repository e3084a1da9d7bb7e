package guardrails

import "regexp"

// piiPatterns catches common secret/PII shapes that should never appear in
// an outbound reply: bearer tokens, emails, phone numbers, and a few
// national-id-shaped sequences.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-.]{16,}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	regexp.MustCompile(`\+?\d[\d\s\-()]{8,}\d`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), // SSN-shaped
}

// RedactPII replaces any PII-shaped substring in reply with "[REDACTED]",
// but only for matches not already present verbatim in userInput (spec:
// "introduced by the reply but not present in the user input"). It returns
// the (possibly redacted) text and whether any redaction occurred.
func RedactPII(reply, userInput string) (string, bool) {
	redacted := reply
	found := false
	for _, re := range piiPatterns {
		redacted = re.ReplaceAllStringFunc(redacted, func(match string) string {
			if containsSubstring(userInput, match) {
				return match
			}
			found = true
			return "[REDACTED]"
		})
	}
	return redacted, found
}

func containsSubstring(haystack, needle string) bool {
	return len(needle) > 0 && regexp.MustCompile(regexp.QuoteMeta(needle)).MatchString(haystack)
}
