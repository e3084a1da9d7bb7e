package guardrails

import "strings"

// commonWords maps a small set of ISO 639-1 codes to frequent function
// words, enough to disambiguate the languages this runtime is expected to
// see (English/Spanish) without a full language-detection dependency.
// Kept intentionally simple: the spec only requires the check to compare
// detected ISO codes, not achieve state-of-the-art detection.
var commonWords = map[string][]string{
	"es": {"que", "de", "la", "el", "en", "y", "es", "hoy", "día", "hola", "qué", "cómo", "por", "para", "con"},
	"en": {"the", "is", "are", "and", "of", "to", "today", "hello", "what", "how", "for", "with"},
}

// detectLanguage returns a best-guess ISO 639-1 code by counting function
// word hits; defaults to "en" when no signal is found.
func detectLanguage(text string) string {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= 'à' && r <= 'ÿ')
	})
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	best, bestCount := "en", 0
	for lang, markers := range commonWords {
		count := 0
		for _, m := range markers {
			if wordSet[m] {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = lang, count
		}
	}
	return best
}
