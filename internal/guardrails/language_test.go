package guardrails

import "testing"

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"english", "What is today and how are you doing for the meeting", "en"},
		{"spanish", "Qué día es hoy y cómo estás con la reunión", "es"},
		{"empty defaults to english", "", "en"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := detectLanguage(tc.text)
			if got != tc.want {
				t.Errorf("detectLanguage(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}
