package llmclient

import "testing"

func TestStripReasoningTags(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no tags", "hello there", "hello there"},
		{"single block", "<think>pondering</think>hello there", "hello there"},
		{"surrounded by whitespace", "  <think>x</think>  hello  ", "hello"},
		{"multiline thinking", "<think>line one\nline two</think>final answer", "final answer"},
		{"multiple blocks", "<think>a</think>mid<think>b</think>end", "midend"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripReasoningTags(tc.in); got != tc.want {
				t.Errorf("StripReasoningTags(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
