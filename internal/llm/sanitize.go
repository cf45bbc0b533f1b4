package llm

import "strings"

// StripThinking drops <think>...</think> reasoning blocks that some local
// models (deepseek-r1, qwen3) emit before their answer. An unclosed block
// swallows the rest of the text.
func StripThinking(s string) string {
	var b strings.Builder
	for {
		before, rest, found := strings.Cut(s, "<think>")
		b.WriteString(before)
		if !found {
			break
		}
		_, after, closed := strings.Cut(rest, "</think>")
		if !closed {
			break
		}
		s = after
	}
	return strings.TrimSpace(b.String())
}
