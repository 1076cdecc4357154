// Package utils holds small helpers shared by the CLI and the prompt
// builder.
package utils

import "strings"

const charsPerToken = 4

// CountTokens estimates the number of tokens in text at roughly four
// characters per token. Non-empty text is at least one token.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / charsPerToken
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text to roughly fit within limit tokens. When a
// newline falls in the last quarter of the kept text the cut moves back to
// it so table rows are not split.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * charsPerToken
	if charLimit >= len(runes) {
		return text
	}
	kept := string(runes[:charLimit])
	if i := strings.LastIndexByte(kept, '\n'); i >= len(kept)*3/4 {
		return kept[:i+1]
	}
	return kept
}

// TokenBreakdown returns a simple breakdown map of labeled sections to token counts.
func TokenBreakdown(sections map[string]string) map[string]int {
	out := make(map[string]int, len(sections))
	for k, v := range sections {
		out[k] = CountTokens(v)
	}
	return out
}
