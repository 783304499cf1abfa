// Package strings holds string helpers shared by output code.
package strings

import (
	"strings"
)

// DefaultColumnMaxLen is the widest a free-text table column is rendered.
const DefaultColumnMaxLen = 60

// MinTruncateLen is the smallest maxLen Truncate honours: one character plus "...".
const MinTruncateLen = 4

// Truncate collapses all whitespace runs in s into single spaces and cuts the
// result to maxLen runes, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
