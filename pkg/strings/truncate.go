package strings

import (
	"strings"
)

// MinTruncateLen is the minimum maxLen value for TruncateSingleLine.
// Values smaller than this would not leave room for meaningful content
// plus "...".
const MinTruncateLen = 4

// TruncateSingleLine flattens a string to a single line and truncates it
// to maxLen characters. Newlines are replaced with spaces and runs of
// whitespace collapse into single spaces; "..." is appended when the
// string was cut.
//
// Status reasons and event messages pass through here before storage, so
// a multi-line wrapped error never breaks a status column or a YAML
// document.
//
// The function operates on runes rather than bytes, so truncation never
// lands in the middle of a multi-byte character.
func TruncateSingleLine(s string, maxLen int) string {
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
