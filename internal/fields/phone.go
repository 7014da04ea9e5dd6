package fields

import "strings"

// MaxCommentLength bounds the free-text order comment.
const MaxCommentLength = 1023

// NormalizePhone strips every formatting character, leaving the canonical
// digit string. A leading plus is dropped too; the backend stores digits only.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ClampComment trims the comment to the maximum stored length.
func ClampComment(raw string) string {
	runes := []rune(raw)
	if len(runes) <= MaxCommentLength {
		return raw
	}
	return string(runes[:MaxCommentLength])
}
