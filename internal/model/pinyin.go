package model

import "strings"

// NormalizePinyin returns the canonical spelling used as a reading key:
// lower case, trimmed, with ü (or u:) written as v. Tone digits are kept.
func NormalizePinyin(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "u:", "v")
	s = strings.ReplaceAll(s, "ü", "v")
	return s
}
