package utils

import (
	"strings"
	"unicode"
)

// NormalizeCIK normalizes an SEC central index key: digit strings are
// zero-padded to the canonical 10 digits, anything else is treated as a
// ticker and uppercased (EDGAR accepts both forms).
func NormalizeCIK(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return strings.ToUpper(s)
		}
	}
	s = strings.TrimLeft(s, "0")
	if len(s) > 10 {
		return s
	}
	return strings.Repeat("0", 10-len(s)) + s
}
