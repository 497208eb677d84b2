// Package namenorm canonicalizes raw person-name strings for equality
// grouping. Normalization is deterministic and side-effect-free; every
// pipeline pass and the canonical selector rely on the same rules.
package namenorm

import (
	"strings"
	"unicode"
)

// MinMeaningfulLen is the shortest token counted as a meaningful word
// part. Initials and single letters fall below it.
const MinMeaningfulLen = 2

// Normalize lowercases the name, replaces punctuation with spaces, and
// collapses runs of whitespace to single spaces.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MeaningfulParts returns the normalized tokens of length >= 2.
func MeaningfulParts(name string) []string {
	var parts []string
	for _, tok := range strings.Fields(Normalize(name)) {
		if len(tok) >= MinMeaningfulLen {
			parts = append(parts, tok)
		}
	}
	return parts
}

// ContainsToken reports whether the normalized form of name contains
// token as a whole word.
func ContainsToken(name, token string) bool {
	for _, tok := range strings.Fields(Normalize(name)) {
		if tok == token {
			return true
		}
	}
	return false
}
