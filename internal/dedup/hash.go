package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalize lowercases s, drops punctuation and symbols, and collapses whitespace
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ContentHash is the hex sha256 of the normalized title and content
func ContentHash(title, content string) string {
	sum := sha256.Sum256([]byte(Normalize(title) + "\n" + Normalize(content)))
	return hex.EncodeToString(sum[:])
}
