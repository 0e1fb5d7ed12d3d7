// Package text holds the query normalization shared by the extractor and the classifier.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// allowedPunct is the punctuation kept after normalization. Accented vowels
// and ñ are also allowed but never survive the NFKD pass.
const allowedPunct = " .,;:!?¿¡()-áéíóúüñ"

// Normalize decomposes s with NFKD, drops combining marks, lowercases, deletes
// everything outside the allow-list and collapses whitespace.
func Normalize(s string) string {
	decomposed := norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		r = unicode.ToLower(r)
		if allowed(r) {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune(allowedPunct, r)
}

// ContainsAny reports whether normalized contains any of the keywords after
// normalizing each keyword the same way. A trailing space on a keyword is kept
// so "como va " does not match "como van".
func ContainsAny(normalized string, keywords ...string) bool {
	for _, kw := range keywords {
		needle := Normalize(kw)
		if needle == "" {
			continue
		}
		if strings.HasSuffix(kw, " ") {
			needle += " "
		}
		if strings.Contains(normalized, needle) {
			return true
		}
	}
	return false
}
