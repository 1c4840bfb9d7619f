package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and drops combining marks, so accented
// letters fold to their base form before hashing.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormaliseTitle folds a title into its deduplication form: diacritics
// stripped, lowercased, everything but ASCII letters/digits/spaces
// removed, whitespace runs collapsed, trimmed.
func NormaliseTitle(title string) string {
	if title == "" {
		return ""
	}

	if folded, _, err := transform.String(stripMarks, title); err == nil {
		title = folded
	}
	title = strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// StableHash returns the first 16 hex characters of the SHA-256 digest
// of text. Stable across runs and platforms.
func StableHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}
