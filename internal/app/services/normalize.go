package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldName normalizes a municipality name for comparison: uppercase with
// combining diacritics removed, so ŽMAN, Žman and ZMAN all fold the same.
// Đ carries a stroke rather than a combining mark and is mapped by hand.
func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, _ := transform.String(t, strings.ToUpper(s))
	return strings.ReplaceAll(folded, "Đ", "D")
}
