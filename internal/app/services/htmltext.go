package services

import (
	"html"
	"regexp"
	"strings"
)

// Registry free-text fields, encumbrance descriptions above all, embed
// fragments of HTML. CleanMarkup reduces them to plain text.

var (
	brTagRe    = regexp.MustCompile(`(?i)<br\s*/?>`)
	spanTagRe  = regexp.MustCompile(`(?is)<span[^>]*>(.*?)</span>`)
	anyTagRe   = regexp.MustCompile(`<[^>]+>`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// CleanMarkup converts <br> to newlines, unwraps spans, strips the
// remaining tags, collapses blank-line runs and decodes entities.
// Non-breaking spaces become plain spaces so terminal output wraps.
func CleanMarkup(text string) string {
	if text == "" {
		return text
	}
	text = brTagRe.ReplaceAllString(text, "\n")
	text = spanTagRe.ReplaceAllString(text, "$1")
	text = anyTagRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	return strings.TrimSpace(html.UnescapeString(text))
}
