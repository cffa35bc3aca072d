package sources

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const excerptLimit = 200

// makeExcerpt strips any embedded HTML markup from an API snippet, collapses
// whitespace, and truncates to the display length with a trailing ellipsis.
func makeExcerpt(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	if strings.ContainsAny(text, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			text = doc.Text()
		}
	}
	text = strings.Join(strings.Fields(text), " ")

	return truncateExcerpt(text, excerptLimit)
}

func truncateExcerpt(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text + "..."
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
