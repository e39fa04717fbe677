package mentions

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// quoteSelector matches the elements the rendering pipeline emits for
// quoted content. Text inside them echoes an earlier post.
const quoteSelector = "aside.quote, blockquote"

var mentionPattern = regexp.MustCompile(`(?i)(?:^|[^\w.-])@([a-z0-9_]+(?:[._-][a-z0-9_]+)*)`)

// Extract returns the distinct mention tokens of a cooked post in
// first-occurrence order, lowercased, skipping mentions inside quote blocks.
func Extract(cooked string) []string {
	if cooked == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cooked))
	if err != nil {
		// Rendered HTML comes from the cooking pipeline; a parse failure
		// means no extractable mentions, not an engine error.
		return nil
	}

	doc.Find(quoteSelector).Remove()

	text := doc.Text()
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		token := strings.ToLower(m[1])
		if !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Quote is the attribution of one quoted block: which user's post was
// quoted, and where it lives.
type Quote struct {
	Username   string
	PostNumber int
}

// ExtractQuotes returns the quote attributions of a cooked post in document
// order, deduplicated by (username, post number).
func ExtractQuotes(cooked string) []Quote {
	if cooked == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cooked))
	if err != nil {
		return nil
	}

	type key struct {
		username string
		number   int
	}
	seen := make(map[key]bool)
	var quotes []Quote

	doc.Find("aside.quote").Each(func(_ int, s *goquery.Selection) {
		username, ok := s.Attr("data-username")
		if !ok || username == "" {
			return
		}
		username = strings.ToLower(username)
		number := 0
		if raw, ok := s.Attr("data-post"); ok {
			if n, err := strconv.Atoi(raw); err == nil {
				number = n
			}
		}
		k := key{username, number}
		if !seen[k] {
			seen[k] = true
			quotes = append(quotes, Quote{Username: username, PostNumber: number})
		}
	})

	return quotes
}
