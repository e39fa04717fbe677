package links

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/christian289/postalert/pkg/forum"
)

// Extract returns the distinct same-site URLs linked from a cooked post, in
// document order. Links inside quote blocks are echoes of earlier posts and
// are skipped. siteURL anchors what counts as same-site; relative paths
// always do.
func Extract(cooked string, siteURL *url.URL) []string {
	if cooked == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cooked))
	if err != nil {
		return nil
	}

	doc.Find("aside.quote, blockquote").Remove()

	seen := make(map[string]bool)
	var found []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		if parsed.Host != "" && (siteURL == nil || !strings.EqualFold(parsed.Host, siteURL.Host)) {
			return
		}
		if !seen[href] {
			seen[href] = true
			found = append(found, href)
		}
	})
	return found
}

// ResolveAuthors maps extracted links to the authors of the posts they
// point at. The acting author's own posts are reflections and never
// resolve; authors in exclude (typically those already notified by
// mention) are skipped; links that resolve to nothing are dropped silently.
func ResolveAuthors(ctx context.Context, store forum.Store, author forum.User, linked []string, exclude map[forum.UserID]bool) ([]forum.User, error) {
	seen := make(map[forum.UserID]bool)
	var authors []forum.User

	for _, raw := range linked {
		post, err := store.PostByURL(ctx, raw)
		if errors.Is(err, forum.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve link %q: %w", raw, err)
		}
		if post.AuthorID == author.ID {
			continue
		}
		if exclude[post.AuthorID] || seen[post.AuthorID] {
			continue
		}
		user, err := store.User(ctx, post.AuthorID)
		if errors.Is(err, forum.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("linked author %d: %w", post.AuthorID, err)
		}
		seen[post.AuthorID] = true
		authors = append(authors, *user)
	}

	return authors, nil
}
