package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// fetchFeed reads one RSS/Atom feed and returns entries newer than cutoff.
func (n *News) fetchFeed(ctx context.Context, src NewsSource, cutoff time.Time) ([]NewsArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", src.Name, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", src.Name, resp.StatusCode)
	}

	parsed, err := n.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", src.Name, err)
	}

	var articles []NewsArticle
	for _, entry := range parsed.Items {
		published := n.now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}
		if published.Before(cutoff) {
			continue
		}

		articles = append(articles, n.article(src, entry.Title, entryLink(entry), truncate(entry.Description, 500), published))
	}
	return articles, nil
}

func entryLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if len(entry.Links) > 0 {
		return entry.Links[0]
	}
	return ""
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
