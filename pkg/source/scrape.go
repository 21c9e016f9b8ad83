package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// scrapePage reads an HTML page and turns every element matching the
// source selector into an article, using the element's first link.
func (n *News) scrapePage(ctx context.Context, src NewsSource) ([]NewsArticle, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parse source url %s: %w", src.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create page request %s: %w", src.Name, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page %s status %d", src.Name, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", src.Name, err)
	}

	now := n.now().UTC()
	var articles []NewsArticle
	doc.Find(src.Selector).Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		href, _ := link.Attr("href")
		articles = append(articles, n.article(src, title, resolveURL(base, href), "", now))
	})
	return articles, nil
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
