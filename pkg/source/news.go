package source

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/pkg/signal"
)

// NewsSource is one configured news origin.
type NewsSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Kind is "rss" (default) or "html".
	Kind string `yaml:"kind"`
	// Selector picks article elements on html pages.
	Selector string `yaml:"selector"`
	Enabled  bool   `yaml:"enabled"`
}

// DefaultNewsSources lists the built-in scraped front pages.
func DefaultNewsSources() []NewsSource {
	return []NewsSource{
		{Name: "Yahoo News", URL: "https://news.yahoo.co.jp/", Kind: "html", Selector: ".newsFeed_item", Enabled: true},
		{Name: "Hatena Bookmark", URL: "https://b.hatena.ne.jp/hotentry", Kind: "html", Selector: ".entrylist-contents", Enabled: true},
	}
}

const newsMinInterval = 2 * time.Second

// News collects headlines from RSS feeds and scraped pages. Sources are
// fetched one after another, at most one per MinInterval. A failing source
// is logged and skipped.
type News struct {
	client  *http.Client
	parser  *gofeed.Parser
	sources []NewsSource
	limiter *rate.Limiter
	cat     *Categorizer
	maxAge  time.Duration
	now     func() time.Time
}

// NewNews creates a news adapter over sources.
func NewNews(sources []NewsSource) *News {
	return &News{
		client:  &http.Client{Timeout: 10 * time.Second},
		parser:  gofeed.NewParser(),
		sources: sources,
		limiter: rate.NewLimiter(rate.Every(newsMinInterval), 1),
		cat:     defaultCategorizer,
		maxAge:  24 * time.Hour,
		now:     time.Now,
	}
}

// UseCategorizer replaces the keyword categorizer.
func (n *News) UseCategorizer(c *Categorizer) *News {
	if c != nil {
		n.cat = c
	}
	return n
}

func (n *News) Name() string               { return "news" }
func (n *News) Origin() signal.Origin      { return signal.OriginNews }
func (n *News) MinInterval() time.Duration { return newsMinInterval }

func (n *News) Collect(ctx context.Context) ([]RawItem, error) {
	log := logging.Component("news")
	cutoff := n.now().Add(-n.maxAge)

	var all []NewsArticle
	for _, src := range n.sources {
		if !src.Enabled {
			continue
		}
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, collectionErr(n.Name(), err)
		}

		var (
			articles []NewsArticle
			err      error
		)
		if strings.EqualFold(src.Kind, "html") {
			articles, err = n.scrapePage(ctx, src)
		} else {
			articles, err = n.fetchFeed(ctx, src, cutoff)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, collectionErr(n.Name(), ctx.Err())
			}
			log.Warn().Err(err).Str("source", src.Name).Msg("news source failed, skipping")
			continue
		}
		log.Debug().Str("source", src.Name).Int("articles", len(articles)).Msg("fetched news source")
		all = append(all, articles...)
	}

	unique := dedupeByTitle(all)
	items := make([]RawItem, len(unique))
	for i, a := range unique {
		items[i] = a
	}
	return items, nil
}

func (n *News) article(src NewsSource, title, link, summary string, published time.Time) NewsArticle {
	title = strings.TrimSpace(title)
	return NewsArticle{
		Title:       title,
		Summary:     summary,
		Category:    string(n.cat.Categorize(title)),
		PublishedAt: published,
		URL:         link,
		SourceName:  src.Name,
		Keywords:    ExtractKeywords(title),
	}
}

func dedupeByTitle(articles []NewsArticle) []NewsArticle {
	seen := make(map[string]struct{}, len(articles))
	out := articles[:0:0]
	for _, a := range articles {
		if _, ok := seen[a.Title]; ok {
			continue
		}
		seen[a.Title] = struct{}{}
		out = append(out, a)
	}
	return out
}

const maxExtractedKeywords = 5

// ExtractKeywords splits a headline on whitespace and Japanese sentence
// punctuation and returns the first five words longer than one character.
func ExtractKeywords(title string) []string {
	words := strings.FieldsFunc(title, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("、。！？", r)
	})
	var out []string
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 1 {
			continue
		}
		out = append(out, w)
		if len(out) == maxExtractedKeywords {
			break
		}
	}
	return out
}
