package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/pkg/signal"
)

const redditBaseURL = "https://www.reddit.com"

// DefaultSubreddits are polled when none are configured.
var DefaultSubreddits = []string{"japan", "newsokur", "technology"}

// Reddit collects hot posts of subreddits as social signals.
type Reddit struct {
	client     *http.Client
	baseURL    string
	subreddits []string
	limit      int
	cat        *Categorizer
}

// NewReddit creates a Reddit adapter reading the public listing JSON.
// baseURL may be empty.
func NewReddit(baseURL string, subreddits []string, limit int) *Reddit {
	if len(subreddits) == 0 {
		subreddits = DefaultSubreddits
	}
	if limit <= 0 {
		limit = 25
	}
	if baseURL == "" {
		baseURL = redditBaseURL
	}
	return &Reddit{
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		subreddits: subreddits,
		limit:      limit,
		cat:        defaultCategorizer,
	}
}

// UseCategorizer replaces the keyword categorizer.
func (r *Reddit) UseCategorizer(c *Categorizer) *Reddit {
	if c != nil {
		r.cat = c
	}
	return r
}

func (r *Reddit) Name() string               { return "reddit" }
func (r *Reddit) Origin() signal.Origin      { return signal.OriginSocial }
func (r *Reddit) MinInterval() time.Duration { return 2 * time.Second }

// Collect reads every subreddit in turn. A failing subreddit is logged and
// skipped; the call fails only when all of them do.
func (r *Reddit) Collect(ctx context.Context) ([]RawItem, error) {
	log := logging.Component("reddit")

	var (
		items   []RawItem
		lastErr error
		failed  int
	)
	for _, sub := range r.subreddits {
		if err := ctx.Err(); err != nil {
			return nil, collectionErr(r.Name(), err)
		}
		posts, err := r.fetchSubreddit(ctx, sub)
		if err != nil {
			log.Warn().Err(err).Str("subreddit", sub).Msg("subreddit fetch failed")
			lastErr = err
			failed++
			continue
		}
		items = append(items, posts...)
	}
	if failed == len(r.subreddits) && lastErr != nil {
		return nil, collectionErr(r.Name(), lastErr)
	}
	return items, nil
}

func (r *Reddit) fetchSubreddit(ctx context.Context, sub string) ([]RawItem, error) {
	reqURL := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", r.baseURL, url.PathEscape(sub), r.limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create reddit request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", sub, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit r/%s status %d", sub, resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode r/%s: %w", sub, err)
	}

	items := make([]RawItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied || strings.TrimSpace(post.Title) == "" {
			continue
		}

		link := post.URL
		if link == "" || strings.HasPrefix(link, "/r/") {
			link = r.baseURL + post.Permalink
		}

		items = append(items, SocialPost{
			Keyword:      post.Title,
			Category:     string(r.cat.Categorize(post.Title + " " + truncate(post.Selftext, 500))),
			Engagement:   post.Score + post.NumComments,
			Tags:         []string{"r/" + sub},
			RelatedTerms: ExtractKeywords(post.Title),
			URL:          link,
			PostedAt:     time.Unix(int64(post.CreatedUTC), 0).UTC(),
		})
	}
	return items, nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Selftext    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Stickied    bool    `json:"stickied"`
}
