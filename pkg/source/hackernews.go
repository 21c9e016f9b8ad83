package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/elonfeng/trendradar/pkg/signal"
)

const hnBaseURL = "https://hacker-news.firebaseio.com/v0"

// HackerNews collects top stories as social signals.
type HackerNews struct {
	client  *http.Client
	baseURL string
	limit   int
	cat     *Categorizer
}

// NewHackerNews creates a new HN adapter. baseURL may be empty.
func NewHackerNews(baseURL string, limit int) *HackerNews {
	if limit <= 0 {
		limit = 30
	}
	if baseURL == "" {
		baseURL = hnBaseURL
	}
	return &HackerNews{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		cat:     defaultCategorizer,
	}
}

// UseCategorizer replaces the keyword categorizer.
func (h *HackerNews) UseCategorizer(c *Categorizer) *HackerNews {
	if c != nil {
		h.cat = c
	}
	return h
}

func (h *HackerNews) Name() string               { return "hackernews" }
func (h *HackerNews) Origin() signal.Origin      { return signal.OriginSocial }
func (h *HackerNews) MinInterval() time.Duration { return 2 * time.Second }

func (h *HackerNews) Collect(ctx context.Context) ([]RawItem, error) {
	ids, err := h.fetchTopStories(ctx)
	if err != nil {
		return nil, collectionErr(h.Name(), err)
	}

	if len(ids) > h.limit {
		ids = ids[:h.limit]
	}

	var (
		stories = make([]*hnStory, len(ids))
		wg      sync.WaitGroup
		sem     = make(chan struct{}, 10) // concurrency limit
	)

	for i, id := range ids {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			story, err := h.fetchItem(ctx, id)
			if err != nil || story == nil || story.Title == "" {
				return
			}
			stories[i] = story
		}(i, id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, collectionErr(h.Name(), err)
	}

	items := make([]RawItem, 0, len(stories))
	for _, story := range stories {
		if story == nil {
			continue
		}
		link := story.URL
		if link == "" {
			link = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
		}
		items = append(items, SocialPost{
			Keyword:      story.Title,
			Category:     string(h.cat.Categorize(story.Title + " " + story.URL)),
			Engagement:   story.Score + story.Descendants,
			Tags:         []string{"#hackernews"},
			RelatedTerms: ExtractKeywords(story.Title),
			URL:          link,
			PostedAt:     time.Unix(story.Time, 0).UTC(),
		})
	}
	return items, nil
}

type hnStory struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Descendants int    `json:"descendants"`
	Type        string `json:"type"`
}

func (h *HackerNews) fetchTopStories(ctx context.Context) ([]int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/topstories.json", nil)
	if err != nil {
		return nil, fmt.Errorf("create hn request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hn top stories: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hn top stories status %d", resp.StatusCode)
	}

	var ids []int
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("decode hn top stories: %w", err)
	}
	return ids, nil
}

func (h *HackerNews) fetchItem(ctx context.Context, id int) (*hnStory, error) {
	url := fmt.Sprintf("%s/item/%d.json", h.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create hn item request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hn item %d: %w", id, err)
	}
	defer resp.Body.Close()

	var story hnStory
	if err := json.NewDecoder(resp.Body).Decode(&story); err != nil {
		return nil, fmt.Errorf("decode hn item %d: %w", id, err)
	}

	if story.Type != "story" {
		return nil, nil
	}
	return &story, nil
}
