package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/pkg/signal"
)

const (
	twitterAPIBase      = "https://api.twitter.com/2"
	defaultTwitterQuery = "#トレンド OR #話題 OR #ニュース OR #今日 -is:retweet lang:ja"
	twitterTopHashtags  = 10
	// Each hashtag occurrence in the sample stands for roughly this many posts.
	twitterEngagementFactor = 100
)

// TwitterConfig configures the X/Twitter adapter.
type TwitterConfig struct {
	APIKey      string
	BearerToken string
	Query       string
	// BaseURL overrides the API root. Tests point it at httptest servers.
	BaseURL string
	// FailureThreshold is the number of consecutive API failures that open
	// the circuit breaker. Default 3.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open. Default 5m.
	OpenTimeout time.Duration
}

// Twitter collects trending hashtags via the X API v2 recent search.
// Without credentials, or when the API fails, it serves a fixed sample.
type Twitter struct {
	client  *http.Client
	cfg     TwitterConfig
	breaker *gobreaker.CircuitBreaker[[]RawItem]
	cat     *Categorizer
	now     func() time.Time
}

// NewTwitter creates a new Twitter/X adapter.
func NewTwitter(cfg TwitterConfig) *Twitter {
	if cfg.Query == "" {
		cfg.Query = defaultTwitterQuery
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = twitterAPIBase
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 5 * time.Minute
	}

	log := logging.Component("twitter")
	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[[]RawItem](gobreaker.Settings{
		Name:        "twitter-api",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Twitter{
		client:  &http.Client{Timeout: 30 * time.Second},
		cfg:     cfg,
		breaker: breaker,
		cat:     defaultCategorizer,
		now:     time.Now,
	}
}

// UseCategorizer replaces the keyword categorizer.
func (t *Twitter) UseCategorizer(c *Categorizer) *Twitter {
	if c != nil {
		t.cat = c
	}
	return t
}

func (t *Twitter) Name() string               { return "twitter" }
func (t *Twitter) Origin() signal.Origin      { return signal.OriginSocial }
func (t *Twitter) MinInterval() time.Duration { return 5 * time.Second }

// HasCredentials reports whether the live API will be queried.
func (t *Twitter) HasCredentials() bool {
	return t.cfg.APIKey != "" && t.cfg.BearerToken != ""
}

func (t *Twitter) Collect(ctx context.Context) ([]RawItem, error) {
	log := logging.Component("twitter")
	if !t.HasCredentials() {
		log.Warn().Msg("twitter credentials not configured, using sample data")
		return t.sample(), nil
	}

	items, err := t.breaker.Execute(func() ([]RawItem, error) {
		return t.search(ctx)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, collectionErr(t.Name(), ctx.Err())
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Warn().Err(err).Msg("twitter api unavailable, using sample data")
		} else {
			log.Error().Err(err).Msg("twitter api failed, using sample data")
		}
		return t.sample(), nil
	}
	return items, nil
}

type twitterSearchResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		Entities struct {
			Hashtags []struct {
				Tag string `json:"tag"`
			} `json:"hashtags"`
		} `json:"entities"`
	} `json:"data"`
}

func (t *Twitter) search(ctx context.Context) ([]RawItem, error) {
	params := url.Values{}
	params.Set("query", t.cfg.Query)
	params.Set("max_results", "100")
	params.Set("tweet.fields", "public_metrics,created_at,entities")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+"/tweets/search/recent?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create twitter request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.BearerToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch twitter search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter search status %d", resp.StatusCode)
	}

	var body twitterSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode twitter search: %w", err)
	}

	counts := make(map[string]int)
	for _, tweet := range body.Data {
		for _, h := range tweet.Entities.Hashtags {
			if h.Tag != "" {
				counts[h.Tag]++
			}
		}
	}
	return t.topHashtags(counts), nil
}

func (t *Twitter) topHashtags(counts map[string]int) []RawItem {
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > twitterTopHashtags {
		tags = tags[:twitterTopHashtags]
	}

	now := t.now().UTC()
	items := make([]RawItem, 0, len(tags))
	for _, tag := range tags {
		kw := "#" + tag
		items = append(items, SocialPost{
			Keyword:    kw,
			Category:   string(t.cat.Categorize(tag)),
			Engagement: counts[tag] * twitterEngagementFactor,
			Tags:       []string{kw},
			URL:        "https://x.com/hashtag/" + url.PathEscape(tag),
			PostedAt:   now,
		})
	}
	return items
}

func (t *Twitter) sample() []RawItem {
	now := t.now().UTC()
	post := func(kw, cat string, engagement int, tags, related []string) RawItem {
		return SocialPost{
			Keyword:      kw,
			Category:     cat,
			Engagement:   engagement,
			Tags:         tags,
			RelatedTerms: related,
			PostedAt:     now,
		}
	}
	return []RawItem{
		post("#技術トレンド", "technology", 12000,
			[]string{"#技術トレンド", "#プログラミング", "#AI"}, []string{"開発", "エンジニア", "最新技術"}),
		post("#今日のニュース", "other", 8000,
			[]string{"#今日のニュース", "#速報"}, []string{"最新", "ニュース", "話題"}),
		post("#週末の過ごし方", "lifestyle", 4500,
			[]string{"#週末の過ごし方", "#休日", "#おでかけ"}, []string{"レジャー", "旅行", "グルメ"}),
		post("#スポーツニュース", "sports", 6200,
			[]string{"#スポーツニュース", "#野球", "#サッカー"}, []string{"試合結果", "選手", "優勝"}),
		post("#新商品発表", "business", 5800,
			[]string{"#新商品発表", "#新製品", "#発売"}, []string{"企業", "リリース", "イノベーション"}),
	}
}
