package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/elonfeng/trendradar/pkg/signal"
)

var fixedNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func TestAdaptersDeclareOrigins(t *testing.T) {
	tests := []struct {
		adapter  Adapter
		origin   signal.Origin
		interval time.Duration
	}{
		{NewMock(), signal.OriginSynthetic, time.Second},
		{NewTwitter(TwitterConfig{}), signal.OriginSocial, 5 * time.Second},
		{NewHackerNews("", 0), signal.OriginSocial, 2 * time.Second},
		{NewReddit("", nil, 0), signal.OriginSocial, 2 * time.Second},
		{NewNews(nil), signal.OriginNews, 2 * time.Second},
		{NewCalendar(nil, 0), signal.OriginCalendar, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.adapter.Name(), func(t *testing.T) {
			assert.Equal(t, tt.origin, tt.adapter.Origin())
			assert.Equal(t, tt.interval, tt.adapter.MinInterval())
		})
	}
}

func TestCollectionErrorUnwraps(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := collectionErr("news", base)

	var cerr *CollectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "news", cerr.Adapter)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "collect news")
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		text string
		want signal.Category
	}{
		{"AI技術の進化", signal.CategoryTechnology},
		{"株価が上昇", signal.CategoryBusiness},
		{"新作映画公開", signal.CategoryEntertainment},
		{"週末の過ごし方", signal.CategoryLifestyle},
		{"野球の試合結果", signal.CategorySports},
		{"衆議院選挙の行方", signal.CategoryPolitics},
		{"今日のニュース", signal.CategoryOther},
		// technology is checked before business
		{"AI企業の決算", signal.CategoryTechnology},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.text))
		})
	}
}

func TestCategorizerExtraKeywords(t *testing.T) {
	c := NewCategorizer(map[signal.Category][]string{signal.CategorySports: {"Marathon"}})
	assert.Equal(t, signal.CategorySports, c.Categorize("city marathon today"))
	assert.Equal(t, signal.CategoryOther, Categorize("city marathon today"))
}

func TestExtractKeywords(t *testing.T) {
	assert.Equal(t, []string{"新型", "スマホ", "発表"}, ExtractKeywords("新型 スマホ、発表！ a"))
	assert.Equal(t,
		[]string{"one", "two", "three", "four", "five"},
		ExtractKeywords("one two three four five six"))
	assert.Empty(t, ExtractKeywords("a b c"))
}

func TestMockCollect(t *testing.T) {
	items, err := NewMock().Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	first, ok := items[0].(SyntheticItem)
	require.True(t, ok)
	assert.Equal(t, "AI技術の進化", first.Keyword)
	assert.Equal(t, 15000, first.MentionCount)
}

func TestTwitterWithoutCredentialsUsesSample(t *testing.T) {
	tw := NewTwitter(TwitterConfig{})
	items, err := tw.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 5)
	post := items[0].(SocialPost)
	assert.Equal(t, "#技術トレンド", post.Keyword)
	assert.Equal(t, 12000, post.Engagement)
}

func TestTwitterCountsHashtags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[
			{"id":"1","text":"x","entities":{"hashtags":[{"tag":"AI"},{"tag":"野球"}]}},
			{"id":"2","text":"y","entities":{"hashtags":[{"tag":"AI"}]}},
			{"id":"3","text":"z"}
		]}`)
	}))
	defer srv.Close()

	tw := NewTwitter(TwitterConfig{APIKey: "k", BearerToken: "token", BaseURL: srv.URL})
	tw.now = func() time.Time { return fixedNow }

	items, err := tw.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	top := items[0].(SocialPost)
	assert.Equal(t, "#AI", top.Keyword)
	assert.Equal(t, 200, top.Engagement)
	assert.Equal(t, "technology", top.Category)
	assert.Equal(t, []string{"#AI"}, top.Tags)
	assert.Equal(t, fixedNow, top.PostedAt)

	second := items[1].(SocialPost)
	assert.Equal(t, "#野球", second.Keyword)
	assert.Equal(t, 100, second.Engagement)
	assert.Equal(t, "sports", second.Category)
}

func TestTwitterKeepsTopTen(t *testing.T) {
	tw := NewTwitter(TwitterConfig{})
	counts := map[string]int{}
	for i := 0; i < 15; i++ {
		counts[fmt.Sprintf("tag%02d", i)] = i + 1
	}
	items := tw.topHashtags(counts)
	require.Len(t, items, 10)
	assert.Equal(t, "#tag14", items[0].(SocialPost).Keyword)
	assert.Equal(t, "#tag05", items[9].(SocialPost).Keyword)
}

func TestTwitterFallsBackAndTripsBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tw := NewTwitter(TwitterConfig{APIKey: "k", BearerToken: "t", BaseURL: srv.URL, FailureThreshold: 2})
	for i := 0; i < 4; i++ {
		items, err := tw.Collect(context.Background())
		require.NoError(t, err)
		assert.Len(t, items, 5, "sample data on failure")
	}
	assert.Equal(t, int32(2), hits.Load(), "open breaker stops calling the api")
}

func hnServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/topstories.json":
			fmt.Fprint(w, `[1,2,3]`)
		case "/item/1.json":
			fmt.Fprint(w, `{"id":1,"type":"story","title":"Show HN: a Rust database","url":"https://ex.com/1","score":120,"descendants":30,"time":1760432400}`)
		case "/item/2.json":
			fmt.Fprint(w, `{"id":2,"type":"job","title":"Hiring"}`)
		case "/item/3.json":
			fmt.Fprint(w, `{"id":3,"type":"story","title":"Ask HN: weekend reading","score":10,"descendants":5,"time":1760432400}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestHackerNewsCollect(t *testing.T) {
	srv := hnServer(t)
	defer srv.Close()

	items, err := NewHackerNews(srv.URL, 10).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "non-story items are skipped")

	first := items[0].(SocialPost)
	assert.Equal(t, "Show HN: a Rust database", first.Keyword)
	assert.Equal(t, 150, first.Engagement)
	assert.Equal(t, "technology", first.Category)
	assert.Equal(t, "https://ex.com/1", first.URL)

	second := items[1].(SocialPost)
	assert.Equal(t, "https://news.ycombinator.com/item?id=3", second.URL)
	assert.Equal(t, 15, second.Engagement)
}

func TestHackerNewsTopStoriesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHackerNews(srv.URL, 10).Collect(context.Background())
	var cerr *CollectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "hackernews", cerr.Adapter)
}

func TestRedditCollect(t *testing.T) {
	var agent, limit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/r/technology/hot.json":
			agent = r.Header.Get("User-Agent")
			limit = r.URL.Query().Get("limit")
			fmt.Fprint(w, `{"data":{"children":[
				{"data":{"id":"a","title":"Megathread","stickied":true,"score":9000}},
				{"data":{"id":"b","title":"AI chips hit record demand","url":"https://ex.com/b","score":420,"num_comments":80,"created_utc":1760432400}},
				{"data":{"id":"c","title":"Self post","url":"/r/technology/comments/c","permalink":"/r/technology/comments/c","score":5,"num_comments":2,"created_utc":1760432400}}
			]}}`)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	items, err := NewReddit(srv.URL, []string{"technology", "private"}, 5).Collect(context.Background())
	require.NoError(t, err, "one failing subreddit is skipped")
	require.Len(t, items, 2, "stickied posts are skipped")
	assert.Equal(t, userAgent, agent)
	assert.Equal(t, "5", limit)

	first := items[0].(SocialPost)
	assert.Equal(t, "AI chips hit record demand", first.Keyword)
	assert.Equal(t, 500, first.Engagement, "score plus comments")
	assert.Equal(t, "technology", first.Category)
	assert.Equal(t, []string{"r/technology"}, first.Tags)
	assert.Equal(t, "https://ex.com/b", first.URL)
	assert.Equal(t, time.Unix(1760432400, 0).UTC(), first.PostedAt)

	second := items[1].(SocialPost)
	assert.Equal(t, srv.URL+"/r/technology/comments/c", second.URL)
	assert.Equal(t, 7, second.Engagement)
}

func TestRedditAllSubredditsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewReddit(srv.URL, []string{"a", "b"}, 0).Collect(context.Background())
	var cerr *CollectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "reddit", cerr.Adapter)
	assert.Contains(t, err.Error(), "status 429")
}

const testFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Tech</title>
<item><title>新型 スマホ 発表</title><link>https://feed.example/1</link><pubDate>Wed, 14 Oct 2026 08:00:00 +0000</pubDate></item>
<item><title>古い記事</title><link>https://feed.example/old</link><pubDate>Mon, 05 Oct 2026 08:00:00 +0000</pubDate></item>
<item><title>Duplicate headline</title><link>https://feed.example/2</link><pubDate>Wed, 14 Oct 2026 07:00:00 +0000</pubDate></item>
</channel></rss>`

const testPage = `<html><body>
<div class="item"><a href="/a/1">Duplicate headline</a></div>
<div class="item"><a href="https://other.example/2">選挙 速報</a></div>
<div class="item"><a href="/a/3">   </a></div>
</body></html>`

func TestNewsCollectFeedsAndPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, testFeed) })
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, testPage) })
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	n := NewNews([]NewsSource{
		{Name: "feed", URL: srv.URL + "/feed", Enabled: true},
		{Name: "broken", URL: srv.URL + "/broken", Enabled: true},
		{Name: "disabled", URL: srv.URL + "/nowhere", Enabled: false},
		{Name: "page", URL: srv.URL + "/page", Kind: "html", Selector: ".item", Enabled: true},
	})
	n.limiter = rate.NewLimiter(rate.Inf, 1)
	n.now = func() time.Time { return fixedNow }

	items, err := n.Collect(context.Background())
	require.NoError(t, err, "a failing source is skipped")

	var titles []string
	for _, it := range items {
		titles = append(titles, it.(NewsArticle).Title)
	}
	assert.Equal(t, []string{"新型 スマホ 発表", "Duplicate headline", "選挙 速報"}, titles)

	first := items[0].(NewsArticle)
	assert.Equal(t, "technology", first.Category)
	assert.Equal(t, []string{"新型", "スマホ", "発表"}, first.Keywords)
	assert.Equal(t, "feed", first.SourceName)
	assert.Equal(t, time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC), first.PublishedAt)

	scraped := items[2].(NewsArticle)
	assert.Equal(t, "https://other.example/2", scraped.URL)
	assert.Equal(t, "politics", scraped.Category)
	assert.Equal(t, fixedNow, scraped.PublishedAt)
}

func TestNewsResolvesRelativeLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<ul><li class="e"><a href="/story/9">見出し テスト</a></li></ul>`)
	}))
	defer srv.Close()

	n := NewNews([]NewsSource{{Name: "p", URL: srv.URL + "/hotentry", Kind: "html", Selector: ".e", Enabled: true}})
	n.limiter = rate.NewLimiter(rate.Inf, 1)

	items, err := n.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, srv.URL+"/story/9", items[0].(NewsArticle).URL)
}

func TestNewsCancelledContext(t *testing.T) {
	n := NewNews([]NewsSource{{Name: "x", URL: "http://127.0.0.1:1/feed", Enabled: true}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.Collect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalendarNearestFirst(t *testing.T) {
	c := NewCalendar(nil, 0)
	c.now = func() time.Time { return fixedNow }

	items, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, DefaultCalendarLimit)

	var names []string
	for _, it := range items {
		names = append(names, it.(CalendarEvent).Name)
	}
	// 10-14: Halloween (17d), Programmers' Day (31d), Black Friday (41d), Cyber Monday (44d), Christmas (72d)
	assert.Equal(t, []string{"ハロウィン", "プログラマーの日", "ブラックフライデー", "サイバーマンデー", "クリスマス"}, names)

	first := items[0].(CalendarEvent)
	assert.Equal(t, time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC), first.Date)
	assert.True(t, first.Recurring)
}

func TestCalendarGeneratesTwoYears(t *testing.T) {
	c := NewCalendar([]AnnualEvent{{"元日", "新年", time.January, 1, "lifestyle"}}, 10)
	c.now = func() time.Time { return fixedNow }

	events := c.Upcoming()
	require.Len(t, events, 2)
	assert.Equal(t, 2027, events[0].Date.Year(), "next new year is closer")
	assert.Equal(t, 2026, events[1].Date.Year())

	on := c.EventsOn(time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC))
	require.Len(t, on, 1)
	assert.True(t, strings.HasPrefix(on[0].Name, "元日"))
}
