package source

import (
	"context"
	"fmt"
	"time"

	"github.com/elonfeng/trendradar/pkg/signal"
)

// Adapter is the interface every collector must implement. Collect either
// returns all of its raw items or fails as a whole.
type Adapter interface {
	Name() string
	Origin() signal.Origin
	// MinInterval is the politeness delay; it also seeds retry backoff.
	MinInterval() time.Duration
	Collect(ctx context.Context) ([]RawItem, error)
}

// RawItem is one unnormalized record from an adapter. The concrete types
// are SyntheticItem, SocialPost, NewsArticle and CalendarEvent.
type RawItem interface {
	rawItem()
}

// SyntheticItem is a pre-shaped record from the mock adapter.
type SyntheticItem struct {
	Keyword      string
	Category     string
	MentionCount int
	Tags         []string
	RelatedTerms []string
	ObservedAt   time.Time
}

// SocialPost is a trending topic from a social platform. Engagement is the
// platform's attention estimate and becomes the mention count.
type SocialPost struct {
	Keyword      string
	Category     string
	Engagement   int
	Tags         []string
	RelatedTerms []string
	URL          string
	PostedAt     time.Time
}

// NewsArticle is a headline scraped or read from a feed.
type NewsArticle struct {
	Title       string
	Summary     string
	Category    string
	PublishedAt time.Time
	URL         string
	SourceName  string
	Keywords    []string
}

// CalendarEvent is a dated occurrence such as a holiday.
type CalendarEvent struct {
	Name        string
	Description string
	Date        time.Time
	Category    string
	Recurring   bool
}

func (SyntheticItem) rawItem() {}
func (SocialPost) rawItem()    {}
func (NewsArticle) rawItem()   {}
func (CalendarEvent) rawItem() {}

// CollectionError reports that an adapter failed to produce items.
type CollectionError struct {
	Adapter string
	Err     error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collect %s: %v", e.Adapter, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

func collectionErr(adapter string, err error) error {
	return &CollectionError{Adapter: adapter, Err: err}
}

// userAgent is sent on every outbound request.
const userAgent = "trendradar/1.0"
