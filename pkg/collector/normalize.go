package collector

import (
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/pkg/signal"
	"github.com/elonfeng/trendradar/pkg/source"
)

const (
	// Every news article counts as this many mentions.
	NewsMentionCount = 100
	// Calendar events are treated as highly topical.
	CalendarMentionCount = 500
)

// Normalizer turns raw adapter items into unscored signals.
type Normalizer struct {
	newID func() string
	now   func() time.Time
}

// NewNormalizer creates a normalizer issuing random UUIDs.
func NewNormalizer() *Normalizer {
	return &Normalizer{newID: uuid.NewString, now: time.Now}
}

// NormalizeAll converts items in order, dropping those without a keyword.
func (n *Normalizer) NormalizeAll(items []source.RawItem) []signal.Signal {
	out := make([]signal.Signal, 0, len(items))
	for _, it := range items {
		s, ok := n.Normalize(it)
		if !ok {
			logging.Component("collector").Debug().Msgf("dropping %T without keyword", it)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Normalize converts one raw item. The result has score 0, a fresh ID and
// a category from the fixed set. ok is false when the item has no keyword.
func (n *Normalizer) Normalize(item source.RawItem) (signal.Signal, bool) {
	var s signal.Signal
	switch v := item.(type) {
	case source.SyntheticItem:
		s = signal.Signal{
			Keyword:      v.Keyword,
			Origin:       signal.OriginSynthetic,
			Category:     signal.ParseCategory(v.Category),
			MentionCount: v.MentionCount,
			ObservedAt:   v.ObservedAt,
			Tags:         v.Tags,
			RelatedTerms: v.RelatedTerms,
		}
	case source.SocialPost:
		s = signal.Signal{
			Keyword:      v.Keyword,
			Origin:       signal.OriginSocial,
			Category:     signal.ParseCategory(v.Category),
			MentionCount: v.Engagement,
			ObservedAt:   v.PostedAt,
			Tags:         v.Tags,
			RelatedTerms: v.RelatedTerms,
			SourceURL:    v.URL,
		}
	case source.NewsArticle:
		s = signal.Signal{
			Keyword:      v.Title,
			Origin:       signal.OriginNews,
			Category:     signal.ParseCategory(v.Category),
			MentionCount: NewsMentionCount,
			ObservedAt:   v.PublishedAt,
			RelatedTerms: v.Keywords,
			SourceURL:    v.URL,
		}
	case source.CalendarEvent:
		s = signal.Signal{
			Keyword:      v.Name,
			Origin:       signal.OriginCalendar,
			Category:     signal.ParseCategory(v.Category),
			MentionCount: CalendarMentionCount,
			ObservedAt:   v.Date,
			RelatedTerms: []string{v.Description, v.Date.Format("2006-01-02")},
		}
	default:
		return signal.Signal{}, false
	}

	s.Keyword = signal.TruncateKeyword(s.Keyword)
	if s.Keyword == "" {
		return signal.Signal{}, false
	}
	s.ID = n.newID()
	s.Score = 0
	s.MentionCount = max(s.MentionCount, 0)
	if s.ObservedAt.IsZero() {
		s.ObservedAt = n.now().UTC()
	}
	s.SourceURL = absoluteURL(s.SourceURL)
	return s, true
}

func absoluteURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return raw
}
