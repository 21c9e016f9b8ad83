package source

import (
	"context"
	"time"

	"github.com/elonfeng/trendradar/pkg/signal"
)

// Mock returns a fixed set of sample signals. It needs no network and is
// the offline adapter for demos and tests.
type Mock struct {
	now func() time.Time
}

// NewMock creates a mock adapter.
func NewMock() *Mock {
	return &Mock{now: time.Now}
}

func (m *Mock) Name() string { return "mock" }
func (m *Mock) Origin() signal.Origin { return signal.OriginSynthetic }
func (m *Mock) MinInterval() time.Duration { return time.Second }

func (m *Mock) Collect(ctx context.Context) ([]RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, collectionErr(m.Name(), err)
	}
	now := m.now().UTC()
	return []RawItem{
		SyntheticItem{
			Keyword:      "AI技術の進化",
			Category:     "technology",
			MentionCount: 15000,
			Tags:         []string{"#AI", "#機械学習", "#ChatGPT"},
			RelatedTerms: []string{"人工知能", "生成AI", "LLM"},
			ObservedAt:   now,
		},
		SyntheticItem{
			Keyword:      "年末セール",
			Category:     "business",
			MentionCount: 8500,
			Tags:         []string{"#セール", "#お買い得"},
			RelatedTerms: []string{"ブラックフライデー", "サイバーマンデー"},
			ObservedAt:   now,
		},
		SyntheticItem{
			Keyword:      "新作映画公開",
			Category:     "entertainment",
			MentionCount: 6200,
			Tags:         []string{"#映画", "#新作"},
			RelatedTerms: []string{"劇場公開", "話題作"},
			ObservedAt:   now,
		},
	}, nil
}
