package proposal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/pkg/relation"
	"github.com/elonfeng/trendradar/pkg/signal"
)

// Level is the strength of a promotion recommendation.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

func (l Level) rank() int {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	default:
		return 1
	}
}

// Period is a recommended promotion window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BookPromotion recommends promoting a catalog item on the back of the
// signals it relates to.
type BookPromotion struct {
	ID          string             `json:"id"`
	Item        signal.CatalogItem `json:"item"`
	Level       Level              `json:"level"`
	Related     []relation.Related `json:"related"`
	Reason      string             `json:"reason"`
	Period      Period             `json:"period"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// BookPromoter matches catalog items against signals.
type BookPromoter struct {
	engine *relation.Engine
	now    func() time.Time
}

// NewBookPromoter creates a promoter using engine for catalog matching.
func NewBookPromoter(engine *relation.Engine) *BookPromoter {
	if engine == nil {
		engine = relation.NewEngine(relation.Options{})
	}
	return &BookPromoter{engine: engine, now: time.Now}
}

// Propose returns a promotion for item, or nil when no signal relates
// strongly enough.
func (b *BookPromoter) Propose(item signal.CatalogItem, signals []signal.Signal) *BookPromotion {
	related := b.engine.MatchCatalog(item, signals)
	if len(related) == 0 {
		logging.Component("proposal").Debug().Str("item", item.ID).Msg("no related signals")
		return nil
	}

	now := b.now().UTC()
	return &BookPromotion{
		ID:          uuid.NewString(),
		Item:        item,
		Level:       RecommendationLevel(related),
		Related:     related,
		Reason:      bookReason(item, related),
		Period:      PromotionPeriod(related, now),
		GeneratedAt: now,
	}
}

// ProposeAll proposes for every item and orders the results by level,
// high first. Items without matches are skipped.
func (b *BookPromoter) ProposeAll(items []signal.CatalogItem, signals []signal.Signal) []BookPromotion {
	var out []BookPromotion
	for _, item := range items {
		if p := b.Propose(item, signals); p != nil {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level.rank() > out[j].Level.rank() })
	return out
}

func maxSignalScore(related []relation.Related) int {
	best := 0
	for _, r := range related {
		best = max(best, r.Signal.Score)
	}
	return best
}

// RecommendationLevel grades matches sorted strongest first: high when
// the top relevance is at least 100 and some signal scores 70, medium when
// the top relevance is at least 60 or it is at least 40 with a signal
// scoring 50, low otherwise.
func RecommendationLevel(related []relation.Related) Level {
	if len(related) == 0 {
		return LevelLow
	}
	top := related[0].RelevanceScore
	best := maxSignalScore(related)
	switch {
	case top >= 100 && best >= 70:
		return LevelHigh
	case top >= 60 || (best >= 50 && top >= 40):
		return LevelMedium
	default:
		return LevelLow
	}
}

// PromotionPeriod starts now and lasts 14 days when a related signal
// scores 80, 7 days from 60 and 3 days otherwise.
func PromotionPeriod(related []relation.Related, now time.Time) Period {
	days := 7
	if len(related) > 0 {
		switch best := maxSignalScore(related); {
		case best >= 80:
			days = 14
		case best >= 60:
			days = 7
		default:
			days = 3
		}
	}
	return Period{Start: now, End: now.AddDate(0, 0, days)}
}

func bookReason(item signal.CatalogItem, related []relation.Related) string {
	top := related[0].Signal
	var b strings.Builder
	fmt.Fprintf(&b, "「%s」は「%s」と関連しています（スコア: %d）。", item.Title, top.Keyword, top.Score)
	if len(related) > 1 {
		var others []string
		for _, r := range related[1:min(3, len(related))] {
			others = append(others, r.Signal.Keyword)
		}
		fmt.Fprintf(&b, "さらに「%s」も盛り上がっています。", strings.Join(others, "」「"))
	}
	switch {
	case top.Score >= 70:
		b.WriteString("今すぐプロモーションを強化すべきタイミングです。")
	case top.Score >= 50:
		b.WriteString("今週中のプロモーション展開を推奨します。")
	default:
		b.WriteString("短期的なプロモーション施策をご検討ください。")
	}
	return b.String()
}
