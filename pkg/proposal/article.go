// Package proposal turns scored signals into article ideas and catalog
// promotion recommendations.
package proposal

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/elonfeng/trendradar/pkg/score"
	"github.com/elonfeng/trendradar/pkg/signal"
)

// ArticleProposal is a suggested article built around one signal.
type ArticleProposal struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Angle           string        `json:"angle"`
	TargetAudience  string        `json:"target_audience"`
	Signal          signal.Signal `json:"signal"`
	PublishAt       time.Time     `json:"publish_at"`
	Reason          string        `json:"reason"`
	RelatedKeywords []string      `json:"related_keywords"`
	Score           int           `json:"score"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

// ArticleOptions filters the signals Propose considers.
type ArticleOptions struct {
	// Category restricts proposals to one category when set.
	Category signal.Category
	MinScore int
	// Limit caps the number of proposals. Default 5.
	Limit int
}

const defaultArticleLimit = 5

var titleTemplates = map[signal.Category][]string{
	signal.CategoryTechnology:    {"%sの技術トレンドを解説", "エンジニアが注目する%sの今"},
	signal.CategoryBusiness:      {"ビジネスパーソン必見！%sの最新動向", "%sが業界に与える影響とは"},
	signal.CategoryEntertainment: {"話題沸騰！%sの魅力を徹底紹介", "%sが人気の理由を分析"},
	signal.CategoryLifestyle:     {"今日から始める%sのススメ", "%sで生活をもっと豊かに"},
	signal.CategorySports:        {"%sの試合結果と注目ポイント", "スポーツファン必見！%sの最新情報"},
	signal.CategoryPolitics:      {"%sの政治的背景を解説", "今知っておくべき%sの動き"},
	signal.CategoryOther: {
		"%sが話題！今知っておきたいポイント",
		"注目の%sについて徹底解説",
		"【速報】%sの最新情報まとめ",
		"いま話題の%sとは？わかりやすく解説",
		"%sが急上昇中！その背景と影響を探る",
	},
}

var angles = map[signal.Category]string{
	signal.CategoryTechnology:    "技術的な詳細と実装例を交えた解説",
	signal.CategoryBusiness:      "ビジネスへの影響と活用事例の紹介",
	signal.CategoryEntertainment: "エンタメ視点での魅力と見どころ",
	signal.CategoryLifestyle:     "日常生活への取り入れ方と実践例",
	signal.CategorySports:        "試合の見どころと選手の活躍",
	signal.CategoryPolitics:      "政策の背景と社会への影響",
	signal.CategoryOther:         "最新トレンドの背景と今後の展望",
}

var audiences = map[signal.Category]string{
	signal.CategoryTechnology:    "ITエンジニア、技術に関心のある一般ユーザー",
	signal.CategoryBusiness:      "ビジネスパーソン、経営者、マーケター",
	signal.CategoryEntertainment: "エンタメファン、一般視聴者",
	signal.CategoryLifestyle:     "生活改善に関心のある一般ユーザー",
	signal.CategorySports:        "スポーツファン、アスリート",
	signal.CategoryPolitics:      "政治に関心のある一般市民",
	signal.CategoryOther:         "幅広い一般読者",
}

// ArticleProposer builds article proposals. Title templates are picked
// with the injected random source.
type ArticleProposer struct {
	rnd *rand.Rand
	now func() time.Time
}

// NewArticleProposer creates a proposer. A nil rnd is seeded from the clock.
func NewArticleProposer(rnd *rand.Rand) *ArticleProposer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ArticleProposer{rnd: rnd, now: time.Now}
}

// Propose returns up to Limit proposals for the best-scoring signals
// passing the filters.
func (p *ArticleProposer) Propose(signals []signal.Signal, opts ArticleOptions) []ArticleProposal {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultArticleLimit
	}

	var out []ArticleProposal
	for _, s := range score.SortByScore(signals) {
		if opts.Category != "" && s.Category != opts.Category {
			continue
		}
		if s.Score < opts.MinScore {
			continue
		}
		out = append(out, p.build(s))
		if len(out) == limit {
			break
		}
	}
	return out
}

func (p *ArticleProposer) build(s signal.Signal) ArticleProposal {
	now := p.now().UTC()
	templates := titleTemplates[s.Category]
	if len(templates) == 0 {
		templates = titleTemplates[signal.CategoryOther]
	}
	return ArticleProposal{
		ID:              uuid.NewString(),
		Title:           fmt.Sprintf(templates[p.rnd.Intn(len(templates))], s.Keyword),
		Angle:           lookup(angles, s.Category),
		TargetAudience:  lookup(audiences, s.Category),
		Signal:          s,
		PublishAt:       PublishTime(s.Score, now),
		Reason:          articleReason(s),
		RelatedKeywords: RelatedKeywords(s),
		Score:           s.Score,
		GeneratedAt:     now,
	}
}

func lookup(m map[signal.Category]string, c signal.Category) string {
	if v, ok := m[c]; ok {
		return v
	}
	return m[signal.CategoryOther]
}

// PublishTime recommends when to publish: immediately at score 80 and
// above, in 12 hours from 60, otherwise in 48 hours.
func PublishTime(score int, now time.Time) time.Time {
	switch {
	case score >= 80:
		return now
	case score >= 60:
		return now.Add(12 * time.Hour)
	default:
		return now.Add(48 * time.Hour)
	}
}

func articleReason(s signal.Signal) string {
	level := "中程度に"
	switch {
	case s.Score >= 80:
		level = "非常に高く"
	case s.Score >= 60:
		level = "高く"
	}
	return fmt.Sprintf("「%s」は%sカテゴリで%s注目されています（スコア: %d）。現在%d件のメンションがあります。",
		s.Keyword, s.Category.Label(), level, s.Score, s.MentionCount)
}

const maxRelatedKeywords = 5

// RelatedKeywords is the keyword followed by up to three tags and three
// related terms, without duplicates, at most five entries.
func RelatedKeywords(s signal.Signal) []string {
	candidates := []string{s.Keyword}
	candidates = append(candidates, s.Tags[:min(3, len(s.Tags))]...)
	candidates = append(candidates, s.RelatedTerms[:min(3, len(s.RelatedTerms))]...)

	seen := make(map[string]struct{}, len(candidates))
	var out []string
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if len(out) == maxRelatedKeywords {
			break
		}
	}
	return out
}
