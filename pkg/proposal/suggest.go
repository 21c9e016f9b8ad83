package proposal

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/pkg/relation"
	"github.com/elonfeng/trendradar/pkg/signal"
)

// SuggestPerCategory caps how many signals of one category are considered.
const SuggestPerCategory = 10

// BookSuggestion proposes a new catalog title for a keyword the catalog
// does not cover yet.
type BookSuggestion struct {
	ID           string          `json:"id"`
	Keyword      string          `json:"keyword"`
	Category     signal.Category `json:"category"`
	Score        int             `json:"score"`
	MentionCount int             `json:"mention_count"`
	Genre        string          `json:"genre"`
	NewKeywords  []string        `json:"new_keywords"`
	Reason       string          `json:"reason"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

var suggestGenres = map[signal.Category]string{
	signal.CategoryTechnology:    "科学・技術",
	signal.CategoryBusiness:      "ビジネス",
	signal.CategoryEntertainment: "エンタメ",
	signal.CategoryPolitics:      "社会・政治",
	signal.CategoryLifestyle:     "古典・教養",
	signal.CategorySports:        "スポーツ",
}

// BookSuggester finds trending keywords missing from the catalog.
type BookSuggester struct {
	now func() time.Time
}

func NewBookSuggester() *BookSuggester {
	return &BookSuggester{now: time.Now}
}

// Suggest groups signals by category, takes the most mentioned
// SuggestPerCategory of each and keeps those carrying at least one keyword
// absent from every catalog item. Results are ordered by score, highest
// first. Signals in a category without a genre are skipped.
func (b *BookSuggester) Suggest(signals []signal.Signal, catalog []signal.CatalogItem) []BookSuggestion {
	known := catalogKeywords(catalog)
	now := b.now().UTC()

	var out []BookSuggestion
	for cat, group := range relation.ClusterByCategory(signals) {
		genre, ok := suggestGenres[cat]
		if !ok {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].MentionCount > group[j].MentionCount })
		for _, s := range group[:min(SuggestPerCategory, len(group))] {
			var fresh []string
			for _, kw := range signalKeywords(s) {
				if !known[strings.ToLower(kw)] {
					fresh = append(fresh, kw)
				}
			}
			if len(fresh) == 0 {
				continue
			}
			out = append(out, BookSuggestion{
				ID:           uuid.NewString(),
				Keyword:      s.Keyword,
				Category:     cat,
				Score:        s.Score,
				MentionCount: s.MentionCount,
				Genre:        genre,
				NewKeywords:  fresh[:min(5, len(fresh))],
				Reason:       suggestReason(s, genre, fresh),
				GeneratedAt:  now,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Keyword < out[j].Keyword
	})
	logging.Component("proposal").Info().Int("suggestions", len(out)).Msg("book suggestions generated")
	return out
}

func catalogKeywords(catalog []signal.CatalogItem) map[string]bool {
	known := make(map[string]bool)
	for _, item := range catalog {
		for _, kw := range item.Keywords {
			known[strings.ToLower(strings.TrimSpace(kw))] = true
		}
	}
	return known
}

func isKeywordSeparator(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune("、。！？!?", r)
}

// signalKeywords splits the keyword into words of 2 to 19 characters and
// appends the related terms, without duplicates.
func signalKeywords(s signal.Signal) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(w string) {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}
	for _, w := range strings.FieldsFunc(s.Keyword, isKeywordSeparator) {
		if n := utf8.RuneCountInString(w); n > 1 && n < 20 {
			add(w)
		}
	}
	for _, w := range s.RelatedTerms {
		add(w)
	}
	return out
}

func suggestReason(s signal.Signal, genre string, fresh []string) string {
	var b strings.Builder
	switch {
	case s.MentionCount >= 3000:
		fmt.Fprintf(&b, "「%s」は現在非常に高い注目を集めています（メンション: %d件）。", s.Keyword, s.MentionCount)
	case s.MentionCount >= 1000:
		fmt.Fprintf(&b, "「%s」が話題になっています（メンション: %d件）。", s.Keyword, s.MentionCount)
	default:
		fmt.Fprintf(&b, "「%s」に関心が高まっています。", s.Keyword)
	}
	fmt.Fprintf(&b, "%sとして関連書籍の刊行を推奨します。", genre)
	fmt.Fprintf(&b, "特に「%s」などをテーマにした書籍が求められています。", strings.Join(fresh[:min(3, len(fresh))], "」「"))
	return b.String()
}
