// Package signal holds the shared data model: scored attention signals, their
// per-keyword history, and read-only catalog entries matched against them.
package signal

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Origin identifies which kind of source a signal was collected from.
type Origin string

const (
	OriginSocial    Origin = "social"
	OriginNews      Origin = "news"
	OriginCalendar  Origin = "calendar"
	OriginSynthetic Origin = "synthetic"
)

// Category is the fixed topical bucket of a signal.
type Category string

const (
	CategoryTechnology    Category = "technology"
	CategoryBusiness      Category = "business"
	CategoryEntertainment Category = "entertainment"
	CategoryLifestyle     Category = "lifestyle"
	CategorySports        Category = "sports"
	CategoryPolitics      Category = "politics"
	CategoryOther         Category = "other"
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryTechnology,
		CategoryBusiness,
		CategoryEntertainment,
		CategoryLifestyle,
		CategorySports,
		CategoryPolitics,
		CategoryOther,
	}
}

// ParseCategory maps a raw category string onto the fixed set.
// Anything unrecognized becomes CategoryOther.
func ParseCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllCategories() {
		if c == known {
			return c
		}
	}
	return CategoryOther
}

var categoryLabels = map[Category]string{
	CategoryTechnology:    "テクノロジー",
	CategoryBusiness:      "ビジネス",
	CategoryEntertainment: "エンタメ",
	CategoryLifestyle:     "ライフスタイル",
	CategorySports:        "スポーツ",
	CategoryPolitics:      "政治",
	CategoryOther:         "その他",
}

// Label returns the display name of c.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryOther]
}

const (
	// MaxKeywordLen is the keyword length limit in characters.
	MaxKeywordLen = 100
	// MinScore and MaxScore bound every published score.
	MinScore = 0
	MaxScore = 100
)

// Signal is a single scored unit of attention.
type Signal struct {
	ID           string    `json:"id" validate:"required,uuid"`
	Keyword      string    `json:"keyword" validate:"required,min=1,max=100"`
	Origin       Origin    `json:"origin" validate:"required,oneof=social news calendar synthetic"`
	Category     Category  `json:"category" validate:"required,oneof=technology business entertainment lifestyle sports politics other"`
	Score        int       `json:"score" validate:"min=0,max=100"`
	MentionCount int       `json:"mention_count" validate:"min=0"`
	ObservedAt   time.Time `json:"observed_at" validate:"required"`
	Tags         []string  `json:"tags,omitempty"`
	RelatedTerms []string  `json:"related_terms,omitempty"`
	SourceURL    string    `json:"source_url,omitempty" validate:"omitempty,url"`
}

// WithScore returns a copy of s carrying score clamped into [0,100].
// Score is the only field a scorer may change.
func (s Signal) WithScore(score int) Signal {
	s.Score = Clamp(score, MinScore, MaxScore)
	return s
}

// Validate checks the structural invariants of s.
func (s Signal) Validate() error {
	return validateStruct("signal", s)
}

// TruncateKeyword cuts kw to MaxKeywordLen characters.
func TruncateKeyword(kw string) string {
	kw = strings.TrimSpace(kw)
	if utf8.RuneCountInString(kw) <= MaxKeywordLen {
		return kw
	}
	return string([]rune(kw)[:MaxKeywordLen])
}

// Clamp bounds v into [lo, hi].
func Clamp[T int | float64](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
