package source

import (
	"strings"

	"github.com/elonfeng/trendradar/pkg/signal"
)

// DefaultCategoryKeywords maps each category to the terms that select it.
var DefaultCategoryKeywords = map[signal.Category][]string{
	signal.CategoryTechnology: {
		"AI", "技術", "プログラミング", "開発", "アプリ", "スマホ", "PC", "ソフトウェア",
		"machine learning", "LLM", "GPT", "open source", "software", "programming",
		"developer", "database", "linux", "rust", "golang",
	},
	signal.CategoryBusiness: {
		"ビジネス", "経済", "企業", "株", "市場", "投資", "セール",
		"startup", "funding", "acquisition", "ipo", "revenue", "market",
	},
	signal.CategoryEntertainment: {
		"映画", "音楽", "アニメ", "芸能", "ドラマ",
		"movie", "film", "music", "game",
	},
	signal.CategoryLifestyle: {
		"料理", "グルメ", "旅行", "ファッション", "週末",
		"travel", "food", "health",
	},
	signal.CategorySports: {
		"スポーツ", "野球", "サッカー", "試合", "優勝",
		"football", "baseball", "olympic",
	},
	signal.CategoryPolitics: {
		"政治", "選挙", "政府", "国会", "首相",
		"election", "government", "congress", "senate",
	},
}

// categoryOrder decides ties: the first category with a matching term wins.
var categoryOrder = []signal.Category{
	signal.CategoryTechnology,
	signal.CategoryBusiness,
	signal.CategoryEntertainment,
	signal.CategoryLifestyle,
	signal.CategorySports,
	signal.CategoryPolitics,
}

// Categorizer assigns a category to free text by keyword matching.
type Categorizer struct {
	keywords map[signal.Category][]string
}

// NewCategorizer creates a categorizer with the default keywords plus extras.
func NewCategorizer(extra map[signal.Category][]string) *Categorizer {
	keywords := make(map[signal.Category][]string, len(categoryOrder))
	for _, c := range categoryOrder {
		list := append(append([]string(nil), DefaultCategoryKeywords[c]...), extra[c]...)
		// Lowercase all keywords for case-insensitive matching.
		for i, kw := range list {
			list[i] = strings.ToLower(kw)
		}
		keywords[c] = list
	}
	return &Categorizer{keywords: keywords}
}

// Categorize returns the first category whose keywords appear in text.
func (c *Categorizer) Categorize(text string) signal.Category {
	lower := strings.ToLower(text)
	for _, cat := range categoryOrder {
		for _, kw := range c.keywords[cat] {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}
	return signal.CategoryOther
}

var defaultCategorizer = NewCategorizer(nil)

// Categorize uses the default keyword lists.
func Categorize(text string) signal.Category {
	return defaultCategorizer.Categorize(text)
}
