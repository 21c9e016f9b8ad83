// Package relation scores how strongly signals relate to each other and to
// catalog entries, and groups signals by category and shared terms.
package relation

import (
	"sort"
	"strings"

	"github.com/elonfeng/trendradar/pkg/signal"
)

const (
	categoryBonus  = 30
	substringBonus = 40
	tagPoints      = 10
	tagCap         = 30
	termPoints     = 5
	termCap        = 20
	maxRelevance   = 100
)

// Options configures an Engine.
type Options struct {
	// RelatedLimit caps FindRelated results. Default 5.
	RelatedLimit int
	// CatalogThreshold is the minimum catalog relevance kept. Default 30.
	CatalogThreshold int
	// CatalogLimit caps MatchCatalog results. Default 5.
	CatalogLimit int
}

// DefaultOptions returns the default limits.
func DefaultOptions() Options {
	return Options{RelatedLimit: 5, CatalogThreshold: 30, CatalogLimit: 5}
}

// Engine computes relevance. It is stateless apart from its options.
type Engine struct {
	opts Options
}

// NewEngine creates an engine; zero option fields take their defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.RelatedLimit <= 0 {
		opts.RelatedLimit = def.RelatedLimit
	}
	if opts.CatalogThreshold <= 0 {
		opts.CatalogThreshold = def.CatalogThreshold
	}
	if opts.CatalogLimit <= 0 {
		opts.CatalogLimit = def.CatalogLimit
	}
	return &Engine{opts: opts}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Entity is the keyworded view of anything that can be related.
type Entity struct {
	ID           string
	Keyword      string
	Category     string
	Tags         []string
	RelatedTerms []string
}

// SignalEntity views a signal as an Entity.
func SignalEntity(s signal.Signal) Entity {
	return Entity{
		ID:           s.ID,
		Keyword:      s.Keyword,
		Category:     string(s.Category),
		Tags:         s.Tags,
		RelatedTerms: s.RelatedTerms,
	}
}

// CatalogEntity views a catalog item as an Entity: the title is its
// keyword, the genre its category and its keywords its tags.
func CatalogEntity(c signal.CatalogItem) Entity {
	return Entity{
		ID:       c.ID,
		Keyword:  c.Title,
		Category: c.Genre,
		Tags:     c.Keywords,
	}
}

// Related is a candidate signal with its relevance to a target.
type Related struct {
	Signal         signal.Signal `json:"signal"`
	RelevanceScore int           `json:"relevance_score"`
}

// Relevance scores a against b in [0,100]: 30 for the same category, 40
// when one keyword contains the other, 10 per shared tag up to 30 and 5
// per shared related term up to 20. Comparisons ignore case.
func Relevance(a, b Entity) int {
	score := 0
	if a.Category != "" && strings.EqualFold(a.Category, b.Category) {
		score += categoryBonus
	}

	ka, kb := strings.ToLower(a.Keyword), strings.ToLower(b.Keyword)
	if ka != "" && kb != "" && (strings.Contains(ka, kb) || strings.Contains(kb, ka)) {
		score += substringBonus
	}

	score += min(tagCap, tagPoints*sharedCount(a.Tags, b.Tags))
	score += min(termCap, termPoints*sharedCount(a.RelatedTerms, b.RelatedTerms))
	return min(maxRelevance, score)
}

// sharedCount is the size of the case-insensitive intersection of a and b.
func sharedCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[strings.ToLower(v)] = struct{}{}
	}
	n := 0
	for _, v := range b {
		k := strings.ToLower(v)
		if _, ok := set[k]; ok {
			n++
			delete(set, k)
		}
	}
	return n
}

// FindRelated returns the candidates relevant to target, strongest first.
// The target itself (by ID) and zero scores are excluded; limit <= 0 uses
// the engine's RelatedLimit.
func (e *Engine) FindRelated(target signal.Signal, candidates []signal.Signal, limit int) []Related {
	if limit <= 0 {
		limit = e.opts.RelatedLimit
	}
	t := SignalEntity(target)

	var out []Related
	for _, c := range candidates {
		if c.ID == target.ID {
			continue
		}
		if score := Relevance(t, SignalEntity(c)); score > 0 {
			out = append(out, Related{Signal: c, RelevanceScore: score})
		}
	}
	sortRelated(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Pairs returns every unordered pair of signals relating with at least
// minScore (and above zero), strongest first.
func (e *Engine) Pairs(signals []signal.Signal, minScore int) []signal.RelevanceResult {
	var out []signal.RelevanceResult
	for i := 0; i < len(signals); i++ {
		a := SignalEntity(signals[i])
		for j := i + 1; j < len(signals); j++ {
			score := Relevance(a, SignalEntity(signals[j]))
			if score > 0 && score >= minScore {
				out = append(out, signal.RelevanceResult{
					EntityA:        signals[i].ID,
					EntityB:        signals[j].ID,
					RelevanceScore: score,
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RelevanceScore > out[j].RelevanceScore })
	return out
}

func sortRelated(r []Related) {
	sort.SliceStable(r, func(i, j int) bool { return r[i].RelevanceScore > r[j].RelevanceScore })
}
