package relation

import (
	"strings"

	"github.com/elonfeng/trendradar/pkg/signal"
)

const (
	exactPoints     = 50
	partialPoints   = 30
	tagHitPoints    = 20
	relatedHitPoint = 10
)

// CatalogRelevance scores a catalog item against a signal. For every item
// keyword it adds 50 on an exact keyword match or else 30 when either
// contains the other, 20 when any tag contains it and 10 when any related
// term contains it. The sum is not capped.
func CatalogRelevance(item signal.CatalogItem, sig signal.Signal) int {
	kw := strings.ToLower(sig.Keyword)
	score := 0
	for _, raw := range item.Keywords {
		k := strings.ToLower(strings.TrimSpace(raw))
		if k == "" {
			continue
		}
		switch {
		case k == kw:
			score += exactPoints
		case strings.Contains(kw, k) || strings.Contains(k, kw):
			score += partialPoints
		}
		if anyContains(sig.Tags, k) {
			score += tagHitPoints
		}
		if anyContains(sig.RelatedTerms, k) {
			score += relatedHitPoint
		}
	}
	return score
}

func anyContains(list []string, lowerNeedle string) bool {
	for _, v := range list {
		if strings.Contains(strings.ToLower(v), lowerNeedle) {
			return true
		}
	}
	return false
}

// MatchCatalog returns the signals whose catalog relevance reaches the
// threshold, strongest first, capped at CatalogLimit.
func (e *Engine) MatchCatalog(item signal.CatalogItem, signals []signal.Signal) []Related {
	var out []Related
	for _, s := range signals {
		if score := CatalogRelevance(item, s); score >= e.opts.CatalogThreshold {
			out = append(out, Related{Signal: s, RelevanceScore: score})
		}
	}
	sortRelated(out)
	if len(out) > e.opts.CatalogLimit {
		out = out[:e.opts.CatalogLimit]
	}
	return out
}
