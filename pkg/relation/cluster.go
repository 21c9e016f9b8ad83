package relation

import (
	"strings"
	"unicode/utf8"

	"github.com/elonfeng/trendradar/pkg/signal"
)

// DefaultMinOccurrence is the default threshold of ExtractCoOccurring.
const DefaultMinOccurrence = 2

// ClusterByCategory groups signals by category, keeping input order
// inside each group.
func ClusterByCategory(signals []signal.Signal) map[signal.Category][]signal.Signal {
	clusters := make(map[signal.Category][]signal.Signal)
	for _, s := range signals {
		clusters[s.Category] = append(clusters[s.Category], s)
	}
	return clusters
}

// Cluster is one category bucket.
type Cluster struct {
	Category signal.Category `json:"category"`
	Signals  []signal.Signal `json:"signals"`
}

// OrderedClusters returns the non-empty clusters in category display order.
func OrderedClusters(signals []signal.Signal) []Cluster {
	clusters := ClusterByCategory(signals)
	var out []Cluster
	for _, c := range signal.AllCategories() {
		if list := clusters[c]; len(list) > 0 {
			out = append(out, Cluster{Category: c, Signals: list})
		}
	}
	return out
}

// ExtractCoOccurring counts, for every normalized term, how many signals
// mention it in their keyword, tags or related terms. Terms are lowercased
// and trimmed; single-character terms are ignored. Only terms found in at
// least minOccurrence signals are returned (minOccurrence <= 0 means 2).
// A term counts once per signal even when it appears in several of its
// fields, so the result is a signal count rather than a raw occurrence count.
func ExtractCoOccurring(signals []signal.Signal, minOccurrence int) map[string]int {
	if minOccurrence <= 0 {
		minOccurrence = DefaultMinOccurrence
	}

	counts := make(map[string]int)
	for _, s := range signals {
		seen := make(map[string]struct{})
		terms := make([]string, 0, 1+len(s.Tags)+len(s.RelatedTerms))
		terms = append(terms, s.Keyword)
		terms = append(terms, s.Tags...)
		terms = append(terms, s.RelatedTerms...)
		for _, raw := range terms {
			term := strings.ToLower(strings.TrimSpace(raw))
			if utf8.RuneCountInString(term) <= 1 {
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			counts[term]++
		}
	}

	out := make(map[string]int)
	for term, n := range counts {
		if n >= minOccurrence {
			out[term] = n
		}
	}
	return out
}
