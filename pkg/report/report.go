// Package report renders the daily Markdown trend report.
package report

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/elonfeng/trendradar/pkg/proposal"
	"github.com/elonfeng/trendradar/pkg/relation"
	"github.com/elonfeng/trendradar/pkg/score"
	"github.com/elonfeng/trendradar/pkg/signal"
)

//go:embed daily.md.tmpl
var dailyTemplate string

var tmpl = template.Must(template.New("daily").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
	"keywords": func(signals []signal.Signal) string {
		kws := make([]string, len(signals))
		for i, s := range signals {
			kws[i] = s.Keyword
		}
		return strings.Join(kws, ", ")
	},
	// replaced per render
	"status": func(string) string { return "" },
}).Parse(dailyTemplate))

// TopLimit is the number of signals listed as top trends.
const TopLimit = 10

// TermCount is one co-occurring term.
type TermCount struct {
	Term  string
	Count int
}

// Data is everything a daily report shows.
type Data struct {
	Date        time.Time
	GeneratedAt time.Time
	// Signals are scored signals, highest first.
	Signals    []signal.Signal
	Articles   []proposal.ArticleProposal
	Promotions []proposal.BookPromotion
	// Histories maps keywords to analyzed histories.
	Histories map[string]signal.History
}

type view struct {
	Date        time.Time
	GeneratedAt time.Time
	Top         []signal.Signal
	Rising      []signal.Signal
	Clusters    []relation.Cluster
	Terms       []TermCount
	Articles    []proposal.ArticleProposal
	Promotions  []proposal.BookPromotion
}

// SortedTerms orders a co-occurrence map by count, then term.
func SortedTerms(counts map[string]int) []TermCount {
	out := make([]TermCount, 0, len(counts))
	for term, n := range counts {
		out = append(out, TermCount{Term: term, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	return out
}

// Render writes the Markdown report for d to w.
func Render(w io.Writer, d Data) error {
	sorted := score.SortByScore(d.Signals)
	top := sorted[:min(TopLimit, len(sorted))]

	v := view{
		Date:        d.Date,
		GeneratedAt: d.GeneratedAt,
		Top:         top,
		Rising:      score.Rising(sorted),
		Clusters:    relation.OrderedClusters(sorted),
		Terms:       SortedTerms(relation.ExtractCoOccurring(sorted, relation.DefaultMinOccurrence)),
		Articles:    d.Articles,
		Promotions:  d.Promotions,
	}
	if v.GeneratedAt.IsZero() {
		v.GeneratedAt = time.Now()
	}

	t, err := tmpl.Clone()
	if err != nil {
		return fmt.Errorf("clone report template: %w", err)
	}
	t.Funcs(template.FuncMap{
		"status": func(keyword string) string {
			if h, ok := d.Histories[keyword]; ok && h.Status != "" {
				return string(h.Status)
			}
			return ""
		},
	})
	if err := t.Execute(w, v); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Markdown renders the report to a string.
func Markdown(d Data) (string, error) {
	var b strings.Builder
	if err := Render(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}
