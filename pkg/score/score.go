// Package score computes the 0-100 attention score of a signal from its
// mention volume, mention growth and age.
package score

import (
	"math"
	"sort"
	"time"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/pkg/signal"
)

const (
	// SaturationMentions is the mention count that earns the full mention score.
	SaturationMentions = 10000
	// NeutralVelocity is used when growth cannot be computed.
	NeutralVelocity = 50.0
	// FreshnessDecayPerHour is the freshness lost per hour of age.
	FreshnessDecayPerHour = 4.0
	// RisingScore is the default threshold of Rising.
	RisingScore = 70
)

// Weights are the relative contributions of the three components.
type Weights struct {
	Mention   float64 `yaml:"mention"`
	Velocity  float64 `yaml:"velocity"`
	Freshness float64 `yaml:"freshness"`
}

// DefaultWeights returns mention 0.4, velocity 0.4, freshness 0.2.
func DefaultWeights() Weights {
	return Weights{Mention: 0.4, Velocity: 0.4, Freshness: 0.2}
}

// Components is the per-part breakdown of one score.
type Components struct {
	Mention   float64
	Velocity  float64
	Freshness float64
	Total     int
}

// Engine scores signals. It holds no state besides its weights and clock,
// so scoring the same input at the same instant gives the same result.
type Engine struct {
	weights Weights
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a scorer. All-zero weights fall back to the defaults.
func NewEngine(w Weights, opts ...Option) *Engine {
	if w.Mention+w.Velocity+w.Freshness == 0 {
		w = DefaultWeights()
	}
	e := &Engine{weights: w, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the effective weights.
func (e *Engine) Weights() Weights { return e.weights }

// Score returns the score of sig in [0,100]. hist may be nil.
func (e *Engine) Score(sig signal.Signal, hist *signal.History) int {
	return e.Breakdown(sig, hist).Total
}

// Breakdown returns the components behind Score.
func (e *Engine) Breakdown(sig signal.Signal, hist *signal.History) Components {
	c := Components{
		Mention:   MentionScore(sig.MentionCount),
		Velocity:  VelocityScore(hist),
		Freshness: FreshnessScore(sig.ObservedAt, e.now()),
	}
	total := c.Mention*e.weights.Mention + c.Velocity*e.weights.Velocity + c.Freshness*e.weights.Freshness
	c.Total = int(math.Round(signal.Clamp(total, signal.MinScore, signal.MaxScore)))

	logging.Component("score").Debug().
		Str("keyword", sig.Keyword).
		Float64("mention", c.Mention).
		Float64("velocity", c.Velocity).
		Float64("freshness", c.Freshness).
		Int("total", c.Total).
		Msg("scored signal")
	return c
}

// Apply returns a copy of sig carrying its score.
func (e *Engine) Apply(sig signal.Signal, hist *signal.History) signal.Signal {
	return sig.WithScore(e.Score(sig, hist))
}

// HistoryLookup returns the accumulated history of a keyword, or nil.
type HistoryLookup func(keyword string) *signal.History

// ScoreAll scores every signal and returns them sorted by score, highest
// first. lookup may be nil.
func (e *Engine) ScoreAll(signals []signal.Signal, lookup HistoryLookup) []signal.Signal {
	out := make([]signal.Signal, len(signals))
	for i, s := range signals {
		var h *signal.History
		if lookup != nil {
			h = lookup(s.Keyword)
		}
		out[i] = e.Apply(s, h)
	}
	return SortByScore(out)
}

// MentionScore maps a mention count linearly onto 0-100, saturating at
// SaturationMentions.
func MentionScore(mentions int) float64 {
	return signal.Clamp(float64(mentions)/SaturationMentions*100, 0, 100)
}

// VelocityScore maps the growth between the last two data points onto
// 0-100 with zero growth at 50 and 100% growth at 100.
func VelocityScore(hist *signal.History) float64 {
	if hist == nil || len(hist.DataPoints) < 2 {
		return NeutralVelocity
	}
	latest := hist.DataPoints[len(hist.DataPoints)-1]
	previous := hist.DataPoints[len(hist.DataPoints)-2]
	if previous.MentionCount == 0 {
		return NeutralVelocity
	}
	growth := float64(latest.MentionCount-previous.MentionCount) / float64(previous.MentionCount)
	return signal.Clamp(growth*100/2+50, 0, 100)
}

// FreshnessScore is 100 for future or current observations and loses
// FreshnessDecayPerHour per hour of age, reaching 0 after 25 hours.
func FreshnessScore(observedAt, now time.Time) float64 {
	hours := now.Sub(observedAt).Hours()
	if hours < 0 {
		return 100
	}
	return math.Max(0, 100-hours*FreshnessDecayPerHour)
}

// SortByScore returns a copy sorted by score, highest first. Equal scores
// keep their input order.
func SortByScore(signals []signal.Signal) []signal.Signal {
	out := append([]signal.Signal(nil), signals...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// FilterByMinScore keeps signals scoring at least minScore.
func FilterByMinScore(signals []signal.Signal, minScore int) []signal.Signal {
	var out []signal.Signal
	for _, s := range signals {
		if s.Score >= minScore {
			out = append(out, s)
		}
	}
	return out
}

// Rising keeps signals scoring at least RisingScore.
func Rising(signals []signal.Signal) []signal.Signal {
	return FilterByMinScore(signals, RisingScore)
}
