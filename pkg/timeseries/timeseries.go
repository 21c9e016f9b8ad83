// Package timeseries classifies the lifecycle of a keyword from its
// accumulated score history.
package timeseries

import (
	"math"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/pkg/signal"
)

const (
	// DefaultRisingThreshold is the growth rate above which a keyword is rising.
	DefaultRisingThreshold = 2.0

	declineThreshold = -0.3
	stableBand       = 0.1
	peakRatio        = 0.95
	statusWindow     = 3
)

// Classifier derives peak time, start time and status from a history.
type Classifier struct {
	risingThreshold float64
}

// NewClassifier creates a classifier. A non-positive threshold means
// DefaultRisingThreshold.
func NewClassifier(risingThreshold float64) *Classifier {
	if risingThreshold <= 0 {
		risingThreshold = DefaultRisingThreshold
	}
	return &Classifier{risingThreshold: risingThreshold}
}

// RisingThreshold returns the effective threshold.
func (c *Classifier) RisingThreshold() float64 { return c.risingThreshold }

// Analyze returns a copy of h with PeakTime, StartTime and Status filled.
// A history without data points is returned unchanged.
func (c *Classifier) Analyze(h signal.History) signal.History {
	if len(h.DataPoints) == 0 {
		logging.Component("timeseries").Warn().Str("keyword", h.Keyword).Msg("no data points")
		return h
	}

	out := h
	out.DataPoints = append([]signal.DataPoint(nil), h.DataPoints...)

	peak := out.DataPoints[0]
	for _, p := range out.DataPoints[1:] {
		if p.Score > peak.Score {
			peak = p
		}
	}
	peakTime := peak.Timestamp
	startTime := out.DataPoints[0].Timestamp

	out.PeakTime = &peakTime
	out.StartTime = &startTime
	out.Status = c.Status(out)
	return out
}

// Status classifies the last few points of h.
func (c *Classifier) Status(h signal.History) signal.Status {
	n := len(h.DataPoints)
	if n < 2 {
		return signal.StatusStable
	}
	window := h.DataPoints[max(0, n-statusWindow):]
	latest := window[len(window)-1].Score
	previous := window[len(window)-2].Score

	growth := growthRate(latest, previous)
	switch {
	case growth > c.risingThreshold:
		return signal.StatusRising
	case growth < declineThreshold:
		return signal.StatusDeclining
	case math.Abs(growth) < stableBand:
		return signal.StatusStable
	}

	best := window[0].Score
	for _, p := range window[1:] {
		best = max(best, p.Score)
	}
	if float64(latest) >= float64(best)*peakRatio {
		return signal.StatusPeak
	}
	return signal.StatusStable
}

// growthRate is (latest-previous)/previous. From zero it is +Inf when the
// score grew and NaN when both are zero; NaN fails every threshold, so a
// zero-to-zero step is decided by the peak test alone.
func growthRate(latest, previous int) float64 {
	if previous == 0 {
		if latest == 0 {
			return math.NaN()
		}
		return math.Inf(1)
	}
	return float64(latest-previous) / float64(previous)
}

// IsRising reports whether the latest mention count is at least the
// rising threshold times the previous one.
func (c *Classifier) IsRising(h signal.History) bool {
	n := len(h.DataPoints)
	if n < 2 {
		return false
	}
	previous := h.DataPoints[n-2].MentionCount
	if previous == 0 {
		return false
	}
	return float64(h.DataPoints[n-1].MentionCount)/float64(previous) >= c.risingThreshold
}

// Duration returns the hours between the first and last point, rounded
// to one decimal.
func Duration(h signal.History) float64 {
	n := len(h.DataPoints)
	if n < 2 {
		return 0
	}
	hours := h.DataPoints[n-1].Timestamp.Sub(h.DataPoints[0].Timestamp).Hours()
	return round1(hours)
}

// AverageScore returns the mean score rounded to one decimal.
func AverageScore(h signal.History) float64 {
	if len(h.DataPoints) == 0 {
		return 0
	}
	sum := 0
	for _, p := range h.DataPoints {
		sum += p.Score
	}
	return round1(float64(sum) / float64(len(h.DataPoints)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
