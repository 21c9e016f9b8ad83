package signal

import "time"

// Status is the lifecycle stage derived from a keyword's score trace.
type Status string

const (
	StatusRising    Status = "rising"
	StatusPeak      Status = "peak"
	StatusDeclining Status = "declining"
	StatusStable    Status = "stable"
)

// DataPoint is one observation of a keyword in a collection run.
type DataPoint struct {
	Timestamp    time.Time `json:"timestamp" validate:"required"`
	Score        int       `json:"score" validate:"min=0,max=100"`
	MentionCount int       `json:"mention_count" validate:"min=0"`
}

// History is the accumulated time series for one keyword. DataPoints are
// ordered by time and append-only; the remaining fields are derived.
type History struct {
	Keyword    string      `json:"keyword" validate:"required"`
	DataPoints []DataPoint `json:"data_points" validate:"dive"`
	PeakTime   *time.Time  `json:"peak_time,omitempty"`
	StartTime  *time.Time  `json:"start_time,omitempty"`
	Status     Status      `json:"status" validate:"omitempty,oneof=rising peak declining stable"`
}

// Validate checks the structural invariants of h.
func (h History) Validate() error {
	return validateStruct("history", h)
}

// Latest returns the most recent data point, if any.
func (h History) Latest() (DataPoint, bool) {
	if len(h.DataPoints) == 0 {
		return DataPoint{}, false
	}
	return h.DataPoints[len(h.DataPoints)-1], true
}

// Point builds the data point recorded for s in the current run.
func (s Signal) Point(at time.Time) DataPoint {
	return DataPoint{Timestamp: at, Score: s.Score, MentionCount: s.MentionCount}
}
