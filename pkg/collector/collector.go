// Package collector runs every source adapter concurrently and merges their
// output into normalized signals. A failing adapter costs only its own
// signals; CollectAll itself never fails.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/internal/metrics"
	"github.com/elonfeng/trendradar/pkg/retry"
	"github.com/elonfeng/trendradar/pkg/signal"
	"github.com/elonfeng/trendradar/pkg/source"
)

// Options configures a Collector.
type Options struct {
	// MaxAttempts per adapter, default retry.DefaultMaxAttempts.
	MaxAttempts int
	// Sleep replaces the backoff wait. Tests inject it.
	Sleep retry.SleepFunc
}

// Outcome is the diagnostic record of one adapter run.
type Outcome struct {
	Adapter  string
	Signals  int
	Duration time.Duration
	Err      error
}

// Result is the merged output of a collection run. Signals keep adapter
// order: everything from the first adapter, then the second, and so on.
type Result struct {
	Signals  []signal.Signal
	Outcomes []Outcome
}

// Failed returns the outcomes of adapters that produced nothing.
func (r Result) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Collector fans out to source adapters.
type Collector struct {
	opts       Options
	normalizer *Normalizer
}

// New creates a collector.
func New(opts Options) *Collector {
	return &Collector{opts: opts, normalizer: NewNormalizer()}
}

// CollectAll runs every adapter to completion and returns the merged
// signals together with one outcome per adapter.
func (c *Collector) CollectAll(ctx context.Context, adapters []source.Adapter) Result {
	log := logging.Component("collector")

	signals := make([][]signal.Signal, len(adapters))
	outcomes := make([]Outcome, len(adapters))

	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a source.Adapter) {
			defer wg.Done()
			start := time.Now()

			items, err := retry.Do(ctx, a.Collect, retry.Options{
				MaxAttempts: c.opts.MaxAttempts,
				BaseDelay:   a.MinInterval(),
				Sleep:       c.opts.Sleep,
				Name:        a.Name(),
				OnRetry: func(int, error, time.Duration) {
					metrics.RecordRetry(a.Name())
				},
			})
			outcomes[i] = Outcome{Adapter: a.Name(), Duration: time.Since(start), Err: err}
			metrics.RecordAdapterRun(a.Name(), err == nil, outcomes[i].Duration)
			if err != nil {
				log.Error().Err(err).Str("adapter", a.Name()).Msg("adapter failed")
				return
			}

			normalized := c.normalizer.NormalizeAll(items)
			signals[i] = normalized
			outcomes[i].Signals = len(normalized)
			metrics.RecordSignals(a.Name(), string(a.Origin()), len(normalized))
			log.Info().Str("adapter", a.Name()).Int("signals", len(normalized)).Msg("adapter succeeded")
		}(i, a)
	}
	wg.Wait()

	var merged []signal.Signal
	for _, s := range signals {
		merged = append(merged, s...)
	}
	log.Info().Int("signals", len(merged)).Int("adapters", len(adapters)).Msg("collection finished")

	return Result{Signals: merged, Outcomes: outcomes}
}
