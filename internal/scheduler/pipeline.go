package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/internal/metrics"
	"github.com/elonfeng/trendradar/internal/store"
	"github.com/elonfeng/trendradar/pkg/alert"
	"github.com/elonfeng/trendradar/pkg/collector"
	"github.com/elonfeng/trendradar/pkg/relation"
	"github.com/elonfeng/trendradar/pkg/score"
	"github.com/elonfeng/trendradar/pkg/signal"
	"github.com/elonfeng/trendradar/pkg/source"
	"github.com/elonfeng/trendradar/pkg/timeseries"
)

// SnapshotSaver stores the dated result of a run.
type SnapshotSaver interface {
	Save(at time.Time, signals []signal.Signal) error
}

// PipelineConfig wires a Pipeline. Store and Adapters are required;
// everything else has a default.
type PipelineConfig struct {
	Adapters   []source.Adapter
	Store      store.Store
	Snapshots  SnapshotSaver
	Collector  *collector.Collector
	Scorer     *score.Engine
	Classifier *timeseries.Classifier
	Relations  *relation.Engine
	Alerts     *alert.Manager
	// RisingScore is the score from which a signal is alerted.
	RisingScore int
	Now         func() time.Time
}

// Run is the result of one pipeline pass.
type Run struct {
	StartedAt time.Time
	Duration  time.Duration
	// Signals are scored and sorted by score, highest first.
	Signals   []signal.Signal
	Histories map[string]signal.History
	Rising    []signal.Signal
	Outcomes  []collector.Outcome
	Alerted   int
}

// Failed returns the outcomes of adapters that produced nothing.
func (r *Run) Failed() []collector.Outcome {
	return collector.Result{Outcomes: r.Outcomes}.Failed()
}

// Pipeline performs collect, score, persist, classify and alert. Runs are
// serialized.
type Pipeline struct {
	mu   sync.Mutex
	cfg  PipelineConfig
	last *Run
}

// NewPipeline fills defaults into cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Collector == nil {
		cfg.Collector = collector.New(collector.Options{})
	}
	if cfg.Scorer == nil {
		cfg.Scorer = score.NewEngine(score.DefaultWeights(), score.WithClock(cfg.Now))
	}
	if cfg.Classifier == nil {
		cfg.Classifier = timeseries.NewClassifier(timeseries.DefaultRisingThreshold)
	}
	if cfg.Relations == nil {
		cfg.Relations = relation.NewEngine(relation.DefaultOptions())
	}
	if cfg.RisingScore <= 0 {
		cfg.RisingScore = score.RisingScore
	}
	return &Pipeline{cfg: cfg}
}

// Last returns the most recent successful run, or nil.
func (p *Pipeline) Last() *Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// RunOnce performs a single pass. Adapter failures only reduce the
// collected signals; storage failures abort the run.
func (p *Pipeline) RunOnce(ctx context.Context) (*Run, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	run, err := p.runOnce(ctx)
	if err != nil {
		metrics.RecordPipelineRun(false, 0)
		return nil, err
	}
	metrics.RecordPipelineRun(true, len(run.Rising))
	p.last = run
	return run, nil
}

func (p *Pipeline) runOnce(ctx context.Context) (*Run, error) {
	log := logging.Component("pipeline")
	run := &Run{StartedAt: p.cfg.Now(), Histories: make(map[string]signal.History)}

	collected := p.cfg.Collector.CollectAll(ctx, p.cfg.Adapters)
	run.Outcomes = collected.Outcomes

	previous := make(map[string]*signal.History)
	for _, sig := range collected.Signals {
		if _, seen := previous[sig.Keyword]; seen {
			continue
		}
		h, err := p.cfg.Store.History(ctx, sig.Keyword)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		previous[sig.Keyword] = h
	}

	scored := p.cfg.Scorer.ScoreAll(collected.Signals, func(kw string) *signal.History {
		return previous[kw]
	})
	run.Signals = scored

	if err := p.cfg.Store.SaveSignals(ctx, scored); err != nil {
		return nil, fmt.Errorf("save signals: %w", err)
	}

	for _, sig := range runPoints(scored) {
		if err := p.cfg.Store.AppendHistory(ctx, sig.Keyword, sig.Point(run.StartedAt)); err != nil {
			return nil, fmt.Errorf("append history: %w", err)
		}
	}
	for kw := range previous {
		h, err := p.cfg.Store.History(ctx, kw)
		if err != nil {
			return nil, fmt.Errorf("reload history: %w", err)
		}
		if h != nil {
			run.Histories[kw] = p.cfg.Classifier.Analyze(*h)
		}
	}

	if p.cfg.Snapshots != nil {
		if err := p.cfg.Snapshots.Save(run.StartedAt, scored); err != nil {
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
	}

	run.Rising = p.rising(run)
	run.Alerted = p.alert(ctx, run)
	run.Duration = p.cfg.Now().Sub(run.StartedAt)

	log.Info().
		Int("signals", len(scored)).
		Int("rising", len(run.Rising)).
		Int("failed_adapters", len(collected.Failed())).
		Dur("duration", run.Duration).
		Msg("pipeline run finished")
	return run, nil
}

// runPoints keeps one signal per keyword, the best scored, so a run adds
// at most one history point per keyword. scored must be sorted by score.
func runPoints(scored []signal.Signal) []signal.Signal {
	seen := make(map[string]bool, len(scored))
	var out []signal.Signal
	for _, sig := range scored {
		if seen[sig.Keyword] {
			continue
		}
		seen[sig.Keyword] = true
		out = append(out, sig)
	}
	return out
}

// rising keeps signals at or above the rising score and those whose
// history is classified rising.
func (p *Pipeline) rising(run *Run) []signal.Signal {
	var out []signal.Signal
	for _, sig := range run.Signals {
		h, ok := run.Histories[sig.Keyword]
		if sig.Score >= p.cfg.RisingScore || (ok && h.Status == signal.StatusRising) {
			out = append(out, sig)
		}
	}
	return out
}

func (p *Pipeline) alert(ctx context.Context, run *Run) int {
	if !p.cfg.Alerts.HasNotifiers() {
		return 0
	}
	log := logging.Component("pipeline")

	sent := 0
	for _, sig := range run.Rising {
		var related []signal.Signal
		for _, r := range p.cfg.Relations.FindRelated(sig, run.Signals, 0) {
			related = append(related, r.Signal)
		}
		n := alert.Rising(sig, run.Histories[sig.Keyword].Status, related)
		if err := p.cfg.Alerts.Broadcast(ctx, n); err != nil {
			log.Warn().Err(err).Str("keyword", sig.Keyword).Msg("alert failed")
			continue
		}
		sent++
	}
	return sent
}
