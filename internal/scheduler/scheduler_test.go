package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/trendradar/internal/store"
	"github.com/elonfeng/trendradar/pkg/alert"
	"github.com/elonfeng/trendradar/pkg/collector"
	"github.com/elonfeng/trendradar/pkg/score"
	"github.com/elonfeng/trendradar/pkg/signal"
	"github.com/elonfeng/trendradar/pkg/source"
)

var fixedNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

type fakeAdapter struct {
	name  string
	items []source.RawItem
	err   error
}

func (f *fakeAdapter) Name() string               { return f.name }
func (f *fakeAdapter) Origin() signal.Origin      { return signal.OriginSocial }
func (f *fakeAdapter) MinInterval() time.Duration { return time.Millisecond }
func (f *fakeAdapter) Collect(context.Context) ([]source.RawItem, error) {
	return f.items, f.err
}

type recordingNotifier struct {
	titles []string
}

func (r *recordingNotifier) Name() string { return "recording" }
func (r *recordingNotifier) Send(_ context.Context, n *alert.Notification) error {
	r.titles = append(r.titles, n.Title)
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func newPipeline(t *testing.T, adapters []source.Adapter, n alert.Notifier) (*Pipeline, *store.SQLiteStore, *store.SnapshotRepo) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	snaps := store.NewSnapshotRepo(store.NewBlobStore(dir))

	var mgr *alert.Manager
	if n != nil {
		mgr = alert.NewManager([]alert.Notifier{n})
	}
	p := NewPipeline(PipelineConfig{
		Adapters:  adapters,
		Store:     st,
		Snapshots: snaps,
		Collector: collector.New(collector.Options{Sleep: noSleep}),
		Scorer:    score.NewEngine(score.DefaultWeights(), score.WithClock(func() time.Time { return fixedNow })),
		Alerts:    mgr,
		Now:       func() time.Time { return fixedNow },
	})
	return p, st, snaps
}

func post(kw string, engagement int) source.SocialPost {
	return source.SocialPost{
		Keyword:    kw,
		Category:   "technology",
		Engagement: engagement,
		Tags:       []string{"#AI"},
		PostedAt:   fixedNow,
	}
}

func TestRunOnceScoresPersistsAndAlerts(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	p, st, snaps := newPipeline(t, []source.Adapter{
		&fakeAdapter{name: "social", items: []source.RawItem{post("AI", 20000), post("niche", 10)}},
		&fakeAdapter{name: "broken", err: errors.New("down")},
	}, notifier)

	run, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, run.Signals, 2)
	assert.Equal(t, "AI", run.Signals[0].Keyword)
	// mention 100*.4 + neutral velocity 50*.4 + fresh 100*.2
	assert.Equal(t, 80, run.Signals[0].Score)
	require.Len(t, run.Outcomes, 2)
	assert.Error(t, run.Outcomes[1].Err)

	saved, err := st.ListSignals(ctx, store.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	h, err := st.History(ctx, "AI")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Len(t, h.DataPoints, 1)
	assert.Equal(t, signal.StatusStable, run.Histories["AI"].Status)

	snap, err := snaps.Load(fixedNow)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.Signals, 2)

	require.Len(t, run.Rising, 1)
	assert.Equal(t, []string{"AI"}, notifier.titles)
	assert.Equal(t, 1, run.Alerted)
	assert.Same(t, run, p.Last())
	assert.Zero(t, run.Duration, "duration follows the injected clock")
}

func TestRunOnceRecordsOnePointPerKeyword(t *testing.T) {
	ctx := context.Background()
	p, st, _ := newPipeline(t, []source.Adapter{
		&fakeAdapter{name: "a", items: []source.RawItem{post("AI", 1000)}},
		&fakeAdapter{name: "b", items: []source.RawItem{post("AI", 5000)}},
	}, nil)

	run, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, run.Signals, 2, "both signals are kept")
	assert.Equal(t, 60, run.Signals[0].Score)

	h, err := st.History(ctx, "AI")
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, 5000, h.DataPoints[0].MentionCount, "best scored signal wins")

	run, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, run.Signals[0].Score, "velocity stays neutral between identical runs")

	h, err = st.History(ctx, "AI")
	require.NoError(t, err)
	assert.Len(t, h.DataPoints, 2)
}

func TestRunOnceAccumulatesHistory(t *testing.T) {
	ctx := context.Background()
	social := &fakeAdapter{name: "social", items: []source.RawItem{post("AI", 5000)}}
	p, st, _ := newPipeline(t, []source.Adapter{social}, nil)

	for i := 0; i < 2; i++ {
		_, err := p.RunOnce(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, signal.StatusStable, p.Last().Histories["AI"].Status, "flat series")

	// 5000 -> 9000 mentions lifts velocity and mention score together
	social.items = []source.RawItem{post("AI", 9000)}
	run, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Greater(t, run.Signals[0].Score, 60)
	assert.Equal(t, signal.StatusPeak, run.Histories["AI"].Status)

	h, err := st.History(ctx, "AI")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Len(t, h.DataPoints, 3)
}

func TestRunOnceAllAdaptersFail(t *testing.T) {
	p, _, _ := newPipeline(t, []source.Adapter{
		&fakeAdapter{name: "a", err: errors.New("down")},
		&fakeAdapter{name: "b", err: errors.New("down")},
	}, nil)

	run, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, run.Signals)
	assert.Empty(t, run.Rising)
}

func TestRunOnceStorageFailure(t *testing.T) {
	p, st, _ := newPipeline(t, []source.Adapter{
		&fakeAdapter{name: "social", items: []source.RawItem{post("AI", 10)}},
	}, nil)
	require.NoError(t, st.Close())

	_, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history")
	assert.Nil(t, p.Last())
}

type countingRunner struct {
	calls atomic.Int32
}

func (c *countingRunner) RunOnce(context.Context) (*Run, error) {
	c.calls.Add(1)
	return &Run{}, nil
}

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	r := &countingRunner{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- New(r, 5*time.Millisecond).Run(ctx) }()

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
