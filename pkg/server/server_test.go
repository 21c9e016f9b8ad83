package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/trendradar/internal/scheduler"
	"github.com/elonfeng/trendradar/internal/store"
	"github.com/elonfeng/trendradar/pkg/collector"
	"github.com/elonfeng/trendradar/pkg/signal"
)

var observed = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

type fakeRunner struct {
	run *scheduler.Run
	err error
}

func (f *fakeRunner) RunOnce(context.Context) (*scheduler.Run, error) { return f.run, f.err }

func newSignal(kw string, cat signal.Category, score int, tags ...string) signal.Signal {
	return signal.Signal{
		ID:           uuid.NewString(),
		Keyword:      kw,
		Origin:       signal.OriginSocial,
		Category:     cat,
		Score:        score,
		MentionCount: 100,
		ObservedAt:   observed,
		Tags:         tags,
	}
}

type fixture struct {
	srv     *httptest.Server
	store   *store.SQLiteStore
	signals []signal.Signal
}

func setup(t *testing.T, runner scheduler.Runner) *fixture {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	signals := []signal.Signal{
		newSignal("AI", signal.CategoryTechnology, 90, "#AI"),
		newSignal("AI技術", signal.CategoryTechnology, 70, "#AI"),
		newSignal("野球", signal.CategorySports, 40, "#sports"),
	}
	require.NoError(t, st.SaveSignals(context.Background(), signals))

	srv := httptest.NewServer(New(st, runner, Options{}).Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: st, signals: signals}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	f := setup(t, nil)
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListSignals(t *testing.T) {
	f := setup(t, nil)

	var body struct {
		Data  []signal.Signal `json:"data"`
		Count int             `json:"count"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/api/v1/signals", &body))
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, "AI", body.Data[0].Keyword)

	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/api/v1/signals?category=sports", &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "野球", body.Data[0].Keyword)

	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/api/v1/signals?min_score=60&limit=1", &body))
	assert.Len(t, body.Data, 1)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, f.srv.URL+"/api/v1/signals?min_score=high", nil))
}

func TestRelated(t *testing.T) {
	f := setup(t, nil)

	var body struct {
		Data []struct {
			Signal         signal.Signal `json:"signal"`
			RelevanceScore int           `json:"relevance_score"`
		} `json:"data"`
	}
	url := f.srv.URL + "/api/v1/signals/" + f.signals[0].ID + "/related"
	require.Equal(t, http.StatusOK, getJSON(t, url, &body))
	require.NotEmpty(t, body.Data)
	assert.Equal(t, "AI技術", body.Data[0].Signal.Keyword)
	assert.GreaterOrEqual(t, body.Data[0].RelevanceScore, 70)
	for _, r := range body.Data {
		assert.NotEqual(t, f.signals[0].ID, r.Signal.ID)
	}

	assert.Equal(t, http.StatusNotFound, getJSON(t, f.srv.URL+"/api/v1/signals/"+uuid.NewString()+"/related", nil))
}

func TestHistory(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	for i, score := range []int{40, 42, 95} {
		require.NoError(t, f.store.AppendHistory(ctx, "AI", signal.DataPoint{
			Timestamp: observed.Add(time.Duration(i) * time.Hour), Score: score, MentionCount: 100,
		}))
	}

	var body struct {
		Keyword       string        `json:"keyword"`
		Status        signal.Status `json:"status"`
		DurationHours float64       `json:"duration_hours"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/api/v1/history/AI", &body))
	assert.Equal(t, "AI", body.Keyword)
	assert.Equal(t, signal.StatusPeak, body.Status)
	assert.Equal(t, 2.0, body.DurationHours)

	assert.Equal(t, http.StatusNotFound, getJSON(t, f.srv.URL+"/api/v1/history/unknown", nil))
}

func TestClusters(t *testing.T) {
	f := setup(t, nil)

	var body struct {
		Data []struct {
			Category signal.Category `json:"category"`
			Signals  []signal.Signal `json:"signals"`
		} `json:"data"`
		Terms map[string]int `json:"terms"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, f.srv.URL+"/api/v1/clusters", &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, signal.CategoryTechnology, body.Data[0].Category)
	assert.Len(t, body.Data[0].Signals, 2)
	assert.Equal(t, 2, body.Terms["#ai"])
}

func TestCollect(t *testing.T) {
	runner := &fakeRunner{run: &scheduler.Run{
		Signals: make([]signal.Signal, 4),
		Rising:  make([]signal.Signal, 1),
		Outcomes: []collector.Outcome{
			{Adapter: "mock", Signals: 4},
			{Adapter: "news", Err: errors.New("down")},
		},
	}}
	f := setup(t, runner)

	resp, err := http.Post(f.srv.URL+"/api/v1/collect", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Signals  int `json:"signals"`
		Rising   int `json:"rising"`
		Adapters []struct {
			Adapter string `json:"adapter"`
			Error   string `json:"error"`
		} `json:"adapters"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 4, body.Signals)
	assert.Equal(t, 1, body.Rising)
	require.Len(t, body.Adapters, 2)
	assert.Equal(t, "down", body.Adapters[1].Error)
}

func TestCollectWithoutRunner(t *testing.T) {
	f := setup(t, nil)
	resp, err := http.Post(f.srv.URL+"/api/v1/collect", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := setup(t, nil)
	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
