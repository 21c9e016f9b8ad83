package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/trendradar/pkg/signal"
)

var day = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makeSignal(kw string, origin signal.Origin, score int) signal.Signal {
	return signal.Signal{
		ID:           uuid.NewString(),
		Keyword:      kw,
		Origin:       origin,
		Category:     signal.CategoryTechnology,
		Score:        score,
		MentionCount: 1000,
		ObservedAt:   day,
		Tags:         []string{"#AI"},
		RelatedTerms: []string{"LLM"},
		SourceURL:    "https://example.com/" + kw,
	}
}

func TestSaveAndListSignals(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := makeSignal("AI", signal.OriginSocial, 80)
	b := makeSignal("election", signal.OriginNews, 40)
	b.Tags = nil
	require.NoError(t, s.SaveSignals(ctx, []signal.Signal{b, a}))

	all, err := s.ListSignals(ctx, ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "AI", all[0].Keyword, "ordered by score")
	assert.Equal(t, []string{"#AI"}, all[0].Tags)
	assert.Nil(t, all[1].Tags)
	assert.True(t, day.Equal(all[0].ObservedAt))

	news, err := s.ListSignals(ctx, ListOpts{Origin: signal.OriginNews})
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, b.ID, news[0].ID)

	high, err := s.ListSignals(ctx, ListOpts{MinScore: 50})
	require.NoError(t, err)
	assert.Len(t, high, 1)
}

func TestSaveSignalsRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	good := makeSignal("AI", signal.OriginSocial, 80)
	bad := makeSignal("", signal.OriginSocial, 10)

	err := s.SaveSignals(ctx, []signal.Signal{good, bad})
	var verr *signal.ValidationError
	require.ErrorAs(t, err, &verr)

	all, err := s.ListSignals(ctx, ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, all, "nothing written")
}

func TestSaveSignalsUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sig := makeSignal("AI", signal.OriginSocial, 10)
	require.NoError(t, s.SaveSignals(ctx, []signal.Signal{sig}))
	require.NoError(t, s.SaveSignals(ctx, []signal.Signal{sig.WithScore(90)}))

	got, err := s.GetSignal(ctx, sig.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 90, got.Score)

	missing, err := s.GetSignal(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCountByOrigin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveSignals(ctx, []signal.Signal{
		makeSignal("a", signal.OriginSocial, 1),
		makeSignal("b", signal.OriginSocial, 2),
		makeSignal("c", signal.OriginCalendar, 3),
	}))

	counts, err := s.CountByOrigin(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[signal.Origin]int{signal.OriginSocial: 2, signal.OriginCalendar: 1}, counts)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	h, err := s.History(ctx, "AI")
	require.NoError(t, err)
	assert.Nil(t, h, "no history yet")

	for i, score := range []int{40, 42, 95} {
		p := signal.DataPoint{Timestamp: day.Add(time.Duration(i) * time.Hour), Score: score, MentionCount: score * 10}
		require.NoError(t, s.AppendHistory(ctx, "AI", p))
	}
	require.NoError(t, s.AppendHistory(ctx, "other", signal.DataPoint{Timestamp: day, Score: 1}))

	h, err = s.History(ctx, "AI")
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Len(t, h.DataPoints, 3)
	assert.Equal(t, "AI", h.Keyword)
	assert.Equal(t, 95, h.DataPoints[2].Score)
	assert.Equal(t, 950, h.DataPoints[2].MentionCount)
	assert.True(t, day.Add(2*time.Hour).Equal(h.DataPoints[2].Timestamp))

	kws, err := s.Keywords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AI", "other"}, kws)
}

func TestBlobStore(t *testing.T) {
	b := NewBlobStore(t.TempDir())

	var v map[string]int
	found, err := b.Load("docs", "missing.json", &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, b.Exists("docs", "missing.json"))

	require.NoError(t, b.Save("docs", "a.json", map[string]int{"x": 1}))
	assert.True(t, b.Exists("docs", "a.json"))

	found, err = b.Load("docs", "a.json", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, map[string]int{"x": 1}, v)

	require.NoError(t, b.Delete("docs", "a.json"))
	assert.False(t, b.Exists("docs", "a.json"))
	assert.NoError(t, b.Delete("docs", "a.json"))
}

func TestSnapshotRepo(t *testing.T) {
	repo := NewSnapshotRepo(NewBlobStore(t.TempDir()))

	snap, err := repo.Load(day)
	require.NoError(t, err)
	assert.Nil(t, snap)

	sig := makeSignal("AI", signal.OriginSocial, 70)
	require.NoError(t, repo.Save(day, []signal.Signal{sig}))

	snap, err = repo.Load(day)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "2026-10-14", snap.Date)
	require.Len(t, snap.Signals, 1)
	assert.Equal(t, sig.ID, snap.Signals[0].ID)
}

func TestSnapshotFileLayout(t *testing.T) {
	root := t.TempDir()
	blobs := NewBlobStore(root)
	require.NoError(t, NewSnapshotRepo(blobs).Save(day, nil))
	assert.FileExists(t, filepath.Join(root, "signals", "2026-10-14.json"))
}

func TestCatalogRepo(t *testing.T) {
	root := t.TempDir()
	repo := NewCatalogRepo(NewBlobStore(root))

	items, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Nil(t, items)

	book := signal.CatalogItem{ID: "b1", Title: "Deep Learning入門", Keywords: []string{"AI", "機械学習"}, Genre: "technology"}
	require.NoError(t, repo.Add(book))
	require.NoError(t, repo.Add(signal.CatalogItem{ID: "b2", Title: "Cooking", Keywords: []string{"料理"}}))
	assert.FileExists(t, filepath.Join(root, "books", "books.json"))

	err = repo.Add(book)
	assert.ErrorIs(t, err, ErrDuplicateID)

	var verr *signal.ValidationError
	assert.ErrorAs(t, repo.Add(signal.CatalogItem{ID: "b3"}), &verr)

	got, err := repo.FindByID("b1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, book.Title, got.Title)

	matches, err := repo.FindByKeyword("ai")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b1", matches[0].ID)

	matches, err = repo.FindByKeyword("cook")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	deleted, err := repo.DeleteByID("b1")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.DeleteByID("b1")
	require.NoError(t, err)
	assert.False(t, deleted)

	items, err = repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b2", items[0].ID)
}

func TestCatalogRepoRejectsCorruptEntry(t *testing.T) {
	blobs := NewBlobStore(t.TempDir())
	require.NoError(t, blobs.Save("books", "books.json", []map[string]any{{"id": "x"}}))

	_, err := NewCatalogRepo(blobs).LoadAll()
	var verr *signal.ValidationError
	assert.ErrorAs(t, err, &verr)
}
