// Package store persists signals and keyword histories in SQLite and keeps
// JSON documents (dated snapshots, the book catalog) on disk.
package store

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/trendradar/pkg/signal"
)

// ListOpts controls signal listing.
type ListOpts struct {
	Origin   signal.Origin
	Category signal.Category
	MinScore int
	Since    time.Time
	Limit    int
}

// Store is the persistence interface.
type Store interface {
	SaveSignals(ctx context.Context, signals []signal.Signal) error
	GetSignal(ctx context.Context, id string) (*signal.Signal, error)
	ListSignals(ctx context.Context, opts ListOpts) ([]signal.Signal, error)
	CountByOrigin(ctx context.Context) (map[signal.Origin]int, error)

	AppendHistory(ctx context.Context, keyword string, p signal.DataPoint) error
	History(ctx context.Context, keyword string) (*signal.History, error)
	Keywords(ctx context.Context) ([]string, error)

	Close() error
}

type signalRow struct {
	ID           string    `db:"id"`
	Keyword      string    `db:"keyword"`
	Origin       string    `db:"origin"`
	Category     string    `db:"category"`
	Score        int       `db:"score"`
	MentionCount int       `db:"mention_count"`
	ObservedAt   time.Time `db:"observed_at"`
	Tags         string    `db:"tags"`
	RelatedTerms string    `db:"related_terms"`
	SourceURL    string    `db:"source_url"`
}

func toRow(s signal.Signal) (signalRow, error) {
	tags, err := json.Marshal(nonNil(s.Tags))
	if err != nil {
		return signalRow{}, fmt.Errorf("marshal tags: %w", err)
	}
	terms, err := json.Marshal(nonNil(s.RelatedTerms))
	if err != nil {
		return signalRow{}, fmt.Errorf("marshal related terms: %w", err)
	}
	return signalRow{
		ID:           s.ID,
		Keyword:      s.Keyword,
		Origin:       string(s.Origin),
		Category:     string(s.Category),
		Score:        s.Score,
		MentionCount: s.MentionCount,
		ObservedAt:   s.ObservedAt.UTC(),
		Tags:         string(tags),
		RelatedTerms: string(terms),
		SourceURL:    s.SourceURL,
	}, nil
}

func (r signalRow) toSignal() (signal.Signal, error) {
	s := signal.Signal{
		ID:           r.ID,
		Keyword:      r.Keyword,
		Origin:       signal.Origin(r.Origin),
		Category:     signal.Category(r.Category),
		Score:        r.Score,
		MentionCount: r.MentionCount,
		ObservedAt:   r.ObservedAt.UTC(),
		SourceURL:    r.SourceURL,
	}
	if err := json.Unmarshal([]byte(r.Tags), &s.Tags); err != nil {
		return s, fmt.Errorf("decode tags of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.RelatedTerms), &s.RelatedTerms); err != nil {
		return s, fmt.Errorf("decode related terms of %s: %w", r.ID, err)
	}
	if len(s.Tags) == 0 {
		s.Tags = nil
	}
	if len(s.RelatedTerms) == 0 {
		s.RelatedTerms = nil
	}
	return s, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSignals validates every signal and then upserts them in one
// transaction. A *signal.ValidationError is returned before anything is
// written.
func (s *SQLiteStore) SaveSignals(ctx context.Context, signals []signal.Signal) error {
	rows := make([]signalRow, 0, len(signals))
	for _, sig := range signals {
		if err := sig.Validate(); err != nil {
			return err
		}
		row, err := toRow(sig)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save signals: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO signals (id, keyword, origin, category, score, mention_count, observed_at, tags, related_terms, source_url)
			VALUES (:id, :keyword, :origin, :category, :score, :mention_count, :observed_at, :tags, :related_terms, :source_url)
			ON CONFLICT(id) DO UPDATE SET
				score = excluded.score,
				mention_count = excluded.mention_count,
				observed_at = excluded.observed_at,
				tags = excluded.tags,
				related_terms = excluded.related_terms
		`, row)
		if err != nil {
			return fmt.Errorf("upsert signal %s: %w", row.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save signals: %w", err)
	}
	return nil
}

// GetSignal returns the signal with id, or nil when there is none.
func (s *SQLiteStore) GetSignal(ctx context.Context, id string) (*signal.Signal, error) {
	var rows []signalRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM signals WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("get signal %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	sig, err := rows[0].toSignal()
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

// ListSignals returns signals ordered by score, newest first on ties.
func (s *SQLiteStore) ListSignals(ctx context.Context, opts ListOpts) ([]signal.Signal, error) {
	query := "SELECT * FROM signals WHERE 1=1"
	var args []any

	if opts.Origin != "" {
		query += " AND origin = ?"
		args = append(args, opts.Origin)
	}
	if opts.Category != "" {
		query += " AND category = ?"
		args = append(args, opts.Category)
	}
	if opts.MinScore > 0 {
		query += " AND score >= ?"
		args = append(args, opts.MinScore)
	}
	if !opts.Since.IsZero() {
		query += " AND observed_at >= ?"
		args = append(args, opts.Since.UTC())
	}

	query += " ORDER BY score DESC, observed_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var rows []signalRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}

	out := make([]signal.Signal, 0, len(rows))
	for _, r := range rows {
		sig, err := r.toSignal()
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}

func (s *SQLiteStore) CountByOrigin(ctx context.Context) (map[signal.Origin]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT origin, COUNT(*) AS cnt FROM signals GROUP BY origin")
	if err != nil {
		return nil, fmt.Errorf("count signals by origin: %w", err)
	}
	defer rows.Close()

	counts := make(map[signal.Origin]int)
	for rows.Next() {
		var origin string
		var cnt int
		if err := rows.Scan(&origin, &cnt); err != nil {
			return nil, fmt.Errorf("scan origin count: %w", err)
		}
		counts[signal.Origin(origin)] = cnt
	}
	return counts, rows.Err()
}

// AppendHistory appends one data point to the keyword's series.
func (s *SQLiteStore) AppendHistory(ctx context.Context, keyword string, p signal.DataPoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history_points (keyword, observed_at, score, mention_count)
		VALUES (?, ?, ?, ?)
	`, keyword, p.Timestamp.UTC(), p.Score, p.MentionCount)
	if err != nil {
		return fmt.Errorf("append history %q: %w", keyword, err)
	}
	return nil
}

type pointRow struct {
	ObservedAt   time.Time `db:"observed_at"`
	Score        int       `db:"score"`
	MentionCount int       `db:"mention_count"`
}

// History returns the accumulated series for keyword, or nil when the
// keyword has never been recorded. Derived fields are left unset.
func (s *SQLiteStore) History(ctx context.Context, keyword string) (*signal.History, error) {
	var rows []pointRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT observed_at, score, mention_count FROM history_points
		WHERE keyword = ? ORDER BY observed_at, id
	`, keyword)
	if err != nil {
		return nil, fmt.Errorf("get history %q: %w", keyword, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	h := &signal.History{Keyword: keyword, DataPoints: make([]signal.DataPoint, len(rows))}
	for i, r := range rows {
		h.DataPoints[i] = signal.DataPoint{Timestamp: r.ObservedAt.UTC(), Score: r.Score, MentionCount: r.MentionCount}
	}
	return h, nil
}

// Keywords lists every keyword with recorded history.
func (s *SQLiteStore) Keywords(ctx context.Context) ([]string, error) {
	var kws []string
	if err := s.db.SelectContext(ctx, &kws, "SELECT DISTINCT keyword FROM history_points ORDER BY keyword"); err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	return kws, nil
}
