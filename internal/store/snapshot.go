package store

import (
	"time"

	"github.com/elonfeng/trendradar/pkg/signal"
)

const snapshotDir = "signals"

// Snapshot is the stored result of one day's collection.
type Snapshot struct {
	Date        string          `json:"date"`
	GeneratedAt time.Time       `json:"generated_at"`
	Signals     []signal.Signal `json:"signals"`
}

// SnapshotRepo stores one snapshot per day as signals/YYYY-MM-DD.json.
type SnapshotRepo struct {
	blobs *BlobStore
}

func NewSnapshotRepo(blobs *BlobStore) *SnapshotRepo {
	return &SnapshotRepo{blobs: blobs}
}

func snapshotName(day time.Time) string {
	return day.Format("2006-01-02") + ".json"
}

// Save replaces the snapshot for the day of at.
func (r *SnapshotRepo) Save(at time.Time, signals []signal.Signal) error {
	return r.blobs.Save(snapshotDir, snapshotName(at), Snapshot{
		Date:        at.Format("2006-01-02"),
		GeneratedAt: at,
		Signals:     signals,
	})
}

// Load returns the snapshot for day, or nil when none was taken.
func (r *SnapshotRepo) Load(day time.Time) (*Snapshot, error) {
	var snap Snapshot
	found, err := r.blobs.Load(snapshotDir, snapshotName(day), &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}
