package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/elonfeng/trendradar/pkg/signal"
)

const (
	catalogDir  = "books"
	catalogName = "books.json"
)

// ErrDuplicateID is returned when adding an item whose ID already exists.
var ErrDuplicateID = errors.New("duplicate catalog id")

// CatalogRepo is the book catalog kept in books/books.json.
type CatalogRepo struct {
	mu    sync.Mutex
	blobs *BlobStore
}

func NewCatalogRepo(blobs *BlobStore) *CatalogRepo {
	return &CatalogRepo{blobs: blobs}
}

// LoadAll returns every item, or nil when the catalog does not exist.
// Each item is validated.
func (r *CatalogRepo) LoadAll() ([]signal.CatalogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *CatalogRepo) load() ([]signal.CatalogItem, error) {
	var items []signal.CatalogItem
	found, err := r.blobs.Load(catalogDir, catalogName, &items)
	if err != nil || !found {
		return nil, err
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
	}
	return items, nil
}

// Add appends item after validating it.
func (r *CatalogRepo) Add(item signal.CatalogItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return err
	}
	for _, existing := range items {
		if existing.ID == item.ID {
			return fmt.Errorf("add %s: %w", item.ID, ErrDuplicateID)
		}
	}
	return r.blobs.Save(catalogDir, catalogName, append(items, item))
}

// FindByID returns the item with id, or nil.
func (r *CatalogRepo) FindByID(id string) (*signal.CatalogItem, error) {
	items, err := r.LoadAll()
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, nil
}

// FindByKeyword returns items whose keywords contain kw or whose title
// contains it, case-insensitively.
func (r *CatalogRepo) FindByKeyword(kw string) ([]signal.CatalogItem, error) {
	items, err := r.LoadAll()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(kw))
	if needle == "" {
		return nil, nil
	}

	var out []signal.CatalogItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Title), needle) {
			out = append(out, item)
			continue
		}
		for _, k := range item.Keywords {
			if strings.Contains(strings.ToLower(k), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out, nil
}

// DeleteByID removes the item with id and reports whether it existed.
func (r *CatalogRepo) DeleteByID(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return false, err
	}
	kept := items[:0:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}
	return true, r.blobs.Save(catalogDir, catalogName, kept)
}
