package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// BlobStore keeps JSON documents under root/dir/name. It does not lock;
// callers serialize writes to the same document.
type BlobStore struct {
	root string
}

// NewBlobStore returns a BlobStore rooted at root.
func NewBlobStore(root string) *BlobStore {
	return &BlobStore{root: root}
}

func (b *BlobStore) path(dir, name string) string {
	return filepath.Join(b.root, dir, name)
}

// Save writes v as indented JSON, replacing any previous document.
func (b *BlobStore) Save(dir, name string, v any) error {
	p := b.path(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", filepath.Dir(p), err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", p, err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("replace %s: %w", p, err)
	}
	return nil
}

// Load decodes the document into v. found is false when it does not exist.
func (b *BlobStore) Load(dir, name string, v any) (found bool, err error) {
	p := b.path(dir, name)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", p, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", p, err)
	}
	return true, nil
}

// Delete removes the document. Deleting a missing document is not an error.
func (b *BlobStore) Delete(dir, name string) error {
	err := os.Remove(b.path(dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", b.path(dir, name), err)
	}
	return nil
}

// Exists reports whether the document is present.
func (b *BlobStore) Exists(dir, name string) bool {
	_, err := os.Stat(b.path(dir, name))
	return err == nil
}
