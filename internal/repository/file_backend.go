package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Backend persists whole snapshots. Write replaces the stored snapshot
// atomically and only when the stored revision still equals baseRevision
// (zero meaning nothing is stored yet).
type Backend interface {
	Read(ctx context.Context) (*Snapshot, error)
	Write(ctx context.Context, snap *Snapshot, baseRevision int64) error
	Delete(ctx context.Context) error
}

// FileBackend stores the snapshot as a JSON document on local disk.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend builds a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the snapshot location.
func (b *FileBackend) Path() string { return b.path }

// Read loads the snapshot. A missing file yields ErrNoSnapshot.
func (b *FileBackend) Read(ctx context.Context) (*Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read(ctx)
}

func (b *FileBackend) read(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read snapshot %s: %w", b.path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", b.path, err)
	}
	if err := checkSchema(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Write serialises to a temporary file in the same directory and renames it
// over the previous snapshot, so readers see either the old or the new file.
func (b *FileBackend) Write(ctx context.Context, snap *Snapshot, baseRevision int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := b.read(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		if baseRevision != 0 {
			return errStaleRevision
		}
	case err != nil:
		return err
	case current.Revision != baseRevision:
		return errStaleRevision
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot file. A missing file is not an error.
func (b *FileBackend) Delete(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func checkSchema(snap *Snapshot) error {
	if snap.SchemaVersion > SchemaVersion {
		return fmt.Errorf("snapshot schema version %d is newer than supported %d", snap.SchemaVersion, SchemaVersion)
	}
	return nil
}
