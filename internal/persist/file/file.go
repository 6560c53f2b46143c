// Package filebackend persists the store as a single JSON snapshot document.
package filebackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkositsyn/bdayd/internal/persist"
	"github.com/pkositsyn/bdayd/internal/store"
)

type Config struct {
	Path string
}

type Backend struct {
	path string
}

func New(config Config) *Backend {
	return &Backend{path: config.Path}
}

// Load reads the snapshot file. A missing file is an empty store, not an
// error, so first start needs no setup step.
func (b *Backend) Load(_ context.Context) (store.Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return store.Snapshot{}, nil
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read snapshot %q: %w", b.path, err)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return store.Snapshot{}, fmt.Errorf("parse snapshot %q: %w", b.path, err)
	}
	return snap, nil
}

// Save writes the snapshot to a sibling temp file and renames it over the
// target, so a crash mid-write never leaves a truncated snapshot.
func (b *Backend) Save(_ context.Context, snap store.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replace snapshot %q: %w", b.path, err)
	}
	return nil
}

// Apply is unused in snapshot mode; saves capture the whole store.
func (b *Backend) Apply(_ context.Context, _ persist.Mutation) error {
	return nil
}

func (b *Backend) Synchronous() bool {
	return false
}

func (b *Backend) Close(_ context.Context) error {
	return nil
}
