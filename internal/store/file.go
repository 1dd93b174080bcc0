package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File persists each key as its own JSON file under a directory. This is the
// kiosk default: one machine, one student, survives reloads and power cycles.
// Writes go through a temp file + rename so a crash mid-write leaves the
// previous value intact.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates (if needed) the state directory and returns a file store.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key Key) string {
	// Key strings contain ':' which is unfriendly on some filesystems.
	name := strings.ReplaceAll(key.String(), ":", "_") + ".json"
	return filepath.Join(f.dir, name)
}

func (f *File) Get(_ context.Context, key Key, dst any) error {
	raw, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	return open(raw, dst)
}

func (f *File) Put(_ context.Context, key Key, v any) error {
	raw, err := seal(v)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, keys ...Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		if err := os.Remove(f.path(k)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}
