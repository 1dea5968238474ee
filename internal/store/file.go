package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrCorrupt reports a store document that exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt store document")

// File keeps all entries in one JSON document on disk.
type File struct {
	mu   sync.Mutex
	path string
}

// OpenFile prepares a JSON file store at path. The file is created on first write.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &File{path: path}, nil
}

// Close implements Backend.
func (f *File) Close() error {
	return nil
}

// Get returns the raw JSON value stored under key.
func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return nil, false, err
	}
	value, ok := entries[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(value), true, nil
}

// Put stores value under key. Value must be valid JSON. A corrupt document is moved
// aside to <path>.corrupt-<unix> and replaced by a fresh one.
func (f *File) Put(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if errors.Is(err, ErrCorrupt) {
		entries, err = f.quarantine()
	}
	if err != nil {
		return err
	}
	entries[key] = json.RawMessage(value)
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	return writeAtomic(f.path, payload)
}

func (f *File) read() (map[string]json.RawMessage, error) {
	entries := map[string]json.RawMessage{}
	payload, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	if len(payload) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return entries, nil
}

func (f *File) quarantine() (map[string]json.RawMessage, error) {
	dest := fmt.Sprintf("%s.corrupt-%d", f.path, time.Now().Unix())
	if err := os.Rename(f.path, dest); err != nil {
		return nil, fmt.Errorf("failed to move corrupt store aside: %w", err)
	}
	return map[string]json.RawMessage{}, nil
}

func writeAtomic(path string, payload []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "store-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync store: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}
