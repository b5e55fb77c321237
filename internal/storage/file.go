package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileStore implements Store as a single JSON object on disk, written
// atomically so a crash mid-write never leaves a torn file behind.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path. Parent directories are
// created if they do not exist; the file itself is created on first Put.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Get returns the value stored under key. A missing file reads as an empty
// store, not an error.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	entries, err := s.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

// Put stores value under key and rewrites the whole file atomically.
func (s *FileStore) Put(key string, value []byte) error {
	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[key] = json.RawMessage(value)
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode storage file: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	return nil
}

func (s *FileStore) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse storage file: %w", err)
	}
	return entries, nil
}

func (s *FileStore) Close() error { return nil }
