package resume

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// FileStore is a Store backed by a single JSON file. Writes replace the
// whole file atomically so a crash never leaves a torn record set. A
// corrupt or missing file starts empty rather than failing: the cache is a
// convenience, not a source of truth.
type FileStore struct {
	path string

	mu      sync.Mutex
	records map[string]Record
}

// NewFileStore opens (or creates) the store file at path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	s := &FileStore{path: path, records: make(map[string]Record)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		s.records = make(map[string]Record)
	}
	return s, nil
}

// Get implements Store.Get.
func (s *FileStore) Get(key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

// Put implements Store.Put.
func (s *FileStore) Put(key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = rec
	return s.saveLocked()
}

// Delete implements Store.Delete.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return nil
	}
	delete(s.records, key)
	return s.saveLocked()
}

// saveLocked writes the full record set atomically. Caller must hold s.mu.
func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}
