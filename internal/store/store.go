// Package store provides the shared key/value hand-off structure between
// pipeline stages. Each key is owned by exactly one writer stage; ownership
// is declared and checked at pipeline wiring time, while the store itself
// resolves same-key writes as last-write-wins.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when the key has not been written.
var ErrNotFound = errors.New("store: key not found")

// Entry holds a stored value along with the stage that wrote it.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	Writer    string          `json:"writer"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store is an in-process, optionally persistable key/value store.
// It is safe for concurrent readers and for concurrent writers of
// disjoint keys.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]Entry)}
}

// Set stores value under key, recording the writing stage. A later write
// replaces an earlier one unconditionally. The value is serialized
// immediately so readers can never observe a torn write.
func (s *Store) Set(key string, value any, writer string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: failed to encode value for key %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{
		Value:     raw,
		Writer:    writer,
		Timestamp: time.Now().UTC(),
	}
	return nil
}

// Get decodes the current value for key into out.
// Returns ErrNotFound if the key has not been written.
func (s *Store) Get(key string, out any) error {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err := json.Unmarshal(entry.Value, out); err != nil {
		return fmt.Errorf("store: failed to decode value for key %q: %w", key, err)
	}
	return nil
}

// GetRaw returns the raw serialized value and writer for key.
func (s *Store) GetRaw(key string) (json.RawMessage, string, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return entry.Value, entry.Writer, nil
}

// Has reports whether key has been written.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}

// Keys returns the set of written keys in unspecified order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Writer returns the stage ID that wrote key, or "" if unwritten.
func (s *Store) Writer(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[key].Writer
}

// Snapshot returns a copy of the full entry set.
func (s *Store) Snapshot() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Persist serializes the full entry set to path as JSON.
func (s *Store) Persist(path string) error {
	snapshot := s.Snapshot()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("store: failed to serialize entries: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("store: failed to write %s: %w", path, err)
	}
	return nil
}

// Load replaces the in-memory entry set with one previously persisted.
// Load(Persist(S)) reproduces S exactly: same keys, same values, same
// writers; key order is irrelevant.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("store: failed to read %s: %w", path, err)
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("store: failed to parse %s: %w", path, err)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}
