// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Note is a persisted free-text memory record with tags and provenance.
// Notes are never mutated in place; the store only appends or removes
// whole records.
type Note struct {
	ID     int64     `json:"id"`
	TS     time.Time `json:"ts"`
	Kind   string    `json:"kind"`   // "manual" or "auto"
	Source string    `json:"source"` // origin tag, e.g. "user", "kernel"
	Tags   []string  `json:"tags"`
	Text   string    `json:"text"`
}

// Collection is the full persisted state of the memory store
type Collection struct {
	Items []Note `json:"items"`
}

// Note kinds
const (
	KindManual = "manual"
	KindAuto   = "auto"
)

// Note sources
const (
	SourceUser   = "user"
	SourceKernel = "kernel"
)

// Store persists notes as a single JSON document. Writes go through a
// temp file and rename so a concurrent reader never observes a partial
// document. Last writer wins at whole-collection granularity.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a memory store backed by the given document path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing document path
func (s *Store) Path() string {
	return s.path
}

// Load reads the full persisted collection. An absent or corrupt
// document yields an empty collection rather than an error so first
// use never blocks.
func (s *Store) Load() Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() Collection {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Collection{Items: []Note{}}
	}

	var col Collection
	if err := json.Unmarshal(data, &col); err != nil {
		return Collection{Items: []Note{}}
	}
	if col.Items == nil {
		col.Items = []Note{}
	}
	return col
}

// Add assigns the next id and current timestamp, appends the note,
// persists, and returns the full updated collection. Ids are unique and
// monotonically non-decreasing by insertion order.
func (s *Store) Add(text, kind string, tags []string, source string) (Collection, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Collection{}, fmt.Errorf("note text cannot be empty")
	}
	if kind == "" {
		kind = KindManual
	}
	if tags == nil {
		tags = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.loadLocked()
	col.Items = append(col.Items, Note{
		ID:     nextID(col.Items),
		TS:     time.Now(),
		Kind:   kind,
		Source: source,
		Tags:   tags,
		Text:   text,
	})

	if err := s.saveLocked(col); err != nil {
		return Collection{}, err
	}
	return col, nil
}

// Remove deletes a single note by id. Returns false if no note has
// that id.
func (s *Store) Remove(id int64) (Collection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.loadLocked()
	kept := make([]Note, 0, len(col.Items))
	found := false
	for _, n := range col.Items {
		if n.ID == id {
			found = true
			continue
		}
		kept = append(kept, n)
	}
	if !found {
		return col, false, nil
	}

	col.Items = kept
	if err := s.saveLocked(col); err != nil {
		return Collection{}, false, err
	}
	return col, true, nil
}

// Save persists a caller-provided collection verbatim, overwriting
// prior state. Misuse with a stale collection can desynchronize id
// uniqueness; that is a caller responsibility.
func (s *Store) Save(col Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(col)
}

// Clear destructively removes all notes and persists the empty state
func (s *Store) Clear() (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := Collection{Items: []Note{}}
	if err := s.saveLocked(col); err != nil {
		return Collection{}, err
	}
	return col, nil
}

// saveLocked writes the document atomically (temp file + rename)
func (s *Store) saveLocked(col Collection) error {
	if col.Items == nil {
		col.Items = []Note{}
	}

	data, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode memory document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write memory document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace memory document: %w", err)
	}
	return nil
}

// nextID returns one past the highest assigned id
func nextID(items []Note) int64 {
	var max int64
	for _, n := range items {
		if n.ID > max {
			max = n.ID
		}
	}
	return max + 1
}
