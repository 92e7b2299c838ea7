// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package directives

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Directive statuses. The lifecycle is one-way: active directives can be
// archived, archived directives never reactivate.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Directive is a persisted long-term goal with an active/archived
// lifecycle. Archived directives keep their full historical data; there
// is no hard delete.
type Directive struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
	Domains   []string  `json:"domains"`
	Status    string    `json:"status"`
}

// IsActive reports whether the directive is still in effect
func (d Directive) IsActive() bool {
	return d.Status == StatusActive
}

type document struct {
	Items []Directive `json:"items"`
}

// Store persists directives as a single JSON document with atomic
// temp-then-rename writes, mirroring the memory store.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a directive store backed by the given document path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing document path
func (s *Store) Path() string {
	return s.path
}

// Create registers a new active directive and persists it
func (s *Store) Create(text string, domains []string) (Directive, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Directive{}, fmt.Errorf("directive text cannot be empty")
	}
	if domains == nil {
		domains = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadLocked()
	d := Directive{
		ID:        nextID(doc.Items),
		CreatedAt: time.Now(),
		Text:      text,
		Domains:   domains,
		Status:    StatusActive,
	}
	doc.Items = append(doc.Items, d)

	if err := s.saveLocked(doc); err != nil {
		return Directive{}, err
	}
	return d, nil
}

// List returns at most limit directives, most recent first.
// Only active directives are returned; archived ones are reachable via
// ListArchived. limit <= 0 means no cap.
func (s *Store) List(limit int) []Directive {
	return s.listByStatus(StatusActive, limit)
}

// ListArchived returns at most limit archived directives, most recent first
func (s *Store) ListArchived(limit int) []Directive {
	return s.listByStatus(StatusArchived, limit)
}

func (s *Store) listByStatus(status string, limit int) []Directive {
	s.mu.Lock()
	doc := s.loadLocked()
	s.mu.Unlock()

	out := make([]Directive, 0, len(doc.Items))
	// Most recent first: ids are monotonic, walk backwards
	for i := len(doc.Items) - 1; i >= 0; i-- {
		if doc.Items[i].Status != status {
			continue
		}
		out = append(out, doc.Items[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Archive flips an active directive to archived. Returns the archived
// directive on success. Archiving a missing or already-archived id
// returns ok=false; that distinguishes "nothing was active under this
// id" from a storage error.
func (s *Store) Archive(id int64) (Directive, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadLocked()
	for i := range doc.Items {
		if doc.Items[i].ID != id {
			continue
		}
		if doc.Items[i].Status != StatusActive {
			return Directive{}, false, nil
		}
		doc.Items[i].Status = StatusArchived
		if err := s.saveLocked(doc); err != nil {
			return Directive{}, false, err
		}
		return doc.Items[i], true, nil
	}
	return Directive{}, false, nil
}

// loadLocked reads the document, degrading to empty on absence or corruption
func (s *Store) loadLocked() document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return document{Items: []Directive{}}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{Items: []Directive{}}
	}
	if doc.Items == nil {
		doc.Items = []Directive{}
	}
	return doc
}

func (s *Store) saveLocked(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode directives document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directives directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write directives document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace directives document: %w", err)
	}
	return nil
}

func nextID(items []Directive) int64 {
	var max int64
	for _, d := range items {
		if d.ID > max {
			max = d.ID
		}
	}
	return max + 1
}
