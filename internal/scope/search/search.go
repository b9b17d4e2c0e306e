// Package search provides case-insensitive text matching for catalog records.
package search

import (
	"strings"
	"sync"
)

// Engine represents a search backend
type Engine interface {
	Index(docID string, fields ...string) error
	Remove(docID string)
	Search(query string) ([]string, error)
}

// MemoryEngine keeps lowercased searchable fields per document
type MemoryEngine struct {
	mu   sync.RWMutex
	docs map[string][]string
}

// NewMemoryEngine creates a new in-memory search engine
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		docs: make(map[string][]string),
	}
}

// Index adds or replaces a document's searchable fields
func (e *MemoryEngine) Index(docID string, fields ...string) error {
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs[docID] = lowered
	return nil
}

// Remove drops a document from the index
func (e *MemoryEngine) Remove(docID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.docs, docID)
}

// Clear drops every document
func (e *MemoryEngine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs = make(map[string][]string)
}

// Search returns the ids of documents with any field containing query.
// Order is unspecified; callers sort.
func (e *MemoryEngine) Search(query string) ([]string, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	e.mu.RLock()
	defer e.mu.RUnlock()

	var results []string
	for docID, fields := range e.docs {
		if Matches(q, fields...) {
			results = append(results, docID)
		}
	}
	return results, nil
}

// Matches reports whether any field contains the lowercased query
func Matches(loweredQuery string, loweredFields ...string) bool {
	for _, f := range loweredFields {
		if strings.Contains(f, loweredQuery) {
			return true
		}
	}
	return false
}
