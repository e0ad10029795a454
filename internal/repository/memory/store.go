// Package memory provides an in-process DocumentStore for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/repository"
)

// Store keeps a private copy of the last saved document.
type Store struct {
	mu    sync.Mutex
	doc   *domain.Document
	saves int
}

// New creates an empty Store.
func New() *Store {
	return &Store{doc: domain.NewDocument()}
}

// NewWithDocument creates a Store pre-populated with a copy of doc.
func NewWithDocument(doc *domain.Document) *Store {
	return &Store{doc: doc.Clone()}
}

// Load returns a copy of the stored document.
func (s *Store) Load(_ context.Context) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone(), nil
}

// Save stores a copy of doc.
func (s *Store) Save(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Compile-time check: ensure Store implements DocumentStore interface
var _ repository.DocumentStore = (*Store)(nil)
