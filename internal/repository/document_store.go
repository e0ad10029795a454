// internal/repository/document_store.go
package repository

import (
	"context"

	"economy-ledger/internal/domain"
)

// DocumentStore persists the whole ledger Document.
// Both operations are atomic: a failed Save leaves the previous document intact.
// Failures wrap util.ErrStorageUnavailable.
type DocumentStore interface {
	// Load returns the persisted document, creating an empty one if none exists yet.
	Load(ctx context.Context) (*domain.Document, error)
	// Save replaces the persisted document with doc.
	Save(ctx context.Context, doc *domain.Document) error
}
