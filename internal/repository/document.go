package repository

import (
	"context"
	"time"

	"docanchor/internal/model"
)

// DocumentRepository defines data access for anchored documents using SQL
// queries only. No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record. A content-hash or
	// storage-locator collision surfaces as domain.ErrDuplicateContent.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document, including its version history, by ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByContentHash returns the document owning the given content hash,
	// or domain.ErrNotFound if no document has it.
	FindByContentHash(ctx context.Context, hash string) (*model.Document, error)

	// List returns a paginated list of documents (history omitted) and the
	// total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// UpdateStatus sets a document's status. Reason is recorded for
	// rejections and ignored otherwise.
	UpdateStatus(ctx context.Context, id string, status model.Status, reason string) error

	// UpdateAnchor overwrites the document's anchor metadata.
	UpdateAnchor(ctx context.Context, id string, anchor model.Anchor) error

	// RecordVerification stamps last_verified_at and increments the
	// monotonic verification counter.
	RecordVerification(ctx context.Context, id string, at time.Time) error

	// ReplaceContent installs new content on an existing document: appends
	// the history entry, increments the version, sets the new hash, locator
	// and size, resets status to pending and clears verification fields.
	// The whole write is one transaction so a crash cannot leave the version
	// bumped without its history entry.
	ReplaceContent(ctx context.Context, id string, hash, locator string, size int64, entry model.HistoryEntry) error

	// WithTx runs fn against a repository bound to a single transaction,
	// committing on nil and rolling back on error.
	WithTx(ctx context.Context, fn func(DocumentRepository) error) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
