package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"docanchor/internal/domain"
	"docanchor/internal/model"
	"docanchor/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
	q  querier
}

// querier is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db, q: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const docColumns = `id, owner_ref, property_ref, filename, content_hash, storage_locator, size,
	status, anchor_ref, confirmations, last_verified_at, verification_count, on_ledger,
	version, reject_reason, created_at, updated_at`

func scanDocument(row interface{ Scan(dest ...any) error }) (*model.Document, error) {
	var d model.Document
	var lastVerified sql.NullTime
	if err := row.Scan(
		&d.ID,
		&d.OwnerRef,
		&d.PropertyRef,
		&d.Filename,
		&d.ContentHash,
		&d.StorageLocator,
		&d.Size,
		&d.Status,
		&d.Anchor.AnchorRef,
		&d.Anchor.Confirmations,
		&lastVerified,
		&d.Anchor.VerificationCount,
		&d.Anchor.OnLedger,
		&d.Version,
		&d.RejectReason,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastVerified.Valid {
		t := lastVerified.Time
		d.Anchor.LastVerifiedAt = &t
	}
	return &d, nil
}

// mapConstraint translates postgres unique violations into the domain error.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateContent, pgErr.ConstraintName)
	}
	return err
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, owner_ref, property_ref, filename, content_hash, storage_locator,
			size, status, anchor_ref, confirmations, verification_count, on_ledger, version,
			reject_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + docColumns
	row := r.q.QueryRowContext(ctx, q,
		doc.ID,
		doc.OwnerRef,
		doc.PropertyRef,
		doc.Filename,
		doc.ContentHash,
		doc.StorageLocator,
		doc.Size,
		doc.Status,
		doc.Anchor.AnchorRef,
		doc.Anchor.Confirmations,
		doc.Anchor.VerificationCount,
		doc.Anchor.OnLedger,
		doc.Version,
		doc.RejectReason,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	out, err := scanDocument(row)
	if err != nil {
		return nil, mapConstraint(err)
	}
	return out, nil
}

// FindByID fetches a single document and its version history.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + docColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(r.q.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	history, err := r.loadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	d.History = history
	return d, nil
}

// FindByContentHash fetches the document owning the given content hash.
func (r *DocumentPostgres) FindByContentHash(ctx context.Context, hash string) (*model.Document, error) {
	const q = `SELECT ` + docColumns + ` FROM documents WHERE content_hash = $1`
	d, err := scanDocument(r.q.QueryRowContext(ctx, q, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DocumentPostgres) loadHistory(ctx context.Context, id string) ([]model.HistoryEntry, error) {
	const q = `
		SELECT hash, anchor_ref, changed_by, reason, changed_at
		FROM document_history
		WHERE document_id = $1
		ORDER BY id ASC
	`
	rows, err := r.q.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.Hash, &e.AnchorRef, &e.ChangedBy, &e.Reason, &e.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
// History is not loaded for listings.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents`
	var total int
	if err := r.q.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + docColumns + `
		FROM documents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.q.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// UpdateStatus sets the document status and, for rejections, the reason.
func (r *DocumentPostgres) UpdateStatus(ctx context.Context, id string, status model.Status, reason string) error {
	const q = `
		UPDATE documents
		SET status = $2, reject_reason = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := r.q.ExecContext(ctx, q, id, status, reason)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateAnchor overwrites the anchor metadata columns.
func (r *DocumentPostgres) UpdateAnchor(ctx context.Context, id string, anchor model.Anchor) error {
	const q = `
		UPDATE documents
		SET anchor_ref = $2, confirmations = $3, last_verified_at = $4,
			verification_count = $5, on_ledger = $6, updated_at = now()
		WHERE id = $1
	`
	var lastVerified sql.NullTime
	if anchor.LastVerifiedAt != nil {
		lastVerified = sql.NullTime{Time: *anchor.LastVerifiedAt, Valid: true}
	}
	res, err := r.q.ExecContext(ctx, q, id, anchor.AnchorRef, anchor.Confirmations,
		lastVerified, anchor.VerificationCount, anchor.OnLedger)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RecordVerification stamps the verification time and bumps the counter.
// The increment happens in SQL so the counter never goes backwards under
// concurrent checks.
func (r *DocumentPostgres) RecordVerification(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE documents
		SET last_verified_at = $2, verification_count = verification_count + 1, updated_at = now()
		WHERE id = $1
	`
	res, err := r.q.ExecContext(ctx, q, id, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ReplaceContent performs the version bump, the history append, and the
// content swap in one transaction.
func (r *DocumentPostgres) ReplaceContent(ctx context.Context, id string, hash, locator string, size int64, entry model.HistoryEntry) error {
	return r.WithTx(ctx, func(repo repository.DocumentRepository) error {
		tx := repo.(*DocumentPostgres).q

		const qHist = `
			INSERT INTO document_history (document_id, hash, anchor_ref, changed_by, reason, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.ExecContext(ctx, qHist, id, entry.Hash, entry.AnchorRef,
			entry.ChangedBy, entry.Reason, entry.ChangedAt); err != nil {
			return err
		}

		const qDoc = `
			UPDATE documents
			SET content_hash = $2, storage_locator = $3, size = $4, version = version + 1,
				status = $5, anchor_ref = '', confirmations = 0, on_ledger = FALSE,
				reject_reason = '', updated_at = now()
			WHERE id = $1
		`
		res, err := tx.ExecContext(ctx, qDoc, id, hash, locator, size, model.StatusPending)
		if err != nil {
			return mapConstraint(err)
		}
		return requireRow(res)
	})
}

// WithTx runs fn against a transaction-bound copy of the repository.
// Nested calls reuse the outer transaction.
func (r *DocumentPostgres) WithTx(ctx context.Context, fn func(repository.DocumentRepository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&DocumentPostgres{db: r.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
