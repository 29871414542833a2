package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"docanchor/internal/domain"
	"docanchor/internal/model"
	"docanchor/internal/repository"
)

var docCols = []string{
	"id", "owner_ref", "property_ref", "filename", "content_hash", "storage_locator", "size",
	"status", "anchor_ref", "confirmations", "last_verified_at", "verification_count", "on_ledger",
	"version", "reject_reason", "created_at", "updated_at",
}

func docRow(doc *model.Document) *sqlmock.Rows {
	var lastVerified any
	if doc.Anchor.LastVerifiedAt != nil {
		lastVerified = *doc.Anchor.LastVerifiedAt
	}
	return sqlmock.NewRows(docCols).AddRow(
		doc.ID, doc.OwnerRef, doc.PropertyRef, doc.Filename, doc.ContentHash, doc.StorageLocator,
		doc.Size, doc.Status, doc.Anchor.AnchorRef, doc.Anchor.Confirmations, lastVerified,
		doc.Anchor.VerificationCount, doc.Anchor.OnLedger, doc.Version, doc.RejectReason,
		doc.CreatedAt, doc.UpdatedAt,
	)
}

func testDoc() *model.Document {
	now := time.Now().UTC()
	return &model.Document{
		ID:             "11111111-1111-1111-1111-111111111111",
		OwnerRef:       "owner-1",
		PropertyRef:    "prop-1",
		Filename:       "contract.pdf",
		ContentHash:    "aabbcc",
		StorageLocator: "loc-1",
		Size:           123,
		Status:         model.StatusDraft,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	doc := testDoc()

	mock.ExpectQuery("INSERT INTO documents").
		WillReturnRows(docRow(doc))

	result, err := repo.Create(ctx, doc)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, doc.ID, result.ID)
	assert.Equal(t, doc.ContentHash, result.ContentHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Create_UniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error opening stub database: %s", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)

	mock.ExpectQuery("INSERT INTO documents").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "documents_content_hash_key"})

	_, err = repo.Create(context.Background(), testDoc())
	assert.ErrorIs(t, err, domain.ErrDuplicateContent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error opening stub database: %s", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	doc := testDoc()

	t.Run("found with history", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
			WithArgs(doc.ID).
			WillReturnRows(docRow(doc))
		histRows := sqlmock.NewRows([]string{"hash", "anchor_ref", "changed_by", "reason", "changed_at"}).
			AddRow("oldhash", "tx-0", "owner-1", "typo fix", time.Now().UTC())
		mock.ExpectQuery("SELECT (.+) FROM document_history").
			WithArgs(doc.ID).
			WillReturnRows(histRows)

		got, err := repo.FindByID(ctx, doc.ID)
		assert.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
		assert.Len(t, got.History, 1)
		assert.Equal(t, "oldhash", got.History[0].Hash)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(docCols))

		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByContentHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error opening stub database: %s", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	doc := testDoc()

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE content_hash").
		WithArgs(doc.ContentHash).
		WillReturnRows(docRow(doc))

	got, err := repo.FindByContentHash(context.Background(), doc.ContentHash)
	assert.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE content_hash").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(docCols))

	_, err = repo.FindByContentHash(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error opening stub database: %s", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	doc := testDoc()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs(10, 0).
		WillReturnRows(docRow(doc))

	res, err := repo.List(context.Background(), repository.PageQuery{Limit: 10, Offset: 0})
	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error opening stub database: %s", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", model.StatusRejected, "illegible scan").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.UpdateStatus(context.Background(), "doc-1", model.StatusRejected, "illegible scan"))

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", model.StatusPending, "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateStatus(context.Background(), "missing", model.StatusPending, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_RecordVerification(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error opening stub database: %s", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.RecordVerification(context.Background(), "doc-1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_ReplaceContent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error opening stub database: %s", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	entry := model.HistoryEntry{
		Hash:      "oldhash",
		AnchorRef: "tx-0",
		ChangedBy: "owner-1",
		Reason:    "new revision",
		ChangedAt: time.Now().UTC(),
	}

	t.Run("commits history and version together", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO document_history").
			WithArgs("doc-1", entry.Hash, entry.AnchorRef, entry.ChangedBy, entry.Reason, entry.ChangedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE documents").
			WithArgs("doc-1", "newhash", "newloc", int64(99), model.StatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.ReplaceContent(context.Background(), "doc-1", "newhash", "newloc", 99, entry)
		assert.NoError(t, err)
	})

	t.Run("rolls back when the update fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO document_history").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE documents").
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := repo.ReplaceContent(context.Background(), "doc-1", "newhash", "newloc", 99, entry)
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_WithTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error opening stub database: %s", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)

	t.Run("commit on nil", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE documents").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.WithTx(context.Background(), func(r repository.DocumentRepository) error {
			return r.UpdateStatus(context.Background(), "doc-1", model.StatusVerified, "")
		})
		assert.NoError(t, err)
	})

	t.Run("rollback on error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repo.WithTx(context.Background(), func(r repository.DocumentRepository) error {
			return errors.New("boom")
		})
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
