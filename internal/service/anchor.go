package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docanchor/internal/blobstore"
	"docanchor/internal/domain"
	"docanchor/internal/ledger"
	"docanchor/internal/model"
	"docanchor/internal/repository"
)

// UploadOutcome is returned from a successful upload: the stored record plus
// the blob location and, when immediate anchoring succeeded, the ledger
// reference.
type UploadOutcome struct {
	Document  *model.Document `json:"document"`
	Locator   string          `json:"locator"`
	URL       string          `json:"url"`
	AnchorRef string          `json:"anchor_ref,omitempty"`
}

// BatchFailure isolates one failed item of a batch operation.
type BatchFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchOutcome collects per-item results; one item's failure never aborts
// the rest.
type BatchOutcome struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// AnchorService defines the use cases for anchoring document content.
type AnchorService interface {
	// Upload hashes content, rejects duplicates, stores the blob, creates
	// the record, and anchors the hash on the ledger. A ledger failure is
	// not fatal: the record is kept pending with on_ledger=false and the
	// anchor is recovered later by reconciliation.
	Upload(ctx context.Context, ownerRef, propertyRef string, content []byte, name string) (*UploadOutcome, error)

	// Update installs new content on an owned document: new blob, history
	// append, version bump, status reset to pending, then re-anchoring.
	Update(ctx context.Context, id, requester string, newContent []byte, reason string) (*model.Document, error)

	// Verify moves a pending document to verified after the ledger confirms
	// its hash. A hash disagreement fails with domain.ErrLedgerMismatch and
	// leaves the document untouched.
	Verify(ctx context.Context, id, reviewerRef string) (*model.Document, error)

	// Reject moves a pending document to rejected. The ledger is not
	// consulted.
	Reject(ctx context.Context, id, reviewerRef, reason string) (*model.Document, error)

	// Archive soft-deletes a document. Terminal; history is preserved.
	Archive(ctx context.Context, id, requester string) error

	// BatchVerify verifies up to the configured batch ceiling of documents,
	// isolating per-item failures.
	BatchVerify(ctx context.Context, ids []string, reviewerRef string) (*BatchOutcome, error)

	// BatchReject rejects up to the batch ceiling of documents with the
	// same per-item isolation as BatchVerify.
	BatchReject(ctx context.Context, ids []string, reviewerRef, reason string) (*BatchOutcome, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)
}

type anchorService struct {
	repo         repository.DocumentRepository
	ledger       ledger.Client
	blob         blobstore.Store
	maxBatchSize int
}

// NewAnchorService constructs an AnchorService. maxBatchSize caps batch
// operations; zero falls back to 50.
func NewAnchorService(repo repository.DocumentRepository, lc ledger.Client, bs blobstore.Store, maxBatchSize int) AnchorService {
	if maxBatchSize <= 0 {
		maxBatchSize = 50
	}
	return &anchorService{repo: repo, ledger: lc, blob: bs, maxBatchSize: maxBatchSize}
}

func (s *anchorService) Upload(ctx context.Context, ownerRef, propertyRef string, content []byte, name string) (*UploadOutcome, error) {
	if len(content) == 0 {
		return nil, errors.New("content is empty")
	}
	if ownerRef == "" {
		return nil, errors.New("owner reference is required")
	}

	hash := model.HashContent(content)
	if existing, err := s.repo.FindByContentHash(ctx, hash); err == nil {
		return nil, fmt.Errorf("%w: content already registered as document %s", domain.ErrDuplicateContent, existing.ID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	blob, err := s.blob.Upload(ctx, content, name)
	if err != nil {
		return nil, fmt.Errorf("upload to blob store: %w", err)
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:             uuid.New().String(),
		OwnerRef:       ownerRef,
		PropertyRef:    propertyRef,
		Filename:       name,
		ContentHash:    hash,
		StorageLocator: blob.Locator,
		Size:           blob.Size,
		Status:         model.StatusDraft,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	// First anchor write moves the record draft -> pending.
	if err := s.repo.UpdateStatus(ctx, stored.ID, model.StatusPending, ""); err != nil {
		return nil, err
	}
	stored.Status = model.StatusPending

	outcome := &UploadOutcome{Document: stored, Locator: blob.Locator, URL: blob.URL}

	// The ledger write sits outside the record-store transaction and cannot
	// be rolled back. Failure here is not fatal to the upload: the record
	// stays pending with on_ledger=false and reconciliation closes the gap.
	anchorRef, err := s.ledger.Record(ctx, stored.ID, hash)
	if err != nil {
		return outcome, nil
	}
	stored.Anchor.AnchorRef = anchorRef
	stored.Anchor.OnLedger = true
	if err := s.repo.UpdateAnchor(ctx, stored.ID, stored.Anchor); err != nil {
		return nil, err
	}
	outcome.AnchorRef = anchorRef
	return outcome, nil
}

func (s *anchorService) Update(ctx context.Context, id, requester string, newContent []byte, reason string) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerRef != requester {
		return nil, fmt.Errorf("%w: document %s is not owned by %s", domain.ErrAuthorization, id, requester)
	}
	if doc.Status == model.StatusArchived {
		return nil, fmt.Errorf("%w: archived documents cannot be updated", domain.ErrInvalidState)
	}
	if len(newContent) == 0 {
		return doc, nil
	}

	newHash := model.HashContent(newContent)
	if newHash == doc.ContentHash {
		return doc, nil
	}
	if other, err := s.repo.FindByContentHash(ctx, newHash); err == nil && other.ID != id {
		return nil, fmt.Errorf("%w: content already registered as document %s", domain.ErrDuplicateContent, other.ID)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	blob, err := s.blob.Upload(ctx, newContent, doc.Filename)
	if err != nil {
		return nil, fmt.Errorf("upload to blob store: %w", err)
	}

	entry := model.HistoryEntry{
		Hash:      doc.ContentHash,
		AnchorRef: doc.Anchor.AnchorRef,
		ChangedBy: requester,
		Reason:    reason,
		ChangedAt: time.Now().UTC(),
	}
	if err := s.repo.ReplaceContent(ctx, id, newHash, blob.Locator, blob.Size, entry); err != nil {
		return nil, err
	}

	// Re-anchor the new hash; same non-fatal policy as Upload.
	if anchorRef, err := s.ledger.Record(ctx, id, newHash); err == nil {
		anchor := model.Anchor{
			AnchorRef:         anchorRef,
			OnLedger:          true,
			VerificationCount: doc.Anchor.VerificationCount,
			LastVerifiedAt:    doc.Anchor.LastVerifiedAt,
		}
		if err := s.repo.UpdateAnchor(ctx, id, anchor); err != nil {
			return nil, err
		}
	}

	return s.repo.FindByID(ctx, id)
}

func (s *anchorService) Verify(ctx context.Context, id, reviewerRef string) (*model.Document, error) {
	if err := s.verifyWith(ctx, s.repo, id); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// verifyWith runs the single-document verify flow against the given
// repository handle so batch verification can reuse it inside a transaction.
func (s *anchorService) verifyWith(ctx context.Context, repo repository.DocumentRepository, id string) error {
	doc, err := repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status != model.StatusPending {
		return fmt.Errorf("%w: verify requires pending, document is %s", domain.ErrInvalidState, doc.Status)
	}

	match, err := s.ledger.Verify(ctx, id, doc.ContentHash)
	if err != nil {
		return fmt.Errorf("ledger verify: %w", err)
	}
	if !match {
		return fmt.Errorf("%w: ledger does not confirm hash for document %s", domain.ErrLedgerMismatch, id)
	}

	if err := repo.UpdateStatus(ctx, id, model.StatusVerified, ""); err != nil {
		return err
	}
	return repo.RecordVerification(ctx, id, time.Now().UTC())
}

func (s *anchorService) Reject(ctx context.Context, id, reviewerRef, reason string) (*model.Document, error) {
	if err := s.rejectWith(ctx, s.repo, id, reason); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *anchorService) rejectWith(ctx context.Context, repo repository.DocumentRepository, id, reason string) error {
	doc, err := repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status != model.StatusPending {
		return fmt.Errorf("%w: reject requires pending, document is %s", domain.ErrInvalidState, doc.Status)
	}
	return repo.UpdateStatus(ctx, id, model.StatusRejected, reason)
}

func (s *anchorService) Archive(ctx context.Context, id, requester string) error {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerRef != requester {
		return fmt.Errorf("%w: document %s is not owned by %s", domain.ErrAuthorization, id, requester)
	}
	if !doc.Status.CanTransitionTo(model.StatusArchived) {
		return fmt.Errorf("%w: document is already archived", domain.ErrInvalidState)
	}
	return s.repo.UpdateStatus(ctx, id, model.StatusArchived, "")
}

func (s *anchorService) BatchVerify(ctx context.Context, ids []string, reviewerRef string) (*BatchOutcome, error) {
	if len(ids) == 0 {
		return &BatchOutcome{Succeeded: []string{}, Failed: []BatchFailure{}}, nil
	}
	if len(ids) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d items exceeds ceiling of %d", domain.ErrBatchTooLarge, len(ids), s.maxBatchSize)
	}

	outcome := &BatchOutcome{Succeeded: []string{}, Failed: []BatchFailure{}}
	// The whole batch shares one record-store transaction; individual item
	// failures are collected, never propagated, so they cannot abort the
	// group.
	err := s.repo.WithTx(ctx, func(repo repository.DocumentRepository) error {
		for _, id := range ids {
			if err := s.verifyWith(ctx, repo, id); err != nil {
				outcome.Failed = append(outcome.Failed, BatchFailure{ID: id, Error: err.Error()})
				continue
			}
			outcome.Succeeded = append(outcome.Succeeded, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *anchorService) BatchReject(ctx context.Context, ids []string, reviewerRef, reason string) (*BatchOutcome, error) {
	if len(ids) == 0 {
		return &BatchOutcome{Succeeded: []string{}, Failed: []BatchFailure{}}, nil
	}
	if len(ids) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d items exceeds ceiling of %d", domain.ErrBatchTooLarge, len(ids), s.maxBatchSize)
	}

	outcome := &BatchOutcome{Succeeded: []string{}, Failed: []BatchFailure{}}
	err := s.repo.WithTx(ctx, func(repo repository.DocumentRepository) error {
		for _, id := range ids {
			if err := s.rejectWith(ctx, repo, id, reason); err != nil {
				outcome.Failed = append(outcome.Failed, BatchFailure{ID: id, Error: err.Error()})
				continue
			}
			outcome.Succeeded = append(outcome.Succeeded, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *anchorService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, errors.New("id is required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *anchorService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}
