package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"docanchor/internal/blobstore"
	"docanchor/internal/domain"
	"docanchor/internal/ledger"
	"docanchor/internal/model"
	"docanchor/internal/repository"
)

// IntegrityStatus classifies the agreement between record store, ledger,
// and blob store for one document.
type IntegrityStatus string

const (
	IntegrityVerified    IntegrityStatus = "verified"
	IntegrityTampered    IntegrityStatus = "tampered"
	IntegrityNotRecorded IntegrityStatus = "not_recorded"
	IntegrityUnavailable IntegrityStatus = "unavailable"
	IntegrityError       IntegrityStatus = "error"
)

// IntegrityResult is the outcome of one reconciliation check.
type IntegrityResult struct {
	DocumentID         string          `json:"document_id"`
	RecordExists       bool            `json:"record_exists"`
	HashFormatValid    bool            `json:"hash_format_valid"`
	LedgerRecordExists bool            `json:"ledger_record_exists"`
	HashesMatch        bool            `json:"hashes_match"`
	BlobAccessible     bool            `json:"blob_accessible"`
	Errors             []string        `json:"errors"`
	Warnings           []string        `json:"warnings"`
	Status             IntegrityStatus `json:"status"`
}

// BatchIntegrityResult aggregates a batch reconciliation run.
type BatchIntegrityResult struct {
	Counts  map[IntegrityStatus]int `json:"counts"`
	Results []IntegrityResult       `json:"results"`
}

// IntegrityService is the reconciliation engine: it re-derives ledger and
// blob state for a document and classifies the three stores' agreement.
// A check is an observability action; it updates anchor metadata only and
// never moves a document's business status.
type IntegrityService interface {
	Check(ctx context.Context, id string) (*IntegrityResult, error)
	BatchCheck(ctx context.Context, ids []string) (*BatchIntegrityResult, error)
}

type integrityService struct {
	repo        repository.DocumentRepository
	ledger      ledger.Client
	blob        blobstore.Store
	concurrency int
}

// NewIntegrityService constructs the reconciliation engine. concurrency
// bounds the batch fan-out; zero falls back to 5.
func NewIntegrityService(repo repository.DocumentRepository, lc ledger.Client, bs blobstore.Store, concurrency int) IntegrityService {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &integrityService{repo: repo, ledger: lc, blob: bs, concurrency: concurrency}
}

func (s *integrityService) Check(ctx context.Context, id string) (*IntegrityResult, error) {
	res := &IntegrityResult{
		DocumentID: id,
		Errors:     []string{},
		Warnings:   []string{},
	}

	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			res.Errors = append(res.Errors, "document not found in record store")
			res.Status = IntegrityError
			return res, nil
		}
		return nil, err
	}
	res.RecordExists = true
	res.HashFormatValid = model.ValidHash(doc.ContentHash)
	if !res.HashFormatValid {
		res.Warnings = append(res.Warnings, fmt.Sprintf("stored hash %q is not a valid sha256 digest", doc.ContentHash))
	}

	// Ledger and blob probes are independent reads; run them concurrently.
	// Probe failures go into Errors, they never cancel the sibling probe.
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		recorded, err := s.ledger.Read(ctx, id)
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			res.LedgerRecordExists = true
			res.HashesMatch = strings.EqualFold(recorded, doc.ContentHash)
		case errors.Is(err, domain.ErrNotFound):
			// No ledger record is a legitimate classification outcome.
		default:
			res.Errors = append(res.Errors, fmt.Sprintf("ledger probe: %v", err))
		}
	}()

	go func() {
		defer wg.Done()
		ok, err := s.blob.IsAvailable(ctx, doc.StorageLocator)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("blob probe: %v", err))
			return
		}
		res.BlobAccessible = ok
	}()

	wg.Wait()

	// Every check stamps the anchor metadata, whatever the outcome.
	if err := s.repo.RecordVerification(ctx, id, time.Now().UTC()); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("record verification stamp: %v", err))
	}

	res.Status = classify(res)
	return res, nil
}

// classify applies the agreement rule. It only runs when no hard errors
// occurred; any error forces the error status.
func classify(r *IntegrityResult) IntegrityStatus {
	if len(r.Errors) > 0 {
		return IntegrityError
	}
	switch {
	case !r.LedgerRecordExists:
		return IntegrityNotRecorded
	case !r.HashesMatch:
		return IntegrityTampered
	case !r.BlobAccessible:
		return IntegrityUnavailable
	default:
		return IntegrityVerified
	}
}

func (s *integrityService) BatchCheck(ctx context.Context, ids []string) (*BatchIntegrityResult, error) {
	results := make([]IntegrityResult, len(ids))

	// Bounded fan-out keeps a remote ledger or proxy from being flooded by
	// one batch run.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			r, err := s.Check(gctx, id)
			if err != nil {
				// One failing item must not abort its siblings. Surface the
				// failure as an error-status result and keep going.
				results[i] = IntegrityResult{
					DocumentID: id,
					Errors:     []string{err.Error()},
					Warnings:   []string{},
					Status:     IntegrityError,
				}
				return nil
			}
			results[i] = *r
			return nil
		})
	}
	g.Wait()

	counts := make(map[IntegrityStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return &BatchIntegrityResult{Counts: counts, Results: results}, nil
}
