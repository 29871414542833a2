package blobstore

import (
	"context"
	"sync"
	"time"

	"docanchor/internal/domain"
)

// SimulatedBlobStore keeps blobs in memory keyed by their derived locator
// and applies artificial latency proportional to payload size, capped at a
// maximum.
type SimulatedBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]simBlob

	latencyPerMB time.Duration
	maxLatency   time.Duration
}

type simBlob struct {
	content     []byte
	name        string
	contentType string
	modified    time.Time
}

// NewSimulatedBlobStore creates an empty store. A zero latencyPerMB disables
// the artificial delay, which keeps tests fast.
func NewSimulatedBlobStore(latencyPerMB, maxLatency time.Duration) *SimulatedBlobStore {
	return &SimulatedBlobStore{
		blobs:        make(map[string]simBlob),
		latencyPerMB: latencyPerMB,
		maxLatency:   maxLatency,
	}
}

var _ Store = (*SimulatedBlobStore)(nil)

func (s *SimulatedBlobStore) sleep(ctx context.Context, size int64) error {
	if s.latencyPerMB <= 0 {
		return nil
	}
	d := time.Duration(size) * s.latencyPerMB / (1 << 20)
	if s.maxLatency > 0 && d > s.maxLatency {
		d = s.maxLatency
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Upload stores content under its derived locator. Re-uploading identical
// bytes overwrites in place and yields the same locator.
func (s *SimulatedBlobStore) Upload(ctx context.Context, content []byte, name string) (UploadResult, error) {
	if err := s.sleep(ctx, int64(len(content))); err != nil {
		return UploadResult{}, err
	}
	locator := LocatorFor(content)
	stored := make([]byte, len(content))
	copy(stored, content)

	s.mu.Lock()
	s.blobs[locator] = simBlob{
		content:     stored,
		name:        name,
		contentType: "application/octet-stream",
		modified:    time.Now().UTC(),
	}
	s.mu.Unlock()

	return UploadResult{
		Locator: locator,
		Size:    int64(len(content)),
		URL:     "memory://" + locator,
	}, nil
}

// IsAvailable never errors for an unknown locator; absence is a normal false.
func (s *SimulatedBlobStore) IsAvailable(ctx context.Context, locator string) (bool, error) {
	if err := s.sleep(ctx, 0); err != nil {
		return false, err
	}
	s.mu.RLock()
	_, ok := s.blobs[locator]
	s.mu.RUnlock()
	return ok, nil
}

// Download returns a copy of the blob bytes.
func (s *SimulatedBlobStore) Download(ctx context.Context, locator string) ([]byte, error) {
	s.mu.RLock()
	blob, ok := s.blobs[locator]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := s.sleep(ctx, int64(len(blob.content))); err != nil {
		return nil, err
	}
	out := make([]byte, len(blob.content))
	copy(out, blob.content)
	return out, nil
}

// Metadata returns the stored blob's basic info.
func (s *SimulatedBlobStore) Metadata(ctx context.Context, locator string) (BlobMetadata, error) {
	if err := s.sleep(ctx, 0); err != nil {
		return BlobMetadata{}, err
	}
	s.mu.RLock()
	blob, ok := s.blobs[locator]
	s.mu.RUnlock()
	if !ok {
		return BlobMetadata{}, domain.ErrNotFound
	}
	return BlobMetadata{
		Size:        int64(len(blob.content)),
		ContentType: blob.contentType,
		Modified:    blob.modified,
	}, nil
}

// HealthCheck always succeeds for the in-process backend.
func (s *SimulatedBlobStore) HealthCheck(ctx context.Context) bool {
	return true
}

// Reset clears all stored blobs. Exposed for the non-production
// administrative reset.
func (s *SimulatedBlobStore) Reset() {
	s.mu.Lock()
	s.blobs = make(map[string]simBlob)
	s.mu.Unlock()
}
