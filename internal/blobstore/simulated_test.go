package blobstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"docanchor/internal/domain"
)

func newTestStore() *SimulatedBlobStore {
	// Zero latency keeps the suite fast.
	return NewSimulatedBlobStore(0, 0)
}

func TestLocatorFor_Deterministic(t *testing.T) {
	l1 := LocatorFor([]byte("same bytes"))
	l2 := LocatorFor([]byte("same bytes"))
	l3 := LocatorFor([]byte("other bytes"))

	assert.Equal(t, l1, l2, "identical bytes must derive the identical locator")
	assert.NotEqual(t, l1, l3)
	assert.Len(t, l1, 64)
}

func TestSimulatedBlobStore_UploadDownload(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	content := []byte("contract v1")

	res, err := s.Upload(ctx, content, "contract.pdf")
	assert.NoError(t, err)
	assert.Equal(t, LocatorFor(content), res.Locator)
	assert.Equal(t, int64(len(content)), res.Size)
	assert.Equal(t, "memory://"+res.Locator, res.URL)

	got, err := s.Download(ctx, res.Locator)
	assert.NoError(t, err)
	assert.Equal(t, content, got)

	// Mutating the returned slice must not corrupt the stored blob.
	got[0] = 'X'
	again, err := s.Download(ctx, res.Locator)
	assert.NoError(t, err)
	assert.Equal(t, content, again)
}

func TestSimulatedBlobStore_IsAvailableAbsent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	ok, err := s.IsAvailable(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	assert.NoError(t, err, "absence is a normal outcome, never an error")
	assert.False(t, ok)

	res, err := s.Upload(ctx, []byte("here"), "f")
	assert.NoError(t, err)

	ok, err = s.IsAvailable(ctx, res.Locator)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestSimulatedBlobStore_DownloadAbsent(t *testing.T) {
	s := newTestStore()
	_, err := s.Download(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Metadata(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSimulatedBlobStore_Metadata(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	content := []byte("some payload bytes")

	res, err := s.Upload(ctx, content, "data.bin")
	assert.NoError(t, err)

	meta, err := s.Metadata(ctx, res.Locator)
	assert.NoError(t, err)
	assert.Equal(t, int64(len(content)), meta.Size)
	assert.Equal(t, "application/octet-stream", meta.ContentType)
	assert.WithinDuration(t, time.Now().UTC(), meta.Modified, 5*time.Second)
}

func TestSimulatedBlobStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	res, err := s.Upload(ctx, []byte("gone soon"), "f")
	assert.NoError(t, err)

	s.Reset()

	ok, err := s.IsAvailable(ctx, res.Locator)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSimulatedBlobStore_LatencyCapped(t *testing.T) {
	// 1s per MB would be 1s for a 1MB payload; the cap keeps it at 20ms.
	s := NewSimulatedBlobStore(time.Second, 20*time.Millisecond)
	content := make([]byte, 1<<20)

	start := time.Now()
	_, err := s.Upload(context.Background(), content, "big.bin")
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}
