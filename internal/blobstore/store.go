package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Package blobstore contains the content-addressed blob store abstraction.
// A blob's locator is derived deterministically from its bytes, so identical
// content always lands at the identical locator; duplicate-content detection
// upstream relies on that.

// UploadResult describes a stored blob.
type UploadResult struct {
	Locator string `json:"locator"`
	Size    int64  `json:"size"`
	URL     string `json:"url"`
}

// BlobMetadata holds basic information about a stored blob.
type BlobMetadata struct {
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Modified    time.Time `json:"modified"`
}

// Store is the capability interface over the three blob backends
// (simulated, remote-proxy, minio).
type Store interface {
	// Upload stores content under its derived locator.
	Upload(ctx context.Context, content []byte, name string) (UploadResult, error)

	// IsAvailable reports whether the locator resolves to stored content.
	// A locator that was never uploaded is a normal false, not an error.
	IsAvailable(ctx context.Context, locator string) (bool, error)

	// Download returns the blob bytes, or domain.ErrNotFound.
	Download(ctx context.Context, locator string) ([]byte, error)

	// Metadata returns size/type/modified for a stored blob.
	Metadata(ctx context.Context, locator string) (BlobMetadata, error)

	// HealthCheck reports whether the backend is reachable.
	HealthCheck(ctx context.Context) bool
}

// LocatorFor derives the content-addressed locator: the hex sha256 of the
// blob bytes.
func LocatorFor(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
