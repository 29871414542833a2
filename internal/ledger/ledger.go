package ledger

import "context"

// Package ledger contains the client abstraction for the append-only hash
// ledger. Three implementations exist: Simulated (in-process), Proxy
// (delegates to a remote anchor service over HTTP), and Direct (signs and
// submits transactions to a ledger node). All three honor the same contract
// and map their failures onto the domain error taxonomy, so callers cannot
// distinguish backends by error shape.

// NetworkInfo identifies the ledger network a client is bound to.
type NetworkInfo struct {
	ChainID int64  `json:"chain_id"`
	Name    string `json:"name"`
}

// BatchItem is one (document id, content hash) pair in a batch write.
type BatchItem struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

// Client is the capability interface consumed by the anchoring and
// reconciliation services. The interface itself performs no deduplication;
// recording the same id twice is at the caller's discretion.
type Client interface {
	// Record anchors a content hash under a document id and returns the
	// ledger anchor reference.
	Record(ctx context.Context, id, hash string) (string, error)

	// Verify compares the recorded hash for id against expected,
	// case-insensitively.
	Verify(ctx context.Context, id, expected string) (bool, error)

	// Read returns the recorded hash for id, or domain.ErrNotFound when the
	// ledger has no record.
	Read(ctx context.Context, id string) (string, error)

	// BatchRecord anchors several hashes in a single ledger write and
	// returns the shared anchor reference.
	BatchRecord(ctx context.Context, items []BatchItem) (string, error)

	// Exists reports whether the ledger has a record for id.
	Exists(ctx context.Context, id string) (bool, error)

	// NetworkInfo returns the chain the client is connected to.
	NetworkInfo(ctx context.Context) (NetworkInfo, error)

	// HealthCheck reports whether the backend is reachable.
	HealthCheck(ctx context.Context) bool
}
