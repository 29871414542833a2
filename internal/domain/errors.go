package domain

// Package domain defines the error taxonomy shared by the ledger client, the
// blob store client, and the service layer. Backends map their transport
// failures onto these sentinels so callers cannot distinguish backends by
// error shape.

import "errors"

var (
	// ErrDuplicateContent signals a content-hash or storage-locator collision.
	ErrDuplicateContent = errors.New("duplicate content")
	// ErrNotFound signals that a document or anchor does not exist.
	ErrNotFound = errors.New("not found")
	// ErrLedgerMismatch signals a hash disagreement at verify time.
	ErrLedgerMismatch = errors.New("ledger hash mismatch")
	// ErrLedgerUnavailable signals a transient transport or server failure.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrAuthorization signals a credential rejection by a remote backend.
	ErrAuthorization = errors.New("authorization failed")
	// ErrRateLimited signals a remote backend throttling the caller.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidState signals a status-transition precondition violation.
	ErrInvalidState = errors.New("invalid document state")
	// ErrBatchTooLarge signals a batch exceeding the configured ceiling.
	ErrBatchTooLarge = errors.New("batch too large")
)

// Retryable reports whether err is worth retrying with backoff. Only remote
// transient failures qualify; local failures surface immediately.
func Retryable(err error) bool {
	return errors.Is(err, ErrLedgerUnavailable) || errors.Is(err, ErrRateLimited)
}
