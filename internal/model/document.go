package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Status is the lifecycle state of a document.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
	StatusArchived Status = "archived"
)

// order gives each status its position in the forward-only progression.
var order = map[Status]int{
	StatusDraft:    0,
	StatusPending:  1,
	StatusVerified: 2,
	StatusRejected: 3,
	StatusArchived: 4,
}

// CanTransitionTo reports whether moving from s to next is a legal status
// transition. Statuses only move forward, with two exceptions: pending may go
// to rejected, and any non-archived status may be archived.
func (s Status) CanTransitionTo(next Status) bool {
	if next == StatusArchived {
		return s != StatusArchived
	}
	if next == StatusRejected {
		return s == StatusPending
	}
	cur, ok1 := order[s]
	nxt, ok2 := order[next]
	return ok1 && ok2 && nxt == cur+1
}

// Anchor holds the ledger-side metadata for a document.
type Anchor struct {
	AnchorRef         string     `json:"anchor_ref"`
	Confirmations     int64      `json:"confirmations"`
	LastVerifiedAt    *time.Time `json:"last_verified_at,omitempty"`
	VerificationCount int64      `json:"verification_count"`
	OnLedger          bool       `json:"on_ledger"`
}

// HistoryEntry records one superseded content version. Entries are append-only.
type HistoryEntry struct {
	Hash      string    `json:"hash"`
	AnchorRef string    `json:"anchor_ref"`
	ChangedBy string    `json:"changed_by"`
	Reason    string    `json:"reason"`
	ChangedAt time.Time `json:"changed_at"`
}

// Document represents an anchored file in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Document struct {
	ID             string         `json:"id"`
	OwnerRef       string         `json:"owner_ref"`
	PropertyRef    string         `json:"property_ref"`
	Filename       string         `json:"filename"`
	ContentHash    string         `json:"content_hash"`
	StorageLocator string         `json:"storage_locator"`
	Size           int64          `json:"size"`
	Status         Status         `json:"status"`
	Anchor         Anchor         `json:"anchor"`
	Version        int            `json:"version"`
	History        []HistoryEntry `json:"history"`
	RejectReason   string         `json:"reject_reason,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// HashContent computes the hex-encoded sha256 digest of content bytes.
// The same digest is used for duplicate detection and for ledger anchoring.
func HashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ValidHash reports whether s looks like a sha256 hex digest.
func ValidHash(s string) bool {
	if len(s) != 2*sha256.Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
