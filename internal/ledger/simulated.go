package ledger

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"docanchor/internal/domain"
)

// blockCounter is the process-wide monotonic block height shared by all
// simulated ledger instances, mirroring how independent clients of one chain
// observe a single height.
var blockCounter atomic.Int64

// SimulatedLedger reproduces the external ledger contract without a network:
// an in-memory append-only record map and configurable artificial latency.
// Instances are independent, so parallel tests can each own one.
type SimulatedLedger struct {
	mu      sync.Mutex
	records map[string]simRecord

	minLatency time.Duration
	maxLatency time.Duration
}

type simRecord struct {
	hash      string
	anchorRef string
	block     int64
}

// NewSimulatedLedger creates an empty simulated ledger. Latency bounds of
// zero disable the artificial delay entirely, which keeps tests fast.
func NewSimulatedLedger(minLatency, maxLatency time.Duration) *SimulatedLedger {
	if maxLatency < minLatency {
		maxLatency = minLatency
	}
	return &SimulatedLedger{
		records:    make(map[string]simRecord),
		minLatency: minLatency,
		maxLatency: maxLatency,
	}
}

var _ Client = (*SimulatedLedger)(nil)

func (s *SimulatedLedger) sleep(ctx context.Context) error {
	if s.maxLatency <= 0 {
		return nil
	}
	d := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		d += time.Duration(rand.Int64N(int64(span)))
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record anchors hash under id at the next block height. Recording an id
// again appends a fresh anchor over the previous one; deduplication is the
// caller's business.
func (s *SimulatedLedger) Record(ctx context.Context, id, hash string) (string, error) {
	if err := s.sleep(ctx); err != nil {
		return "", err
	}
	block := blockCounter.Add(1)
	ref := fmt.Sprintf("sim-tx-%08d", block)

	s.mu.Lock()
	s.records[id] = simRecord{hash: hash, anchorRef: ref, block: block}
	s.mu.Unlock()
	return ref, nil
}

// Verify compares the recorded hash case-insensitively.
func (s *SimulatedLedger) Verify(ctx context.Context, id, expected string) (bool, error) {
	if err := s.sleep(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	rec, ok := s.records[id]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return strings.EqualFold(rec.hash, expected), nil
}

// Read returns the recorded hash for id.
func (s *SimulatedLedger) Read(ctx context.Context, id string) (string, error) {
	if err := s.sleep(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	rec, ok := s.records[id]
	s.mu.Unlock()
	if !ok {
		return "", domain.ErrNotFound
	}
	return rec.hash, nil
}

// BatchRecord anchors all items in a single simulated block.
func (s *SimulatedLedger) BatchRecord(ctx context.Context, items []BatchItem) (string, error) {
	if err := s.sleep(ctx); err != nil {
		return "", err
	}
	block := blockCounter.Add(1)
	ref := fmt.Sprintf("sim-tx-%08d", block)

	s.mu.Lock()
	for _, it := range items {
		s.records[it.ID] = simRecord{hash: it.Hash, anchorRef: ref, block: block}
	}
	s.mu.Unlock()
	return ref, nil
}

// Exists reports whether id has a record.
func (s *SimulatedLedger) Exists(ctx context.Context, id string) (bool, error) {
	if err := s.sleep(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	_, ok := s.records[id]
	s.mu.Unlock()
	return ok, nil
}

// NetworkInfo identifies the simulated chain.
func (s *SimulatedLedger) NetworkInfo(ctx context.Context) (NetworkInfo, error) {
	return NetworkInfo{ChainID: 1337, Name: "simulated"}, nil
}

// HealthCheck always succeeds for the in-process backend.
func (s *SimulatedLedger) HealthCheck(ctx context.Context) bool {
	return true
}

// BlockHeight returns the current process-wide block counter.
func (s *SimulatedLedger) BlockHeight() int64 {
	return blockCounter.Load()
}

// Reset clears this instance's records. Exposed for the non-production
// administrative reset; the shared block counter keeps advancing.
func (s *SimulatedLedger) Reset() {
	s.mu.Lock()
	s.records = make(map[string]simRecord)
	s.mu.Unlock()
}
