package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"docanchor/internal/blobstore"
	"docanchor/internal/config"
	"docanchor/internal/ledger"
)

// Package backend binds concrete ledger and blob store implementations from
// the declared mode flags, once, at process start. No call site branches on
// mode after selection.

// Mode names recognized for both backend families.
const (
	ModeSimulated   = "simulated"
	ModeRemoteProxy = "remote-proxy"
	ModeDirect      = "direct"
)

// Backends holds the process-wide backend bindings.
type Backends struct {
	Ledger ledger.Client
	Blob   blobstore.Store

	simLedger  *ledger.SimulatedLedger
	simBlob    *blobstore.SimulatedBlobStore
	production bool
}

// Select reads the mode flags and binds one implementation per family.
// Remote-backed modes get a synchronous health probe; a failed probe logs
// and continues, since later operations surface the same connectivity errors.
func Select(cfg *config.AppConfig) (*Backends, error) {
	b := &Backends{production: cfg.Anchor.Production}

	retry := ledger.RetryPolicy{
		Attempts:  cfg.Ledger.RetryAttempts,
		BaseDelay: time.Duration(cfg.Ledger.RetryBaseMS) * time.Millisecond,
	}

	switch cfg.Ledger.Mode {
	case ModeSimulated:
		sim := ledger.NewSimulatedLedger(
			time.Duration(cfg.Ledger.SimLatencyMinMS)*time.Millisecond,
			time.Duration(cfg.Ledger.SimLatencyMaxMS)*time.Millisecond,
		)
		b.simLedger = sim
		b.Ledger = sim
	case ModeRemoteProxy:
		if cfg.Ledger.ProxyURL == "" {
			return nil, fmt.Errorf("ledger proxy URL is required in %s mode", ModeRemoteProxy)
		}
		b.Ledger = ledger.NewProxyLedger(cfg.Ledger.ProxyURL, cfg.Ledger.ProxyAPIKey)
	case ModeDirect:
		direct, err := ledger.NewDirectLedger(ledger.DirectConfig{
			NodeURL:       cfg.Ledger.NodeURL,
			SigningKeyHex: cfg.Ledger.SigningKeyHex,
			Confirmations: cfg.Ledger.Confirmations,
			Retry:         retry,
		})
		if err != nil {
			return nil, fmt.Errorf("direct ledger: %w", err)
		}
		b.Ledger = direct
	default:
		return nil, fmt.Errorf("unrecognized ledger mode %q", cfg.Ledger.Mode)
	}

	switch cfg.Blob.Mode {
	case ModeSimulated:
		sim := blobstore.NewSimulatedBlobStore(
			time.Duration(cfg.Blob.SimLatencyPerMBMS)*time.Millisecond,
			time.Duration(cfg.Blob.SimLatencyMaxMS)*time.Millisecond,
		)
		b.simBlob = sim
		b.Blob = sim
	case ModeRemoteProxy:
		if cfg.Blob.ProxyURL == "" {
			return nil, fmt.Errorf("blob proxy URL is required in %s mode", ModeRemoteProxy)
		}
		b.Blob = blobstore.NewProxyBlobStore(cfg.Blob.ProxyURL, cfg.Blob.ProxyAPIKey)
	case ModeDirect:
		store, err := blobstore.NewMinIO(cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("minio blob store: %w", err)
		}
		b.Blob = store
	default:
		return nil, fmt.Errorf("unrecognized blob mode %q", cfg.Blob.Mode)
	}

	b.probe(cfg)
	return b, nil
}

// probe health-checks remote backends at startup. Failures are logged, not
// fatal: the process still starts and operations surface the same errors.
func (b *Backends) probe(cfg *config.AppConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cfg.Ledger.Mode != ModeSimulated {
		healthy := b.Ledger.HealthCheck(ctx)
		logProbe("ledger", cfg.Ledger.Mode, healthy)
	}
	if cfg.Blob.Mode != ModeSimulated {
		healthy := b.Blob.HealthCheck(ctx)
		logProbe("blobstore", cfg.Blob.Mode, healthy)
	}
}

// ResetSimulated clears the state of any simulated backend. It refuses to
// run in a production configuration.
func (b *Backends) ResetSimulated() error {
	if b.production {
		return fmt.Errorf("simulated state reset is disabled in production")
	}
	if b.simLedger == nil && b.simBlob == nil {
		return fmt.Errorf("no simulated backend is active")
	}
	if b.simLedger != nil {
		b.simLedger.Reset()
	}
	if b.simBlob != nil {
		b.simBlob.Reset()
	}
	return nil
}

func logProbe(component, mode string, healthy bool) {
	status := "success"
	level := "info"
	if !healthy {
		status = "error"
		level = "warn"
	}
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"component": component,
		"event":     "backend_health_probe",
		"mode":      mode,
		"status":    status,
		"healthy":   healthy,
	}
	bts, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal probe log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(bts))
}
