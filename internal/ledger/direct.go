package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"docanchor/internal/domain"
)

// gasSafetyPercent is the fixed margin applied on top of a gas estimate for
// single operations.
const gasSafetyPercent = 120

// DirectLedger signs and submits transactions to a ledger node over JSON-RPC.
// It is the only variant with genuinely asynchronous settlement: a submitted
// write is settled once the configured number of confirmations is observed.
type DirectLedger struct {
	nodeURL string
	client  *http.Client
	key     ed25519.PrivateKey

	// confirmations is how many confirmations Record waits for after
	// submission. Zero means fire-and-forget; reconciliation resolves
	// settlement later.
	confirmations int
	retry         RetryPolicy
}

// DirectConfig carries the direct client's tunables.
type DirectConfig struct {
	NodeURL       string
	SigningKeyHex string
	Confirmations int
	Retry         RetryPolicy
}

// NewDirectLedger builds a client for the node at cfg.NodeURL. The signing
// key is a hex-encoded ed25519 seed.
func NewDirectLedger(cfg DirectConfig) (*DirectLedger, error) {
	if cfg.NodeURL == "" {
		return nil, errors.New("ledger node URL is required")
	}
	seed, err := hex.DecodeString(cfg.SigningKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &DirectLedger{
		nodeURL:       strings.TrimRight(cfg.NodeURL, "/"),
		client:        &http.Client{Timeout: 30 * time.Second},
		key:           ed25519.NewKeyFromSeed(seed),
		confirmations: cfg.Confirmations,
		retry:         cfg.Retry,
	}, nil
}

var _ Client = (*DirectLedger)(nil)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Node error codes mapped onto the domain taxonomy. Everything else is
// treated as transient.
const (
	rpcCodeUnauthorized = -32001
	rpcCodeNotFound     = -32004
	rpcCodeRateLimited  = -32005
)

func (e *rpcError) domain() error {
	switch e.Code {
	case rpcCodeUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrAuthorization, e.Message)
	case rpcCodeNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, e.Message)
	case rpcCodeRateLimited:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, e.Message)
	default:
		return fmt.Errorf("%w: rpc %d: %s", domain.ErrLedgerUnavailable, e.Code, e.Message)
	}
}

func (d *DirectLedger) call(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.nodeURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: node returned %d", domain.ErrLedgerUnavailable, resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrLedgerUnavailable, err)
	}
	if rr.Error != nil {
		return rr.Error.domain()
	}
	if out != nil {
		if err := json.Unmarshal(rr.Result, out); err != nil {
			return fmt.Errorf("%w: decode result: %v", domain.ErrLedgerUnavailable, err)
		}
	}
	return nil
}

// txPayload is the canonical transaction body that gets digested and signed.
type txPayload struct {
	Op    string      `json:"op"`
	ID    string      `json:"id,omitempty"`
	Hash  string      `json:"hash,omitempty"`
	Items []BatchItem `json:"items,omitempty"`
}

type signedTx struct {
	From      string    `json:"from"`
	Payload   txPayload `json:"payload"`
	GasLimit  uint64    `json:"gas_limit"`
	Digest    string    `json:"digest"`
	Signature string    `json:"signature"`
}

// estimateGas asks the node for an estimate and applies the safety margin.
// Batch operations scale the margin with batch size because per-item overhead
// grows with the batch.
func (d *DirectLedger) estimateGas(ctx context.Context, payload txPayload) (uint64, error) {
	var out struct {
		Gas uint64 `json:"gas"`
	}
	if err := d.call(ctx, "anchor_estimateGas", payload, &out); err != nil {
		return 0, err
	}
	margin := uint64(gasSafetyPercent)
	if payload.Op == "batchRecord" {
		margin = uint64(100 + 5*len(payload.Items))
	}
	return out.Gas * margin / 100, nil
}

func (d *DirectLedger) sign(payload txPayload, gasLimit uint64) (signedTx, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return signedTx{}, err
	}
	digest := sha3.Sum256(canonical)
	sig := ed25519.Sign(d.key, digest[:])
	return signedTx{
		From:      hex.EncodeToString(d.key.Public().(ed25519.PublicKey)),
		Payload:   payload,
		GasLimit:  gasLimit,
		Digest:    hex.EncodeToString(digest[:]),
		Signature: hex.EncodeToString(sig),
	}, nil
}

// submit estimates gas, signs, and sends one transaction, returning its hash.
func (d *DirectLedger) submit(ctx context.Context, payload txPayload) (string, error) {
	gas, err := d.estimateGas(ctx, payload)
	if err != nil {
		return "", err
	}
	tx, err := d.sign(payload, gas)
	if err != nil {
		return "", err
	}
	var out struct {
		TxHash string `json:"tx_hash"`
	}
	if err := d.call(ctx, "anchor_sendTransaction", tx, &out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

type txReceipt struct {
	Status        string `json:"status"` // pending, confirmed, failed
	Confirmations int    `json:"confirmations"`
	BlockNumber   int64  `json:"block_number"`
}

// waitConfirmed polls the transaction receipt until the target confirmation
// count is observed, backing off exponentially between polls. It fails
// permanently once the attempt ceiling is exhausted or the transaction's
// terminal status indicates failure.
func (d *DirectLedger) waitConfirmed(ctx context.Context, txHash string, target int) error {
	attempts := d.retry.Attempts
	if attempts <= 0 {
		attempts = DefaultRetryPolicy.Attempts
	}
	delay := d.retry.BaseDelay
	if delay <= 0 {
		delay = DefaultRetryPolicy.BaseDelay
	}

	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2

		var rcpt txReceipt
		err := d.call(ctx, "anchor_getTransaction", map[string]string{"tx_hash": txHash}, &rcpt)
		if err != nil {
			if domain.Retryable(err) {
				continue
			}
			return err
		}
		switch {
		case rcpt.Status == "failed":
			return fmt.Errorf("transaction %s failed on ledger", txHash)
		case rcpt.Confirmations >= target:
			return nil
		}
	}
	return fmt.Errorf("%w: %s not confirmed after %d attempts", domain.ErrLedgerUnavailable, txHash, attempts)
}

// Record submits a signed anchor transaction and, when confirmations are
// configured, blocks until it settles. The submission itself goes through the
// retry helper.
func (d *DirectLedger) Record(ctx context.Context, id, hash string) (string, error) {
	txHash, err := d.retry.Submit(ctx, "record", func() (string, error) {
		return d.submit(ctx, txPayload{Op: "record", ID: id, Hash: hash})
	})
	if err != nil {
		return "", err
	}
	if d.confirmations > 0 {
		if err := d.waitConfirmed(ctx, txHash, d.confirmations); err != nil {
			return "", err
		}
	}
	return txHash, nil
}

// Verify reads the on-ledger hash and compares it case-insensitively.
func (d *DirectLedger) Verify(ctx context.Context, id, expected string) (bool, error) {
	recorded, err := d.Read(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return strings.EqualFold(recorded, expected), nil
}

// Read fetches the recorded hash for id from the node.
func (d *DirectLedger) Read(ctx context.Context, id string) (string, error) {
	var out struct {
		Hash string `json:"hash"`
	}
	if err := d.call(ctx, "anchor_getRecord", map[string]string{"id": id}, &out); err != nil {
		return "", err
	}
	if out.Hash == "" {
		return "", domain.ErrNotFound
	}
	return out.Hash, nil
}

// BatchRecord submits one transaction anchoring every item, settled under a
// single transaction hash.
func (d *DirectLedger) BatchRecord(ctx context.Context, items []BatchItem) (string, error) {
	txHash, err := d.retry.Submit(ctx, "batchRecord", func() (string, error) {
		return d.submit(ctx, txPayload{Op: "batchRecord", Items: items})
	})
	if err != nil {
		return "", err
	}
	if d.confirmations > 0 {
		if err := d.waitConfirmed(ctx, txHash, d.confirmations); err != nil {
			return "", err
		}
	}
	return txHash, nil
}

// Exists reports whether the node has a record for id.
func (d *DirectLedger) Exists(ctx context.Context, id string) (bool, error) {
	_, err := d.Read(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NetworkInfo fetches the chain identity from the node.
func (d *DirectLedger) NetworkInfo(ctx context.Context) (NetworkInfo, error) {
	var out NetworkInfo
	if err := d.call(ctx, "anchor_networkInfo", nil, &out); err != nil {
		return NetworkInfo{}, err
	}
	return out, nil
}

// HealthCheck probes the node with a cheap networkInfo call.
func (d *DirectLedger) HealthCheck(ctx context.Context) bool {
	_, err := d.NetworkInfo(ctx)
	return err == nil
}
