package ledger

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docanchor/internal/domain"
)

const testSeed = "0000000000000000000000000000000000000000000000000000000000000001"

// rpcHandler dispatches JSON-RPC methods for the fake ledger node.
type rpcHandler struct {
	estimateGas    func(params json.RawMessage) (any, *rpcError)
	sendTx         func(params json.RawMessage) (any, *rpcError)
	getTransaction func(params json.RawMessage) (any, *rpcError)
	getRecord      func(params json.RawMessage) (any, *rpcError)
	networkInfo    func(params json.RawMessage) (any, *rpcError)
}

func (h *rpcHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var fn func(json.RawMessage) (any, *rpcError)
	switch req.Method {
	case "anchor_estimateGas":
		fn = h.estimateGas
	case "anchor_sendTransaction":
		fn = h.sendTx
	case "anchor_getTransaction":
		fn = h.getTransaction
	case "anchor_getRecord":
		fn = h.getRecord
	case "anchor_networkInfo":
		fn = h.networkInfo
	}
	if fn == nil {
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": -32601, "message": "method not found"}})
		return
	}

	result, rpcErr := fn(req.Params)
	if rpcErr != nil {
		json.NewEncoder(w).Encode(map[string]any{"error": rpcErr})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"result": result})
}

func newDirect(t *testing.T, url string, confirmations int) *DirectLedger {
	t.Helper()
	d, err := NewDirectLedger(DirectConfig{
		NodeURL:       url,
		SigningKeyHex: testSeed,
		Confirmations: confirmations,
		Retry:         RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond},
	})
	require.NoError(t, err)
	return d
}

func TestNewDirectLedger_KeyValidation(t *testing.T) {
	_, err := NewDirectLedger(DirectConfig{NodeURL: "http://localhost", SigningKeyHex: "zz"})
	assert.Error(t, err)

	_, err = NewDirectLedger(DirectConfig{NodeURL: "http://localhost", SigningKeyHex: "abcd"})
	assert.Error(t, err, "short seed must be rejected")

	_, err = NewDirectLedger(DirectConfig{SigningKeyHex: testSeed})
	assert.Error(t, err, "node URL is required")
}

func TestDirectLedger_RecordAppliesGasMargin(t *testing.T) {
	var gotGasLimit uint64

	h := &rpcHandler{
		estimateGas: func(json.RawMessage) (any, *rpcError) {
			return map[string]uint64{"gas": 1000}, nil
		},
		sendTx: func(params json.RawMessage) (any, *rpcError) {
			var tx signedTx
			if err := json.Unmarshal(params, &tx); err != nil {
				return nil, &rpcError{Code: -32602, Message: err.Error()}
			}
			gotGasLimit = tx.GasLimit
			return map[string]string{"tx_hash": "0xabc"}, nil
		},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newDirect(t, srv.URL, 0)
	ref, err := d.Record(context.Background(), "doc-1", "hash-1")
	assert.NoError(t, err)
	assert.Equal(t, "0xabc", ref)
	assert.Equal(t, uint64(1200), gotGasLimit, "single ops carry a 20%% margin")
}

func TestDirectLedger_BatchGasMarginScalesWithSize(t *testing.T) {
	var gotGasLimit uint64

	h := &rpcHandler{
		estimateGas: func(json.RawMessage) (any, *rpcError) {
			return map[string]uint64{"gas": 1000}, nil
		},
		sendTx: func(params json.RawMessage) (any, *rpcError) {
			var tx signedTx
			_ = json.Unmarshal(params, &tx)
			gotGasLimit = tx.GasLimit
			return map[string]string{"tx_hash": "0xbatch"}, nil
		},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newDirect(t, srv.URL, 0)
	items := []BatchItem{{ID: "a", Hash: "h1"}, {ID: "b", Hash: "h2"}, {ID: "c", Hash: "h3"}, {ID: "d", Hash: "h4"}}
	_, err := d.BatchRecord(context.Background(), items)
	assert.NoError(t, err)
	// 100 + 5*4 = 120 percent of the estimate.
	assert.Equal(t, uint64(1200), gotGasLimit)
}

func TestDirectLedger_SignatureVerifies(t *testing.T) {
	h := &rpcHandler{
		estimateGas: func(json.RawMessage) (any, *rpcError) {
			return map[string]uint64{"gas": 21}, nil
		},
		sendTx: func(params json.RawMessage) (any, *rpcError) {
			var tx signedTx
			if err := json.Unmarshal(params, &tx); err != nil {
				return nil, &rpcError{Code: -32602, Message: err.Error()}
			}
			pub, err := hex.DecodeString(tx.From)
			if err != nil || len(pub) != ed25519.PublicKeySize {
				return nil, &rpcError{Code: -32602, Message: "bad pubkey"}
			}
			digest, _ := hex.DecodeString(tx.Digest)
			sig, _ := hex.DecodeString(tx.Signature)
			if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
				return nil, &rpcError{Code: -32602, Message: "bad signature"}
			}
			return map[string]string{"tx_hash": "0xsigned"}, nil
		},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newDirect(t, srv.URL, 0)
	ref, err := d.Record(context.Background(), "doc-1", "hash-1")
	assert.NoError(t, err)
	assert.Equal(t, "0xsigned", ref)
}

func TestDirectLedger_WaitsForConfirmations(t *testing.T) {
	var polls atomic.Int32

	h := &rpcHandler{
		estimateGas: func(json.RawMessage) (any, *rpcError) {
			return map[string]uint64{"gas": 100}, nil
		},
		sendTx: func(json.RawMessage) (any, *rpcError) {
			return map[string]string{"tx_hash": "0xwait"}, nil
		},
		getTransaction: func(json.RawMessage) (any, *rpcError) {
			n := polls.Add(1)
			confirmations := 0
			status := "pending"
			if n >= 2 {
				confirmations = 2
				status = "confirmed"
			}
			return map[string]any{"status": status, "confirmations": confirmations, "block_number": 5}, nil
		},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newDirect(t, srv.URL, 2)
	ref, err := d.Record(context.Background(), "doc-1", "hash-1")
	assert.NoError(t, err)
	assert.Equal(t, "0xwait", ref)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestDirectLedger_FailedTransactionIsTerminal(t *testing.T) {
	var polls atomic.Int32

	h := &rpcHandler{
		estimateGas: func(json.RawMessage) (any, *rpcError) {
			return map[string]uint64{"gas": 100}, nil
		},
		sendTx: func(json.RawMessage) (any, *rpcError) {
			return map[string]string{"tx_hash": "0xdead"}, nil
		},
		getTransaction: func(json.RawMessage) (any, *rpcError) {
			polls.Add(1)
			return map[string]any{"status": "failed", "confirmations": 0}, nil
		},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newDirect(t, srv.URL, 1)
	_, err := d.Record(context.Background(), "doc-1", "hash-1")
	assert.Error(t, err)
	assert.Equal(t, int32(1), polls.Load(), "a terminal failure must stop the polling loop")
}

func TestDirectLedger_ReadAndVerify(t *testing.T) {
	h := &rpcHandler{
		getRecord: func(params json.RawMessage) (any, *rpcError) {
			var p map[string]string
			_ = json.Unmarshal(params, &p)
			if p["id"] == "known" {
				return map[string]string{"hash": "ABC123"}, nil
			}
			return map[string]string{"hash": ""}, nil
		},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newDirect(t, srv.URL, 0)
	ctx := context.Background()

	hash, err := d.Read(ctx, "known")
	assert.NoError(t, err)
	assert.Equal(t, "ABC123", hash)

	_, err = d.Read(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := d.Verify(ctx, "known", "abc123")
	assert.NoError(t, err)
	assert.True(t, ok, "verify compares case-insensitively")

	ok, err = d.Verify(ctx, "unknown", "abc123")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDirectLedger_ErrorCodeMapping(t *testing.T) {
	code := atomic.Int32{}
	h := &rpcHandler{
		networkInfo: func(json.RawMessage) (any, *rpcError) {
			return nil, &rpcError{Code: int(code.Load()), Message: "nope"}
		},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newDirect(t, srv.URL, 0)
	ctx := context.Background()

	code.Store(rpcCodeUnauthorized)
	_, err := d.NetworkInfo(ctx)
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	code.Store(rpcCodeRateLimited)
	_, err = d.NetworkInfo(ctx)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	code.Store(-32000)
	_, err = d.NetworkInfo(ctx)
	assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)

	assert.False(t, d.HealthCheck(ctx))
}

func TestDirectLedger_RetriesTransientSubmit(t *testing.T) {
	var sends atomic.Int32

	h := &rpcHandler{
		estimateGas: func(json.RawMessage) (any, *rpcError) {
			return map[string]uint64{"gas": 100}, nil
		},
		sendTx: func(json.RawMessage) (any, *rpcError) {
			if sends.Add(1) == 1 {
				return nil, &rpcError{Code: -32000, Message: "mempool full"}
			}
			return map[string]string{"tx_hash": "0xretry"}, nil
		},
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	d := newDirect(t, srv.URL, 0)
	ref, err := d.Record(context.Background(), "doc-1", "hash-1")
	assert.NoError(t, err)
	assert.Equal(t, "0xretry", ref)
	assert.Equal(t, int32(2), sends.Load())
}
