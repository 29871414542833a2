package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"docanchor/internal/domain"
)

// ProxyLedger delegates every operation as a single HTTP call to a remote
// anchor service. Transport-layer failures are mapped onto the same error
// categories the direct client uses.
type ProxyLedger struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewProxyLedger creates a client for the remote anchor service at baseURL.
func NewProxyLedger(baseURL, apiKey string) *ProxyLedger {
	return &ProxyLedger{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Client = (*ProxyLedger)(nil)

// mapStatus translates a proxy HTTP status into the domain taxonomy.
func mapStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrAuthorization
	case status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return fmt.Errorf("%w: proxy returned %d", domain.ErrLedgerUnavailable, status)
	}
}

func (p *ProxyLedger) do(ctx context.Context, method, path string, body, out any) error {
	var buf *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(b)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapStatus(resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrLedgerUnavailable, err)
		}
	}
	return nil
}

// Record forwards the anchor write to the remote service.
func (p *ProxyLedger) Record(ctx context.Context, id, hash string) (string, error) {
	var out struct {
		AnchorRef string `json:"anchor_ref"`
	}
	err := p.do(ctx, http.MethodPost, "/anchors", map[string]string{"id": id, "hash": hash}, &out)
	if err != nil {
		return "", err
	}
	return out.AnchorRef, nil
}

// Verify asks the remote service to compare the recorded hash.
func (p *ProxyLedger) Verify(ctx context.Context, id, expected string) (bool, error) {
	var out struct {
		Match bool `json:"match"`
	}
	err := p.do(ctx, http.MethodPost, "/anchors/"+id+"/verify", map[string]string{"hash": expected}, &out)
	if err != nil {
		return false, err
	}
	return out.Match, nil
}

// Read fetches the recorded hash for id.
func (p *ProxyLedger) Read(ctx context.Context, id string) (string, error) {
	var out struct {
		Hash string `json:"hash"`
	}
	if err := p.do(ctx, http.MethodGet, "/anchors/"+id, nil, &out); err != nil {
		return "", err
	}
	return out.Hash, nil
}

// BatchRecord forwards a batch anchor write.
func (p *ProxyLedger) BatchRecord(ctx context.Context, items []BatchItem) (string, error) {
	var out struct {
		AnchorRef string `json:"anchor_ref"`
	}
	err := p.do(ctx, http.MethodPost, "/anchors/batch", map[string]any{"items": items}, &out)
	if err != nil {
		return "", err
	}
	return out.AnchorRef, nil
}

// Exists reports whether the remote service has a record for id.
func (p *ProxyLedger) Exists(ctx context.Context, id string) (bool, error) {
	err := p.do(ctx, http.MethodGet, "/anchors/"+id, nil, nil)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NetworkInfo fetches the chain identity from the remote service.
func (p *ProxyLedger) NetworkInfo(ctx context.Context) (NetworkInfo, error) {
	var out NetworkInfo
	if err := p.do(ctx, http.MethodGet, "/network", nil, &out); err != nil {
		return NetworkInfo{}, err
	}
	return out, nil
}

// HealthCheck probes the remote service's health endpoint.
func (p *ProxyLedger) HealthCheck(ctx context.Context) bool {
	return p.do(ctx, http.MethodGet, "/health", nil, nil) == nil
}
