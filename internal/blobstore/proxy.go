package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"docanchor/internal/domain"
)

// ProxyBlobStore delegates every operation as a single HTTP call to a remote
// blob gateway. Failures map onto the same categories the other backends use.
type ProxyBlobStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewProxyBlobStore creates a client for the blob gateway at baseURL.
func NewProxyBlobStore(baseURL, apiKey string) *ProxyBlobStore {
	return &ProxyBlobStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

var _ Store = (*ProxyBlobStore)(nil)

func mapStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrAuthorization
	case status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return fmt.Errorf("%w: blob gateway returned %d", domain.ErrLedgerUnavailable, status)
	}
}

func (p *ProxyBlobStore) request(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, mapStatus(resp.StatusCode)
	}
	return resp, nil
}

// Upload pushes the blob under its derived locator; the gateway echoes back
// size and a download URL.
func (p *ProxyBlobStore) Upload(ctx context.Context, content []byte, name string) (UploadResult, error) {
	locator := LocatorFor(content)
	// Filenames come from user uploads and must be query-escaped.
	path := "/blobs/" + locator + "?" + url.Values{"name": {name}}.Encode()
	resp, err := p.request(ctx, http.MethodPut, path, bytes.NewReader(content), "application/octet-stream")
	if err != nil {
		return UploadResult{}, err
	}
	defer resp.Body.Close()

	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UploadResult{}, fmt.Errorf("%w: decode response: %v", domain.ErrLedgerUnavailable, err)
	}
	if out.Locator == "" {
		out.Locator = locator
	}
	if out.Size == 0 {
		out.Size = int64(len(content))
	}
	return out, nil
}

// IsAvailable asks the gateway with a HEAD request; 404 is a normal false.
func (p *ProxyBlobStore) IsAvailable(ctx context.Context, locator string) (bool, error) {
	resp, err := p.request(ctx, http.MethodHead, "/blobs/"+locator, nil, "")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

// Download fetches the blob bytes.
func (p *ProxyBlobStore) Download(ctx context.Context, locator string) ([]byte, error) {
	resp, err := p.request(ctx, http.MethodGet, "/blobs/"+locator, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Metadata fetches blob info from the gateway.
func (p *ProxyBlobStore) Metadata(ctx context.Context, locator string) (BlobMetadata, error) {
	resp, err := p.request(ctx, http.MethodGet, "/blobs/"+locator+"/meta", nil, "")
	if err != nil {
		return BlobMetadata{}, err
	}
	defer resp.Body.Close()

	var out BlobMetadata
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return BlobMetadata{}, fmt.Errorf("%w: decode response: %v", domain.ErrLedgerUnavailable, err)
	}
	return out, nil
}

// HealthCheck probes the gateway's health endpoint.
func (p *ProxyBlobStore) HealthCheck(ctx context.Context) bool {
	resp, err := p.request(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
