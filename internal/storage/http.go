package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// HTTPStore reads objects over HTTP(S). All requests share one token-bucket
// limiter so that harvesting many entries from one server stays polite.
type HTTPStore struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPStore creates an HTTPStore. Non-positive rps disables rate limiting.
func NewHTTPStore(timeout time.Duration, rps float64, burst int) *HTTPStore {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &HTTPStore{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Open implements domain.ObjectStore.
func (s *HTTPStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, location)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, domain.ErrNotFound("%s not found", location)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %s", location, resp.Status)
	}
	return resp.Body, nil
}

// Exists implements domain.ObjectStore. Servers that reject HEAD are asked
// with GET.
func (s *HTTPStore) Exists(ctx context.Context, location string) (bool, error) {
	resp, err := s.do(ctx, http.MethodHead, location)
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		resp, err = s.do(ctx, http.MethodGet, location)
		if err != nil {
			return false, err
		}
		_ = resp.Body.Close()
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return true, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, nil
	default:
		return false, fmt.Errorf("HEAD %s: unexpected status %s", location, resp.Status)
	}
}

func (s *HTTPStore) do(ctx context.Context, method, location string) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", location, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", location, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, location, err)
	}
	return resp, nil
}
