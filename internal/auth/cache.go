// internal/auth/cache.go

package auth

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type cachingRoundTripper struct {
	cacheDir string
	rt       http.RoundTripper
	mu       sync.Mutex
}

// Used to match OIDC well-known discovery URLs
func isDiscoveryURL(path string) bool {
	return strings.HasSuffix(path, "/.well-known/openid-configuration")
}

// RoundTrip intercepts requests to OIDC discovery URLs and caches them persistently
func (c *cachingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if isDiscoveryURL(req.URL.Path) {
		cacheFile := filepath.Join(c.cacheDir, req.URL.Host+".json")

		// Try to serve from cache
		if data, err := os.ReadFile(cacheFile); err == nil {
			slog.Debug("oidc discovery cache hit", "file", cacheFile)
			h := make(http.Header)
			h.Set("Content-Type", "application/json")
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader(data)),
				Header:     h,
				Request:    req,
			}, nil
		}

		slog.Debug("oidc discovery cache miss", "url", req.URL.String())
		return c.fetchAndCache(req, cacheFile)
	}

	// Not OIDC — normal HTTP
	return c.rt.RoundTrip(req)
}

// ForceRefresh forces a fetch and update of the given discovery URL
func (c *cachingRoundTripper) ForceRefresh(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return err
	}

	cacheFile := filepath.Join(c.cacheDir, req.URL.Host+".json")
	_, err = c.fetchAndCache(req, cacheFile)
	return err
}

func (c *cachingRoundTripper) fetchAndCache(req *http.Request, cacheFile string) (*http.Response, error) {
	resp, err := c.rt.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	// Only successful documents are worth keeping.
	if resp.StatusCode == http.StatusOK {
		_ = os.MkdirAll(c.cacheDir, 0o755)
		if writeErr := os.WriteFile(cacheFile, bodyBytes, 0o644); writeErr != nil {
			slog.Warn("oidc discovery cache write failed", "file", cacheFile, "err", writeErr)
		}
	}

	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	return resp, nil
}
