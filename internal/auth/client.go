// internal/auth/client.go

package auth

import (
	"net/http"
	"time"
)

// NewCachingHTTPClient wraps the default transport with on-disk caching of
// OIDC discovery documents, so provider setup works across restarts even
// when the issuer is briefly unreachable.
func NewCachingHTTPClient(cacheDir string) *http.Client {
	return &http.Client{
		Transport: NewCachingTransport(cacheDir),
		Timeout:   15 * time.Second,
	}
}

// NewCachingTransport is used directly by the background refresh loop.
func NewCachingTransport(cacheDir string) *cachingRoundTripper {
	return &cachingRoundTripper{
		cacheDir: cacheDir,
		rt:       http.DefaultTransport,
	}
}
