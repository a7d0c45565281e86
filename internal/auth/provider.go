// internal/auth/provider.go

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/mja00/banguard/internal/config"
)

type ProviderKind string

const (
	ProviderGoogle ProviderKind = "google"
	ProviderGitHub ProviderKind = "github"
)

type Provider struct {
	OAuth2Config *oauth2.Config
	OIDCVerifier *oidc.IDTokenVerifier
	Issuer       string
}

// SetupProviders initializes all enabled providers and returns them.
func SetupProviders(cfg config.Config) map[ProviderKind]*Provider {
	providers := map[ProviderKind]*Provider{}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Route go-oidc's discovery through the caching client
	original := http.DefaultClient
	http.DefaultClient = NewCachingHTTPClient(cfg.Auth.OIDCCacheDir)
	defer func() { http.DefaultClient = original }()

	// Google OIDC
	if cfg.Google.ClientID != "" {
		issuer := "https://accounts.google.com"
		oidcProv, err := oidc.NewProvider(ctx, issuer)
		if err != nil {
			slog.Error("oidc provider setup failed", "issuer", issuer, "err", err)
		} else {
			conf := &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + "/auth/google/callback",
				Endpoint:     oidcProv.Endpoint(),
				Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			}
			providers[ProviderGoogle] = &Provider{
				OAuth2Config: conf,
				OIDCVerifier: oidcProv.Verifier(&oidc.Config{ClientID: conf.ClientID}),
				Issuer:       issuer,
			}
		}
	}

	// GitHub (OAuth2 only, no OIDC)
	if cfg.Github.ClientID != "" {
		conf := &oauth2.Config{
			ClientID:     cfg.Github.ClientID,
			ClientSecret: cfg.Github.ClientSecret,
			RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + "/auth/github/callback",
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		}
		providers[ProviderGitHub] = &Provider{OAuth2Config: conf}
	}

	// Background refresh of cached OIDC discovery documents
	if cfg.Google.ClientID != "" {
		go func() {
			refreshInterval := cfg.Auth.OIDCRefreshInterval
			if refreshInterval == 0 {
				refreshInterval = 6 * time.Hour
			}
			transport := NewCachingTransport(cfg.Auth.OIDCCacheDir)
			ticker := time.NewTicker(refreshInterval)
			defer ticker.Stop()
			for range ticker.C {
				url := "https://accounts.google.com/.well-known/openid-configuration"
				if err := transport.ForceRefresh(url); err != nil {
					slog.Warn("oidc cache refresh failed", "url", url, "err", err)
				}
			}
		}()
	}

	return providers
}
