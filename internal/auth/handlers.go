// internal/auth/handlers.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/mja00/banguard/internal/authz"
	"github.com/mja00/banguard/internal/config"
	"github.com/mja00/banguard/internal/models"
	"github.com/mja00/banguard/internal/repo"
	"github.com/mja00/banguard/internal/session"
)

// --- Cookies for state/nonce ---

const (
	cookieState = "oauth_state"
	cookieNonce = "oidc_nonce"
)

// --- Public handlers (mount these in your router) ---

// StartHandler: GET /auth/{provider}
func StartHandler(providers map[ProviderKind]*Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		pname := ProviderKind(chi.URLParam(req, "provider"))
		p, ok := providers[pname]
		if !ok || p == nil || p.OAuth2Config == nil {
			http.NotFound(w, req)
			return
		}

		state := randString(24)
		nonce := randString(24)

		setTempCookie(w, cookieState, state, 10*time.Minute)
		setTempCookie(w, cookieNonce, nonce, 10*time.Minute)

		var opts []oauth2.AuthCodeOption
		if p.OIDCVerifier != nil {
			opts = append(opts, oauth2.SetAuthURLParam("nonce", nonce))
		}
		http.Redirect(w, req, p.OAuth2Config.AuthCodeURL(state, opts...), http.StatusFound)
	}
}

// CallbackHandler: GET /auth/{provider}/callback
//
// Provider logins go through the same ban gate as local ones: the account is
// evaluated after identity resolution and before any session is issued.
func CallbackHandler(providers map[ProviderKind]*Provider, r repo.Repo, ev *authz.Evaluator, store *session.Store, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		pname := ProviderKind(chi.URLParam(req, "provider"))
		p, ok := providers[pname]
		if !ok || p == nil || p.OAuth2Config == nil {
			http.NotFound(w, req)
			return
		}

		// CSRF
		if req.URL.Query().Get("state") != readCookie(req, cookieState) {
			http.Error(w, "bad state", http.StatusBadRequest)
			return
		}

		// Exchange code
		code := req.URL.Query().Get("code")
		tok, err := p.OAuth2Config.Exchange(ctx, code)
		if err != nil {
			http.Error(w, "exchange failed", http.StatusBadRequest)
			return
		}

		// Extract identity (OIDC or OAuth2)
		id, err := extractIdentity(ctx, pname, p, tok, readCookie(req, cookieNonce))
		if err != nil {
			http.Error(w, "identity error: "+err.Error(), http.StatusBadRequest)
			return
		}

		completeProviderLogin(w, req, pname, id, r, ev, store, cfg)
	}
}

// completeProviderLogin resolves the provider identity to an account, runs
// the ban gate, and issues the session. Split from the callback so the
// account-resolution path is independent of the token exchange.
func completeProviderLogin(w http.ResponseWriter, req *http.Request, pname ProviderKind, id identity, r repo.Repo, ev *authz.Evaluator, store *session.Store, cfg config.Config) {
	ctx := req.Context()
	id.Email = strings.ToLower(strings.TrimSpace(id.Email))

	// Existing identity link, then email match. No auto-provisioning:
	// an unknown identity is pointed at signup.
	acct, err := r.GetAccountByIdentity(ctx, string(pname), id.Subject)
	if err != nil {
		if !errors.Is(err, models.ErrIdentityNotFound) {
			slog.ErrorContext(ctx, "callback identity lookup failed", "err", err)
			http.Error(w, "login unavailable", http.StatusServiceUnavailable)
			return
		}
		acct, err = r.GetAccountByEmail(ctx, id.Email)
		if err != nil {
			if errors.Is(err, models.ErrAccountNotFound) {
				writeJSON(w, http.StatusConflict, map[string]any{
					"error":    "signup_required",
					"message":  "No account exists for this email. Please sign up first.",
					"provider": string(pname),
					"email":    id.Email,
				})
				return
			}
			slog.ErrorContext(ctx, "callback account lookup failed", "err", err)
			http.Error(w, "login unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := r.LinkIdentity(ctx, acct.ID, string(pname), id.Subject); err != nil {
			http.Error(w, "link failed", http.StatusInternalServerError)
			return
		}
	}

	if dec := ev.EvaluateLogin(acct); !dec.Allowed {
		slog.InfoContext(ctx, "provider login denied", "account_id", acct.ID.String(), "reason", dec.Reason)
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":   "account_banned",
			"message": dec.Message,
		})
		return
	}

	SetSessionCookie(w, store, models.Session{
		AccountID: acct.ID,
		Provider:  string(pname),
		Expiry:    time.Now().Add(cfg.Security.Session.TTL),
	})

	if ip, ok := clientIP(req); ok {
		_ = r.RecordLoginSuccess(ctx, acct.Username, ip)
	}
	http.Redirect(w, req, cfg.HomePath, http.StatusFound)
}

// --- Identity extraction helpers ---

type identity struct {
	Email   string
	Name    string
	Subject string // stable provider user id (OIDC sub, GitHub ID)
}

func extractIdentity(ctx context.Context, pname ProviderKind, p *Provider, tok *oauth2.Token, wantNonce string) (identity, error) {
	// OIDC providers (Google)
	if p.OIDCVerifier != nil {
		raw, _ := tok.Extra("id_token").(string)
		if raw == "" {
			return identity{}, errors.New("no id_token in response")
		}
		idt, err := p.OIDCVerifier.Verify(ctx, raw)
		if err != nil {
			return identity{}, err
		}
		var c struct {
			Email         string `json:"email"`
			EmailVerified bool   `json:"email_verified"`
			Name          string `json:"name"`
			Sub           string `json:"sub"`
			Nonce         string `json:"nonce"`
		}
		if err := idt.Claims(&c); err != nil {
			return identity{}, err
		}
		if wantNonce != "" && c.Nonce != wantNonce {
			return identity{}, errors.New("bad nonce")
		}
		return identity{
			Email:   c.Email,
			Name:    c.Name,
			Subject: c.Sub,
		}, nil
	}

	// OAuth-only (GitHub)
	if pname == ProviderGitHub {
		email, name, id, err := fetchGitHubProfile(tok.AccessToken)
		if err != nil {
			return identity{}, err
		}
		return identity{
			Email:   email,
			Name:    name,
			Subject: id,
		}, nil
	}

	return identity{}, errors.New("unsupported provider")
}

// --- small utils ---

func setTempCookie(w http.ResponseWriter, name, val string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
	})
}

func readCookie(r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil && c != nil {
		return c.Value
	}
	return ""
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// fetchGitHubProfile fetches the basic user profile (and a best-effort email)
// using the provided access token. For production, also call /user/emails to
// pick the primary, verified email.
func fetchGitHubProfile(accessToken string) (email, name, id string, err error) {
	req, _ := http.NewRequest("GET", "https://api.github.com/user", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", "", fmt.Errorf("github user: status %d", resp.StatusCode)
	}
	var u struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"` // often empty
	}
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return "", "", "", err
	}

	email = u.Email
	if email == "" && u.Login != "" {
		email = u.Login + "@users.noreply.github.com"
	}
	name = firstNonEmpty(u.Name, u.Login)
	id = fmt.Sprintf("%d", u.ID)
	return
}
