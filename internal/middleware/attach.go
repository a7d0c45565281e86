package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mja00/banguard/internal/auth"
	"github.com/mja00/banguard/internal/models"
	"github.com/mja00/banguard/internal/repo"
	"github.com/mja00/banguard/internal/session"
)

// Attach resolves the session cookie and injects session + token into the
// request context. When the session cookie is absent or stale, a valid
// remember-me cookie mints a fresh session. It never rejects a request;
// unauthenticated requests simply pass through without session context.
//
// The ban guard runs after Attach, so a session resurrected from a remember
// token still gets its account's ban state checked before dispatch.
func Attach(r repo.Repo, store *session.Store, sessionTTL time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s, token := auth.ReadSession(req, store)
			if s == nil {
				s, token = resurrect(w, req, r, store, sessionTTL)
			}
			if s == nil {
				next.ServeHTTP(w, req)
				return
			}
			ctx := auth.WithSession(req.Context(), s, token)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func resurrect(w http.ResponseWriter, req *http.Request, r repo.Repo, store *session.Store, ttl time.Duration) (*models.Session, string) {
	c, err := req.Cookie(auth.CookieRemember)
	if err != nil || c.Value == "" {
		return nil, ""
	}
	hash := auth.HashToken(c.Value)
	tok, err := r.GetRememberToken(req.Context(), hash)
	if err != nil {
		if !errors.Is(err, models.ErrTokenNotFound) {
			slog.ErrorContext(req.Context(), "remember token lookup failed", "err", err)
		}
		return nil, ""
	}
	sess := models.Session{
		AccountID:    tok.AccountID,
		Provider:     "remember",
		RememberHash: hash,
		Expiry:       time.Now().Add(ttl),
	}
	token := auth.SetSessionCookie(w, store, sess)
	return &sess, token
}

// RequireAuth rejects requests that carry no session context. Mount after
// Attach and the guard.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if _, ok := auth.SessionFromContext(req.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// RequireAdmin allows only operator accounts through. The guard already
// resolved the account, so no extra store lookup happens here.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		a, ok := auth.AccountFromContext(req.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !a.IsAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, req)
	})
}
