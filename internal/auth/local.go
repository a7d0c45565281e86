// internal/auth/local.go
package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mja00/banguard/internal/authz"
	"github.com/mja00/banguard/internal/config"
	"github.com/mja00/banguard/internal/models"
	"github.com/mja00/banguard/internal/repo"
	"github.com/mja00/banguard/internal/revoke"
	"github.com/mja00/banguard/internal/session"
)

// ---------- Public handlers (mount under /auth) ----------

// POST /auth/signup
// Body: { "email": "...", "username": "...", "name": "...", "password": "..." }
func SignupHandler(r repo.Repo, store *session.Store, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Username string `json:"username"`
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		email := strings.ToLower(strings.TrimSpace(body.Email))
		username := strings.ToLower(strings.TrimSpace(body.Username))
		if email == "" || body.Password == "" {
			http.Error(w, "missing fields", http.StatusBadRequest)
			return
		}
		if username == "" {
			username = email
		}
		if !isValidUsername(username) && username != email {
			http.Error(w, "invalid username (use 3-32 chars: lowercase letters, digits, hyphens)", http.StatusBadRequest)
			return
		}

		acct, err := r.CreateAccount(req.Context(), email, username, strings.TrimSpace(body.Name))
		if err != nil {
			http.Error(w, "account create failed", http.StatusConflict)
			return
		}

		phc, err := HashPassword(body.Password, defaultArgonParams())
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}
		if err := r.CreateLocalCredential(req.Context(), acct.ID, username, phc); err != nil {
			http.Error(w, "username taken", http.StatusConflict)
			return
		}

		SetSessionCookie(w, store, models.Session{
			AccountID: acct.ID,
			Provider:  "local",
			Expiry:    time.Now().Add(cfg.Security.Session.TTL),
		})
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
	}
}

// username: 3-32 chars, lowercase alnum and hyphen, cannot start/end with hyphen
var usernameRE = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,30}[a-z0-9])$`)

func isValidUsername(s string) bool {
	return usernameRE.MatchString(s)
}

// POST /auth/login
// Body: { "username": "...", "password": "...", "totp_code": "123456", "remember": true }
//
// Order matters: credentials, then the ban gate, then the second factor.
// A banned account must never be handed a 2FA challenge.
func LoginHandler(r repo.Repo, ev *authz.Evaluator, store *session.Store, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
			TOTPCode string `json:"totp_code"`
			Remember bool   `json:"remember"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		username := strings.ToLower(strings.TrimSpace(body.Username))
		if username == "" || body.Password == "" {
			http.Error(w, "invalid login", http.StatusUnauthorized)
			return
		}

		cred, acct, err := r.GetLocalCredentialByUsername(req.Context(), username)
		if err != nil {
			if errors.Is(err, models.ErrAccountNotFound) {
				// Same response as a bad password; no account enumeration.
				http.Error(w, "invalid login", http.StatusUnauthorized)
				return
			}
			// Store fault: deny on uncertainty rather than guessing.
			slog.ErrorContext(req.Context(), "login credential lookup failed", "err", err)
			http.Error(w, "login unavailable", http.StatusServiceUnavailable)
			return
		}
		if !VerifyPassword(body.Password, cred.PasswordHash) {
			http.Error(w, "invalid login", http.StatusUnauthorized)
			if ip, ok := clientIP(req); ok {
				_ = r.RecordLoginFailure(req.Context(), username, ip)
			}
			return
		}

		if dec := ev.EvaluateLogin(acct); !dec.Allowed {
			slog.InfoContext(req.Context(), "login denied", "account_id", acct.ID.String(), "reason", dec.Reason)
			writeJSON(w, http.StatusForbidden, map[string]any{
				"error":   "account_banned",
				"message": dec.Message,
			})
			return
		}

		// If TOTP is enabled, enforce it. An unanswerable enrollment check
		// means the second factor cannot be skipped, so the login fails.
		hasTOTP, err := r.AccountHasTOTP(req.Context(), acct.ID)
		if err != nil {
			slog.ErrorContext(req.Context(), "login totp lookup failed", "err", err)
			http.Error(w, "login unavailable", http.StatusServiceUnavailable)
			return
		}
		if hasTOTP {
			if strings.TrimSpace(body.TOTPCode) == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"error":   "mfa_required",
					"message": "Two-factor code required",
				})
				return
			}
			sec, ok := r.GetTOTPSecret(req.Context(), acct.ID)
			if !ok || !validateTOTP(sec, body.TOTPCode) {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"error":   "invalid_mfa",
					"message": "Invalid two-factor code",
				})
				return
			}
		}

		sess := models.Session{
			AccountID: acct.ID,
			Provider:  "local",
			Expiry:    time.Now().Add(cfg.Security.Session.TTL),
		}
		if body.Remember {
			raw := randString(32)
			exp := time.Now().Add(cfg.Security.Session.RememberTTL)
			if err := r.CreateRememberToken(req.Context(), HashToken(raw), acct.ID, exp); err == nil {
				sess.RememberHash = HashToken(raw)
				SetRememberCookie(w, raw, exp)
			}
		}
		SetSessionCookie(w, store, sess)

		if ip, ok := clientIP(req); ok {
			_ = r.RecordLoginSuccess(req.Context(), username, ip)
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// SetPasswordHandler sets or updates the local password for the current
// session's account. Provider-only accounts gain a local credential here.
//
// POST /auth/set-password  Body: { "password": "..." }
func SetPasswordHandler(r repo.Repo, store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		sess, _ := ReadSession(req, store)
		if sess == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var body struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || len(body.Password) < 8 {
			http.Error(w, "bad json or weak password", http.StatusBadRequest)
			return
		}
		phc, err := HashPassword(body.Password, defaultArgonParams())
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}

		acct, err := r.GetAccountByID(req.Context(), sess.AccountID)
		if err != nil {
			http.Error(w, "account not found", http.StatusInternalServerError)
			return
		}
		username := strings.ToLower(strings.TrimSpace(acct.Username))
		if username == "" {
			username = strings.ToLower(strings.TrimSpace(acct.Email))
		}

		if _, _, err := r.GetLocalCredentialByUsername(req.Context(), username); err == nil {
			if err := r.UpdateLocalPasswordHash(req.Context(), acct.ID, phc); err != nil {
				http.Error(w, "cannot update credential", http.StatusInternalServerError)
				return
			}
		} else {
			if err := r.CreateLocalCredential(req.Context(), acct.ID, username, phc); err != nil {
				http.Error(w, "cannot create credential", http.StatusInternalServerError)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// POST /auth/logout
func LogoutHandler(rev *revoke.Revoker, store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if c, err := req.Cookie(CookieSession); err == nil && c.Value != "" {
			if err := rev.Revoke(req.Context(), c.Value); err != nil {
				slog.WarnContext(req.Context(), "logout revoke", "err", err)
			}
		}
		ClearSessionCookie(w)
		ClearRememberCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /auth/me
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		acct, ok := AccountFromContext(req.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       acct.ID,
			"email":    acct.Email,
			"username": acct.Username,
			"name":     acct.Name,
			"is_admin": acct.IsAdmin,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
