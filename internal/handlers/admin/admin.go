// internal/handlers/admin/admin.go
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpserver "github.com/mja00/banguard/internal/http"
	"github.com/mja00/banguard/internal/httpctx"
	"github.com/mja00/banguard/internal/models"
	"github.com/mja00/banguard/internal/repo"
	"github.com/mja00/banguard/internal/revoke"
)

// BanHandler applies a ban to an account. This is the moderation action the
// authorization core reads; the core itself never writes ban state.
//
// POST /admin/accounts/{id}/ban  Body: { "reason": "..." }
//
// With broadcast enabled, every live session of the account is revoked on
// the spot. Otherwise sessions are caught lazily, each on its own next
// guarded request.
func BanHandler(r repo.Repo, rev *revoke.Revoker, broadcast bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := uuid.Parse(chi.URLParam(req, "id"))
		if err != nil {
			http.Error(w, "bad account id", http.StatusBadRequest)
			return
		}
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if len(body.Reason) > 512 {
			http.Error(w, "reason too long (max 512 chars)", http.StatusBadRequest)
			return
		}

		by, _ := httpctx.AccountID(req.Context())
		if err := r.SetBanned(req.Context(), id, strings.TrimSpace(body.Reason), by); err != nil {
			if errors.Is(err, models.ErrAccountNotFound) {
				httpserver.Error(w, http.StatusNotFound, "not_found", "account not found")
				return
			}
			status, msg := httpserver.PGErrorMessage(err, "ban failed")
			http.Error(w, msg, status)
			return
		}
		slog.InfoContext(req.Context(), "account banned", "account_id", id.String(), "banned_by", by.String())

		if broadcast {
			if err := rev.RevokeAll(req.Context(), id); err != nil {
				slog.WarnContext(req.Context(), "broadcast revoke incomplete", "account_id", id.String(), "err", err)
			}
			// Persistent logins on devices with no live session would
			// otherwise resurrect until the guard catches them.
			if err := r.DeleteRememberTokensForAccount(req.Context(), id); err != nil {
				slog.WarnContext(req.Context(), "remember token purge failed", "account_id", id.String(), "err", err)
			}
		}
		httpserver.JSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// UnbanHandler lifts a ban. Existing sessions were already revoked; the
// account simply logs in again.
//
// DELETE /admin/accounts/{id}/ban
func UnbanHandler(r repo.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := uuid.Parse(chi.URLParam(req, "id"))
		if err != nil {
			http.Error(w, "bad account id", http.StatusBadRequest)
			return
		}
		if err := r.SetUnbanned(req.Context(), id); err != nil {
			if errors.Is(err, models.ErrAccountNotFound) {
				httpserver.Error(w, http.StatusNotFound, "not_found", "account not found")
				return
			}
			status, msg := httpserver.PGErrorMessage(err, "unban failed")
			http.Error(w, msg, status)
			return
		}
		slog.InfoContext(req.Context(), "account unbanned", "account_id", id.String())
		httpserver.JSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// SearchHandler looks up accounts. Banned accounts stay out of the results
// unless include_banned=true is passed explicitly.
//
// GET /admin/accounts?q=...&include_banned=true
func SearchHandler(r repo.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		q := strings.TrimSpace(req.URL.Query().Get("q"))
		includeBanned := req.URL.Query().Get("include_banned") == "true"
		accounts, err := r.SearchAccounts(req.Context(), q, includeBanned, 25)
		if err != nil {
			status, msg := httpserver.PGErrorMessage(err, "search failed")
			http.Error(w, msg, status)
			return
		}
		httpserver.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
	}
}
