// internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mja00/banguard/internal/config"
	"github.com/mja00/banguard/internal/handlers/admin"
	httpserver "github.com/mja00/banguard/internal/http"
	"github.com/mja00/banguard/internal/middleware"
	"github.com/mja00/banguard/internal/repo"
	"github.com/mja00/banguard/internal/revoke"
)

// RegisterRoutes mounts the home resource and the moderation API.
// Auth routes are mounted by main alongside the middleware chain.
func RegisterRoutes(mux chi.Router, r repo.Repo, rev *revoke.Revoker, cfg config.Config) {
	// Home resource: where guarded-and-revoked requests land.
	mux.Get(cfg.HomePath, func(w http.ResponseWriter, _ *http.Request) {
		httpserver.JSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.Route("/admin", func(sr chi.Router) {
		sr.Use(middleware.RequireAuth, middleware.RequireAdmin)
		sr.Get("/accounts", admin.SearchHandler(r))
		sr.Post("/accounts/{id}/ban", admin.BanHandler(r, rev, cfg.Security.Guard.BroadcastRevoke))
		sr.Delete("/accounts/{id}/ban", admin.UnbanHandler(r))
	})
}
