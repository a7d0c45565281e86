// cmd/server/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mja00/banguard/internal/auth"
	"github.com/mja00/banguard/internal/authz"
	"github.com/mja00/banguard/internal/config"
	"github.com/mja00/banguard/internal/handlers"
	"github.com/mja00/banguard/internal/logging"
	"github.com/mja00/banguard/internal/middleware"
	"github.com/mja00/banguard/internal/realtime"
	"github.com/mja00/banguard/internal/repo"
	"github.com/mja00/banguard/internal/revoke"
	"github.com/mja00/banguard/internal/session"
)

func main() {
	// --- Load config (config.yaml + env overrides) ---
	cfg := config.Load()

	// --- Logger ---
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format == "json")

	// Configure session cookie security (dev often needs Secure=false)
	auth.SetCookieSecurity(cfg.Security.Session.CookieSecure)
	auth.SetCookieSameSite(cfg.Security.Session.SameSite)

	// --- Background session sweeper ---
	interval := cfg.Security.Session.SweeperInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go session.DefaultStore.StartSweeper(context.Background(), interval)

	// --- Connect to Postgres ---
	ctx := context.Background()
	slog.Debug("connecting to database")
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("db connect error", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("db ping error", "err", err)
		os.Exit(1)
	}
	slog.Debug("database connection ready")

	r := repo.New(pool)

	// --- Ban enforcement core ---
	hub := realtime.NewHub()
	rev := revoke.New(session.DefaultStore, r, hub)
	ev := authz.NewEvaluator(cfg.BanMessage())
	guard := authz.NewGuard(r, rev, cfg.HomePath)

	// --- OAuth/OIDC providers ---
	providers := auth.SetupProviders(cfg)
	slog.Debug("oauth providers configured", "count", len(providers))

	// --- Router ---
	mux := chi.NewRouter()

	// Ensure request ID then log requests with slog
	mux.Use(middleware.RequestID(cfg.Security.RequestID.TrustHeader))
	mux.Use(middleware.Attach(r, session.DefaultStore, cfg.Security.Session.TTL))
	mux.Use(middleware.EnrichLogger)
	mux.Use(middleware.SlogRequestLogger)
	// Ban re-check on every request, before any handler dispatch
	mux.Use(middleware.Guard(guard))
	if cfg.Security.RateLimit.Enabled {
		mux.Use(middleware.RateLimitWith(cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst, cfg.Security.RateLimit.TTL))
	}

	// --- CORS middleware ---
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5500", "http://localhost:3000", "http://127.0.0.1:8080"}, // adjust as needed
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by browsers
	}))

	// OAuth/OIDC routes
	mux.Get("/auth/{provider}", auth.StartHandler(providers))
	mux.Get("/auth/{provider}/callback", auth.CallbackHandler(providers, r, ev, session.DefaultStore, cfg))

	// Local auth routes
	mux.Post("/auth/signup", auth.SignupHandler(r, session.DefaultStore, cfg))
	mux.Post("/auth/login", auth.LoginHandler(r, ev, session.DefaultStore, cfg))
	mux.Post("/auth/logout", auth.LogoutHandler(rev, session.DefaultStore))
	mux.Post("/auth/set-password", auth.SetPasswordHandler(r, session.DefaultStore))
	mux.Get("/auth/mfa/totp/setup", auth.TOTPSetupBeginHandler(r, session.DefaultStore))
	mux.Post("/auth/mfa/totp/verify", auth.TOTPSetupVerifyHandler(r, session.DefaultStore))

	mux.With(middleware.RequireAuth).Get("/auth/me", auth.MeHandler())

	// Home + moderation routes
	handlers.RegisterRoutes(mux, r, rev, cfg)

	// --- Start server ---
	addr := "127.0.0.1:8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	slog.Info("listening", "addr", addr, "base_url", cfg.BaseURL)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
