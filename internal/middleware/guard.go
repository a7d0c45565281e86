package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mja00/banguard/internal/auth"
	"github.com/mja00/banguard/internal/authz"
	"github.com/mja00/banguard/internal/models"
)

// Guard re-checks ban state for every request that carries a session, before
// the router dispatches to the requested handler. The guard's decision is a
// first-class result: Continue lets the request through with the resolved
// account in context, Redirect serves an HTTP redirect to the home resource
// and the originally requested handler never runs, whatever the method.
func Guard(g *authz.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, _ := auth.SessionFromContext(req.Context())
			token, _ := auth.SessionTokenFromContext(req.Context())

			acct, res, err := g.Check(req.Context(), token, sess)
			if err != nil {
				// Fail closed: an unverifiable session does not pass.
				slog.ErrorContext(req.Context(), "session guard failed", "err", err)
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			switch res.Action {
			case models.GuardRedirect:
				auth.ClearSessionCookie(w)
				auth.ClearRememberCookie(w)
				http.Redirect(w, req, res.Target, http.StatusFound)
			default:
				ctx := req.Context()
				if acct.ID != uuid.Nil {
					ctx = auth.WithAccount(ctx, &acct)
				}
				next.ServeHTTP(w, req.WithContext(ctx))
			}
		})
	}
}
