package middleware

import (
	"context"
	"net/http"

	"github.com/mja00/banguard/internal/auth"
)

// private context keys for logging enrichment
type ctxKey string

const (
	ctxLogAccountID ctxKey = "log_account_id"
	ctxLogProv      ctxKey = "log_provider"
)

// EnrichLogger stores account_id/provider into context for logging handlers to pick up.
func EnrichLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sess, ok := auth.SessionFromContext(ctx); ok {
			ctx = context.WithValue(ctx, ctxLogAccountID, sess.AccountID.String())
			if sess.Provider != "" {
				ctx = context.WithValue(ctx, ctxLogProv, sess.Provider)
			}
		} else if a, ok := auth.AccountFromContext(ctx); ok {
			ctx = context.WithValue(ctx, ctxLogAccountID, a.ID.String())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLogAccountID returns the enriched account id if set.
func GetLogAccountID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxLogAccountID).(string)
	return v, ok && v != ""
}

// GetLogProvider returns the enriched provider if set.
func GetLogProvider(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxLogProv).(string)
	return v, ok && v != ""
}
