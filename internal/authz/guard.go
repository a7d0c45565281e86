// internal/authz/guard.go
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mja00/banguard/internal/models"
)

// AccountSource is the single store lookup the guard performs per request.
type AccountSource interface {
	GetAccountByID(ctx context.Context, id uuid.UUID) (models.Account, error)
}

// Revoker invalidates a session's server-side token and live channel.
type Revoker interface {
	Revoke(ctx context.Context, token string) error
}

// Guard re-checks ban state for an already-established session on every
// request, before the request reaches its handler. A ban applied mid-session
// is observed at latest by the session's next guarded request.
type Guard struct {
	accounts AccountSource
	revoker  Revoker
	home     string
}

func NewGuard(accounts AccountSource, revoker Revoker, home string) *Guard {
	if home == "" {
		home = "/"
	}
	return &Guard{accounts: accounts, revoker: revoker, home: home}
}

// Check gates one request. A nil session (anonymous request) passes through.
// If the session's account is banned, the session is revoked and the caller
// must serve the redirect instead of the requested resource.
//
// Store faults fail closed: the error propagates and the request must not
// be dispatched.
func (g *Guard) Check(ctx context.Context, token string, sess *models.Session) (models.Account, models.GuardResult, error) {
	if sess == nil {
		return models.Account{}, models.Continue(), nil
	}

	acct, err := g.accounts.GetAccountByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			// Account gone from under the session; nothing to enforce.
			return models.Account{}, models.Continue(), nil
		}
		return models.Account{}, models.GuardResult{}, fmt.Errorf("guard account lookup: %w", err)
	}

	if !acct.Banned {
		return acct, models.Continue(), nil
	}

	// Token deletion is the authoritative part of revocation; a failure to
	// clear auxiliary state still must not let the request through.
	if err := g.revoker.Revoke(ctx, token); err != nil {
		slog.ErrorContext(ctx, "guard revoke failed", "account_id", acct.ID.String(), "err", err)
	}
	slog.InfoContext(ctx, "banned session revoked", "account_id", acct.ID.String(), "reason", acct.BanReason)
	return models.Account{}, models.Redirect(g.home), nil
}
