package httpctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/mja00/banguard/internal/auth"
	"github.com/mja00/banguard/internal/models"
)

// Session returns the session from context if available.
func Session(ctx context.Context) (*models.Session, bool) {
	return auth.SessionFromContext(ctx)
}

// Account returns the account pointer from context if available.
func Account(ctx context.Context) (*models.Account, bool) {
	return auth.AccountFromContext(ctx)
}

// AccountID returns an account id from context from either session or account.
func AccountID(ctx context.Context) (uuid.UUID, bool) {
	if s, ok := auth.SessionFromContext(ctx); ok {
		return s.AccountID, true
	}
	if a, ok := auth.AccountFromContext(ctx); ok {
		return a.ID, true
	}
	return uuid.Nil, false
}
