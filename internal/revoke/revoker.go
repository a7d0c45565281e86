// internal/revoke/revoker.go
package revoke

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mja00/banguard/internal/session"
)

// RememberStore clears persistent login credentials.
type RememberStore interface {
	DeleteRememberToken(ctx context.Context, hash string) error
}

// Disconnector kicks a live realtime channel.
type Disconnector interface {
	Disconnect(id, reason string)
}

// Revoker makes a session unusable: the server-side token is deleted
// immediately, the associated remember-me credential is cleared, and any
// live channel gets a best-effort close.
type Revoker struct {
	sessions *session.Store
	remember RememberStore
	hub      Disconnector
}

func New(sessions *session.Store, remember RememberStore, hub Disconnector) *Revoker {
	return &Revoker{sessions: sessions, remember: remember, hub: hub}
}

// Revoke invalidates the session behind token. Revoking an absent or
// already-revoked token is a no-op. An aborted request must not leave a
// revocation half-done, so the work runs detached from request cancellation.
func (r *Revoker) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	sess, ok := r.sessions.Get(token)
	r.sessions.Delete(token)
	if !ok {
		return nil
	}

	// Token is gone at this point; anything past here is cleanup. The live
	// channel kill is fire-and-forget, the remember-token clear is not.
	if sess.LiveConnID != "" {
		r.hub.Disconnect(sess.LiveConnID, "session revoked")
	}
	if sess.RememberHash != "" {
		if err := r.remember.DeleteRememberToken(ctx, sess.RememberHash); err != nil {
			return fmt.Errorf("clear remember token: %w", err)
		}
	}
	return nil
}

// RevokeAll invalidates every live session bound to the account. Used when
// broadcast revocation is enabled for moderation actions; the default is
// lazy per-request revocation.
func (r *Revoker) RevokeAll(ctx context.Context, accountID uuid.UUID) error {
	ctx = context.WithoutCancel(ctx)
	var firstErr error
	for _, e := range r.sessions.ListByAccount(accountID) {
		if err := r.Revoke(ctx, e.Token); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		slog.DebugContext(ctx, "revoked all sessions", "account_id", accountID.String())
	}
	return firstErr
}
