// internal/repo/remember.go
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mja00/banguard/internal/models"
)

func (p *pgRepo) CreateRememberToken(ctx context.Context, hash string, accountID uuid.UUID, expiresAt time.Time) error {
	slog.DebugContext(ctx, "CreateRememberToken", "account_id", accountID.String())
	_, err := p.db.Exec(ctx, `
		INSERT INTO remember_tokens (token_hash, account_id, expires_at)
		VALUES ($1, $2, $3)`,
		hash, accountID, expiresAt)
	return err
}

func (p *pgRepo) GetRememberToken(ctx context.Context, hash string) (models.RememberToken, error) {
	var t models.RememberToken
	err := p.db.QueryRow(ctx, `
		SELECT token_hash, account_id, expires_at
		FROM remember_tokens
		WHERE token_hash = $1 AND expires_at > now()`,
		hash).Scan(&t.Hash, &t.AccountID, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RememberToken{}, models.ErrTokenNotFound
		}
		return models.RememberToken{}, fmt.Errorf("remember token: %w: %w", models.ErrStoreUnavailable, err)
	}
	return t, nil
}

// DeleteRememberToken removes the hashed credential. Deleting an absent
// token is a no-op so revocation stays idempotent.
func (p *pgRepo) DeleteRememberToken(ctx context.Context, hash string) error {
	slog.DebugContext(ctx, "DeleteRememberToken")
	_, err := p.db.Exec(ctx, `DELETE FROM remember_tokens WHERE token_hash = $1`, hash)
	return err
}

func (p *pgRepo) DeleteRememberTokensForAccount(ctx context.Context, accountID uuid.UUID) error {
	slog.DebugContext(ctx, "DeleteRememberTokensForAccount", "account_id", accountID.String())
	_, err := p.db.Exec(ctx, `DELETE FROM remember_tokens WHERE account_id = $1`, accountID)
	return err
}
