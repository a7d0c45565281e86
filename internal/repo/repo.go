// internal/repo/repo.go
package repo

import (
	"context"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mja00/banguard/internal/models"
)

// Repo defines the methods the rest of the app uses. The authorization core
// only ever reads ban state; SetBanned/SetUnbanned exist for moderation
// handlers, which sit outside the core.
type Repo interface {
	CreateAccount(ctx context.Context, email, username, name string) (models.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (models.Account, error)
	GetAccountByIdentity(ctx context.Context, provider, subject string) (models.Account, error)
	LinkIdentity(ctx context.Context, accountID uuid.UUID, provider, subject string) error

	// includeBanned is the one explicit opt-in for surfacing banned accounts
	// in search results; callers default to excluded.
	SearchAccounts(ctx context.Context, q string, includeBanned bool, limit int) ([]models.Account, error)

	// Moderation writes
	SetBanned(ctx context.Context, id uuid.UUID, reason string, by uuid.UUID) error
	SetUnbanned(ctx context.Context, id uuid.UUID) error

	// Local auth
	CreateLocalCredential(ctx context.Context, accountID uuid.UUID, username, phc string) error
	GetLocalCredentialByUsername(ctx context.Context, username string) (models.LocalCredential, models.Account, error)
	UpdateLocalPasswordHash(ctx context.Context, accountID uuid.UUID, phc string) error

	// TOTP
	AccountHasTOTP(ctx context.Context, id uuid.UUID) (bool, error)
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret, issuer, label string) error
	GetTOTPSecret(ctx context.Context, id uuid.UUID) (string, bool)

	// Remember-me tokens (stored hashed)
	CreateRememberToken(ctx context.Context, hash string, accountID uuid.UUID, expiresAt time.Time) error
	GetRememberToken(ctx context.Context, hash string) (models.RememberToken, error)
	DeleteRememberToken(ctx context.Context, hash string) error
	DeleteRememberTokensForAccount(ctx context.Context, accountID uuid.UUID) error

	// Login events
	RecordLoginSuccess(ctx context.Context, username string, ip netip.Addr) error
	RecordLoginFailure(ctx context.Context, username string, ip netip.Addr) error
}

// pgRepo talks to Postgres through a pgx pool.
type pgRepo struct{ db *pgxpool.Pool }

func New(db *pgxpool.Pool) Repo { return &pgRepo{db: db} }
