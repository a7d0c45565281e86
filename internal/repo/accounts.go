// internal/repo/accounts.go
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mja00/banguard/internal/models"
)

const accountCols = `id, email, username, name, is_admin, banned, ban_reason, banned_by, banned_at, created_at`

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	var name, reason pgtype.Text
	var bannedBy pgtype.UUID
	var bannedAt pgtype.Timestamptz
	err := row.Scan(&a.ID, &a.Email, &a.Username, &name, &a.IsAdmin, &a.Banned, &reason, &bannedBy, &bannedAt, &a.CreatedAt)
	if err != nil {
		return models.Account{}, err
	}
	a.Name = fromText(name)
	a.BanReason = fromText(reason)
	a.BannedBy = fromUUID(bannedBy)
	a.BannedAt = fromTimestamptz(bannedAt)
	return a, nil
}

func (p *pgRepo) CreateAccount(ctx context.Context, email, username, name string) (models.Account, error) {
	slog.DebugContext(ctx, "CreateAccount", "email", email, "username", username)
	row := p.db.QueryRow(ctx, `
		INSERT INTO accounts (id, email, username, name)
		VALUES ($1, lower($2), lower($3), $4)
		RETURNING `+accountCols,
		uuid.New(), email, username, toNullableText(name))
	a, err := scanAccount(row)
	if err != nil {
		slog.ErrorContext(ctx, "CreateAccount failed", "err", err)
		return models.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (p *pgRepo) GetAccountByID(ctx context.Context, id uuid.UUID) (models.Account, error) {
	row := p.db.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, models.ErrAccountNotFound
		}
		return models.Account{}, fmt.Errorf("account by id: %w: %w", models.ErrStoreUnavailable, err)
	}
	return a, nil
}

func (p *pgRepo) GetAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	slog.DebugContext(ctx, "GetAccountByEmail", "email", strings.ToLower(email))
	row := p.db.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE email = lower($1)`, email)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, models.ErrAccountNotFound
		}
		return models.Account{}, fmt.Errorf("account by email: %w: %w", models.ErrStoreUnavailable, err)
	}
	return a, nil
}

func (p *pgRepo) GetAccountByIdentity(ctx context.Context, provider, subject string) (models.Account, error) {
	slog.DebugContext(ctx, "GetAccountByIdentity", "provider", provider)
	row := p.db.QueryRow(ctx, `
		SELECT `+prefixed(accountCols, "a.")+`
		FROM accounts a
		JOIN identities i ON i.account_id = a.id
		WHERE i.provider = $1 AND i.subject = $2`,
		provider, subject)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, models.ErrIdentityNotFound
		}
		return models.Account{}, fmt.Errorf("account by identity: %w: %w", models.ErrStoreUnavailable, err)
	}
	return a, nil
}

func (p *pgRepo) LinkIdentity(ctx context.Context, accountID uuid.UUID, provider, subject string) error {
	slog.DebugContext(ctx, "LinkIdentity", "account_id", accountID.String(), "provider", provider)
	_, err := p.db.Exec(ctx, `
		INSERT INTO identities (account_id, provider, subject)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, subject) DO NOTHING`,
		accountID, provider, subject)
	return err
}

// SearchAccounts matches against email, username and name. Banned accounts
// are excluded unless explicitly requested.
func (p *pgRepo) SearchAccounts(ctx context.Context, q string, includeBanned bool, limit int) ([]models.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	slog.DebugContext(ctx, "SearchAccounts", "q", q, "include_banned", includeBanned)
	rows, err := p.db.Query(ctx, `
		SELECT `+accountCols+`
		FROM accounts
		WHERE (email ILIKE '%' || $1 || '%'
		   OR username ILIKE '%' || $1 || '%'
		   OR name ILIKE '%' || $1 || '%')
		  AND (banned = false OR $2)
		ORDER BY username
		LIMIT $3`,
		q, includeBanned, limit)
	if err != nil {
		return nil, fmt.Errorf("search accounts: %w: %w", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("search accounts scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---------------- Moderation ----------------

func (p *pgRepo) SetBanned(ctx context.Context, id uuid.UUID, reason string, by uuid.UUID) error {
	slog.DebugContext(ctx, "SetBanned", "account_id", id.String())
	tag, err := p.db.Exec(ctx, `
		UPDATE accounts
		SET banned = true, ban_reason = $2, banned_by = $3, banned_at = now()
		WHERE id = $1`,
		id, toNullableText(reason), toNullableUUID(by))
	if err != nil {
		return fmt.Errorf("set banned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

func (p *pgRepo) SetUnbanned(ctx context.Context, id uuid.UUID) error {
	slog.DebugContext(ctx, "SetUnbanned", "account_id", id.String())
	tag, err := p.db.Exec(ctx, `
		UPDATE accounts
		SET banned = false, ban_reason = NULL, banned_by = NULL, banned_at = NULL
		WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("set unbanned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

// ---------------- Local credentials & TOTP ----------------

func (p *pgRepo) CreateLocalCredential(ctx context.Context, accountID uuid.UUID, username, phc string) error {
	slog.DebugContext(ctx, "CreateLocalCredential", "account_id", accountID.String(), "username", strings.ToLower(username))
	_, err := p.db.Exec(ctx, `
		INSERT INTO local_credentials (account_id, username, password_hash)
		VALUES ($1, lower($2), $3)`,
		accountID, username, phc)
	return err
}

func (p *pgRepo) GetLocalCredentialByUsername(ctx context.Context, username string) (models.LocalCredential, models.Account, error) {
	slog.DebugContext(ctx, "GetLocalCredentialByUsername", "username", strings.ToLower(username))
	row := p.db.QueryRow(ctx, `
		SELECT c.account_id, c.username, c.password_hash, `+prefixed(accountCols, "a.")+`
		FROM local_credentials c
		JOIN accounts a ON a.id = c.account_id
		WHERE c.username = lower($1)`,
		username)

	var lc models.LocalCredential
	var a models.Account
	var name, reason pgtype.Text
	var bannedBy pgtype.UUID
	var bannedAt pgtype.Timestamptz
	err := row.Scan(&lc.AccountID, &lc.Username, &lc.PasswordHash,
		&a.ID, &a.Email, &a.Username, &name, &a.IsAdmin, &a.Banned, &reason, &bannedBy, &bannedAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.LocalCredential{}, models.Account{}, models.ErrAccountNotFound
		}
		slog.ErrorContext(ctx, "GetLocalCredentialByUsername failed", "err", err)
		return models.LocalCredential{}, models.Account{}, fmt.Errorf("credential by username: %w: %w", models.ErrStoreUnavailable, err)
	}
	a.Name = fromText(name)
	a.BanReason = fromText(reason)
	a.BannedBy = fromUUID(bannedBy)
	a.BannedAt = fromTimestamptz(bannedAt)
	return lc, a, nil
}

func (p *pgRepo) UpdateLocalPasswordHash(ctx context.Context, accountID uuid.UUID, phc string) error {
	slog.DebugContext(ctx, "UpdateLocalPasswordHash", "account_id", accountID.String())
	_, err := p.db.Exec(ctx, `
		UPDATE local_credentials SET password_hash = $2 WHERE account_id = $1`,
		accountID, phc)
	return err
}

func (p *pgRepo) AccountHasTOTP(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := p.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM totp_secrets WHERE account_id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("account has totp: %w: %w", models.ErrStoreUnavailable, err)
	}
	return ok, nil
}

func (p *pgRepo) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret, issuer, label string) error {
	slog.DebugContext(ctx, "SetTOTPSecret", "account_id", id.String(), "issuer", issuer)
	_, err := p.db.Exec(ctx, `
		INSERT INTO totp_secrets (account_id, secret, issuer, label)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET secret = $2, issuer = $3, label = $4`,
		id, secret, issuer, label)
	return err
}

func (p *pgRepo) GetTOTPSecret(ctx context.Context, id uuid.UUID) (string, bool) {
	var sec string
	err := p.db.QueryRow(ctx, `SELECT secret FROM totp_secrets WHERE account_id = $1`, id).Scan(&sec)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.ErrorContext(ctx, "GetTOTPSecret failed", "err", err)
		}
		return "", false
	}
	return sec, true
}

// -------- Login attempt recording --------

func (p *pgRepo) RecordLoginSuccess(ctx context.Context, username string, ip netip.Addr) error {
	return p.recordLoginAttempt(ctx, username, ip, true)
}

func (p *pgRepo) RecordLoginFailure(ctx context.Context, username string, ip netip.Addr) error {
	return p.recordLoginAttempt(ctx, username, ip, false)
}

func (p *pgRepo) recordLoginAttempt(ctx context.Context, username string, ip netip.Addr, success bool) error {
	slog.DebugContext(ctx, "recordLoginAttempt", "username", strings.ToLower(username), "success", success)
	_, err := p.db.Exec(ctx, `
		INSERT INTO login_events (username, ip, success)
		VALUES (lower($1), $2, $3)`,
		username, ip, success)
	return err
}
