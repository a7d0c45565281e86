// internal/models/types.go
package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Account is the domain-level struct returned by repositories.
// Banned is set only by moderation actions; the authorization core reads it.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Name      string    `json:"name,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	Banned    bool      `json:"banned"`
	BanReason string    `json:"ban_reason,omitempty"`
	BannedBy  uuid.UUID `json:"banned_by,omitempty"`
	BannedAt  time.Time `json:"banned_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type LocalCredential struct {
	AccountID    uuid.UUID
	Username     string
	PasswordHash string
}

type LinkedIdentity struct {
	Provider string
	Subject  string
}

// Session is the server-side record behind an opaque session token.
// LiveConnID points at an active realtime channel, if the client opened one.
// RememberHash is the hash of the persistent login token issued alongside
// this session, if any; revocation clears it.
type Session struct {
	AccountID    uuid.UUID
	Provider     string
	LiveConnID   string
	RememberHash string
	Expiry       time.Time
}

// RememberToken is a long-lived login credential stored hashed at rest.
type RememberToken struct {
	Hash      string
	AccountID uuid.UUID
	ExpiresAt time.Time
}

// Decision is the outcome of the login-time ban check.
type Decision struct {
	Allowed bool
	Reason  string
	Message string
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

// GuardAction tells the router what to do with a guarded request.
type GuardAction int

const (
	// GuardContinue lets the request proceed to its handler unchanged.
	GuardContinue GuardAction = iota
	// GuardRedirect discards the requested resource and sends the client
	// to Target instead. The original handler must never run.
	GuardRedirect
)

type GuardResult struct {
	Action GuardAction
	Target string
}

func Continue() GuardResult { return GuardResult{Action: GuardContinue} }

func Redirect(target string) GuardResult {
	return GuardResult{Action: GuardRedirect, Target: target}
}

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrIdentityNotFound = errors.New("identity not found")
	ErrTokenNotFound    = errors.New("token not found")

	// ErrStoreUnavailable marks a storage fault, as opposed to an absent
	// record. Callers on auth paths treat it fail-closed.
	ErrStoreUnavailable = errors.New("store unavailable")
)
