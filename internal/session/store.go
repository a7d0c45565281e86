package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mja00/banguard/internal/models"
)

// Store is an in-memory session store keyed by an opaque token.
// For production, consider a persistent/replicated store (e.g., Redis/DB).
type Store struct {
	mu   sync.RWMutex
	data map[string]models.Session
}

func NewStore() *Store {
	return &Store{data: make(map[string]models.Session)}
}

var DefaultStore = NewStore()

// Create stores the session and returns a new opaque token.
func (s *Store) Create(sess models.Session) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.data[token] = sess
	s.mu.Unlock()
	return token
}

// Get returns the session for token if present and not expired.
func (s *Store) Get(token string) (models.Session, bool) {
	s.mu.RLock()
	sess, ok := s.data[token]
	s.mu.RUnlock()
	if !ok {
		return models.Session{}, false
	}
	if !sess.Expiry.IsZero() && sess.Expiry.Before(time.Now()) {
		// Expired; delete lazily
		s.mu.Lock()
		delete(s.data, token)
		s.mu.Unlock()
		return models.Session{}, false
	}
	return sess, true
}

// Delete removes a session by token. Deleting an absent token is a no-op,
// so revocation stays idempotent.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	delete(s.data, token)
	s.mu.Unlock()
}

// SetLiveConn associates a realtime connection id with an existing session.
func (s *Store) SetLiveConn(token, connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[token]
	if !ok {
		return false
	}
	sess.LiveConnID = connID
	s.data[token] = sess
	return true
}

// Entry is a snapshot of a single session in the store.
type Entry struct {
	Token   string
	Session models.Session
}

// ListByAccount returns snapshots of every live session bound to the account.
// Broadcast revocation walks this list at ban time.
func (s *Store) ListByAccount(accountID uuid.UUID) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for k, v := range s.data {
		if v.AccountID == accountID {
			out = append(out, Entry{Token: k, Session: v})
		}
	}
	return out
}

// StartSweeper launches a background goroutine that periodically removes
// expired sessions from the store. It stops when ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()
				s.mu.Lock()
				for k, v := range s.data {
					if !v.Expiry.IsZero() && v.Expiry.Before(now) {
						delete(s.data, k)
					}
				}
				s.mu.Unlock()
			}
		}
	}()
}
