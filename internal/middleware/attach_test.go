package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mja00/banguard/internal/auth"
	"github.com/mja00/banguard/internal/models"
	"github.com/mja00/banguard/internal/repo"
	"github.com/mja00/banguard/internal/session"
)

// rememberRepo stubs only the lookups Attach performs; anything else panics.
type rememberRepo struct {
	repo.Repo
	tokens map[string]models.RememberToken
}

func (r *rememberRepo) GetRememberToken(_ context.Context, hash string) (models.RememberToken, error) {
	tok, ok := r.tokens[hash]
	if !ok {
		return models.RememberToken{}, models.ErrTokenNotFound
	}
	return tok, nil
}

func sessionCapture() (http.HandlerFunc, func() (*models.Session, string)) {
	var s *models.Session
	var token string
	h := func(w http.ResponseWriter, req *http.Request) {
		s, _ = auth.SessionFromContext(req.Context())
		token, _ = auth.SessionTokenFromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	}
	return h, func() (*models.Session, string) { return s, token }
}

func TestAttachInjectsExistingSession(t *testing.T) {
	store := session.NewStore()
	id := uuid.New()
	token := store.Create(models.Session{AccountID: id})

	next, got := sessionCapture()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieSession, Value: token})
	rec := httptest.NewRecorder()
	Attach(&rememberRepo{}, store, time.Hour)(next).ServeHTTP(rec, req)

	s, gotToken := got()
	require.NotNil(t, s)
	assert.Equal(t, id, s.AccountID)
	assert.Equal(t, token, gotToken)
}

func TestAttachAnonymousPassesWithoutSession(t *testing.T) {
	next, got := sessionCapture()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	Attach(&rememberRepo{}, session.NewStore(), time.Hour)(next).ServeHTTP(rec, req)

	s, _ := got()
	assert.Nil(t, s)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAttachResurrectsSessionFromRememberCookie(t *testing.T) {
	store := session.NewStore()
	id := uuid.New()
	raw := "remember-raw-value"
	r := &rememberRepo{tokens: map[string]models.RememberToken{
		auth.HashToken(raw): {Hash: auth.HashToken(raw), AccountID: id, ExpiresAt: time.Now().Add(time.Hour)},
	}}

	next, got := sessionCapture()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieRemember, Value: raw})
	rec := httptest.NewRecorder()
	Attach(r, store, time.Hour)(next).ServeHTTP(rec, req)

	s, token := got()
	require.NotNil(t, s)
	assert.Equal(t, id, s.AccountID)
	assert.Equal(t, "remember", s.Provider)
	assert.Equal(t, auth.HashToken(raw), s.RememberHash)

	// A fresh server-side session now backs the new cookie.
	stored, ok := store.Get(token)
	require.True(t, ok)
	assert.Equal(t, id, stored.AccountID)
}

func TestAttachIgnoresUnknownRememberToken(t *testing.T) {
	next, got := sessionCapture()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieRemember, Value: "stale"})
	rec := httptest.NewRecorder()
	Attach(&rememberRepo{}, session.NewStore(), time.Hour)(next).ServeHTTP(rec, req)

	s, _ := got()
	assert.Nil(t, s)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	authed := req.WithContext(auth.WithSession(req.Context(), &models.Session{AccountID: uuid.New()}, "tok"))
	rec = httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(rec, authed)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)

	rec := httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	member := req.WithContext(auth.WithAccount(req.Context(), &models.Account{ID: uuid.New()}))
	rec = httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, member)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := req.WithContext(auth.WithAccount(req.Context(), &models.Account{ID: uuid.New(), IsAdmin: true}))
	rec = httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}
