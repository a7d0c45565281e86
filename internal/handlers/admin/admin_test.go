package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mja00/banguard/internal/models"
	"github.com/mja00/banguard/internal/repo"
	"github.com/mja00/banguard/internal/revoke"
	"github.com/mja00/banguard/internal/session"
)

type modRepo struct {
	repo.Repo
	banned   map[uuid.UUID]string
	unbanned []uuid.UUID
	purged   []uuid.UUID
	accounts []models.Account
	sawQ     string
	sawInc   bool
}

func (m *modRepo) SetBanned(_ context.Context, id uuid.UUID, reason string, _ uuid.UUID) error {
	if m.banned == nil {
		m.banned = map[uuid.UUID]string{}
	}
	m.banned[id] = reason
	return nil
}

func (m *modRepo) SetUnbanned(_ context.Context, id uuid.UUID) error {
	m.unbanned = append(m.unbanned, id)
	return nil
}

func (m *modRepo) SearchAccounts(_ context.Context, q string, includeBanned bool, _ int) ([]models.Account, error) {
	m.sawQ, m.sawInc = q, includeBanned
	return m.accounts, nil
}

func (m *modRepo) DeleteRememberToken(context.Context, string) error { return nil }

func (m *modRepo) DeleteRememberTokensForAccount(_ context.Context, id uuid.UUID) error {
	m.purged = append(m.purged, id)
	return nil
}

type noopHub struct{}

func (noopHub) Disconnect(string, string) {}

func banRouter(r *modRepo, rev *revoke.Revoker, broadcast bool) chi.Router {
	mux := chi.NewRouter()
	mux.Post("/admin/accounts/{id}/ban", BanHandler(r, rev, broadcast))
	mux.Delete("/admin/accounts/{id}/ban", UnbanHandler(r))
	mux.Get("/admin/accounts", SearchHandler(r))
	return mux
}

func TestBanHandlerSetsBanState(t *testing.T) {
	r := &modRepo{}
	store := session.NewStore()
	mux := banRouter(r, revoke.New(store, r, noopHub{}), false)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/admin/accounts/"+id.String()+"/ban",
		strings.NewReader(`{"reason":"spam"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "spam", r.banned[id])
}

func TestBanHandlerBroadcastRevokesLiveSessions(t *testing.T) {
	r := &modRepo{}
	store := session.NewStore()
	mux := banRouter(r, revoke.New(store, r, noopHub{}), true)

	id := uuid.New()
	token := store.Create(models.Session{AccountID: id})

	req := httptest.NewRequest(http.MethodPost, "/admin/accounts/"+id.String()+"/ban",
		strings.NewReader(`{"reason":"abuse"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := store.Get(token)
	assert.False(t, ok)
	// Persistent logins go too, even on devices with no live session.
	assert.Equal(t, []uuid.UUID{id}, r.purged)
}

func TestBanHandlerLazyModeLeavesSessionsForGuard(t *testing.T) {
	r := &modRepo{}
	store := session.NewStore()
	mux := banRouter(r, revoke.New(store, r, noopHub{}), false)

	id := uuid.New()
	token := store.Create(models.Session{AccountID: id})

	req := httptest.NewRequest(http.MethodPost, "/admin/accounts/"+id.String()+"/ban",
		strings.NewReader(`{"reason":"abuse"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := store.Get(token)
	assert.True(t, ok, "lazy mode leaves revocation to the per-request guard")
	assert.Empty(t, r.purged)
}

func TestBanHandlerRejectsBadInput(t *testing.T) {
	r := &modRepo{}
	mux := banRouter(r, revoke.New(session.NewStore(), r, noopHub{}), false)

	req := httptest.NewRequest(http.MethodPost, "/admin/accounts/not-a-uuid/ban",
		strings.NewReader(`{"reason":"x"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	long := strings.Repeat("a", 513)
	req = httptest.NewRequest(http.MethodPost, "/admin/accounts/"+uuid.NewString()+"/ban",
		strings.NewReader(`{"reason":"`+long+`"}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, r.banned)
}

func TestUnbanHandler(t *testing.T) {
	r := &modRepo{}
	mux := banRouter(r, revoke.New(session.NewStore(), r, noopHub{}), false)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/admin/accounts/"+id.String()+"/ban", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, r.unbanned)
}

func TestSearchHandlerExcludesBannedByDefault(t *testing.T) {
	r := &modRepo{}
	mux := banRouter(r, revoke.New(session.NewStore(), r, noopHub{}), false)

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts?q=ali", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ali", r.sawQ)
	assert.False(t, r.sawInc)

	req = httptest.NewRequest(http.MethodGet, "/admin/accounts?q=ali&include_banned=true", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.True(t, r.sawInc)
}
