package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mja00/banguard/internal/auth"
	"github.com/mja00/banguard/internal/authz"
	"github.com/mja00/banguard/internal/models"
	"github.com/mja00/banguard/internal/session"
)

type guardAccounts struct {
	accounts map[uuid.UUID]models.Account
	err      error
}

func (f *guardAccounts) GetAccountByID(_ context.Context, id uuid.UUID) (models.Account, error) {
	if f.err != nil {
		return models.Account{}, f.err
	}
	acct, ok := f.accounts[id]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	return acct, nil
}

type guardRevoker struct {
	store *session.Store
}

func (f *guardRevoker) Revoke(_ context.Context, token string) error {
	f.store.Delete(token)
	return nil
}

func guardedRequest(t *testing.T, g *authz.Guard, sess *models.Session, token string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	handlerRan := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	if sess != nil {
		req = req.WithContext(auth.WithSession(req.Context(), sess, token))
	}
	rec := httptest.NewRecorder()
	Guard(g)(next).ServeHTTP(rec, req)
	return rec, handlerRan
}

func TestGuardMiddlewareAnonymousPassThrough(t *testing.T) {
	g := authz.NewGuard(&guardAccounts{}, &guardRevoker{store: session.NewStore()}, "/")

	rec, ran := guardedRequest(t, g, nil, "")

	assert.True(t, ran)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardMiddlewareUnbannedSessionProceeds(t *testing.T) {
	id := uuid.New()
	accounts := &guardAccounts{accounts: map[uuid.UUID]models.Account{
		id: {ID: id, Username: "alice"},
	}}
	store := session.NewStore()
	token := store.Create(models.Session{AccountID: id})
	g := authz.NewGuard(accounts, &guardRevoker{store: store}, "/")

	var seen *models.Account
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.AccountFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req = req.WithContext(auth.WithSession(req.Context(), &models.Session{AccountID: id}, token))
	rec := httptest.NewRecorder()
	Guard(g)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.Username)
}

func TestGuardMiddlewareBannedMidSessionRedirectsHome(t *testing.T) {
	id := uuid.New()
	accounts := &guardAccounts{accounts: map[uuid.UUID]models.Account{
		id: {ID: id, Banned: true, BanReason: "abuse"},
	}}
	store := session.NewStore()
	token := store.Create(models.Session{AccountID: id})
	g := authz.NewGuard(accounts, &guardRevoker{store: store}, "/home")

	rec, ran := guardedRequest(t, g, &models.Session{AccountID: id}, token)

	assert.False(t, ran, "banned request must never reach its handler")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))

	// The session token was revoked server-side.
	_, ok := store.Get(token)
	assert.False(t, ok)

	// Both auth cookies were expired on the client.
	var cleared []string
	for _, c := range rec.Result().Cookies() {
		if c.Value == "" {
			cleared = append(cleared, c.Name)
		}
	}
	assert.Contains(t, cleared, auth.CookieSession)
	assert.Contains(t, cleared, auth.CookieRemember)
}

func TestGuardMiddlewareRedirectsNonGETRequestsToo(t *testing.T) {
	id := uuid.New()
	accounts := &guardAccounts{accounts: map[uuid.UUID]models.Account{
		id: {ID: id, Banned: true},
	}}
	store := session.NewStore()
	token := store.Create(models.Session{AccountID: id})
	g := authz.NewGuard(accounts, &guardRevoker{store: store}, "/")

	handlerRan := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { handlerRan = true })
	req := httptest.NewRequest(http.MethodPost, "/notes", nil)
	req = req.WithContext(auth.WithSession(req.Context(), &models.Session{AccountID: id}, token))
	rec := httptest.NewRecorder()
	Guard(g)(next).ServeHTTP(rec, req)

	assert.False(t, handlerRan)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestGuardMiddlewareStoreFaultFailsClosed(t *testing.T) {
	accounts := &guardAccounts{err: errors.New("connection refused")}
	g := authz.NewGuard(accounts, &guardRevoker{store: session.NewStore()}, "/")

	rec, ran := guardedRequest(t, g, &models.Session{AccountID: uuid.New()}, "tok")

	assert.False(t, ran)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
