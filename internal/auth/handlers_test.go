package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mja00/banguard/internal/authz"
	"github.com/mja00/banguard/internal/models"
	"github.com/mja00/banguard/internal/session"
)

func providerLogin(t *testing.T, r *stubRepo, store *session.Store, id identity) *httptest.ResponseRecorder {
	t.Helper()
	cfg := testConfig()
	cfg.HomePath = "/home"
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback", nil)
	rec := httptest.NewRecorder()
	completeProviderLogin(rec, req, ProviderGitHub, id, r, authz.NewEvaluator("You are banned."), store, cfg)
	return rec
}

func TestProviderLoginIssuesSessionAndRedirectsHome(t *testing.T) {
	acct := models.Account{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	r := &stubRepo{account: acct}
	store := session.NewStore()

	rec := providerLogin(t, r, store, identity{Email: "alice@example.com", Subject: "7"})

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))

	entries := store.ListByAccount(acct.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, string(ProviderGitHub), entries[0].Session.Provider)
}

func TestProviderLoginBannedAccountDeniedWithoutSession(t *testing.T) {
	acct := models.Account{ID: uuid.New(), Username: "bob", Banned: true, BanReason: "spam"}
	r := &stubRepo{account: acct}
	store := session.NewStore()

	rec := providerLogin(t, r, store, identity{Email: "bob@example.com", Subject: "8"})

	require.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "account_banned", body["error"])
	assert.Equal(t, "You are banned.", body["message"])
	assert.Empty(t, store.ListByAccount(acct.ID))
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, CookieSession, c.Name)
	}
}

func TestProviderLoginUnknownIdentityLinksByEmail(t *testing.T) {
	acct := models.Account{ID: uuid.New(), Username: "carol", Email: "carol@example.com"}
	r := &stubRepo{account: acct, identityErr: models.ErrIdentityNotFound}
	store := session.NewStore()

	rec := providerLogin(t, r, store, identity{Email: "carol@example.com", Subject: "9"})

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, []string{"github/9"}, r.linked)
	assert.Len(t, store.ListByAccount(acct.ID), 1)
}

func TestProviderLoginUnknownAccountWantsSignup(t *testing.T) {
	r := &stubRepo{
		identityErr: models.ErrIdentityNotFound,
		emailErr:    models.ErrAccountNotFound,
	}
	store := session.NewStore()

	rec := providerLogin(t, r, store, identity{Email: "new@example.com", Subject: "10"})

	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "signup_required", body["error"])
	assert.Empty(t, r.linked)
}

func TestProviderLoginStoreFaultFailsClosed(t *testing.T) {
	r := &stubRepo{identityErr: models.ErrStoreUnavailable}
	store := session.NewStore()

	rec := providerLogin(t, r, store, identity{Email: "alice@example.com", Subject: "11"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartHandlerUnknownProvider(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/nope", nil)
	rec := httptest.NewRecorder()
	StartHandler(map[ProviderKind]*Provider{})(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
