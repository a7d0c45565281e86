package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mja00/banguard/internal/models"
)

func TestEvaluateLoginAllowsUnbannedAccount(t *testing.T) {
	ev := NewEvaluator("Your account has been banned.")

	dec := ev.EvaluateLogin(models.Account{ID: uuid.New(), Username: "alice"})

	require.True(t, dec.Allowed)
	assert.Empty(t, dec.Reason)
	assert.Empty(t, dec.Message)
}

func TestEvaluateLoginDeniesBannedAccount(t *testing.T) {
	ev := NewEvaluator("Your account has been banned. Contact support@example.com.")

	dec := ev.EvaluateLogin(models.Account{
		ID:        uuid.New(),
		Username:  "bob",
		Banned:    true,
		BanReason: "spam",
	})

	require.False(t, dec.Allowed)
	assert.Equal(t, DeniedBanned, dec.Reason)
	assert.Equal(t, "Your account has been banned. Contact support@example.com.", dec.Message)
}

func TestEvaluateLoginIgnoresEverythingButBanState(t *testing.T) {
	ev := NewEvaluator("banned")

	// Admin flag, missing profile fields, zero ID: none of it matters.
	assert.True(t, ev.EvaluateLogin(models.Account{IsAdmin: true}).Allowed)
	assert.True(t, ev.EvaluateLogin(models.Account{}).Allowed)
	assert.False(t, ev.EvaluateLogin(models.Account{IsAdmin: true, Banned: true}).Allowed)
}
