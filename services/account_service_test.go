package services

import (
	"context"
	"testing"

	"wager-settlement-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount(t *testing.T) {
	e := newEngine(t)

	acct, err := e.accounts.CreateAccount("", "shadow_striker", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, StartingElo, acct.Elo)
	assert.Equal(t, models.DivisionRookie, acct.Division)
	assert.NotEmpty(t, acct.ReferralCode)
	assert.Zero(t, acct.Balance)
	assert.False(t, acct.ReferralRewarded)

	_, err = e.accounts.CreateAccount("", "shadow_striker", nil)
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = e.accounts.CreateAccount("", "", nil)
	assert.Error(t, err)
}

func TestCreateAccountWithReferral(t *testing.T) {
	e := newEngine(t)
	referrer := newPlayer(t, e.db)

	acct, err := e.accounts.CreateAccount("", "new_blood", &referrer.ReferralCode)
	require.NoError(t, err)
	require.NotNil(t, acct.ReferredBy)
	assert.Equal(t, referrer.ReferralCode, *acct.ReferredBy)
	assert.Zero(t, acct.Balance, "bonus waits for the first match")
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	e := newEngine(t)

	first, err := e.accounts.EnsureAccount("fixed-id", "wallet_a")
	require.NoError(t, err)

	again, err := e.accounts.EnsureAccount("fixed-id", "different_name")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "wallet_a", again.Username, "existing account is returned untouched")
}

func TestLeaderboardOrdering(t *testing.T) {
	e := newEngine(t)
	lb := NewLeaderboardService(e.db, nil)

	low := newPlayer(t, e.db)
	mid := newPlayer(t, e.db)
	high := newPlayer(t, e.db)
	require.NoError(t, e.db.Model(mid).Update("elo", 600).Error)
	require.NoError(t, e.db.Model(high).Update("elo", 650).Error)
	newPlayer(t, e.db, withDivision(models.DivisionPro)) // other division, excluded

	rows, err := lb.TopByDivision(context.Background(), models.DivisionRookie, 10)
	require.NoError(t, err)

	// The fee wallet fixture is a Rookie too.
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, high.ID, rows[0].UserID)
	assert.Equal(t, mid.ID, rows[1].UserID)
	ids := make(map[string]bool, len(rows))
	for _, row := range rows {
		assert.Equal(t, models.DivisionRookie, row.Division)
		ids[row.UserID] = true
	}
	assert.True(t, ids[low.ID])

	limited, err := lb.TopByDivision(context.Background(), models.DivisionRookie, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
