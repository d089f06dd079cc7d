package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"wager-settlement-system/models"
	"wager-settlement-system/services"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	cfg := services.DefaultSettlementConfig()
	ledger := services.NewLedgerService(db)
	rating := services.NewRatingService(db)
	notify := services.NewNotificationService(db)
	referral := services.NewReferralService(ledger, cfg.ReferralBonus)
	matches := services.NewMatchService(db, cfg, ledger, rating, referral, notify)
	tournaments := services.NewTournamentService(db, cfg, ledger, rating, notify)
	accounts := services.NewAccountService(db, rating)
	leaderboard := services.NewLeaderboardService(db, nil)

	app := fiber.New()
	SetupRoutes(app, matches, tournaments, accounts, leaderboard)
	return app, db
}

func seedAccount(t *testing.T, db *gorm.DB) *models.PlayerAccount {
	t.Helper()
	acct := models.PlayerAccount{
		ID:           uuid.NewString(),
		Username:     fmt.Sprintf("router_check_%s", uuid.NewString()[:8]),
		Elo:          services.StartingElo,
		Division:     models.DivisionRookie,
		ReferralCode: services.GenerateReferralCode("router_check"),
	}
	require.NoError(t, db.Create(&acct).Error)
	return &acct
}

// Browse endpoints must answer anonymous requests even though the user
// context middleware is mounted at "/" for the action routes.
func TestPublicRoutesAnswerAnonymously(t *testing.T) {
	app, db := testApp(t)
	acct := seedAccount(t, db)

	paths := []string{
		"/matches",
		"/tournaments",
		"/leaderboard/" + models.DivisionRookie,
		"/accounts/" + acct.ID,
	}
	for _, path := range paths {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestSecuredRoutesRejectAnonymousCallers(t *testing.T) {
	app, _ := testApp(t)

	requests := []*http.Request{
		httptest.NewRequest(http.MethodPost, "/matches", nil),
		httptest.NewRequest(http.MethodGet, "/users/me", nil),
		httptest.NewRequest(http.MethodPost, "/tournaments/some-id/join", nil),
	}
	for _, req := range requests {
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, req.URL.Path)
	}
}

func TestSecuredRoutesAcceptGatewayIdentity(t *testing.T) {
	app, db := testApp(t)
	acct := seedAccount(t, db)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("X-User-ID", acct.ID)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
