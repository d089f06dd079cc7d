package services

import (
	"fmt"
	"testing"
	"time"

	"wager-settlement-system/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testFeeWallet = "fee_wallet_test"

// testDB opens a throwaway in-memory database with the full schema. Each
// test gets its own named database so parallel tests never share state.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

type engine struct {
	db          *gorm.DB
	cfg         SettlementConfig
	ledger      *LedgerService
	rating      *RatingService
	referral    *ReferralService
	matches     *MatchService
	tournaments *TournamentService
	accounts    *AccountService
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db := testDB(t)
	cfg := DefaultSettlementConfig()
	cfg.FeeAccountID = testFeeWallet

	ledger := NewLedgerService(db)
	rating := NewRatingService(db)
	notify := NewNotificationService(db)
	referral := NewReferralService(ledger, cfg.ReferralBonus)

	e := &engine{
		db:          db,
		cfg:         cfg,
		ledger:      ledger,
		rating:      rating,
		referral:    referral,
		matches:     NewMatchService(db, cfg, ledger, rating, referral, notify),
		tournaments: NewTournamentService(db, cfg, ledger, rating, notify),
		accounts:    NewAccountService(db, rating),
	}

	feeWallet := models.PlayerAccount{
		ID:           testFeeWallet,
		Username:     "platform_fee_wallet",
		Elo:          StartingElo,
		Division:     models.DivisionRookie,
		ReferralCode: GenerateReferralCode("platform_fee_wallet"),
	}
	require.NoError(t, db.Create(&feeWallet).Error)
	return e
}

type accountOpt func(*models.PlayerAccount)

func withBalance(n int64) accountOpt {
	return func(a *models.PlayerAccount) { a.Balance = n }
}

func withDivision(division string) accountOpt {
	return func(a *models.PlayerAccount) {
		a.Division = division
		elo, _ := EloForDivision(division)
		a.Elo = elo
	}
}

func withReferredBy(code string) accountOpt {
	return func(a *models.PlayerAccount) { a.ReferredBy = &code }
}

func withSubscription(expires time.Time) accountOpt {
	return func(a *models.PlayerAccount) {
		a.SubscriptionActive = true
		a.SubscriptionExpires = &expires
	}
}

func newPlayer(t *testing.T, db *gorm.DB, opts ...accountOpt) *models.PlayerAccount {
	t.Helper()
	username := fmt.Sprintf("%s_%s", gofakeit.Username(), uuid.NewString()[:8])
	acct := models.PlayerAccount{
		ID:           uuid.NewString(),
		Username:     username,
		Elo:          StartingElo,
		Division:     models.DivisionRookie,
		ReferralCode: GenerateReferralCode(username),
	}
	for _, opt := range opts {
		opt(&acct)
	}
	require.NoError(t, db.Create(&acct).Error)
	return &acct
}

func reload(t *testing.T, db *gorm.DB, id string) *models.PlayerAccount {
	t.Helper()
	var acct models.PlayerAccount
	require.NoError(t, db.First(&acct, "id = ?", id).Error)
	return &acct
}

func ledgerEntries(t *testing.T, db *gorm.DB, userID string) []models.LedgerEntry {
	t.Helper()
	var entries []models.LedgerEntry
	require.NoError(t, db.Where("user_id = ?", userID).Order("created_at ASC").Find(&entries).Error)
	return entries
}

// activeMatch creates, joins and starts a match between the two players.
func activeMatch(t *testing.T, e *engine, creator, joiner *models.PlayerAccount, wager int64) *models.Match {
	t.Helper()
	m, err := e.matches.Create(creator.ID, wager, "psn")
	require.NoError(t, err)
	_, err = e.matches.Join(m.ID, joiner.ID)
	require.NoError(t, err)
	m, err = e.matches.Start(m.ID, creator.ID)
	require.NoError(t, err)
	return m
}
