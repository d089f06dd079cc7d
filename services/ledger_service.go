package services

import (
	"fmt"

	"wager-settlement-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate applies a row lock on dialects that support it. The sqlite
// driver used in tests has no SELECT ... FOR UPDATE; its writes are
// serialized by the database itself.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// LedgerService is the only writer of balances. Post appends one immutable
// ledger row and applies its delta to the user's balance in the same
// transaction, so neither can be observed without the other.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// Post credits (or debits, for negative amounts) the user and records the
// entry. It rides the caller's transaction. The caller guarantees at most
// one invocation per settlement; idempotency is not re-checked here.
func (s *LedgerService) Post(tx *gorm.DB, userID string, amount int64, category models.LedgerCategory, matchID, tournamentID *string) error {
	res := tx.Model(&models.PlayerAccount{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("ledger post to %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("ledger post to %s: %w", userID, ErrAccountNotFound)
	}

	entry := models.LedgerEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		Amount:       amount,
		Category:     category,
		MatchID:      matchID,
		TournamentID: tournamentID,
	}
	return tx.Create(&entry).Error
}

// BalanceFromLedger re-derives a user's balance from the entry sum. Used by
// the audit worker to check the accounting invariant; a mismatch with the
// stored balance is a bug, not a runtime condition to recover from.
func (s *LedgerService) BalanceFromLedger(userID string) (int64, error) {
	var sum int64
	err := s.DB.Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}
