package models

import "time"

// LedgerCategory classifies one balance movement.
type LedgerCategory string

const (
	LedgerPayout   LedgerCategory = "payout"
	LedgerFee      LedgerCategory = "fee"
	LedgerReferral LedgerCategory = "referral"
	LedgerRefund   LedgerCategory = "refund"
	LedgerWager    LedgerCategory = "wager" // debit, e.g. a tournament entry fee
)

// LedgerEntry is an immutable record of one balance change. Rows are only
// ever inserted, never updated or deleted; the sum of a user's entries plus
// their starting balance must equal their current balance at all times.
type LedgerEntry struct {
	ID           string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string         `gorm:"index;not null" json:"user_id"`
	Amount       int64          `json:"amount" gorm:"not null"`
	Category     LedgerCategory `json:"category" gorm:"type:varchar(16);not null"`
	MatchID      *string        `gorm:"index" json:"match_id,omitempty"`
	TournamentID *string        `gorm:"index" json:"tournament_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
}
