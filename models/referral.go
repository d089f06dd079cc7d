package models

import "time"

// ReferralAward is the audit record for a paid referral bonus. The
// at-most-once guard is PlayerAccount.ReferralRewarded, flipped in the same
// transaction that inserts this row and posts the ledger credits.
type ReferralAward struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID *string   `gorm:"index" json:"referrer_id,omitempty"` // nil when the code matched no account
	ReferredID string    `gorm:"uniqueIndex;not null" json:"referred_id"`
	CodeUsed   string    `gorm:"not null" json:"code_used"`
	Amount     int64     `json:"amount" gorm:"not null"`
	AwardedAt  time.Time `json:"awarded_at" gorm:"autoCreateTime"`
}
