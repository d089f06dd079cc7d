package models

import (
	"time"

	"gorm.io/gorm"
)

// Division names, ordered by elo floor.
const (
	DivisionRookie = "Rookie"
	DivisionPro    = "Pro"
	DivisionElite  = "Elite"
	DivisionLegend = "Legend"
)

// PlayerAccount holds the coin balance and skill rating for one user.
// Balance is written only through the ledger poster; elo and division only
// through the rating update path (the admin override writes both together,
// never one alone). The fee-collector wallet is an ordinary PlayerAccount
// whose id comes from configuration.
type PlayerAccount struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`

	Balance int64 `json:"balance" gorm:"not null;default:0"`

	Elo      int    `json:"elo" gorm:"not null;default:500"`
	Division string `json:"division" gorm:"type:varchar(16);not null;default:'Rookie'"`

	Wins          int64 `json:"wins" gorm:"default:0"`
	Losses        int64 `json:"losses" gorm:"default:0"`
	MatchesPlayed int64 `json:"matches_played" gorm:"default:0"`

	ReferralCode     string  `gorm:"uniqueIndex;not null" json:"referral_code"`
	ReferredBy       *string `gorm:"index" json:"referred_by,omitempty"`
	ReferralRewarded bool    `json:"referral_rewarded" gorm:"default:false"`

	// Mirrored from the subscription service by the sync worker; checked at
	// resolution time to decide fee exemption.
	SubscriptionActive  bool       `json:"subscription_active" gorm:"default:false"`
	SubscriptionExpires *time.Time `json:"subscription_expires,omitempty"`

	IsAdmin bool `json:"is_admin" gorm:"default:false"`

	Timestamps
}

// FeeExempt reports whether the account holds an active, unexpired
// subscription at the given instant.
func (a *PlayerAccount) FeeExempt(now time.Time) bool {
	return a.SubscriptionActive && a.SubscriptionExpires != nil && a.SubscriptionExpires.After(now)
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
