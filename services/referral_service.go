package services

import (
	"errors"
	"fmt"
	"strings"

	"wager-settlement-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// GenerateReferralCode derives a shareable code from the username plus a
// short random suffix so two similar usernames never collide.
func GenerateReferralCode(username string) string {
	base := slug.Make(username)
	if base == "" {
		base = "player"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%s", base, suffix)
}

// ReferralService pays the one-time signup bonus once the referred player
// finishes their first match. Idempotency hangs entirely on the
// referral_rewarded flag, flipped in the same transaction as the payout.
type ReferralService struct {
	Ledger *LedgerService
	Bonus  int64
}

func NewReferralService(ledger *LedgerService, bonus int64) *ReferralService {
	return &ReferralService{Ledger: ledger, Bonus: bonus}
}

// MaybeAward fires the bonus for the given account if it was referred,
// has not been rewarded yet, and just finished its first match. Called
// with counters already incremented, so first match means MatchesPlayed
// is at most 1. Safe to call on every settlement; the returned award is
// nil when nothing fired.
func (s *ReferralService) MaybeAward(tx *gorm.DB, acct *models.PlayerAccount, matchID *string) (*models.ReferralAward, error) {
	if acct.ReferralRewarded || acct.ReferredBy == nil || *acct.ReferredBy == "" {
		return nil, nil
	}
	if acct.MatchesPlayed > 1 {
		return nil, nil
	}

	// Conditional flip of the flag claims the award. RowsAffected 0 means
	// a concurrent settlement got here first.
	res := tx.Model(&models.PlayerAccount{}).
		Where("id = ? AND referral_rewarded = ?", acct.ID, false).
		Update("referral_rewarded", true)
	if res.Error != nil {
		return nil, fmt.Errorf("claim referral award for %s: %w", acct.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	acct.ReferralRewarded = true

	var referrer models.PlayerAccount
	var referrerID *string
	err := tx.First(&referrer, "referral_code = ?", *acct.ReferredBy).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Code no longer maps to an account. The referred player still
		// gets their half; the award row records the dangling code.
	case err != nil:
		return nil, fmt.Errorf("look up referrer by code %q: %w", *acct.ReferredBy, err)
	default:
		referrerID = &referrer.ID
	}

	if err := s.Ledger.Post(tx, acct.ID, s.Bonus, models.LedgerReferral, matchID, nil); err != nil {
		return nil, err
	}
	if referrerID != nil {
		if err := s.Ledger.Post(tx, *referrerID, s.Bonus, models.LedgerReferral, matchID, nil); err != nil {
			return nil, err
		}
	}

	award := models.ReferralAward{
		ID:         uuid.NewString(),
		ReferrerID: referrerID,
		ReferredID: acct.ID,
		CodeUsed:   *acct.ReferredBy,
		Amount:     s.Bonus,
	}
	if err := tx.Create(&award).Error; err != nil {
		return nil, err
	}
	return &award, nil
}
