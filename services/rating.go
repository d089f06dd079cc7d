package services

import (
	"errors"
	"fmt"

	"wager-settlement-system/models"

	"gorm.io/gorm"
)

// Fixed rating deltas. New accounts start at 500 (the Rookie floor).
const (
	StartingElo  = 500
	eloWinDelta  = 25
	eloLossDelta = 20
)

// NewElo applies the fixed win/loss delta, clamped at zero.
func NewElo(currentElo int, didWin bool) int {
	if didWin {
		return currentElo + eloWinDelta
	}
	if currentElo < eloLossDelta {
		return 0
	}
	return currentElo - eloLossDelta
}

// DivisionForElo maps every elo to exactly one division.
func DivisionForElo(elo int) string {
	switch {
	case elo >= 1200:
		return models.DivisionLegend
	case elo >= 900:
		return models.DivisionElite
	case elo >= 700:
		return models.DivisionPro
	default:
		return models.DivisionRookie
	}
}

// EloForDivision returns the division's floor elo, used when an admin
// assigns a division by hand so elo and division never drift apart.
func EloForDivision(division string) (int, error) {
	switch division {
	case models.DivisionLegend:
		return 1200, nil
	case models.DivisionElite:
		return 900, nil
	case models.DivisionPro:
		return 700, nil
	case models.DivisionRookie:
		return StartingElo, nil
	}
	return 0, ErrUnknownDivision
}

// RatingService owns every write to elo, division and the win/loss
// counters. Nothing else in the codebase touches those columns.
type RatingService struct {
	DB *gorm.DB
}

func NewRatingService(db *gorm.DB) *RatingService {
	return &RatingService{DB: db}
}

// ApplyResult updates elo, division and counters for one party of a
// completed match. It rides the caller's transaction: rating changes only
// ever land together with the match's terminal transition. The updated
// account is returned so callers already holding the row lock do not need
// to read it back.
func (s *RatingService) ApplyResult(tx *gorm.DB, userID string, didWin bool) (*models.PlayerAccount, error) {
	var acct models.PlayerAccount
	if err := forUpdate(tx).First(&acct, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("rating update: %w", ErrAccountNotFound)
		}
		return nil, fmt.Errorf("rating update for %s: %w", userID, err)
	}

	acct.Elo = NewElo(acct.Elo, didWin)
	acct.Division = DivisionForElo(acct.Elo)
	if didWin {
		acct.Wins++
	} else {
		acct.Losses++
	}
	acct.MatchesPlayed++

	if err := tx.Save(&acct).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

// SetDivision is the admin override: the division is chosen by hand and
// the elo is re-derived as that division's floor. The two fields are always
// written together.
func (s *RatingService) SetDivision(userID, division string) error {
	elo, err := EloForDivision(division)
	if err != nil {
		return err
	}
	res := s.DB.Model(&models.PlayerAccount{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"division": division,
			"elo":      elo,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
