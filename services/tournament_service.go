package services

import (
	"errors"
	"fmt"
	"time"

	"wager-settlement-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TournamentService runs single elimination brackets. A tournament fills,
// generates its bracket exactly once, and a fresh copy spawns to absorb the
// next wave of joiners. Matchup completion, advancement and the champion
// payout all happen under the tournament row lock.
type TournamentService struct {
	DB     *gorm.DB
	Cfg    SettlementConfig
	Ledger *LedgerService
	Rating *RatingService
	Notify *NotificationService
}

func NewTournamentService(db *gorm.DB, cfg SettlementConfig, ledger *LedgerService, rating *RatingService, notify *NotificationService) *TournamentService {
	return &TournamentService{DB: db, Cfg: cfg, Ledger: ledger, Rating: rating, Notify: notify}
}

func (s *TournamentService) lockTournament(tx *gorm.DB, id string) (*models.Tournament, error) {
	var t models.Tournament
	if err := forUpdate(tx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create opens a new waiting tournament. Capacity must be a power of two
// so the bracket needs no byes in its first round.
func (s *TournamentService) Create(name string, capacity int, entryFee int64, division, platform string) (*models.Tournament, error) {
	if !IsPowerOfTwo(capacity) {
		return nil, ErrBadCapacity
	}
	if _, err := EloForDivision(division); err != nil {
		return nil, err
	}
	if entryFee < 0 {
		return nil, ErrInvalidWager
	}

	t := models.Tournament{
		ID:       uuid.NewString(),
		Name:     name,
		Capacity: capacity,
		EntryFee: entryFee,
		Division: division,
		Platform: platform,
		Status:   models.TournamentWaiting,
	}
	if err := s.DB.Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// nextNoon is the default first-round start: noon UTC tomorrow, so a
// bracket that fills at any hour gives everyone notice before round one.
func nextNoon(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 12, 0, 0, 0, time.UTC)
}

// Join enters a player, debiting the entry fee into the prize pool. The
// join that reaches capacity also generates the bracket, schedules the
// rounds, and spawns an empty clone of the tournament, all in one
// transaction, so a filled tournament without a bracket can never be
// observed.
func (s *TournamentService) Join(tournamentID, playerID string) (*models.Tournament, error) {
	var out *models.Tournament
	var scheduledPlayers []string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		t, err := s.lockTournament(tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.TournamentWaiting {
			return ErrTournamentClosed
		}

		var acct models.PlayerAccount
		if err := forUpdate(tx).First(&acct, "id = ?", playerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		if acct.Division != t.Division {
			return ErrDivisionMismatch
		}
		if acct.Balance < t.EntryFee {
			return ErrInsufficientCoins
		}

		var taken int64
		if err := tx.Model(&models.TournamentEntry{}).
			Where("tournament_id = ? AND user_id = ?", t.ID, playerID).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrAlreadyEntered
		}

		var seats int64
		if err := tx.Model(&models.TournamentEntry{}).
			Where("tournament_id = ?", t.ID).
			Count(&seats).Error; err != nil {
			return err
		}
		if int(seats) >= t.Capacity {
			return ErrTournamentFull
		}

		if t.EntryFee > 0 {
			if err := s.Ledger.Post(tx, playerID, -t.EntryFee, models.LedgerWager, nil, &t.ID); err != nil {
				return err
			}
			t.PrizePool += t.EntryFee
		}

		entry := models.TournamentEntry{
			ID:           uuid.NewString(),
			TournamentID: t.ID,
			UserID:       playerID,
			Seat:         int(seats),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if int(seats)+1 == t.Capacity {
			players, err := s.scheduleLocked(tx, t)
			if err != nil {
				return err
			}
			scheduledPlayers = players
			if err := s.spawnClone(tx, t); err != nil {
				return err
			}
		}

		out = t
		return tx.Save(t).Error
	})
	if err != nil {
		return nil, err
	}
	if len(scheduledPlayers) > 0 && out.StartDate != nil {
		msg := fmt.Sprintf("%s is full! Round one starts %s.", out.Name, out.StartDate.UTC().Format("Jan 2 at 15:04 MST"))
		for _, uid := range scheduledPlayers {
			s.Notify.Send(uid, msg, "tournament")
		}
	}
	return out, nil
}

// scheduleLocked generates the bracket for a just-filled tournament and
// flips it to scheduled. Seeding is join order; the returned ids are the
// seeded players, for post-commit notifications.
func (s *TournamentService) scheduleLocked(tx *gorm.DB, t *models.Tournament) ([]string, error) {
	var entries []models.TournamentEntry
	if err := tx.Where("tournament_id = ?", t.ID).Order("seat ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	players := make([]string, 0, len(entries))
	for _, e := range entries {
		players = append(players, e.UserID)
	}

	start := nextNoon(time.Now())
	for _, slot := range BuildBracket(players, start) {
		mu := models.BracketMatchup{
			ID:           uuid.NewString(),
			TournamentID: t.ID,
			Round:        slot.Round,
			Index:        slot.Index,
			Player1ID:    slot.Player1ID,
			Player2ID:    slot.Player2ID,
			ScheduledAt:  slot.ScheduledAt,
		}
		if err := tx.Create(&mu).Error; err != nil {
			return nil, err
		}
	}

	t.Status = models.TournamentScheduled
	t.StartDate = &start
	return players, nil
}

// spawnClone creates the next empty tournament with the same
// configuration, so the division always has somewhere to sign up.
func (s *TournamentService) spawnClone(tx *gorm.DB, t *models.Tournament) error {
	clone := models.Tournament{
		ID:       uuid.NewString(),
		Name:     t.Name,
		Capacity: t.Capacity,
		EntryFee: t.EntryFee,
		Division: t.Division,
		Platform: t.Platform,
		Status:   models.TournamentWaiting,
	}
	return tx.Create(&clone).Error
}

func (s *TournamentService) lockMatchup(tx *gorm.DB, tournamentID, matchupID string) (*models.BracketMatchup, error) {
	var mu models.BracketMatchup
	err := forUpdate(tx).First(&mu, "id = ? AND tournament_id = ?", matchupID, tournamentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchupNotFound
		}
		return nil, err
	}
	return &mu, nil
}

// ReportMatchupWinner settles one bracket node and advances its winner.
// The reporter must be one of the matchup's players or an admin.
func (s *TournamentService) ReportMatchupWinner(tournamentID, matchupID, winnerID, reporterID string) (*models.BracketMatchup, error) {
	var out *models.BracketMatchup
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		t, err := s.lockTournament(tx, tournamentID)
		if err != nil {
			return err
		}
		mu, err := s.lockMatchup(tx, tournamentID, matchupID)
		if err != nil {
			return err
		}
		if !mu.HasParticipant(reporterID) {
			var reporter models.PlayerAccount
			if err := tx.First(&reporter, "id = ?", reporterID).Error; err != nil || !reporter.IsAdmin {
				return ErrNotParticipant
			}
		}
		if err := s.completeMatchupLocked(tx, t, mu, winnerID, time.Now()); err != nil {
			return err
		}
		out = mu
		return tx.Save(t).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// completeMatchupLocked marks the matchup won, applies rating changes when
// it was an actual pairing, advances the winner, and on the final round
// pays the prize pool out and closes the tournament.
func (s *TournamentService) completeMatchupLocked(tx *gorm.DB, t *models.Tournament, mu *models.BracketMatchup, winnerID string, now time.Time) error {
	if mu.Completed {
		return ErrAlreadyCompleted
	}
	if !mu.HasParticipant(winnerID) {
		return ErrNotParticipant
	}

	mu.WinnerID = &winnerID
	mu.Completed = true
	if err := tx.Save(mu).Error; err != nil {
		return err
	}

	if mu.Player1ID != nil && mu.Player2ID != nil {
		loser := mu.OpponentOf(winnerID)
		if _, err := s.Rating.ApplyResult(tx, winnerID, true); err != nil {
			return err
		}
		if _, err := s.Rating.ApplyResult(tx, *loser, false); err != nil {
			return err
		}
	}

	if t.Status == models.TournamentScheduled {
		t.Status = models.TournamentInProgress
	}

	rounds := RoundsForCapacity(t.Capacity)
	if mu.Round == rounds-1 {
		t.Status = models.TournamentComplete
		t.WinnerID = &winnerID
		if t.PrizePool > 0 {
			if err := s.Ledger.Post(tx, winnerID, t.PrizePool, models.LedgerPayout, nil, &t.ID); err != nil {
				return err
			}
		}
		s.Notify.Send(winnerID, fmt.Sprintf("You are the %s champion! %s has been added to your wallet.", t.Name, FormatCoins(t.PrizePool)), "tournament")
		return nil
	}

	nextRound, nextIndex, side := NextSlot(mu.Round, mu.Index)
	var next models.BracketMatchup
	err := forUpdate(tx).
		First(&next, "tournament_id = ? AND round = ? AND idx = ?", t.ID, nextRound, nextIndex).Error
	if err != nil {
		return fmt.Errorf("advance into round %d slot %d: %w", nextRound, nextIndex, err)
	}
	if side == 0 {
		next.Player1ID = &winnerID
	} else {
		next.Player2ID = &winnerID
	}
	return tx.Save(&next).Error
}

// ClaimMatchupNoShow hands the matchup to a present player whose opponent
// never showed. Same grace window as 1v1 no-show claims.
func (s *TournamentService) ClaimMatchupNoShow(tournamentID, matchupID, claimantID string, now time.Time) (*models.BracketMatchup, error) {
	var out *models.BracketMatchup
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		t, err := s.lockTournament(tx, tournamentID)
		if err != nil {
			return err
		}
		mu, err := s.lockMatchup(tx, tournamentID, matchupID)
		if err != nil {
			return err
		}
		if mu.Completed {
			return ErrAlreadyCompleted
		}
		if !mu.HasParticipant(claimantID) {
			return ErrNotParticipant
		}
		if mu.Player1ID == nil || mu.Player2ID == nil {
			return ErrNoOpponent
		}
		if now.Before(mu.ScheduledAt.Add(s.Cfg.NoShowGrace)) {
			return ErrTooEarlyToClaim
		}

		mu.NoShow = true
		mu.NoShowClaimedBy = &claimantID
		mu.NoShowClaimedAt = &now
		if err := s.completeMatchupLocked(tx, t, mu, claimantID, now); err != nil {
			return err
		}
		out = mu
		return tx.Save(t).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AutoAdvanceStale sweeps matchups that sat unreported for a full round
// cadence past their scheduled time and advances whoever is present,
// preferring slot one. Matchups with both slots empty are left for the
// next sweep; their feeders have not resolved yet.
func (s *TournamentService) AutoAdvanceStale(now time.Time) (int, error) {
	cutoff := now.Add(-RoundCadence)
	var stale []models.BracketMatchup
	err := s.DB.
		Where("completed = ? AND scheduled_at < ?", false, cutoff).
		Where("player1_id IS NOT NULL OR player2_id IS NOT NULL").
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	advanced := 0
	for _, candidate := range stale {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			t, err := s.lockTournament(tx, candidate.TournamentID)
			if err != nil {
				return err
			}
			mu, err := s.lockMatchup(tx, candidate.TournamentID, candidate.ID)
			if err != nil {
				return err
			}
			if mu.Completed {
				return nil
			}
			winner := mu.Player1ID
			if winner == nil {
				winner = mu.Player2ID
			}
			if winner == nil {
				return nil
			}
			if err := s.completeMatchupLocked(tx, t, mu, *winner, now); err != nil {
				return err
			}
			advanced++
			return tx.Save(t).Error
		})
		if err != nil {
			return advanced, err
		}
	}
	return advanced, nil
}

// ---- HTTP surface ----

func (s *TournamentService) CreateTournamentHandler(c *fiber.Ctx) error {
	var caller models.PlayerAccount
	if err := s.DB.First(&caller, "id = ?", userID(c)).Error; err != nil || !caller.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin only"})
	}

	var req struct {
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
		EntryFee int64  `json:"entry_fee"`
		Division string `json:"division"`
		Platform string `json:"platform"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	t, err := s.Create(req.Name, req.Capacity, req.EntryFee, req.Division, req.Platform)
	if err != nil {
		return httpError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (s *TournamentService) ListTournamentsHandler(c *fiber.Ctx) error {
	q := s.DB.Preload("Entries")
	if division := c.Query("division"); division != "" {
		q = q.Where("division = ?", division)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	} else {
		q = q.Where("status <> ?", models.TournamentComplete)
	}
	var tournaments []models.Tournament
	if err := q.Order("created_at DESC").Find(&tournaments).Error; err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"tournaments": tournaments})
}

func (s *TournamentService) GetTournamentHandler(c *fiber.Ctx) error {
	var t models.Tournament
	err := s.DB.Preload("Entries").Preload("Matchups").First(&t, "id = ?", c.Params("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(c, ErrTournamentNotFound)
		}
		return httpError(c, err)
	}
	return c.JSON(t)
}

func (s *TournamentService) JoinTournamentHandler(c *fiber.Ctx) error {
	t, err := s.Join(c.Params("id"), userID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(t)
}

func (s *TournamentService) ReportMatchupHandler(c *fiber.Ctx) error {
	var req struct {
		WinnerID string `json:"winner_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	mu, err := s.ReportMatchupWinner(c.Params("id"), c.Params("matchupId"), req.WinnerID, userID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(mu)
}

func (s *TournamentService) ClaimMatchupNoShowHandler(c *fiber.Ctx) error {
	mu, err := s.ClaimMatchupNoShow(c.Params("id"), c.Params("matchupId"), userID(c), time.Now())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(mu)
}
