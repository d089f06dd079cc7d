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

// MatchService drives the 1v1 wager lifecycle from creation through
// settlement. Every transition that moves money or ratings runs in a
// single transaction with the match row locked, so concurrent submissions
// serialize and the loser of the race sees the already-applied state.
type MatchService struct {
	DB       *gorm.DB
	Cfg      SettlementConfig
	Ledger   *LedgerService
	Rating   *RatingService
	Referral *ReferralService
	Notify   *NotificationService
}

func NewMatchService(db *gorm.DB, cfg SettlementConfig, ledger *LedgerService, rating *RatingService, referral *ReferralService, notify *NotificationService) *MatchService {
	return &MatchService{DB: db, Cfg: cfg, Ledger: ledger, Rating: rating, Referral: referral, Notify: notify}
}

func (s *MatchService) lockMatch(tx *gorm.DB, matchID string) (*models.Match, error) {
	var m models.Match
	if err := forUpdate(tx).First(&m, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Create opens a new wager in the creator's division. No coins move at
// creation; stakes are settled from the pot at resolution.
func (s *MatchService) Create(creatorID string, wager int64, platform string) (*models.Match, error) {
	if wager <= 0 {
		return nil, ErrInvalidWager
	}
	var creator models.PlayerAccount
	if err := s.DB.First(&creator, "id = ?", creatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	m := models.Match{
		ID:        uuid.NewString(),
		CreatorID: creatorID,
		Wager:     wager,
		Status:    models.MatchOpen,
		Division:  creator.Division,
		Platform:  platform,
	}
	if err := s.DB.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// Join claims the open slot. A match abandoned by a previous joiner
// (backed_out) is joinable again until it expires; taking it resets the
// reports and restarts the confirmation window.
func (s *MatchService) Join(matchID, joinerID string) (*models.Match, error) {
	var out *models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := s.lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if m.Status != models.MatchOpen && m.Status != models.MatchBackedOut {
			if m.Status == models.MatchPending || m.Status == models.MatchActive {
				return ErrMatchAlreadyFull
			}
			return ErrMatchNotJoinable
		}
		if joinerID == m.CreatorID {
			return ErrSelfJoin
		}

		var joiner models.PlayerAccount
		if err := tx.First(&joiner, "id = ?", joinerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		if joiner.Division != m.Division {
			return ErrDivisionMismatch
		}

		expires := time.Now().Add(s.Cfg.PendingMatchTTL)
		m.JoinerID = &joinerID
		m.Status = models.MatchPending
		m.CreatorReport = nil
		m.JoinerReport = nil
		m.ExpiresAt = &expires
		out = m
		return tx.Save(m).Error
	})
	if err != nil {
		return nil, err
	}
	s.Notify.Send(out.CreatorID, "Your match has been joined. Confirm to start playing.", "match")
	return out, nil
}

// KeepAlive pushes the pending expiry forward by one full window. Either
// participant can call it while the pair coordinates.
func (s *MatchService) KeepAlive(matchID, userID string) (*models.Match, error) {
	var out *models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := s.lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if !m.IsParticipant(userID) {
			return ErrNotParticipant
		}
		if m.Status != models.MatchPending {
			return ErrWrongMatchState
		}
		expires := time.Now().Add(s.Cfg.PendingMatchTTL)
		m.ExpiresAt = &expires
		out = m
		return tx.Save(m).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Start confirms the pairing and begins play. The expiry clock stops; a
// match that has started can only end through reports, a no-show claim or
// the admin path.
func (s *MatchService) Start(matchID, userID string) (*models.Match, error) {
	var out *models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := s.lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if !m.IsParticipant(userID) {
			return ErrNotParticipant
		}
		if m.Status == models.MatchActive {
			out = m
			return nil
		}
		if m.Status != models.MatchPending {
			return ErrWrongMatchState
		}
		now := time.Now()
		m.Status = models.MatchActive
		m.ExpiresAt = nil
		if m.ScheduledAt == nil {
			m.ScheduledAt = &now
		}
		out = m
		return tx.Save(m).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BackOut lets the joiner abandon a pending match before it starts. The
// slot reopens for anyone in the division until the expiry sweep collects
// it. Backing out of an active match goes through SubmitReport instead.
func (s *MatchService) BackOut(matchID, userID string) (*models.Match, error) {
	var out *models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := s.lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if m.Status != models.MatchPending {
			return ErrWrongMatchState
		}
		if m.JoinerID == nil || *m.JoinerID != userID {
			return ErrNotParticipant
		}
		expires := time.Now().Add(s.Cfg.PendingMatchTTL)
		m.JoinerID = nil
		m.Status = models.MatchBackedOut
		m.CreatorReport = nil
		m.JoinerReport = nil
		m.ExpiresAt = &expires
		out = m
		return tx.Save(m).Error
	})
	if err != nil {
		return nil, err
	}
	s.Notify.Send(out.CreatorID, "Your opponent backed out. The match is open again.", "match")
	return out, nil
}

// Cancel withdraws an open match. Only the creator can do it, and only
// before anyone has joined.
func (s *MatchService) Cancel(matchID, userID string) (*models.Match, error) {
	var out *models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := s.lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if m.CreatorID != userID {
			return ErrNotParticipant
		}
		if m.Status != models.MatchOpen && m.Status != models.MatchBackedOut {
			return ErrWrongMatchState
		}
		now := time.Now()
		m.Status = models.MatchCancelled
		m.ResolvedAt = &now
		out = m
		return tx.Save(m).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitReport records one party's result. Reports are write-once; the
// moment both are present the pair is reconciled and the match settles in
// the same transaction, so a settled match and its ledger rows appear
// atomically.
func (s *MatchService) SubmitReport(matchID, userID string, report models.OutcomeReport) (*models.Match, error) {
	if !report.Valid() {
		return nil, ErrInvalidReport
	}
	var out *models.Match
	var notes []pendingNote
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := s.lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if !m.IsParticipant(userID) {
			return ErrNotParticipant
		}
		if m.Status.Terminal() {
			return ErrAlreadyCompleted
		}
		if m.Status != models.MatchActive {
			return ErrWrongMatchState
		}
		if m.ReportFor(userID) != nil {
			return ErrAlreadyReported
		}

		if userID == m.CreatorID {
			m.CreatorReport = &report
		} else {
			m.JoinerReport = &report
		}
		if err := tx.Save(m).Error; err != nil {
			return err
		}

		if m.CreatorReport != nil && m.JoinerReport != nil {
			res := Reconcile(*m.CreatorReport, *m.JoinerReport)
			notes, err = s.resolveLocked(tx, m, res)
			if err != nil {
				return err
			}
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Notify.Flush(notes)
	return out, nil
}

// resolveLocked applies a reconciliation verdict to a locked, non-terminal
// match. Caller holds the row lock and the transaction.
func (s *MatchService) resolveLocked(tx *gorm.DB, m *models.Match, res Resolution) ([]pendingNote, error) {
	now := time.Now()
	switch res {
	case ResolutionPending:
		return nil, nil

	case ResolutionCreatorWins:
		return s.settleWin(tx, m, m.CreatorID, *m.JoinerID, now)

	case ResolutionJoinerWins:
		return s.settleWin(tx, m, *m.JoinerID, m.CreatorID, now)

	case ResolutionVoid:
		m.Status = models.MatchVoid
		m.ResolvedAt = &now
		if err := tx.Save(m).Error; err != nil {
			return nil, err
		}
		for _, uid := range []string{m.CreatorID, *m.JoinerID} {
			if err := s.Ledger.Post(tx, uid, m.Wager, models.LedgerRefund, &m.ID, nil); err != nil {
				return nil, err
			}
		}
		note := fmt.Sprintf("Match voided as a draw. Your stake of %s was returned.", FormatCoins(m.Wager))
		return []pendingNote{
			{UserID: m.CreatorID, Message: note, Type: "match"},
			{UserID: *m.JoinerID, Message: note, Type: "match"},
		}, nil

	case ResolutionCancelled:
		m.Status = models.MatchCancelled
		m.ResolvedAt = &now
		return nil, tx.Save(m).Error

	case ResolutionDisputed:
		m.Status = models.MatchDisputed
		m.ResolvedAt = &now
		if err := tx.Save(m).Error; err != nil {
			return nil, err
		}
		note := "Your match reports conflict and are under review."
		return []pendingNote{
			{UserID: m.CreatorID, Message: note, Type: "dispute"},
			{UserID: *m.JoinerID, Message: note, Type: "dispute"},
		}, nil
	}
	return nil, fmt.Errorf("unhandled resolution %d", res)
}

// settleWin is the single money-and-rating path for a decided match. The
// fee comes out of the pot before the winner is paid, unless the winner
// holds an active subscription at this instant.
func (s *MatchService) settleWin(tx *gorm.DB, m *models.Match, winnerID, loserID string, now time.Time) ([]pendingNote, error) {
	var winner models.PlayerAccount
	if err := forUpdate(tx).First(&winner, "id = ?", winnerID).Error; err != nil {
		return nil, fmt.Errorf("load winner %s: %w", winnerID, err)
	}

	fee, payout := ComputePayout(m.Wager, s.Cfg.FeeRate, winner.FeeExempt(now))
	m.Status = models.MatchCompleted
	m.WinnerID = &winnerID
	m.Fee = fee
	m.Payout = payout
	m.ResolvedAt = &now
	if err := tx.Save(m).Error; err != nil {
		return nil, err
	}

	if err := s.Ledger.Post(tx, winnerID, payout, models.LedgerPayout, &m.ID, nil); err != nil {
		return nil, err
	}
	if fee > 0 {
		if err := s.Ledger.Post(tx, s.Cfg.FeeAccountID, fee, models.LedgerFee, &m.ID, nil); err != nil {
			return nil, err
		}
	}

	winnerAcct, err := s.Rating.ApplyResult(tx, winnerID, true)
	if err != nil {
		return nil, err
	}
	loserAcct, err := s.Rating.ApplyResult(tx, loserID, false)
	if err != nil {
		return nil, err
	}

	notes := []pendingNote{
		{UserID: winnerID, Message: fmt.Sprintf("You won! %s has been added to your wallet.", FormatCoins(payout)), Type: "match"},
		{UserID: loserID, Message: "Match complete. Better luck next time.", Type: "match"},
	}

	// Both accounts come back from the rating pass locked and with
	// counters already incremented.
	for _, acct := range []*models.PlayerAccount{winnerAcct, loserAcct} {
		award, err := s.Referral.MaybeAward(tx, acct, &m.ID)
		if err != nil {
			return nil, err
		}
		if award != nil {
			bonusNote := fmt.Sprintf("Referral bonus! %s has been added to your wallet.", FormatCoins(award.Amount))
			notes = append(notes, pendingNote{UserID: award.ReferredID, Message: bonusNote, Type: "referral"})
			if award.ReferrerID != nil {
				notes = append(notes, pendingNote{UserID: *award.ReferrerID, Message: bonusNote, Type: "referral"})
			}
		}
	}

	return notes, nil
}

// ClaimNoShow awards the match by forfeit to a participant whose opponent
// never showed. Claims open only after the grace period past the scheduled
// start, and settle exactly like a reported win.
func (s *MatchService) ClaimNoShow(matchID, claimantID string, now time.Time) (*models.Match, error) {
	var out *models.Match
	var notes []pendingNote
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := s.lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if m.Status.Terminal() {
			return ErrAlreadyCompleted
		}
		if m.Status != models.MatchActive {
			return ErrWrongMatchState
		}
		if !m.IsParticipant(claimantID) {
			return ErrNotParticipant
		}
		opponent := m.Opponent(claimantID)
		if opponent == nil {
			return ErrNoOpponent
		}
		if m.ReportFor(*opponent) != nil {
			return ErrOpponentReported
		}
		if m.ScheduledAt == nil {
			return ErrMissingSchedule
		}
		if now.Before(m.ScheduledAt.Add(s.Cfg.NoShowGrace)) {
			return ErrTooEarlyToClaim
		}

		m.NoShow = true
		m.NoShowClaimedBy = &claimantID
		m.NoShowClaimedAt = &now
		notes, err = s.settleWin(tx, m, claimantID, *opponent, now)
		out = m
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Notify.Flush(notes)
	return out, nil
}

// ResolveDispute is the admin override for a disputed match. The decision
// is either a winner (settled like a normal win) or a void (both stakes
// refunded). This is the only path out of the disputed state.
func (s *MatchService) ResolveDispute(matchID, winnerID string, void bool) (*models.Match, error) {
	var out *models.Match
	var notes []pendingNote
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		m, err := s.lockMatch(tx, matchID)
		if err != nil {
			return err
		}
		if m.Status != models.MatchDisputed {
			return ErrNotDisputed
		}
		now := time.Now()
		if void {
			m.Status = models.MatchVoid
			m.ResolvedAt = &now
			if err := tx.Save(m).Error; err != nil {
				return err
			}
			for _, uid := range []string{m.CreatorID, *m.JoinerID} {
				if err := s.Ledger.Post(tx, uid, m.Wager, models.LedgerRefund, &m.ID, nil); err != nil {
					return err
				}
			}
			note := "A moderator voided your disputed match. Your stake was returned."
			notes = []pendingNote{
				{UserID: m.CreatorID, Message: note, Type: "dispute"},
				{UserID: *m.JoinerID, Message: note, Type: "dispute"},
			}
			out = m
			return nil
		}
		if !m.IsParticipant(winnerID) {
			return ErrNotParticipant
		}
		loser := m.Opponent(winnerID)
		notes, err = s.settleWin(tx, m, winnerID, *loser, now)
		out = m
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Notify.Flush(notes)
	return out, nil
}

// ExpireStale sweeps pending and abandoned matches whose confirmation
// window lapsed. No money has moved on these, so expiry is a pure status
// flip. Returns how many rows it collected.
func (s *MatchService) ExpireStale(now time.Time) (int64, error) {
	res := s.DB.Model(&models.Match{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?",
			[]models.MatchStatus{models.MatchPending, models.MatchBackedOut}, now).
		Updates(map[string]interface{}{
			"status":      models.MatchExpired,
			"resolved_at": now,
		})
	return res.RowsAffected, res.Error
}

// ---- HTTP surface ----

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func (s *MatchService) CreateMatchHandler(c *fiber.Ctx) error {
	var req struct {
		Wager    int64  `json:"wager"`
		Platform string `json:"platform"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	m, err := s.Create(userID(c), req.Wager, req.Platform)
	if err != nil {
		return httpError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (s *MatchService) ListOpenMatchesHandler(c *fiber.Ctx) error {
	q := s.DB.Where("status IN ?", []models.MatchStatus{models.MatchOpen, models.MatchBackedOut})
	if division := c.Query("division"); division != "" {
		q = q.Where("division = ?", division)
	}
	var matches []models.Match
	if err := q.Order("created_at DESC").Limit(100).Find(&matches).Error; err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"matches": matches})
}

func (s *MatchService) GetMatchHandler(c *fiber.Ctx) error {
	var m models.Match
	if err := s.DB.First(&m, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpError(c, ErrMatchNotFound)
		}
		return httpError(c, err)
	}
	return c.JSON(m)
}

func (s *MatchService) JoinMatchHandler(c *fiber.Ctx) error {
	m, err := s.Join(c.Params("id"), userID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(m)
}

func (s *MatchService) StartMatchHandler(c *fiber.Ctx) error {
	m, err := s.Start(c.Params("id"), userID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(m)
}

func (s *MatchService) KeepAliveHandler(c *fiber.Ctx) error {
	m, err := s.KeepAlive(c.Params("id"), userID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"expires_at": m.ExpiresAt})
}

func (s *MatchService) BackOutHandler(c *fiber.Ctx) error {
	m, err := s.BackOut(c.Params("id"), userID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(m)
}

func (s *MatchService) CancelMatchHandler(c *fiber.Ctx) error {
	m, err := s.Cancel(c.Params("id"), userID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(m)
}

func (s *MatchService) ReportHandler(c *fiber.Ctx) error {
	var req struct {
		Result models.OutcomeReport `json:"result"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	m, err := s.SubmitReport(c.Params("id"), userID(c), req.Result)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(m)
}

func (s *MatchService) ClaimNoShowHandler(c *fiber.Ctx) error {
	m, err := s.ClaimNoShow(c.Params("id"), userID(c), time.Now())
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(m)
}

func (s *MatchService) ResolveDisputeHandler(c *fiber.Ctx) error {
	var caller models.PlayerAccount
	if err := s.DB.First(&caller, "id = ?", userID(c)).Error; err != nil || !caller.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin only"})
	}

	var req struct {
		WinnerID string `json:"winner_id"`
		Void     bool   `json:"void"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	m, err := s.ResolveDispute(c.Params("id"), req.WinnerID, req.Void)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(m)
}
