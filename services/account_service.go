package services

import (
	"errors"

	"wager-settlement-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountService struct {
	DB     *gorm.DB
	Rating *RatingService
}

func NewAccountService(db *gorm.DB, rating *RatingService) *AccountService {
	return &AccountService{DB: db, Rating: rating}
}

// CreateAccount registers a player. New accounts enter Rookie at the
// starting elo with a fresh referral code; an optional referral code from
// another player is stored but not paid until the first match settles.
func (s *AccountService) CreateAccount(id, username string, referredBy *string) (*models.PlayerAccount, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if id == "" {
		id = uuid.NewString()
	}

	var taken int64
	if err := s.DB.Model(&models.PlayerAccount{}).Where("username = ?", username).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, ErrUsernameTaken
	}

	acct := models.PlayerAccount{
		ID:           id,
		Username:     username,
		Elo:          StartingElo,
		Division:     models.DivisionRookie,
		ReferralCode: GenerateReferralCode(username),
		ReferredBy:   referredBy,
	}
	if err := s.DB.Create(&acct).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

// EnsureAccount creates the account if it does not exist yet. Used at
// startup for the fee wallet and by the gateway path for first-seen users.
func (s *AccountService) EnsureAccount(id, username string) (*models.PlayerAccount, error) {
	var acct models.PlayerAccount
	err := s.DB.First(&acct, "id = ?", id).Error
	if err == nil {
		return &acct, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.CreateAccount(id, username, nil)
}

func (s *AccountService) Get(id string) (*models.PlayerAccount, error) {
	var acct models.PlayerAccount
	if err := s.DB.First(&acct, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// ---- HTTP surface ----

func (s *AccountService) CreateAccountHandler(c *fiber.Ctx) error {
	var req struct {
		Username   string  `json:"username"`
		ReferredBy *string `json:"referred_by,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	acct, err := s.CreateAccount(userID(c), req.Username, req.ReferredBy)
	if err != nil {
		return httpError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(acct)
}

func (s *AccountService) GetMeHandler(c *fiber.Ctx) error {
	acct, err := s.Get(userID(c))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(acct)
}

func (s *AccountService) GetAccountHandler(c *fiber.Ctx) error {
	acct, err := s.Get(c.Params("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(acct)
}

func (s *AccountService) GetLedgerHandler(c *fiber.Ctx) error {
	var entries []models.LedgerEntry
	err := s.DB.Where("user_id = ?", userID(c)).
		Order("created_at DESC").Limit(200).Find(&entries).Error
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"entries": entries})
}

func (s *AccountService) GetNotificationsHandler(c *fiber.Ctx) error {
	var notes []models.Notification
	err := s.DB.Where("user_id = ?", userID(c)).
		Order("created_at DESC").Limit(50).Find(&notes).Error
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"notifications": notes})
}

// SetDivisionHandler is the admin override that pins a player to a
// division. The rating service rewrites elo to the division floor so the
// two never disagree.
func (s *AccountService) SetDivisionHandler(c *fiber.Ctx) error {
	var caller models.PlayerAccount
	if err := s.DB.First(&caller, "id = ?", userID(c)).Error; err != nil || !caller.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin only"})
	}

	var req struct {
		Division string `json:"division"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := s.Rating.SetDivision(c.Params("id"), req.Division); err != nil {
		return httpError(c, err)
	}
	acct, err := s.Get(c.Params("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(acct)
}
