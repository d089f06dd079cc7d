package services

import (
	"log"

	"wager-settlement-system/models"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

var coinPrinter = message.NewPrinter(language.English)

// FormatCoins renders an amount with thousands separators, e.g. "1,000 TC".
func FormatCoins(amount int64) string {
	return coinPrinter.Sprintf("%d TC", amount)
}

// pendingNote is a notification composed inside a settlement transaction
// but only written after it commits.
type pendingNote struct {
	UserID  string
	Message string
	Type    string
}

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Send inserts one notification row. Delivery is the transport's job; a
// failed insert is logged and swallowed so it can never undo a settlement.
func (s *NotificationService) Send(userID, msg, typ string) {
	n := models.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Message: msg,
		Type:    typ,
	}
	if err := s.DB.Create(&n).Error; err != nil {
		log.Printf("[notify] failed to write notification for %s: %v", userID, err)
	}
}

// Flush sends a batch of notes composed during a transaction.
func (s *NotificationService) Flush(notes []pendingNote) {
	for _, n := range notes {
		s.Send(n.UserID, n.Message, n.Type)
	}
}
