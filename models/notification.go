package models

import "time"

// Notification is a fire-and-forget message row; the delivery transport
// (push/email) consumes it out of band. A failed insert is logged and
// swallowed; it must never roll back a settlement.
type Notification struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Type      string    `gorm:"type:varchar(16);default:'info'" json:"type"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
