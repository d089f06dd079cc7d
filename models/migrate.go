package models

import "gorm.io/gorm"

// AutoMigrate creates the full schema. main and the test helpers share this
// list so the two never drift.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&PlayerAccount{},
		&Match{},
		&LedgerEntry{},
		&Tournament{},
		&TournamentEntry{},
		&BracketMatchup{},
		&ReferralAward{},
		&Notification{},
	)
}
