package models

import "time"

// TournamentStatus tracks the bracket container's lifecycle.
type TournamentStatus string

const (
	TournamentWaiting    TournamentStatus = "waiting"   // collecting participants
	TournamentScheduled  TournamentStatus = "scheduled" // full, bracket generated
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentComplete   TournamentStatus = "complete"
)

// Tournament is a single-use capacity container. Once the participant list
// reaches Capacity the bracket is generated exactly once, the tournament is
// marked scheduled, and a fresh empty copy with the same configuration is
// spawned to absorb further joiners.
type Tournament struct {
	ID        string           `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string           `gorm:"not null" json:"name"`
	Capacity  int              `json:"capacity" gorm:"not null"` // power of two
	EntryFee  int64            `json:"entry_fee" gorm:"default:0"`
	PrizePool int64            `json:"prize_pool" gorm:"default:0"`
	Division  string           `json:"division" gorm:"type:varchar(16)"`
	Platform  string           `json:"platform"`
	Status    TournamentStatus `json:"status" gorm:"type:varchar(16);not null;default:'waiting';index"`
	StartDate *time.Time       `json:"start_date,omitempty"`
	WinnerID  *string          `json:"winner_id,omitempty"`

	Entries  []TournamentEntry `json:"entries,omitempty" gorm:"foreignKey:TournamentID"`
	Matchups []BracketMatchup  `json:"matchups,omitempty" gorm:"foreignKey:TournamentID"`

	Timestamps
}

// TournamentEntry records one participant. Seat preserves join order and
// drives round-1 seeding.
type TournamentEntry struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	TournamentID string    `gorm:"not null;uniqueIndex:idx_tournament_user" json:"tournament_id"`
	UserID       string    `gorm:"not null;uniqueIndex:idx_tournament_user" json:"user_id"`
	Seat         int       `json:"seat"`
	JoinedAt     time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// BracketMatchup is one node of the round tree. Round and Index are
// zero-based; the winner of (r, i) advances into (r+1, i/2) slot i%2.
// A completed matchup's winner must be one of its two participant slots,
// and a completed matchup is never re-opened.
type BracketMatchup struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	TournamentID string `gorm:"not null;uniqueIndex:idx_bracket_slot" json:"tournament_id"`
	Round        int    `gorm:"not null;uniqueIndex:idx_bracket_slot" json:"round"`
	Index        int    `gorm:"column:idx;not null;uniqueIndex:idx_bracket_slot" json:"index"`

	Player1ID *string `json:"player1_id,omitempty"`
	Player2ID *string `json:"player2_id,omitempty"`
	WinnerID  *string `json:"winner_id,omitempty"`
	Completed bool    `json:"completed" gorm:"default:false"`
	NoShow    bool    `json:"no_show" gorm:"default:false"`

	ScheduledAt     time.Time  `json:"scheduled_at"`
	NoShowClaimedBy *string    `json:"no_show_claimed_by,omitempty"`
	NoShowClaimedAt *time.Time `json:"no_show_claimed_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// HasParticipant reports whether userID occupies one of the two slots.
func (m *BracketMatchup) HasParticipant(userID string) bool {
	if m.Player1ID != nil && *m.Player1ID == userID {
		return true
	}
	return m.Player2ID != nil && *m.Player2ID == userID
}

// OpponentOf returns the other slot's participant, or nil.
func (m *BracketMatchup) OpponentOf(userID string) *string {
	if m.Player1ID != nil && *m.Player1ID == userID {
		return m.Player2ID
	}
	if m.Player2ID != nil && *m.Player2ID == userID {
		return m.Player1ID
	}
	return nil
}
