package models

import "time"

// MatchStatus is the closed set of lifecycle states for a 1v1 wager.
type MatchStatus string

const (
	MatchOpen      MatchStatus = "open"       // created, waiting for a second party
	MatchPending   MatchStatus = "pending"    // joined, pre-play confirmation window
	MatchBackedOut MatchStatus = "backed_out" // joiner left during pending; joinable again until expiry
	MatchActive    MatchStatus = "active"     // both parties confirmed, expiry disabled
	MatchCompleted MatchStatus = "completed"
	MatchDisputed  MatchStatus = "disputed"
	MatchVoid      MatchStatus = "void"
	MatchCancelled MatchStatus = "cancelled"
	MatchExpired   MatchStatus = "expired"
)

// Terminal reports whether no further transition is permitted. A disputed
// match is terminal for the automatic engine; only the admin override path
// may move it.
func (s MatchStatus) Terminal() bool {
	switch s {
	case MatchCompleted, MatchDisputed, MatchVoid, MatchCancelled, MatchExpired:
		return true
	}
	return false
}

// OutcomeReport is one party's self-reported result. A report is settable
// at most once per party and immutable once set.
type OutcomeReport string

const (
	ReportWin       OutcomeReport = "win"
	ReportLoss      OutcomeReport = "loss"
	ReportDraw      OutcomeReport = "draw"
	ReportBackedOut OutcomeReport = "backed_out"
)

func (r OutcomeReport) Valid() bool {
	switch r {
	case ReportWin, ReportLoss, ReportDraw, ReportBackedOut:
		return true
	}
	return false
}

// Match is a wager contract between exactly two players. Rows are never
// deleted; a terminal match is the audit trail of its own settlement.
// Fee and Payout stay zero until resolution.
type Match struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	CreatorID string  `gorm:"index;not null" json:"creator_id"`
	JoinerID  *string `gorm:"index" json:"joiner_id,omitempty"`

	Wager  int64 `json:"wager" gorm:"not null"`
	Fee    int64 `json:"fee" gorm:"default:0"`
	Payout int64 `json:"payout" gorm:"default:0"`

	Status   MatchStatus `json:"status" gorm:"type:varchar(16);not null;default:'open';index"`
	Division string      `json:"division" gorm:"type:varchar(16);not null"`
	Platform string      `json:"platform,omitempty"`

	CreatorReport *OutcomeReport `json:"creator_report,omitempty" gorm:"type:varchar(16)"`
	JoinerReport  *OutcomeReport `json:"joiner_report,omitempty" gorm:"type:varchar(16)"`

	WinnerID        *string    `json:"winner_id,omitempty" gorm:"index"`
	NoShow          bool       `json:"no_show" gorm:"default:false"`
	NoShowClaimedBy *string    `json:"no_show_claimed_by,omitempty"`
	NoShowClaimedAt *time.Time `json:"no_show_claimed_at,omitempty"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" gorm:"index"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`

	Timestamps
}

// ReportFor returns the stored report for the given participant, or nil.
func (m *Match) ReportFor(userID string) *OutcomeReport {
	switch {
	case userID == m.CreatorID:
		return m.CreatorReport
	case m.JoinerID != nil && userID == *m.JoinerID:
		return m.JoinerReport
	}
	return nil
}

// IsParticipant reports whether userID is one of the two parties.
func (m *Match) IsParticipant(userID string) bool {
	if userID == m.CreatorID {
		return true
	}
	return m.JoinerID != nil && userID == *m.JoinerID
}

// Opponent returns the other party's id, or nil when the match has no
// joiner yet.
func (m *Match) Opponent(userID string) *string {
	if userID == m.CreatorID {
		return m.JoinerID
	}
	if m.JoinerID != nil && userID == *m.JoinerID {
		creator := m.CreatorID
		return &creator
	}
	return nil
}
