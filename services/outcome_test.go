package services

import (
	"testing"

	"wager-settlement-system/models"

	"github.com/stretchr/testify/assert"
)

func TestReconcileAllPairs(t *testing.T) {
	win := models.ReportWin
	loss := models.ReportLoss
	draw := models.ReportDraw
	back := models.ReportBackedOut

	tests := []struct {
		creator, joiner models.OutcomeReport
		want            Resolution
	}{
		{win, loss, ResolutionCreatorWins},
		{loss, win, ResolutionJoinerWins},
		{draw, draw, ResolutionVoid},
		{back, back, ResolutionCancelled},
		{back, win, ResolutionJoinerWins},
		{win, back, ResolutionCreatorWins},

		{win, win, ResolutionDisputed},
		{loss, loss, ResolutionDisputed},
		{draw, win, ResolutionDisputed},
		{draw, loss, ResolutionDisputed},
		{win, draw, ResolutionDisputed},
		{loss, draw, ResolutionDisputed},
		{back, loss, ResolutionDisputed},
		{loss, back, ResolutionDisputed},
		{back, draw, ResolutionDisputed},
		{draw, back, ResolutionDisputed},

		{"", win, ResolutionPending},
		{win, "", ResolutionPending},
		{"", "", ResolutionPending},
	}
	for _, tt := range tests {
		got := Reconcile(tt.creator, tt.joiner)
		assert.Equal(t, tt.want, got, "creator=%q joiner=%q", tt.creator, tt.joiner)
	}
}
