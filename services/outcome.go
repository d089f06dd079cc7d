package services

import "wager-settlement-system/models"

// Resolution is the engine's verdict over a pair of outcome reports.
type Resolution int

const (
	ResolutionPending     Resolution = iota // still waiting on a report
	ResolutionCreatorWins                   // consistent pair, creator won
	ResolutionJoinerWins                    // consistent pair, joiner won
	ResolutionVoid                          // both reported draw; refund, no rating change
	ResolutionCancelled                     // both backed out; no money movement
	ResolutionDisputed                      // inconsistent pair; held for admin review
)

// Reconcile examines the report pair and nothing else, so the two
// submissions commute regardless of arrival order. One party backing out
// while the other claims a win resolves cleanly for the claimant. Any
// genuinely inconsistent pair (win/win, loss/loss, a lone draw) is a
// dispute, which is a valid terminal state rather than an error.
func Reconcile(creator, joiner models.OutcomeReport) Resolution {
	switch {
	case creator == "" || joiner == "":
		return ResolutionPending
	case creator == models.ReportWin && joiner == models.ReportLoss:
		return ResolutionCreatorWins
	case creator == models.ReportLoss && joiner == models.ReportWin:
		return ResolutionJoinerWins
	case creator == models.ReportDraw && joiner == models.ReportDraw:
		return ResolutionVoid
	case creator == models.ReportBackedOut && joiner == models.ReportBackedOut:
		return ResolutionCancelled
	case creator == models.ReportBackedOut && joiner == models.ReportWin:
		return ResolutionJoinerWins
	case creator == models.ReportWin && joiner == models.ReportBackedOut:
		return ResolutionCreatorWins
	default:
		return ResolutionDisputed
	}
}
