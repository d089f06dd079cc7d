package services

import (
	"testing"
	"time"

	"wager-settlement-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMatchValidation(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)

	_, err := e.matches.Create(creator.ID, 0, "psn")
	assert.ErrorIs(t, err, ErrInvalidWager)

	_, err = e.matches.Create(creator.ID, -50, "psn")
	assert.ErrorIs(t, err, ErrInvalidWager)

	_, err = e.matches.Create("ghost", 100, "psn")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	m, err := e.matches.Create(creator.ID, 100, "psn")
	require.NoError(t, err)
	assert.Equal(t, models.MatchOpen, m.Status)
	assert.Equal(t, creator.Division, m.Division)
	assert.Zero(t, m.Fee)
	assert.Zero(t, m.Payout)
}

func TestJoinMatchGuards(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	outsider := newPlayer(t, e.db, withDivision(models.DivisionPro))

	m, err := e.matches.Create(creator.ID, 100, "psn")
	require.NoError(t, err)

	_, err = e.matches.Join(m.ID, creator.ID)
	assert.ErrorIs(t, err, ErrSelfJoin)

	_, err = e.matches.Join(m.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrDivisionMismatch)

	joined, err := e.matches.Join(m.ID, joiner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchPending, joined.Status)
	require.NotNil(t, joined.ExpiresAt)

	// Slot is taken now.
	third := newPlayer(t, e.db)
	_, err = e.matches.Join(m.ID, third.ID)
	assert.ErrorIs(t, err, ErrMatchAlreadyFull)
}

func TestWinSettlesMoneyAndRatings(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.SubmitReport(m.ID, creator.ID, models.ReportWin)
	require.NoError(t, err)
	m, err = e.matches.SubmitReport(m.ID, joiner.ID, models.ReportLoss)
	require.NoError(t, err)

	assert.Equal(t, models.MatchCompleted, m.Status)
	require.NotNil(t, m.WinnerID)
	assert.Equal(t, creator.ID, *m.WinnerID)
	assert.Equal(t, int64(14), m.Fee)
	assert.Equal(t, int64(186), m.Payout)
	require.NotNil(t, m.ResolvedAt)

	winner := reload(t, e.db, creator.ID)
	loser := reload(t, e.db, joiner.ID)
	assert.Equal(t, int64(186), winner.Balance)
	assert.Equal(t, int64(0), loser.Balance)
	assert.Equal(t, 525, winner.Elo)
	assert.Equal(t, 480, loser.Elo)
	assert.Equal(t, int64(1), winner.Wins)
	assert.Equal(t, int64(1), loser.Losses)
	assert.Equal(t, int64(1), winner.MatchesPlayed)
	assert.Equal(t, int64(1), loser.MatchesPlayed)

	feeWallet := reload(t, e.db, testFeeWallet)
	assert.Equal(t, int64(14), feeWallet.Balance)

	// Every balance must equal its ledger sum.
	for _, id := range []string{creator.ID, joiner.ID, testFeeWallet} {
		sum, err := e.ledger.BalanceFromLedger(id)
		require.NoError(t, err)
		assert.Equal(t, reload(t, e.db, id).Balance, sum)
	}
}

func TestJoinerWinMirrorsCreatorWin(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	// Reports land in the opposite order; the verdict must not care.
	_, err := e.matches.SubmitReport(m.ID, joiner.ID, models.ReportWin)
	require.NoError(t, err)
	m, err = e.matches.SubmitReport(m.ID, creator.ID, models.ReportLoss)
	require.NoError(t, err)

	assert.Equal(t, models.MatchCompleted, m.Status)
	assert.Equal(t, joiner.ID, *m.WinnerID)
	assert.Equal(t, int64(186), reload(t, e.db, joiner.ID).Balance)
}

func TestDrawVoidsAndRefunds(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.SubmitReport(m.ID, creator.ID, models.ReportDraw)
	require.NoError(t, err)
	m, err = e.matches.SubmitReport(m.ID, joiner.ID, models.ReportDraw)
	require.NoError(t, err)

	assert.Equal(t, models.MatchVoid, m.Status)
	assert.Nil(t, m.WinnerID)
	assert.Zero(t, m.Fee)

	for _, id := range []string{creator.ID, joiner.ID} {
		acct := reload(t, e.db, id)
		assert.Equal(t, int64(100), acct.Balance, "stake returned")
		assert.Equal(t, StartingElo, acct.Elo, "void never moves ratings")
		assert.Zero(t, acct.MatchesPlayed)

		entries := ledgerEntries(t, e.db, id)
		require.Len(t, entries, 1)
		assert.Equal(t, models.LedgerRefund, entries[0].Category)
	}
	assert.Equal(t, int64(0), reload(t, e.db, testFeeWallet).Balance)
}

func TestBothBackedOutCancels(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.SubmitReport(m.ID, creator.ID, models.ReportBackedOut)
	require.NoError(t, err)
	m, err = e.matches.SubmitReport(m.ID, joiner.ID, models.ReportBackedOut)
	require.NoError(t, err)

	assert.Equal(t, models.MatchCancelled, m.Status)
	assert.Empty(t, ledgerEntries(t, e.db, creator.ID))
	assert.Empty(t, ledgerEntries(t, e.db, joiner.ID))
}

func TestBackOutBeatsWinClaim(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.SubmitReport(m.ID, joiner.ID, models.ReportBackedOut)
	require.NoError(t, err)
	m, err = e.matches.SubmitReport(m.ID, creator.ID, models.ReportWin)
	require.NoError(t, err)

	assert.Equal(t, models.MatchCompleted, m.Status)
	assert.Equal(t, creator.ID, *m.WinnerID)
}

func TestConflictingReportsDispute(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.SubmitReport(m.ID, creator.ID, models.ReportWin)
	require.NoError(t, err)
	m, err = e.matches.SubmitReport(m.ID, joiner.ID, models.ReportWin)
	require.NoError(t, err)

	assert.Equal(t, models.MatchDisputed, m.Status)
	assert.Nil(t, m.WinnerID)
	assert.Empty(t, ledgerEntries(t, e.db, creator.ID), "no money moves on a dispute")
	assert.Zero(t, reload(t, e.db, creator.ID).MatchesPlayed)
}

func TestAdminResolvesDisputeToWinner(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.SubmitReport(m.ID, creator.ID, models.ReportWin)
	require.NoError(t, err)
	_, err = e.matches.SubmitReport(m.ID, joiner.ID, models.ReportWin)
	require.NoError(t, err)

	m, err = e.matches.ResolveDispute(m.ID, joiner.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, m.Status)
	assert.Equal(t, joiner.ID, *m.WinnerID)
	assert.Equal(t, int64(186), reload(t, e.db, joiner.ID).Balance)

	// Terminal now; a second resolution attempt is rejected.
	_, err = e.matches.ResolveDispute(m.ID, creator.ID, false)
	assert.ErrorIs(t, err, ErrNotDisputed)
}

func TestAdminResolvesDisputeToVoid(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.SubmitReport(m.ID, creator.ID, models.ReportWin)
	require.NoError(t, err)
	_, err = e.matches.SubmitReport(m.ID, joiner.ID, models.ReportWin)
	require.NoError(t, err)

	m, err = e.matches.ResolveDispute(m.ID, "", true)
	require.NoError(t, err)
	assert.Equal(t, models.MatchVoid, m.Status)
	assert.Equal(t, int64(100), reload(t, e.db, creator.ID).Balance)
	assert.Equal(t, int64(100), reload(t, e.db, joiner.ID).Balance)
}

func TestReportsAreWriteOnce(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.SubmitReport(m.ID, creator.ID, models.ReportWin)
	require.NoError(t, err)

	_, err = e.matches.SubmitReport(m.ID, creator.ID, models.ReportLoss)
	assert.ErrorIs(t, err, ErrAlreadyReported)

	_, err = e.matches.SubmitReport(m.ID, joiner.ID, models.ReportLoss)
	require.NoError(t, err)

	// Terminal match rejects late reports without touching anything.
	_, err = e.matches.SubmitReport(m.ID, joiner.ID, models.ReportWin)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, int64(186), reload(t, e.db, creator.ID).Balance)

	outsider := newPlayer(t, e.db)
	_, err = e.matches.SubmitReport(m.ID, outsider.ID, models.ReportWin)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestFeeExemptWinnerKeepsWholePot(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db, withSubscription(time.Now().Add(24*time.Hour)))
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.SubmitReport(m.ID, creator.ID, models.ReportWin)
	require.NoError(t, err)
	m, err = e.matches.SubmitReport(m.ID, joiner.ID, models.ReportLoss)
	require.NoError(t, err)

	assert.Equal(t, int64(0), m.Fee)
	assert.Equal(t, int64(200), m.Payout)
	assert.Equal(t, int64(200), reload(t, e.db, creator.ID).Balance)
	assert.Equal(t, int64(0), reload(t, e.db, testFeeWallet).Balance)
}

func TestExpiredSubscriptionStillPaysFee(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db, withSubscription(time.Now().Add(-time.Hour)))
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.SubmitReport(m.ID, creator.ID, models.ReportWin)
	require.NoError(t, err)
	m, err = e.matches.SubmitReport(m.ID, joiner.ID, models.ReportLoss)
	require.NoError(t, err)

	assert.Equal(t, int64(14), m.Fee)
	assert.Equal(t, int64(186), m.Payout)
}

func TestBackOutReopensMatch(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	first := newPlayer(t, e.db)
	second := newPlayer(t, e.db)

	m, err := e.matches.Create(creator.ID, 100, "psn")
	require.NoError(t, err)
	_, err = e.matches.Join(m.ID, first.ID)
	require.NoError(t, err)

	m, err = e.matches.BackOut(m.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchBackedOut, m.Status)
	assert.Nil(t, m.JoinerID)

	m, err = e.matches.Join(m.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchPending, m.Status)
	assert.Equal(t, second.ID, *m.JoinerID)
}

func TestCreatorCancelsOpenMatch(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)

	m, err := e.matches.Create(creator.ID, 100, "psn")
	require.NoError(t, err)

	_, err = e.matches.Cancel(m.ID, joiner.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)

	m, err = e.matches.Cancel(m.ID, creator.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCancelled, m.Status)

	_, err = e.matches.Join(m.ID, joiner.ID)
	assert.ErrorIs(t, err, ErrMatchNotJoinable)
}

func TestKeepAliveExtendsWindow(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)

	m, err := e.matches.Create(creator.ID, 100, "psn")
	require.NoError(t, err)
	m, err = e.matches.Join(m.ID, joiner.ID)
	require.NoError(t, err)
	firstDeadline := *m.ExpiresAt

	stale := time.Now().Add(-time.Minute)
	require.NoError(t, e.db.Model(&models.Match{}).Where("id = ?", m.ID).Update("expires_at", stale).Error)

	m, err = e.matches.KeepAlive(m.ID, creator.ID)
	require.NoError(t, err)
	assert.True(t, m.ExpiresAt.After(stale))
	assert.False(t, m.ExpiresAt.Before(firstDeadline.Add(-time.Second)))
}

func TestExpireStaleSweep(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)

	m, err := e.matches.Create(creator.ID, 100, "psn")
	require.NoError(t, err)
	_, err = e.matches.Join(m.ID, joiner.ID)
	require.NoError(t, err)

	fresh, err := e.matches.Create(creator.ID, 50, "psn")
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, e.db.Model(&models.Match{}).Where("id = ?", m.ID).Update("expires_at", past).Error)

	n, err := e.matches.ExpireStale(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var got models.Match
	require.NoError(t, e.db.First(&got, "id = ?", m.ID).Error)
	assert.Equal(t, models.MatchExpired, got.Status)

	// Open matches without a deadline are untouched.
	got = models.Match{}
	require.NoError(t, e.db.First(&got, "id = ?", fresh.ID).Error)
	assert.Equal(t, models.MatchOpen, got.Status)
}

func TestNoShowClaim(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	_, err := e.matches.ClaimNoShow(m.ID, creator.ID, time.Now())
	assert.ErrorIs(t, err, ErrTooEarlyToClaim)

	outsider := newPlayer(t, e.db)
	_, err = e.matches.ClaimNoShow(m.ID, outsider.ID, m.ScheduledAt.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotParticipant)

	afterGrace := m.ScheduledAt.Add(e.cfg.NoShowGrace + time.Second)
	m, err = e.matches.ClaimNoShow(m.ID, creator.ID, afterGrace)
	require.NoError(t, err)

	assert.Equal(t, models.MatchCompleted, m.Status)
	assert.True(t, m.NoShow)
	require.NotNil(t, m.NoShowClaimedBy)
	assert.Equal(t, creator.ID, *m.NoShowClaimedBy)
	assert.Equal(t, creator.ID, *m.WinnerID)
	assert.Equal(t, int64(186), reload(t, e.db, creator.ID).Balance)

	// Forfeit settles like a normal win; second claim is rejected.
	_, err = e.matches.ClaimNoShow(m.ID, joiner.ID, afterGrace)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestNoShowClaimBlockedByOpponentReport(t *testing.T) {
	e := newEngine(t)
	creator := newPlayer(t, e.db)
	joiner := newPlayer(t, e.db)
	m := activeMatch(t, e, creator, joiner, 100)

	// An opponent who has filed a report did show up.
	_, err := e.matches.SubmitReport(m.ID, joiner.ID, models.ReportWin)
	require.NoError(t, err)

	afterGrace := m.ScheduledAt.Add(e.cfg.NoShowGrace + time.Second)
	_, err = e.matches.ClaimNoShow(m.ID, creator.ID, afterGrace)
	assert.ErrorIs(t, err, ErrOpponentReported)
}
