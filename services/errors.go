package services

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Precondition violations: rejected synchronously with a specific reason,
// no state change. A caller that merely lost a race to an already-applied
// transition gets a conflict, not one of these.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchupNotFound    = errors.New("matchup not found")
	ErrTournamentNotFound = errors.New("tournament not found")

	ErrInvalidWager      = errors.New("wager must be a positive amount")
	ErrInvalidReport     = errors.New("invalid report value")
	ErrMatchNotJoinable  = errors.New("match is not joinable")
	ErrMatchAlreadyFull  = errors.New("match already joined")
	ErrSelfJoin          = errors.New("cannot join your own match")
	ErrDivisionMismatch  = errors.New("restricted to another division")
	ErrNotParticipant    = errors.New("not a participant")
	ErrAlreadyReported   = errors.New("result already reported")
	ErrAlreadyCompleted  = errors.New("already completed")
	ErrOpponentReported  = errors.New("opponent has already reported")
	ErrTooEarlyToClaim   = errors.New("too early to claim")
	ErrMissingSchedule   = errors.New("no scheduled time set")
	ErrNoOpponent        = errors.New("match has no opponent")
	ErrNotDisputed       = errors.New("match is not disputed")
	ErrWrongMatchState   = errors.New("match is not in a state that allows this")
	ErrTournamentFull    = errors.New("tournament is full")
	ErrTournamentClosed  = errors.New("tournament is no longer accepting players")
	ErrAlreadyEntered    = errors.New("already entered this tournament")
	ErrInsufficientCoins = errors.New("not enough coins")
	ErrBadCapacity       = errors.New("capacity must be a power of two of at least 2")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrUsernameRequired  = errors.New("username is required")
	ErrUnknownDivision   = errors.New("unknown division")
)

var notFoundErrs = []error{
	ErrAccountNotFound, ErrMatchNotFound, ErrMatchupNotFound, ErrTournamentNotFound,
}

var conflictErrs = []error{
	ErrMatchAlreadyFull, ErrAlreadyReported, ErrAlreadyCompleted,
	ErrOpponentReported, ErrAlreadyEntered, ErrTournamentFull, ErrUsernameTaken,
}

var preconditionErrs = []error{
	ErrInvalidWager, ErrInvalidReport, ErrMatchNotJoinable, ErrSelfJoin,
	ErrDivisionMismatch, ErrNotParticipant, ErrTooEarlyToClaim,
	ErrMissingSchedule, ErrNoOpponent, ErrNotDisputed, ErrWrongMatchState,
	ErrTournamentClosed, ErrInsufficientCoins, ErrBadCapacity,
	ErrUsernameRequired, ErrUnknownDivision,
}

func errIn(err error, list []error) bool {
	for _, e := range list {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// httpError maps engine errors onto HTTP responses: missing records are
// 404, lost-to-someone-else conflicts are 409, other precondition
// violations are 400, and everything else is an internal failure that gets
// logged and hidden behind a generic 500.
func httpError(c *fiber.Ctx, err error) error {
	switch {
	case errIn(err, notFoundErrs):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errIn(err, conflictErrs):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errIn(err, preconditionErrs):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("internal error on %s: %v", c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
