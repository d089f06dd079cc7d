package services

import "time"

// RoundCadence spaces consecutive bracket rounds one day apart.
const RoundCadence = 24 * time.Hour

// BracketSlot is one matchup position in a single elimination bracket,
// produced by BuildBracket before any rows exist.
type BracketSlot struct {
	Round       int
	Index       int
	Player1ID   *string
	Player2ID   *string
	ScheduledAt time.Time
}

// IsPowerOfTwo reports whether n is a valid bracket capacity (>= 2).
func IsPowerOfTwo(n int) bool {
	return n >= 2 && n&(n-1) == 0
}

// RoundsForCapacity returns log2(capacity) for a power-of-two capacity.
func RoundsForCapacity(capacity int) int {
	rounds := 0
	for n := capacity; n > 1; n >>= 1 {
		rounds++
	}
	return rounds
}

// NextSlot maps a completed matchup to the slot its winner advances into:
// winners of index 2k and 2k+1 in round r meet at index k in round r+1,
// filling player 1 and player 2 respectively.
func NextSlot(round, index int) (nextRound, nextIndex, side int) {
	return round + 1, index / 2, index % 2
}

// BuildBracket lays out a full single elimination bracket for the given
// players, in seat order. Rounds are zero-based: round 0 pairs consecutive
// players, later rounds are created empty and filled as winners advance,
// and round r is scheduled at start plus r cadences.
func BuildBracket(players []string, start time.Time) []BracketSlot {
	capacity := len(players)
	rounds := RoundsForCapacity(capacity)

	var slots []BracketSlot
	for r := 0; r < rounds; r++ {
		count := capacity >> uint(r+1)
		when := start.Add(time.Duration(r) * RoundCadence)
		for i := 0; i < count; i++ {
			slot := BracketSlot{Round: r, Index: i, ScheduledAt: when}
			if r == 0 {
				p1, p2 := players[2*i], players[2*i+1]
				slot.Player1ID = &p1
				slot.Player2ID = &p2
			}
			slots = append(slots, slot)
		}
	}
	return slots
}
