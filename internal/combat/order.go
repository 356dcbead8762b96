package combat

import (
	"math/rand"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// DetermineOrder fixes who acts first: higher Speed, then higher rating, then a coin flip
func DetermineOrder(challenger, opponent Combatant, rng RNG) [2]domain.Side {
	challengerFirst := [2]domain.Side{domain.SideChallenger, domain.SideOpponent}
	opponentFirst := [2]domain.Side{domain.SideOpponent, domain.SideChallenger}

	switch {
	case challenger.Stats.Speed > opponent.Stats.Speed:
		return challengerFirst
	case challenger.Stats.Speed < opponent.Stats.Speed:
		return opponentFirst
	case challenger.Rating > opponent.Rating:
		return challengerFirst
	case challenger.Rating < opponent.Rating:
		return opponentFirst
	case rng.Float64() < 0.5:
		return challengerFirst
	default:
		return opponentFirst
	}
}

// NewRNG returns a seeded math/rand source. Game outcomes are not security sensitive.
func NewRNG(seed int64) RNG {
	return rand.New(rand.NewSource(seed)) //nolint:gosec
}
