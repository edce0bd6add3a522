// Package rating implements the pairwise comparative rating update and the
// transaction that applies it after each vote.
package rating

import "math"

// Fixed constants of the rating scheme. Changing either breaks score
// compatibility with existing ratings.
const (
	eloBase   = 10.0
	eloSpread = 400.0
)

// DefaultK is the default volatility constant.
const DefaultK = 32.0

// Expected returns the logistic probability that a rated ra beats one rated rb.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(eloBase, (rb-ra)/eloSpread))
}

// NewRatings returns the rounded post-vote ratings for winner and loser.
//
// Both expectations are computed independently and each new rating is
// rounded on its own (half away from zero), so the two deltas need not sum
// to zero.
func NewRatings(winner, loser, k float64) (newWinner, newLoser float64) {
	ew := Expected(winner, loser)
	el := Expected(loser, winner)
	newWinner = math.Round(winner + k*(1-ew))
	newLoser = math.Round(loser + k*(0-el))
	return newWinner, newLoser
}
