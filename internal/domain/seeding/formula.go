// Package seeding turns per-season quarterback stat lines into rated seasons.
package seeding

import (
	"math"

	"github.com/okian/qbduel/internal/domain/model"
)

// BaseRating is the initial rating before the composite adjustment.
const BaseRating = 1200.0

const componentCap = 2.375

// PasserRating computes the NFL passer rating rounded to two decimals.
func PasserRating(completions, attempts, yards, touchdowns, interceptions int) float64 {
	if attempts == 0 {
		return 0
	}
	att := float64(attempts)
	a := clampComponent((float64(completions)/att - 0.3) * 5)
	b := clampComponent((float64(yards)/att - 3) * 0.25)
	c := clampComponent(float64(touchdowns) / att * 20)
	d := clampComponent(componentCap - float64(interceptions)/att*25)
	rating := (a + b + c + d) / 6 * 100
	return math.Round(rating*100) / 100
}

func clampComponent(v float64) float64 {
	return math.Max(0, math.Min(componentCap, v))
}

// Composite weights.
const (
	efficiencyWeight   = 0.4
	volumeWeight       = 0.2
	dualThreatWeight   = 0.15
	ballSecurityWeight = 0.15
	passerRatingWeight = 0.1
	compositeScale     = 0.5
)

// InitialRating derives a starting rating from a season's stat line. Seasons
// without games or attempts start at BaseRating.
func InitialRating(s model.Stats) float64 {
	if s.GamesPlayed <= 0 || s.PassAttempts <= 0 {
		return BaseRating
	}
	games := float64(s.GamesPlayed)
	att := float64(s.PassAttempts)

	completionPct := float64(s.Completions) / att * 100
	yardsPerAttempt := float64(s.PassingYards) / att
	tdRate := float64(s.Touchdowns) / att * 100
	intRate := float64(s.Interceptions) / att * 100
	efficiency := completionPct*2 + yardsPerAttempt*30 + tdRate*100 + (2.5-intRate)*100

	volume := float64(s.PassingYards)/games*0.8 + float64(s.Touchdowns)/games*50

	dualThreat := float64(s.RushYards)/games*2 + float64(s.RushTouchdowns)*30

	turnoversPerGame := float64(s.Interceptions+s.Fumbles) / games
	sackRate := float64(s.Sacks) / att
	ballSecurity := (1-turnoversPerGame)*100 + (0.05-sackRate)*500

	passer := s.PasserRating * 2

	composite := efficiency*efficiencyWeight +
		volume*volumeWeight +
		dualThreat*dualThreatWeight +
		ballSecurity*ballSecurityWeight +
		passer*passerRatingWeight

	return math.Round(BaseRating + composite*compositeScale)
}
