// Package model contains domain models passed between layers.
package model

// Stats is the static per-season stat line used for display and seeding.
type Stats struct {
	GamesPlayed    int
	PassAttempts   int
	Completions    int
	PassingYards   int
	Touchdowns     int
	Interceptions  int
	PasserRating   float64
	RushAttempts   int
	RushYards      int
	RushTouchdowns int
	Sacks          int
	Fumbles        int
}

// CompletionPct returns completions per attempt as a percentage.
func (s Stats) CompletionPct() float64 {
	if s.PassAttempts == 0 {
		return 0
	}
	return float64(s.Completions) / float64(s.PassAttempts) * 100
}

// YardsPerAttempt returns passing yards per attempt.
func (s Stats) YardsPerAttempt() float64 {
	if s.PassAttempts == 0 {
		return 0
	}
	return float64(s.PassingYards) / float64(s.PassAttempts)
}

// RushYardsPerAttempt returns rushing yards per carry.
func (s Stats) RushYardsPerAttempt() float64 {
	if s.RushAttempts == 0 {
		return 0
	}
	return float64(s.RushYards) / float64(s.RushAttempts)
}

// Season is one quarterback season: the comparable entity.
// Created at ingestion time and never mutated by the engine.
type Season struct {
	ID          int64
	PlayerName  string
	Year        int
	Team        string
	HeadshotURL string
	Stats       Stats
	Wins        *int
	Losses      *int
}

// Record returns the "W-L" string, or "" when the record is unknown.
func (s Season) Record() string {
	if s.Wins == nil || s.Losses == nil {
		return ""
	}
	return itoa(*s.Wins) + "-" + itoa(*s.Losses)
}

// SeededSeason is a season plus the initial rating assigned at ingestion.
type SeededSeason struct {
	Season        Season
	InitialRating float64
}
