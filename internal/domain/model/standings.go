package model

// Standing is one leaderboard row.
type Standing struct {
	Rank   int
	Season Season
	Rating Rating
}

// StandingsQuery filters and pages the leaderboard. Zero Year/empty Team mean no filter.
type StandingsQuery struct {
	Year   int
	Team   string
	Limit  int
	Offset int
}

// StandingsPage is a page of standings plus the filter options available.
type StandingsPage struct {
	Standings []Standing
	Total     int
	Years     []int
	Teams     []string
}
