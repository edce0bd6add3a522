package api

import (
	"math"

	service "github.com/okian/qbduel/internal/app"
	"github.com/okian/qbduel/internal/domain/model"
)

// statsView is the stat line as shown to voters.
type statsView struct {
	GamesPlayed         int     `json:"gamesPlayed"`
	Completions         int     `json:"completions"`
	Attempts            int     `json:"attempts"`
	CompletionPct       float64 `json:"completionPct"`
	PassingYards        int     `json:"passingYards"`
	PassYPA             float64 `json:"passYPA"`
	Touchdowns          int     `json:"touchdowns"`
	Interceptions       int     `json:"interceptions"`
	PasserRating        float64 `json:"passerRating"`
	RushAttempts        int     `json:"rushAttempts"`
	RushYards           int     `json:"rushYards"`
	RushTouchdowns      int     `json:"rushTouchdowns"`
	RushYardsPerAttempt float64 `json:"rushYardsPerAttempt"`
	Sacks               int     `json:"sacks"`
	Fumbles             int     `json:"fumbles"`
}

// seasonView hides the player and the rating.
type seasonView struct {
	ID     int64     `json:"id"`
	Year   int       `json:"year"`
	Team   string    `json:"team"`
	Stats  statsView `json:"stats"`
	Record *string   `json:"record"`
}

type matchupResponse struct {
	SeasonA seasonView `json:"seasonA"`
	SeasonB seasonView `json:"seasonB"`
}

type revealView struct {
	seasonView
	PlayerName  string  `json:"playerName"`
	HeadshotURL string  `json:"headshotUrl,omitempty"`
	EloScore    int     `json:"eloScore"`
	EloChange   float64 `json:"eloChange"`
	NewElo      float64 `json:"newElo"`
}

type voteResponse struct {
	Winner revealView `json:"winner"`
	Loser  revealView `json:"loser"`
}

type standingView struct {
	Rank        int       `json:"rank"`
	ID          int64     `json:"id"`
	PlayerName  string    `json:"playerName"`
	HeadshotURL string    `json:"headshotUrl,omitempty"`
	Year        int       `json:"year"`
	Team        string    `json:"team"`
	EloScore    int       `json:"eloScore"`
	VoteCount   int       `json:"voteCount"`
	Stats       statsView `json:"stats"`
	Record      *string   `json:"record"`
}

type filtersView struct {
	Years []int    `json:"years"`
	Teams []string `json:"teams"`
}

type standingsResponse struct {
	Standings []standingView `json:"standings"`
	Total     int            `json:"total"`
	Filters   filtersView    `json:"filters"`
}

type rankResponse struct {
	Rank      int          `json:"rank"`
	Season    standingView `json:"season"`
	EloScore  int          `json:"eloScore"`
	VoteCount int          `json:"voteCount"`
}

type statsResponse struct {
	Count      int     `json:"count"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"stdDev"`
	Median     float64 `json:"median"`
	P10        float64 `json:"p10"`
	P25        float64 `json:"p25"`
	P75        float64 `json:"p75"`
	P90        float64 `json:"p90"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	TotalVotes int     `json:"totalVotes"`
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func newStatsView(s model.Stats) statsView {
	return statsView{
		GamesPlayed:         s.GamesPlayed,
		Completions:         s.Completions,
		Attempts:            s.PassAttempts,
		CompletionPct:       round1(s.CompletionPct()),
		PassingYards:        s.PassingYards,
		PassYPA:             round1(s.YardsPerAttempt()),
		Touchdowns:          s.Touchdowns,
		Interceptions:       s.Interceptions,
		PasserRating:        round1(s.PasserRating),
		RushAttempts:        s.RushAttempts,
		RushYards:           s.RushYards,
		RushTouchdowns:      s.RushTouchdowns,
		RushYardsPerAttempt: round1(s.RushYardsPerAttempt()),
		Sacks:               s.Sacks,
		Fumbles:             s.Fumbles,
	}
}

func record(s model.Season) *string {
	r := s.Record()
	if r == "" {
		return nil
	}
	return &r
}

func newSeasonView(s model.Season) seasonView {
	return seasonView{
		ID:     s.ID,
		Year:   s.Year,
		Team:   s.Team,
		Stats:  newStatsView(s.Stats),
		Record: record(s),
	}
}

// newRevealView reports the pre-vote score alongside the change.
func newRevealView(r service.Reveal) revealView {
	return revealView{
		seasonView:  newSeasonView(r.Season),
		PlayerName:  r.Season.PlayerName,
		HeadshotURL: r.Season.HeadshotURL,
		EloScore:    int(r.Change.Old),
		EloChange:   r.Change.Delta(),
		NewElo:      r.Change.New,
	}
}

func newStandingView(st model.Standing) standingView {
	return standingView{
		Rank:        st.Rank,
		ID:          st.Season.ID,
		PlayerName:  st.Season.PlayerName,
		HeadshotURL: st.Season.HeadshotURL,
		Year:        st.Season.Year,
		Team:        st.Season.Team,
		EloScore:    int(st.Rating.Score),
		VoteCount:   st.Rating.VoteCount,
		Stats:       newStatsView(st.Season.Stats),
		Record:      record(st.Season),
	}
}
