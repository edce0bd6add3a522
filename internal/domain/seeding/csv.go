package seeding

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/qbduel/internal/domain/model"
)

// Default qualification thresholds.
const (
	DefaultMinGames    = 8
	DefaultMinAttempts = 200
)

// StatLine is one player-season row from a stats export.
type StatLine struct {
	Position string
	model.Season
}

// Thresholds decide which seasons qualify for the population.
type Thresholds struct {
	MinGames    int
	MinAttempts int
}

// DefaultThresholds returns 8 games and 200 attempts.
func DefaultThresholds() Thresholds {
	return Thresholds{MinGames: DefaultMinGames, MinAttempts: DefaultMinAttempts}
}

// Qualifies reports whether a line is a quarterback season meeting t.
func (t Thresholds) Qualifies(l StatLine) bool {
	return strings.EqualFold(strings.TrimSpace(l.Position), "QB") &&
		l.Stats.GamesPlayed >= t.MinGames &&
		l.Stats.PassAttempts >= t.MinAttempts
}

// Prepare filters lines and attaches passer and initial ratings. Returned
// seasons carry no id; the store assigns them.
func Prepare(lines []StatLine, t Thresholds) []model.SeededSeason {
	out := make([]model.SeededSeason, 0, len(lines))
	for _, l := range lines {
		if !t.Qualifies(l) {
			continue
		}
		season := l.Season
		season.ID = 0
		st := &season.Stats
		st.PasserRating = PasserRating(st.Completions, st.PassAttempts, st.PassingYards, st.Touchdowns, st.Interceptions)
		out = append(out, model.SeededSeason{Season: season, InitialRating: InitialRating(season.Stats)})
	}
	return out
}

var requiredColumns = []string{ //nolint:gochecknoglobals // fixed header contract
	"player_name", "position", "season", "team", "games",
	"attempts", "completions", "passing_yards", "passing_tds", "interceptions",
}

// ReadStatLines parses a header-led CSV using the nflverse column names.
// Optional columns (carries, rushing_yards, rushing_tds, sacks, fumbles,
// wins, losses, headshot_url, player_display_name) may be absent or blank.
func ReadStatLines(r io.Reader) ([]StatLine, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	var lines []StatLine
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		l, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

type rowReader struct {
	cols map[string]int
	row  []string
	err  error
}

func (r *rowReader) str(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r *rowReader) num(col string) int {
	s := r.str(col)
	if s == "" || r.err != nil {
		return 0
	}
	// Exports sometimes write counts as floats ("12.0").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", col, err)
		return 0
	}
	return int(f)
}

func (r *rowReader) optional(col string) *int {
	if r.str(col) == "" {
		return nil
	}
	v := r.num(col)
	return &v
}

func parseRow(cols map[string]int, row []string) (StatLine, error) {
	r := &rowReader{cols: cols, row: row}
	name := r.str("player_display_name")
	if name == "" {
		name = r.str("player_name")
	}
	l := StatLine{
		Position: r.str("position"),
		Season: model.Season{
			PlayerName:  name,
			Year:        r.num("season"),
			Team:        r.str("team"),
			HeadshotURL: r.str("headshot_url"),
			Stats: model.Stats{
				GamesPlayed:    r.num("games"),
				PassAttempts:   r.num("attempts"),
				Completions:    r.num("completions"),
				PassingYards:   r.num("passing_yards"),
				Touchdowns:     r.num("passing_tds"),
				Interceptions:  r.num("interceptions"),
				RushAttempts:   r.num("carries"),
				RushYards:      r.num("rushing_yards"),
				RushTouchdowns: r.num("rushing_tds"),
				Sacks:          r.num("sacks"),
				Fumbles:        r.num("fumbles"),
			},
			Wins:   r.optional("wins"),
			Losses: r.optional("losses"),
		},
	}
	if r.err != nil {
		return StatLine{}, r.err
	}
	if l.PlayerName == "" {
		return StatLine{}, errors.New("player name is empty")
	}
	return l, nil
}
