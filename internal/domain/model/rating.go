package model

import (
	"strconv"
	"time"
)

// Rating is the mutable skill estimate attached to one season.
type Rating struct {
	Score     float64
	VoteCount int
}

// RatedEntity is one member of the matchmaking population.
type RatedEntity struct {
	ID     int64
	Rating Rating
}

// Pair is an ordered left/right pair of season ids.
type Pair struct {
	A int64
	B int64
}

// ShownPair records that a pair was presented to a session.
type ShownPair struct {
	Session string
	A       int64
	B       int64
	ShownAt time.Time
}

// Vote is a decided comparison from one session.
type Vote struct {
	Session string
	Winner  int64
	Loser   int64
	CastAt  time.Time
}

// RatingUpdate is a conditional rating write. It applies only while the
// stored rating still equals (OldScore, OldVotes); the vote count is bumped by one.
type RatingUpdate struct {
	EntityID int64
	OldScore float64
	OldVotes int
	NewScore float64
}

// RatingChange reports one entity's rating before and after a vote.
type RatingChange struct {
	ID  int64
	Old float64
	New float64
}

// Delta returns New - Old.
func (c RatingChange) Delta() float64 { return c.New - c.Old }

// Result is the outcome of applying a vote.
type Result struct {
	Winner RatingChange
	Loser  RatingChange
}

func itoa(v int) string { return strconv.Itoa(v) }
