// Package pairing holds the weighted-sampling and similarity-filtering
// primitives the matchmaker builds on. Everything here is pure: randomness
// comes in through an explicit *rand.Rand.
package pairing

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/qbduel/internal/domain/model"
)

// Default policy constants.
const (
	DefaultFloor    = 0.1
	DefaultExponent = 2.0
	DefaultRefMin   = 1000.0
	DefaultRefMax   = 2200.0
)

// Policy maps a rating to a sampling weight.
//
// The rating is mapped linearly onto [0, 1] using the fixed reference bounds,
// raised to Floor when below it, then raised to Exponent. The bounds are
// configuration and are never derived from the observed population.
type Policy struct {
	Floor    float64
	Exponent float64
	RefMin   float64
	RefMax   float64
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Floor:    DefaultFloor,
		Exponent: DefaultExponent,
		RefMin:   DefaultRefMin,
		RefMax:   DefaultRefMax,
	}
}

// Validate reports whether the policy yields strictly positive, bounded weights.
func (p Policy) Validate() error {
	switch {
	case !(p.Floor > 0 && p.Floor <= 1):
		return fmt.Errorf("%w: floor must be in (0, 1], got %v", ErrInvalidPolicy, p.Floor)
	case !(p.Exponent > 1):
		return fmt.Errorf("%w: exponent must be > 1, got %v", ErrInvalidPolicy, p.Exponent)
	case !(p.RefMax > p.RefMin):
		return fmt.Errorf("%w: reference max must exceed min", ErrInvalidPolicy)
	}
	return nil
}

// Normalize maps a raw rating onto [0, 1] using the reference bounds.
func (p Policy) Normalize(rating float64) float64 {
	ratio := (rating - p.RefMin) / (p.RefMax - p.RefMin)
	if math.IsNaN(ratio) {
		return 0
	}
	return math.Max(0, math.Min(1, ratio))
}

// Weight returns max(Floor, Normalize(rating))^Exponent.
func (p Policy) Weight(rating float64) float64 {
	return math.Pow(math.Max(p.Floor, p.Normalize(rating)), p.Exponent)
}

// Weights computes the sampling weight of every candidate.
func (p Policy) Weights(candidates []model.RatedEntity) []float64 {
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = p.Weight(c.Rating.Score)
	}
	return out
}

// Sample draws an index from a categorical distribution over weights.
//
// A uniform value in [0, total) is walked down the list, subtracting each
// weight, and the first index that takes it below zero is returned. When
// rounding leaves the value just above zero after the last element, the last
// positively weighted index is returned. Equal weights are therefore drawn uniformly.
func Sample(r *rand.Rand, weights []float64) (int, error) {
	if len(weights) == 0 {
		return 0, ErrEmpty
	}
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if !(total > 0) || math.IsInf(total, 0) {
		// Degenerate weights; fall back to a uniform draw.
		return r.IntN(len(weights)), nil
	}
	target := r.Float64() * total
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		target -= w
		if target < 0 {
			return i, nil
		}
	}
	return last, nil
}

// Draw samples one candidate using the policy's weights.
func (p Policy) Draw(r *rand.Rand, candidates []model.RatedEntity) (model.RatedEntity, error) {
	idx, err := Sample(r, p.Weights(candidates))
	if err != nil {
		return model.RatedEntity{}, err
	}
	return candidates[idx], nil
}

// WithinTolerance returns the candidates whose score lies within tolerance of pivot.
func WithinTolerance(candidates []model.RatedEntity, pivot, tolerance float64) []model.RatedEntity {
	out := make([]model.RatedEntity, 0, len(candidates))
	for _, c := range candidates {
		if math.Abs(c.Rating.Score-pivot) <= tolerance {
			out = append(out, c)
		}
	}
	return out
}

// Without returns candidates minus every entry with the given id.
func Without(candidates []model.RatedEntity, id int64) []model.RatedEntity {
	out := make([]model.RatedEntity, 0, len(candidates))
	for _, c := range candidates {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
