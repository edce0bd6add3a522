package pairing_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/okian/qbduel/internal/domain/model"
	"github.com/okian/qbduel/internal/domain/pairing"
	. "github.com/smartystreets/goconvey/convey"
)

// maxSource always returns the largest value, pushing Float64 to just under 1.
type maxSource struct{}

func (maxSource) Uint64() uint64 { return ^uint64(0) }

// zeroSource always returns zero, pinning Float64 to 0.
type zeroSource struct{}

func (zeroSource) Uint64() uint64 { return 0 }

func seeded() *rand.Rand { return rand.New(rand.NewPCG(42, 1337)) }

func TestSample(t *testing.T) {
	Convey("Given the categorical sampler", t, func() {
		Convey("When the list is empty", func() {
			_, err := pairing.Sample(seeded(), nil)

			Convey("Then it reports ErrEmpty", func() {
				So(errors.Is(err, pairing.ErrEmpty), ShouldBeTrue)
			})
		})

		Convey("When there is a single candidate", func() {
			idx, err := pairing.Sample(seeded(), []float64{0.3})

			Convey("Then it is always returned", func() {
				So(err, ShouldBeNil)
				So(idx, ShouldEqual, 0)
			})
		})

		Convey("When the draw lands at the very top of the range", func() {
			r := rand.New(maxSource{})
			idx, err := pairing.Sample(r, []float64{0.1, 0.2, 0.3})

			Convey("Then the last candidate is returned, never out of bounds", func() {
				So(err, ShouldBeNil)
				So(idx, ShouldEqual, 2)
			})
		})

		Convey("When the draw lands at zero", func() {
			r := rand.New(zeroSource{})
			idx, err := pairing.Sample(r, []float64{0.4, 0.6})

			Convey("Then the first candidate is returned", func() {
				So(err, ShouldBeNil)
				So(idx, ShouldEqual, 0)
			})
		})

		Convey("When trailing weights are zero", func() {
			r := rand.New(maxSource{})
			idx, err := pairing.Sample(r, []float64{0.5, 0, 0})

			Convey("Then the fallback is the last positively weighted candidate", func() {
				So(err, ShouldBeNil)
				So(idx, ShouldEqual, 0)
			})
		})

		Convey("When every weight is zero", func() {
			idx, err := pairing.Sample(seeded(), []float64{0, 0, 0})

			Convey("Then a uniform index is still produced", func() {
				So(err, ShouldBeNil)
				So(idx, ShouldBeBetweenOrEqual, 0, 2)
			})
		})

		Convey("When weights are identical", func() {
			r := seeded()
			counts := make([]int, 4)
			const draws = 40_000
			for range draws {
				idx, err := pairing.Sample(r, []float64{1, 1, 1, 1})
				So(err, ShouldBeNil)
				counts[idx]++
			}

			Convey("Then every candidate is drawn about equally often", func() {
				for _, c := range counts {
					So(float64(c)/draws, ShouldAlmostEqual, 0.25, 0.02)
				}
			})
		})

		Convey("When one weight dominates", func() {
			r := seeded()
			hits := 0
			const draws = 20_000
			for range draws {
				idx, err := pairing.Sample(r, []float64{1, 9})
				So(err, ShouldBeNil)
				if idx == 1 {
					hits++
				}
			}

			Convey("Then it is drawn proportionally more often", func() {
				So(float64(hits)/draws, ShouldAlmostEqual, 0.9, 0.02)
			})
		})

		Convey("When the same seed is reused", func() {
			weights := []float64{0.2, 0.5, 0.1, 0.9, 0.4}
			a, b := seeded(), seeded()

			Convey("Then the sequence of draws is reproducible", func() {
				for range 50 {
					x, _ := pairing.Sample(a, weights)
					y, _ := pairing.Sample(b, weights)
					So(x, ShouldEqual, y)
				}
			})
		})
	})
}

func TestPolicy(t *testing.T) {
	Convey("Given the default policy", t, func() {
		p := pairing.DefaultPolicy()
		So(p.Validate(), ShouldBeNil)

		Convey("Then ratings normalize against the fixed reference bounds", func() {
			So(p.Normalize(1000), ShouldEqual, 0)
			So(p.Normalize(1600), ShouldAlmostEqual, 0.5, 1e-12)
			So(p.Normalize(2200), ShouldEqual, 1)
			So(p.Normalize(500), ShouldEqual, 0)
			So(p.Normalize(5000), ShouldEqual, 1)
		})

		Convey("Then weights are floored and raised to the exponent", func() {
			So(p.Weight(1000), ShouldAlmostEqual, 0.01, 1e-12)
			So(p.Weight(800), ShouldAlmostEqual, 0.01, 1e-12)
			So(p.Weight(1600), ShouldAlmostEqual, 0.25, 1e-12)
			So(p.Weight(2200), ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("Then weights never decrease as ratings grow", func() {
			prev := 0.0
			for r := 900.0; r <= 2300; r += 25 {
				w := p.Weight(r)
				So(w, ShouldBeGreaterThan, 0)
				So(w, ShouldBeGreaterThanOrEqualTo, prev)
				prev = w
			}
		})

		Convey("When building weights for candidates", func() {
			cands := []model.RatedEntity{
				{ID: 1, Rating: model.Rating{Score: 1600}},
				{ID: 2, Rating: model.Rating{Score: 2200}},
			}
			w := p.Weights(cands)

			Convey("Then they follow candidate order", func() {
				So(len(w), ShouldEqual, 2)
				So(w[0], ShouldAlmostEqual, 0.25, 1e-12)
				So(w[1], ShouldAlmostEqual, 1, 1e-12)
			})
		})
	})

	Convey("Given invalid policies", t, func() {
		cases := []pairing.Policy{
			{Floor: 0, Exponent: 2, RefMin: 1000, RefMax: 2200},
			{Floor: 0.1, Exponent: 1, RefMin: 1000, RefMax: 2200},
			{Floor: 0.1, Exponent: 2, RefMin: 2200, RefMax: 1000},
		}

		Convey("Then validation rejects each one", func() {
			for _, c := range cases {
				So(errors.Is(c.Validate(), pairing.ErrInvalidPolicy), ShouldBeTrue)
			}
		})
	})
}

func TestFilters(t *testing.T) {
	Convey("Given a candidate list", t, func() {
		cands := []model.RatedEntity{
			{ID: 1, Rating: model.Rating{Score: 1500}},
			{ID: 2, Rating: model.Rating{Score: 1550}},
			{ID: 3, Rating: model.Rating{Score: 1551}},
			{ID: 4, Rating: model.Rating{Score: 1450}},
		}

		Convey("When filtering by tolerance around 1500", func() {
			got := pairing.WithinTolerance(cands, 1500, 50)

			Convey("Then the band is inclusive", func() {
				ids := make([]int64, 0, len(got))
				for _, c := range got {
					ids = append(ids, c.ID)
				}
				So(ids, ShouldResemble, []int64{1, 2, 4})
			})
		})

		Convey("When removing an id", func() {
			got := pairing.Without(cands, 3)

			Convey("Then every other candidate is kept in order", func() {
				So(len(got), ShouldEqual, 3)
				So(got[2].ID, ShouldEqual, int64(4))
			})
		})

		Convey("When drawing with the policy", func() {
			got, err := pairing.DefaultPolicy().Draw(seeded(), cands)

			Convey("Then a member of the list is returned", func() {
				So(err, ShouldBeNil)
				So(got.ID, ShouldBeBetweenOrEqual, int64(1), int64(4))
			})
		})
	})
}
