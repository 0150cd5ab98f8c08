package blend

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/internal/domain/scoring"
	"github.com/okian/smartart/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type predictFunc func(model.Vector) float64

func (f predictFunc) Predict(v model.Vector) float64 { return f(v) }

// seqSampler replays fixed draws.
type seqSampler struct {
	vals []float64
	i    int
}

func (s *seqSampler) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func TestSuggest(t *testing.T) {
	Convey("Given a model that prefers bright rooms", t, func() {
		bright := predictFunc(func(v model.Vector) float64 { return v.Light })

		Convey("When suggesting with a seeded sampler", func() {
			v, ok := Suggest(bright, 200, rand.New(rand.NewSource(1)))

			Convey("Then the candidate is inside the bounds and bright", func() {
				So(ok, ShouldBeTrue)
				So(DefaultBounds().Contains(v), ShouldBeTrue)
				So(v.Light, ShouldBeGreaterThan, 950)
			})

			Convey("And the same seed yields the same candidate", func() {
				again, _ := Suggest(bright, 200, rand.New(rand.NewSource(1)))
				So(again, ShouldResemble, v)
			})
		})

		Convey("When draws map to the range edges", func() {
			s := &seqSampler{vals: []float64{0, 0, 0}}
			v, ok := Suggest(bright, 1, s)

			Convey("Then they land on the minimum of each range", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldResemble, model.Vector{Light: 0, Temperature: 10, Humidity: 30})
			})
		})
	})

	Convey("Given a model that scores every candidate equally", t, func() {
		flat := predictFunc(func(model.Vector) float64 { return 1 })
		s := &seqSampler{vals: []float64{0.1, 0.2, 0.3, 0.9, 0.9, 0.9}}

		Convey("Then the first candidate wins", func() {
			v, ok := Suggest(flat, 2, s)
			So(ok, ShouldBeTrue)
			So(v.Light, ShouldAlmostEqual, 100, 1e-9)
			So(v.Temperature, ShouldAlmostEqual, 16, 1e-9)
			So(v.Humidity, ShouldAlmostEqual, 48, 1e-9)
		})
	})

	Convey("Given no model or no samples", t, func() {
		s := rand.New(rand.NewSource(3))

		Convey("Then no suggestion is produced", func() {
			_, ok := Suggest(nil, 10, s)
			So(ok, ShouldBeFalse)
			var lm *scoring.LinearModel
			_, ok = Suggest(lm, 10, s)
			So(ok, ShouldBeFalse)
			_, ok = Suggest(predictFunc(func(model.Vector) float64 { return 0 }), 0, s)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestBlend(t *testing.T) {
	Convey("Given a live snapshot and a candidate", t, func() {
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		live := model.SensorSnapshot{Temperature: 20, Humidity: 40, Light: 200, Motion: 1, ObservedAt: at}
		cand := model.Vector{Temperature: 30, Humidity: 60, Light: 800}

		Convey("When alpha is 0.5", func() {
			out, err := Blend(live, cand, 0.5)

			Convey("Then each field is the midpoint and motion passes through", func() {
				So(err, ShouldBeNil)
				So(out.Temperature, ShouldEqual, 25)
				So(out.Humidity, ShouldEqual, 50)
				So(out.Light, ShouldEqual, 500)
				So(out.Motion, ShouldEqual, 1)
				So(out.ObservedAt, ShouldEqual, at)
				So(out.Suggested, ShouldBeTrue)
			})
		})

		Convey("When alpha is 0.3", func() {
			out, err := Blend(model.SensorSnapshot{Temperature: 20}, model.Vector{Temperature: 30}, 0.3)

			Convey("Then temperature moves 30% toward the candidate", func() {
				So(err, ShouldBeNil)
				So(out.Temperature, ShouldAlmostEqual, 23.0, 1e-9)
			})
		})

		Convey("When alpha is 0", func() {
			out, err := Blend(live, cand, 0)

			Convey("Then the result equals live", func() {
				So(err, ShouldBeNil)
				So(out.Vector(), ShouldResemble, live.Vector())
			})
		})

		Convey("When alpha is 1", func() {
			out, err := Blend(live, cand, 1)

			Convey("Then the result equals the candidate", func() {
				So(err, ShouldBeNil)
				So(out.Vector(), ShouldResemble, cand)
			})
		})

		Convey("When alpha is outside [0,1]", func() {
			for _, a := range []float64{-0.01, 1.01, math.NaN()} {
				_, err := Blend(live, cand, a)
				So(errors.Is(err, ErrAlphaOutOfRange), ShouldBeTrue)
			}
		})

		Convey("When alpha sweeps the unit interval", func() {
			Convey("Then every field stays between live and candidate", func() {
				for a := 0.0; a <= 1.0; a += 0.037 {
					out, err := Blend(live, cand, a)
					So(err, ShouldBeNil)
					So(out.Temperature, ShouldBeBetweenOrEqual, 20, 30)
					So(out.Humidity, ShouldBeBetweenOrEqual, 40, 60)
					So(out.Light, ShouldBeBetweenOrEqual, 200, 800)
				}
			})
		})
	})
}

func TestEngine(t *testing.T) {
	Convey("Given an engine without a model", t, func() {
		ctx := context.Background()
		e := NewEngine(ctx, WithLogger(logger.Nop()))
		live := model.SensorSnapshot{Temperature: 21, Humidity: 45, Light: 333, Motion: 1}

		Convey("Then Generate passes live values through", func() {
			So(e.HasModel(), ShouldBeFalse)
			out := e.Generate(ctx, live)
			So(out.Vector(), ShouldResemble, live.Vector())
			So(out.Motion, ShouldEqual, 1)
			So(out.Suggested, ShouldBeFalse)
		})
	})

	Convey("Given an engine with a model", t, func() {
		ctx := context.Background()
		dark := predictFunc(func(v model.Vector) float64 { return -v.Light })
		e := NewEngine(ctx,
			WithModel(dark),
			WithAlpha(1),
			WithSampleCount(300),
			WithSampler(NewLockedSampler(9)),
			WithLogger(logger.Nop()),
		)

		Convey("Then Generate steers toward the model's preference", func() {
			So(e.HasModel(), ShouldBeTrue)
			So(e.Alpha(), ShouldEqual, 1)
			out := e.Generate(ctx, model.SensorSnapshot{Temperature: 22, Humidity: 50, Light: 900})
			So(out.Suggested, ShouldBeTrue)
			So(out.Light, ShouldBeLessThan, 50)
		})

		Convey("Then invalid options are ignored", func() {
			e2 := NewEngine(ctx, WithAlpha(3), WithSampleCount(-1), WithLogger(logger.Nop()))
			So(e2.Alpha(), ShouldEqual, DefaultAlpha)
			So(e2.sampleCount, ShouldEqual, DefaultSampleCount)
		})
	})
}
