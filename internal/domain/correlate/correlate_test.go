package correlate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/smartart/internal/domain/model"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sensorAt(offset time.Duration, light float64) model.PersistedRecord {
	return model.PersistedRecord{
		Measurement: model.MeasurementAllSensorData,
		Fields: map[string]any{
			"temperature": 22.0,
			"humidity":    50.0,
			"light":       light,
			"motion":      0,
		},
		Time: t0.Add(offset),
	}
}

func ratingAt(offset time.Duration, rating int) model.RatingEvent {
	return model.RatingEvent{UserID: "u", Rating: rating, VisualTime: t0.Add(offset)}
}

func TestCorrelateNearestWithinWindow(t *testing.T) {
	records := []model.PersistedRecord{
		sensorAt(-3*time.Second, 100),
		sensorAt(2*time.Second, 200),
	}
	ratings := []model.RatingEvent{ratingAt(0, 4)}

	got := Correlate(ratings, records, 5*time.Second)

	want := Result{
		Samples: []model.CorrelatedSample{{
			Features:   model.Vector{Temperature: 22, Humidity: 50, Light: 200},
			Label:      4,
			SensorTime: t0.Add(2 * time.Second),
			VisualTime: t0,
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Correlate mismatch (-want +got):\n%s", diff)
	}
}

func TestCorrelateOutsideWindowIsUnmatched(t *testing.T) {
	records := []model.PersistedRecord{sensorAt(-10*time.Second, 100), sensorAt(10*time.Second, 200)}
	ratings := []model.RatingEvent{ratingAt(0, 3)}

	got := Correlate(ratings, records, 5*time.Second)

	if len(got.Samples) != 0 {
		t.Fatalf("expected no samples, got %d", len(got.Samples))
	}
	if got.Unmatched != 1 {
		t.Fatalf("expected 1 unmatched, got %d", got.Unmatched)
	}
}

func TestCorrelateWindowBoundaryIsInclusive(t *testing.T) {
	records := []model.PersistedRecord{sensorAt(5*time.Second, 100)}
	got := Correlate([]model.RatingEvent{ratingAt(0, 1)}, records, 5*time.Second)
	if len(got.Samples) != 1 || got.Unmatched != 0 {
		t.Fatalf("record exactly at the window edge should match: %+v", got)
	}
}

func TestCorrelateTieBreaksToEarlier(t *testing.T) {
	records := []model.PersistedRecord{
		sensorAt(2*time.Second, 200),
		sensorAt(-2*time.Second, 100),
	}
	got := Correlate([]model.RatingEvent{ratingAt(0, 5)}, records, 5*time.Second)
	if len(got.Samples) != 1 {
		t.Fatalf("expected one sample, got %+v", got)
	}
	if got.Samples[0].Features.Light != 100 {
		t.Errorf("equidistant tie should pick the earlier record, got light=%v", got.Samples[0].Features.Light)
	}
}

func TestCorrelateIdenticalTimestampsPickFirstInInput(t *testing.T) {
	records := []model.PersistedRecord{
		sensorAt(-time.Second, 111),
		sensorAt(-time.Second, 222),
		sensorAt(time.Second, 333),
		sensorAt(time.Second, 444),
	}

	before := Correlate([]model.RatingEvent{ratingAt(-500*time.Millisecond, 1)}, records, time.Minute)
	if got := before.Samples[0].Features.Light; got != 111 {
		t.Errorf("expected first record of the earlier group, got %v", got)
	}

	after := Correlate([]model.RatingEvent{ratingAt(500*time.Millisecond, 1)}, records, time.Minute)
	if got := after.Samples[0].Features.Light; got != 333 {
		t.Errorf("expected first record of the later group, got %v", got)
	}

	exact := Correlate([]model.RatingEvent{ratingAt(time.Second, 1)}, records, 0)
	if got := exact.Samples[0].Features.Light; got != 333 {
		t.Errorf("zero window should match an exact timestamp, got %v", got)
	}
}

func TestCorrelatePreservesRatingOrder(t *testing.T) {
	records := []model.PersistedRecord{
		sensorAt(0, 10),
		sensorAt(time.Minute, 20),
		sensorAt(2*time.Minute, 30),
	}
	ratings := []model.RatingEvent{
		ratingAt(2*time.Minute, 3),
		ratingAt(10*time.Minute, 9),
		ratingAt(0, 1),
		ratingAt(time.Minute, 2),
	}

	got := Correlate(ratings, records, 5*time.Second)

	labels := make([]int, 0, len(got.Samples))
	for _, s := range got.Samples {
		labels = append(labels, s.Label)
	}
	if diff := cmp.Diff([]int{3, 1, 2}, labels); diff != "" {
		t.Errorf("label order mismatch (-want +got):\n%s", diff)
	}
	if got.Unmatched != 1 {
		t.Errorf("expected 1 unmatched, got %d", got.Unmatched)
	}
}

func TestCorrelateSkipsIncompleteRecords(t *testing.T) {
	partial := sensorAt(0, 100)
	delete(partial.Fields, "humidity")
	records := []model.PersistedRecord{partial, sensorAt(4*time.Second, 200)}

	got := Correlate([]model.RatingEvent{ratingAt(0, 2)}, records, 5*time.Second)
	if len(got.Samples) != 1 || got.Samples[0].Features.Light != 200 {
		t.Fatalf("incomplete record should not be a candidate: %+v", got)
	}
}

func TestCorrelateEmptyInputs(t *testing.T) {
	got := Correlate(nil, nil, time.Second)
	if len(got.Samples) != 0 || got.Unmatched != 0 {
		t.Fatalf("unexpected result for empty input: %+v", got)
	}

	got = Correlate([]model.RatingEvent{ratingAt(0, 1), ratingAt(time.Second, 2)}, nil, time.Second)
	if got.Unmatched != 2 {
		t.Fatalf("expected all ratings unmatched, got %d", got.Unmatched)
	}

	got = Correlate([]model.RatingEvent{ratingAt(0, 1)}, []model.PersistedRecord{sensorAt(0, 1)}, -time.Second)
	if got.Unmatched != 1 {
		t.Fatalf("negative window should match nothing, got %+v", got)
	}
}

func TestCorrelateIsDeterministicAndPure(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	records := make([]model.PersistedRecord, 0, 200)
	for i := 0; i < 200; i++ {
		records = append(records, sensorAt(time.Duration(rng.Intn(600))*time.Second, float64(i)))
	}
	ratings := make([]model.RatingEvent, 0, 50)
	for i := 0; i < 50; i++ {
		ratings = append(ratings, ratingAt(time.Duration(rng.Intn(600))*time.Second, rng.Intn(6)))
	}
	firstTime := records[0].Time

	a := Correlate(ratings, records, 3*time.Second)
	b := Correlate(ratings, records, 3*time.Second)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated runs differ (-a +b):\n%s", diff)
	}
	if !records[0].Time.Equal(firstTime) {
		t.Error("input records were reordered")
	}
	if len(a.Samples)+a.Unmatched != len(ratings) {
		t.Errorf("every rating must be either matched or counted: %d + %d != %d", len(a.Samples), a.Unmatched, len(ratings))
	}
	for _, s := range a.Samples {
		d := s.SensorTime.Sub(s.VisualTime)
		if d < 0 {
			d = -d
		}
		if d > 3*time.Second {
			t.Errorf("sample outside window: %v", d)
		}
	}
}

// bruteForce is the quadratic reference used to cross-check the binary search.
func bruteForce(ratings []model.RatingEvent, records []model.PersistedRecord, window time.Duration) Result {
	res := Result{Samples: []model.CorrelatedSample{}}
	for _, r := range ratings {
		best := -1
		var bestDiff time.Duration
		for i, rec := range records {
			d := rec.Time.Sub(r.VisualTime)
			if d < 0 {
				d = -d
			}
			if d > window {
				continue
			}
			if best < 0 || d < bestDiff ||
				(d == bestDiff && rec.Time.Before(records[best].Time)) {
				best, bestDiff = i, d
			}
		}
		if best < 0 {
			res.Unmatched++
			continue
		}
		v, _ := records[best].Features()
		res.Samples = append(res.Samples, model.CorrelatedSample{
			Features: v, Label: r.Rating, SensorTime: records[best].Time, VisualTime: r.VisualTime,
		})
	}
	return res
}

func TestCorrelateMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		records := make([]model.PersistedRecord, 0, 80)
		for i := 0; i < 80; i++ {
			records = append(records, sensorAt(time.Duration(rng.Intn(300))*time.Second, float64(i)))
		}
		ratings := make([]model.RatingEvent, 0, 30)
		for i := 0; i < 30; i++ {
			ratings = append(ratings, ratingAt(time.Duration(rng.Intn(320)-10)*time.Second, rng.Intn(6)))
		}

		want := bruteForce(ratings, records, 4*time.Second)
		got := Correlate(ratings, records, 4*time.Second)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("round %d mismatch (-want +got):\n%s", round, diff)
		}
	}
}
