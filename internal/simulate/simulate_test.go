package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/okian/smartart/internal/domain/ingest"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeService records every submission it receives.
type fakeService struct {
	mu      sync.Mutex
	sensor  []map[string]float64
	motion  int
	ratings []map[string]any
	visual  string
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/sensor", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]float64
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.sensor = append(f.sensor, body)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"status":"success"}`)
	})
	mux.HandleFunc("/motion", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.motion++
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"status":"success"}`)
	})
	mux.HandleFunc("/latest_visual", func(w http.ResponseWriter, _ *http.Request) {
		if f.visual == "" {
			http.Error(w, `{"code":404,"message":"no visual"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"time": f.visual, "light": 300})
	})
	mux.HandleFunc("/rate_visual", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.ratings = append(f.ratings, body)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"status":"success"}`)
	})
	return mux
}

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		g := NewGenerator(42, 4)

		Convey("Then readings stay inside their ranges", func() {
			for i := 0; i < 500; i++ {
				r := g.Reading()
				So(r.Light, ShouldBeBetweenOrEqual, lightMin, lightMax)
				So(r.Temperature, ShouldBeBetweenOrEqual, temperatureMin, temperatureMax)
				So(r.Humidity, ShouldBeBetweenOrEqual, humidityMin, humidityMax)
			}
		})

		Convey("Then ratings come from known users and stay in range", func() {
			So(len(g.Users()), ShouldEqual, 4)
			for i := 0; i < 100; i++ {
				user, rating := g.Rating()
				So(g.Users(), ShouldContain, user)
				So(rating, ShouldBeBetweenOrEqual, minRating, maxRating)
			}
		})

		Convey("Then motion follows its probability bounds", func() {
			So(g.Motion(0), ShouldBeFalse)
			So(g.Motion(1), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a fake service", t, func() {
		ctx := context.Background()
		svc := &fakeService{visual: "2024-05-01T12:00:00Z"}
		server := httptest.NewServer(svc.handler())
		defer server.Close()
		client := NewHTTPClient(server.URL, DefaultTimeout, ingest.DefaultSensorTopic, ingest.DefaultMotionTopic)

		Convey("When the service is healthy", func() {
			So(client.Health(ctx), ShouldBeNil)
		})

		Convey("When running ten readings with motion and ratings", func() {
			stats, err := Run(ctx, Config{
				BaseURL:           server.URL,
				Count:             10,
				MotionProbability: 1,
				RateEvery:         5,
				Seed:              7,
			}, client, client)

			Convey("Then every call reaches the service", func() {
				So(err, ShouldBeNil)
				So(stats.Readings, ShouldEqual, 10)
				So(stats.MotionEvents, ShouldEqual, 10)
				So(stats.Ratings, ShouldEqual, 2)
				So(stats.PublishFailed, ShouldEqual, 0)
				So(len(svc.sensor), ShouldEqual, 10)
				So(svc.motion, ShouldEqual, 10)
				So(svc.sensor[0], ShouldContainKey, "light")
				So(svc.ratings[0]["visual_time"], ShouldEqual, svc.visual)
			})
		})

		Convey("When no visual exists yet", func() {
			svc.visual = ""
			stats, err := Run(ctx, Config{BaseURL: server.URL, Count: 3, RateEvery: 1, Seed: 1}, client, client)

			Convey("Then ratings are skipped and counted", func() {
				So(err, ShouldBeNil)
				So(stats.Readings, ShouldEqual, 3)
				So(stats.Ratings, ShouldEqual, 0)
				So(stats.RateFailed, ShouldEqual, 3)
			})

			Convey("And LatestVisual reports it", func() {
				_, err := client.LatestVisual(ctx)
				So(errors.Is(err, ErrNoVisual), ShouldBeTrue)
			})
		})

		Convey("When publishing to an unknown topic", func() {
			err := client.Publish(ctx, "elsewhere", []byte(`{}`))
			So(errors.Is(err, ErrUnknownTopic), ShouldBeTrue)
		})

		Convey("When the context is already canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			stats, err := Run(cctx, Config{BaseURL: server.URL, Seed: 1}, client, nil)
			So(err, ShouldBeNil)
			So(stats.Readings, ShouldEqual, 0)
		})
	})
}
