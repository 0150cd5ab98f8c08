package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/internal/domain/state"
	"github.com/okian/smartart/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingWriter struct {
	mu      sync.Mutex
	records []model.PersistedRecord
}

func (w *recordingWriter) Write(_ context.Context, rec model.PersistedRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, rec)
}

func (w *recordingWriter) byMeasurement(m string) []model.PersistedRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []model.PersistedRecord
	for _, r := range w.records {
		if r.Measurement == m {
			out = append(out, r)
		}
	}
	return out
}

type published struct {
	topic   string
	payload string
}

type stubPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *stubPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{topic: topic, payload: string(payload)})
	return nil
}

func newTestBridge() (*Bridge, *state.Buffer, *recordingWriter, *stubPublisher) {
	buf := state.New(model.DefaultSnapshot())
	w := &recordingWriter{}
	pub := &stubPublisher{}
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b := New(buf, w,
		WithLogger(logger.Nop()),
		WithPublisher(pub),
		WithLocation("room1"),
		WithClock(func() time.Time { return clock }),
	)
	return b, buf, w, pub
}

func TestSensorEvents(t *testing.T) {
	Convey("Given a bridge over default state", t, func() {
		ctx := context.Background()
		b, buf, w, _ := newTestBridge()

		Convey("When a partial sensor update arrives", func() {
			res, err := b.OnSensorEvent(ctx, []byte(`{"temperature": 25}`))

			Convey("Then state is merged without clobbering other fields", func() {
				So(err, ShouldBeNil)
				So(res.Triggered, ShouldBeFalse)
				s := buf.Read()
				So(s.Temperature, ShouldEqual, 25)
				So(s.Light, ShouldEqual, 300)
				So(s.Humidity, ShouldEqual, 50)
				So(s.Motion, ShouldEqual, 0)
			})

			Convey("And the full snapshot is appended to all_sensor_data", func() {
				recs := w.byMeasurement(model.MeasurementAllSensorData)
				So(len(recs), ShouldEqual, 1)
				So(recs[0].Fields["temperature"], ShouldEqual, 25.0)
				So(recs[0].Fields["light"], ShouldEqual, 300.0)
				So(recs[0].Fields["motion"], ShouldEqual, 0)
				So(recs[0].Tags["location"], ShouldEqual, "room1")
				So(len(w.byMeasurement(model.MeasurementSensorData)), ShouldEqual, 0)
			})
		})

		Convey("When the payload carries unknown fields", func() {
			_, err := b.OnSensorEvent(ctx, []byte(`{"light": 700, "co2": 400, "motion": 1}`))

			Convey("Then they are ignored", func() {
				So(err, ShouldBeNil)
				So(buf.Read().Light, ShouldEqual, 700)
				So(buf.Read().Motion, ShouldEqual, 0)
				So(len(w.byMeasurement(model.MeasurementSensorData)), ShouldEqual, 0)
			})
		})

		Convey("When the same payload is replayed", func() {
			_, err1 := b.OnSensorEvent(ctx, []byte(`{"humidity": 61}`))
			first := buf.Read()
			_, err2 := b.OnSensorEvent(ctx, []byte(`{"humidity": 61}`))

			Convey("Then the state is unchanged by the replay", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(buf.Read(), ShouldResemble, first)
			})
		})

		Convey("When payloads are malformed", func() {
			bad := []string{
				``,
				`not json`,
				`[1, 2]`,
				`null`,
				`{"temperature": "warm"}`,
				`{"light": null}`,
				`{"humidity": 1e999}`,
				`{"light": 1} {"light": 2}`,
			}

			Convey("Then each is rejected and nothing is written", func() {
				for _, p := range bad {
					_, err := b.OnSensorEvent(ctx, []byte(p))
					So(errors.Is(err, ErrMalformedPayload), ShouldBeTrue)
				}
				So(len(w.records), ShouldEqual, 0)
				So(buf.Read(), ShouldResemble, model.DefaultSnapshot())
			})
		})
	})
}

func TestMotionEvents(t *testing.T) {
	Convey("Given a bridge over default state", t, func() {
		ctx := context.Background()
		b, buf, w, _ := newTestBridge()

		Convey("When temperature changes and then motion turns on", func() {
			_, err := b.OnSensorEvent(ctx, []byte(`{"temperature": 25}`))
			So(err, ShouldBeNil)
			res, err := b.OnMotionEvent(ctx, []byte(`{"motion": 1}`))

			Convey("Then exactly one unified record carries the full state", func() {
				So(err, ShouldBeNil)
				So(res.Triggered, ShouldBeTrue)
				recs := w.byMeasurement(model.MeasurementSensorData)
				So(len(recs), ShouldEqual, 1)
				So(recs[0].Fields, ShouldResemble, map[string]any{
					"temperature": 25.0,
					"humidity":    50.0,
					"light":       300.0,
					"motion":      1,
				})
			})
		})

		Convey("When motion turns off", func() {
			_, _ = b.OnMotionEvent(ctx, []byte(`{"motion": 1}`))
			res, err := b.OnMotionEvent(ctx, []byte(`{"motion": 0}`))

			Convey("Then state updates but nothing new is unified", func() {
				So(err, ShouldBeNil)
				So(res.Triggered, ShouldBeFalse)
				So(buf.Read().Motion, ShouldEqual, 0)
				So(len(w.byMeasurement(model.MeasurementSensorData)), ShouldEqual, 1)
			})
		})

		Convey("When motion=1 is replayed", func() {
			_, _ = b.OnMotionEvent(ctx, []byte(`{"motion": 1}`))
			_, _ = b.OnMotionEvent(ctx, []byte(`{"motion": 1}`))

			Convey("Then both produce a unified write", func() {
				So(len(w.byMeasurement(model.MeasurementSensorData)), ShouldEqual, 2)
			})
		})

		Convey("When motion is an integral float", func() {
			res, err := b.OnMotionEvent(ctx, []byte(`{"motion": 1.0}`))

			Convey("Then it is accepted", func() {
				So(err, ShouldBeNil)
				So(res.Triggered, ShouldBeTrue)
			})
		})

		Convey("When motion payloads are malformed", func() {
			bad := []string{
				`{}`,
				`{"light": 5}`,
				`{"motion": "1"}`,
				`{"motion": 0.5}`,
				`{"motion": 2}`,
				`{"motion": -1}`,
				`{"motion": true}`,
			}

			Convey("Then each is rejected and state is untouched", func() {
				for _, p := range bad {
					_, err := b.OnMotionEvent(ctx, []byte(p))
					So(errors.Is(err, ErrMalformedPayload), ShouldBeTrue)
				}
				So(len(w.records), ShouldEqual, 0)
				So(buf.Read().Motion, ShouldEqual, 0)
			})
		})
	})
}

func TestHandle(t *testing.T) {
	Convey("Given a bridge consuming bus messages", t, func() {
		ctx := context.Background()
		b, buf, w, _ := newTestBridge()
		at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

		Convey("When a sensor message arrives", func() {
			err := b.Handle(ctx, model.Message{ID: "1", Topic: DefaultSensorTopic, Payload: []byte(`{"light": 10}`), ReceivedAt: at})

			Convey("Then it is applied with the message timestamp", func() {
				So(err, ShouldBeNil)
				So(buf.Read().Light, ShouldEqual, 10)
				So(buf.Read().ObservedAt, ShouldEqual, at)
				So(w.records[0].Time, ShouldEqual, at)
			})
		})

		Convey("When a malformed message arrives", func() {
			err := b.Handle(ctx, model.Message{ID: "2", Topic: DefaultMotionTopic, Payload: []byte(`{"motion": "x"}`)})

			Convey("Then it is dropped with an informational error", func() {
				So(errors.Is(err, ErrMalformedPayload), ShouldBeTrue)
				So(len(w.records), ShouldEqual, 0)
			})
		})

		Convey("When a message arrives on another topic", func() {
			err := b.Handle(ctx, model.Message{ID: "3", Topic: "other", Payload: []byte(`{"light": 1}`)})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ErrUnknownTopic), ShouldBeTrue)
				So(buf.Read().Light, ShouldEqual, 300)
			})
		})
	})
}

func TestHTTPSubmission(t *testing.T) {
	Convey("Given a bridge with a publisher", t, func() {
		ctx := context.Background()
		b, _, w, pub := newTestBridge()

		Convey("When a sensor body is submitted", func() {
			err := b.OnHTTPSubmission(ctx, PathSensor, []byte(`{"light": 400}`))

			Convey("Then it is republished on the sensor topic without being applied", func() {
				So(err, ShouldBeNil)
				So(pub.sent, ShouldResemble, []published{{topic: DefaultSensorTopic, payload: `{"light": 400}`}})
				So(len(w.records), ShouldEqual, 0)
			})
		})

		Convey("When a motion body is submitted", func() {
			err := b.OnHTTPSubmission(ctx, PathMotion, []byte(`{"motion": 1}`))

			Convey("Then it goes to the motion topic", func() {
				So(err, ShouldBeNil)
				So(pub.sent[0].topic, ShouldEqual, DefaultMotionTopic)
			})
		})

		Convey("When the body is empty or undecodable", func() {
			for _, body := range []string{``, `{}`, `{bad`} {
				err := b.OnHTTPSubmission(ctx, PathSensor, []byte(body))
				So(errors.Is(err, ErrInvalidRequest), ShouldBeTrue)
			}

			Convey("Then nothing is published", func() {
				So(len(pub.sent), ShouldEqual, 0)
			})
		})

		Convey("When the path is unknown", func() {
			err := b.OnHTTPSubmission(ctx, "/light", []byte(`{"light": 1}`))

			Convey("Then it fails with ErrUnknownRoute", func() {
				So(errors.Is(err, ErrUnknownRoute), ShouldBeTrue)
			})
		})

		Convey("When the publisher fails", func() {
			pub.err = errors.New("broker down")
			err := b.OnHTTPSubmission(ctx, PathSensor, []byte(`{"light": 1}`))

			Convey("Then the failure is wrapped", func() {
				So(errors.Is(err, ErrPublish), ShouldBeTrue)
			})
		})
	})
}

func TestClose(t *testing.T) {
	Convey("Given a closed bridge", t, func() {
		ctx := context.Background()
		b, _, w, _ := newTestBridge()
		b.Close()

		Convey("Then new events and submissions are rejected", func() {
			_, err := b.OnSensorEvent(ctx, []byte(`{"light": 1}`))
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
			So(errors.Is(b.OnHTTPSubmission(ctx, PathSensor, []byte(`{"light": 1}`)), ErrClosed), ShouldBeTrue)
			So(len(w.records), ShouldEqual, 0)
		})
	})
}

func TestConcurrentIngress(t *testing.T) {
	Convey("Given sensor and motion events racing", t, func() {
		ctx := context.Background()
		b, _, w, _ := newTestBridge()

		var wg sync.WaitGroup
		for n := 0; n < 50; n++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = b.OnSensorEvent(ctx, []byte(`{"temperature": 30, "humidity": 40}`))
			}()
			go func() {
				defer wg.Done()
				_, _ = b.OnMotionEvent(ctx, []byte(`{"motion": 1}`))
			}()
		}
		wg.Wait()

		Convey("Then every unified record is a consistent whole snapshot", func() {
			unified := w.byMeasurement(model.MeasurementSensorData)
			So(len(unified), ShouldEqual, 50)
			for _, rec := range unified {
				temp, _ := rec.Float("temperature")
				hum, _ := rec.Float("humidity")
				So(rec.Fields["motion"], ShouldEqual, 1)
				So((temp == 22 && hum == 50) || (temp == 30 && hum == 40), ShouldBeTrue)
			}
			So(len(w.byMeasurement(model.MeasurementAllSensorData)), ShouldEqual, 50)
		})
	})
}
