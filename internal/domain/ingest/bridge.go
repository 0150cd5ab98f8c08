// Package ingest normalizes sensor and motion events from every ingress path
// into the shared state buffer and the time-series store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/internal/domain/state"
	"github.com/okian/smartart/pkg/logger"
	"github.com/okian/smartart/pkg/metrics"
)

// Default topic names.
const (
	DefaultSensorTopic = "smartart/sensor"
	DefaultMotionTopic = "smartart/motion"
)

// Submission paths accepted on the request/response channel.
const (
	PathSensor = "/sensor"
	PathMotion = "/motion"
)

// Writer appends records to durable storage without blocking the caller on the store.
type Writer interface {
	Write(ctx context.Context, rec model.PersistedRecord)
}

// Publisher puts a raw payload on the push bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Kind identifies the shape of an event payload.
type Kind int

const (
	KindSensor Kind = iota + 1
	KindMotion
)

func (k Kind) String() string {
	switch k {
	case KindSensor:
		return "sensor"
	case KindMotion:
		return "motion"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one raw ingress event.
type Event struct {
	Kind    Kind
	Payload []byte
	// ObservedAt defaults to the bridge clock when zero.
	ObservedAt time.Time
}

// Result describes what applying an event did.
type Result struct {
	Snapshot model.SensorSnapshot
	// Triggered is true when a unified sensor_data record was written.
	Triggered bool
}

// Bridge is the single normalization path shared by the bus and the HTTP channel.
type Bridge struct {
	state     *state.Buffer
	writer    Writer
	publisher Publisher
	logger    logger.Logger
	now       func() time.Time

	location    string
	sensorTopic string
	motionTopic string

	// applyMu keeps store append order equal to merge order.
	applyMu sync.Mutex

	lifecycle sync.RWMutex
	closed    bool
}

// New creates a Bridge over buf that appends through w.
func New(buf *state.Buffer, w Writer, opts ...Option) *Bridge {
	b := &Bridge{
		state:       buf,
		writer:      w,
		logger:      logger.Get().Named("ingest"),
		now:         time.Now,
		sensorTopic: DefaultSensorTopic,
		motionTopic: DefaultMotionTopic,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Topics returns the sensor and motion topic names.
func (b *Bridge) Topics() (sensor, motion string) {
	return b.sensorTopic, b.motionTopic
}

// NormalizeAndApply decodes ev, merges it into the state buffer and appends
// the resulting records.
func (b *Bridge) NormalizeAndApply(ctx context.Context, ev Event) (Result, error) {
	b.lifecycle.RLock()
	defer b.lifecycle.RUnlock()
	if b.closed {
		return Result{}, ErrClosed
	}

	start := time.Now()
	observedAt := ev.ObservedAt
	if observedAt.IsZero() {
		observedAt = b.now()
	}

	var (
		res Result
		err error
	)
	switch ev.Kind {
	case KindSensor:
		res, err = b.applySensor(ctx, ev.Payload, observedAt)
	case KindMotion:
		res, err = b.applyMotion(ctx, ev.Payload, observedAt)
	default:
		err = fmt.Errorf("%w: unsupported event kind %s", ErrMalformedPayload, ev.Kind)
	}
	if err != nil {
		return Result{}, err
	}

	metrics.RecordIngestLatency(time.Since(start))
	return res, nil
}

func (b *Bridge) applySensor(ctx context.Context, payload []byte, at time.Time) (Result, error) {
	partial, err := decodeSensor(payload)
	if err != nil {
		return Result{}, err
	}
	partial.ObservedAt = at

	b.applyMu.Lock()
	defer b.applyMu.Unlock()

	snap := b.state.Merge(partial)
	b.writer.Write(ctx, snap.Record(model.MeasurementAllSensorData, b.location))
	return Result{Snapshot: snap}, nil
}

func (b *Bridge) applyMotion(ctx context.Context, payload []byte, at time.Time) (Result, error) {
	motion, err := decodeMotion(payload)
	if err != nil {
		return Result{}, err
	}

	b.applyMu.Lock()
	defer b.applyMu.Unlock()

	snap := b.state.Merge(model.PartialSnapshot{Motion: &motion, ObservedAt: at})
	if motion != 1 {
		return Result{Snapshot: snap}, nil
	}

	b.writer.Write(ctx, snap.Record(model.MeasurementSensorData, b.location))
	metrics.RecordUnifiedTrigger()
	return Result{Snapshot: snap, Triggered: true}, nil
}

// OnSensorEvent applies a sensor field update.
func (b *Bridge) OnSensorEvent(ctx context.Context, payload []byte) (Result, error) {
	return b.NormalizeAndApply(ctx, Event{Kind: KindSensor, Payload: payload})
}

// OnMotionEvent applies a motion update.
func (b *Bridge) OnMotionEvent(ctx context.Context, payload []byte) (Result, error) {
	return b.NormalizeAndApply(ctx, Event{Kind: KindMotion, Payload: payload})
}

// Handle consumes one bus message. Malformed payloads are logged and dropped;
// the returned error only informs the caller.
func (b *Bridge) Handle(ctx context.Context, msg model.Message) error {
	var kind Kind
	switch msg.Topic {
	case b.sensorTopic:
		kind = KindSensor
	case b.motionTopic:
		kind = KindMotion
	default:
		b.logger.Warn(ctx, "message on unknown topic", logger.String("topic", msg.Topic), logger.String("id", msg.ID))
		return fmt.Errorf("%w: %s", ErrUnknownTopic, msg.Topic)
	}
	metrics.RecordEventReceived(msg.Topic)

	res, err := b.NormalizeAndApply(ctx, Event{Kind: kind, Payload: msg.Payload, ObservedAt: msg.ReceivedAt})
	if err != nil {
		if errors.Is(err, ErrMalformedPayload) {
			metrics.RecordEventMalformed(msg.Topic)
			metrics.RecordErrorByComponent("ingest", "malformed_payload")
			b.logger.Warn(ctx, "dropping malformed payload",
				logger.String("topic", msg.Topic),
				logger.String("id", msg.ID),
				logger.Error(err))
		}
		return err
	}

	b.logger.Debug(ctx, "event applied",
		logger.String("topic", msg.Topic),
		logger.String("id", msg.ID),
		logger.Bool("triggered", res.Triggered))
	return nil
}

// OnHTTPSubmission validates a request body and republishes it on the topic
// implied by path. It returns once the publish is accepted.
func (b *Bridge) OnHTTPSubmission(ctx context.Context, path string, payload []byte) error {
	b.lifecycle.RLock()
	closed := b.closed
	b.lifecycle.RUnlock()
	if closed {
		return ErrClosed
	}

	var topic string
	switch path {
	case PathSensor:
		topic = b.sensorTopic
	case PathMotion:
		topic = b.motionTopic
	default:
		return fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}

	if len(payload) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidRequest)
	}
	obj, err := decodeObject(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if len(obj) == 0 {
		return fmt.Errorf("%w: empty object", ErrInvalidRequest)
	}

	if b.publisher == nil {
		return ErrNoPublisher
	}
	if err := b.publisher.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, topic, err)
	}
	return nil
}

// Close waits for in-flight events to finish and rejects new ones.
func (b *Bridge) Close() {
	b.lifecycle.Lock()
	b.closed = true
	b.lifecycle.Unlock()
}
