// Package service wires the ingestion pipeline, the store and the blending
// engine together and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/smartart/internal/adapters/mq/bus"
	"github.com/okian/smartart/internal/adapters/mq/queue"
	"github.com/okian/smartart/internal/adapters/repository"
	"github.com/okian/smartart/internal/config"
	"github.com/okian/smartart/internal/domain/blend"
	"github.com/okian/smartart/internal/domain/ingest"
	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/internal/domain/scoring"
	"github.com/okian/smartart/internal/domain/state"
	"github.com/okian/smartart/pkg/logger"
	"github.com/okian/smartart/pkg/metrics"
)

const defaultShutdownTimeout = 10 * time.Second

// Service owns every runtime component of the bridge.
type Service struct {
	mu sync.RWMutex

	cfg             *config.Config
	logger          logger.Logger
	now             func() time.Time
	shutdownTimeout time.Duration

	// Core components
	store     repository.Store
	writer    *repository.AsyncWriter
	state     *state.Buffer
	bridge    *ingest.Bridge
	bus       bus.Bus
	engine    *blend.Engine
	predictor scoring.Predictor
	sampler   blend.Sampler

	// State
	started   bool
	startedAt time.Time
}

// New constructs a Service from cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New(context.Background())
	}
	s := &Service{
		cfg:             cfg,
		now:             time.Now,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components in dependency order and subscribes the bridge to the bus.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting smartart service...")

	if s.store == nil {
		st, err := repository.Open(ctx, s.cfg, repository.WithLogger(s.logger.Named("store")))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = st
	}
	s.writer = repository.NewAsyncWriter(s.store,
		repository.WithLogger(s.logger.Named("writer")),
		repository.WithWriteTimeout(s.cfg.StoreWriteTimeout()),
		repository.WithBufferSize(s.cfg.WriteBufferSize),
	)
	s.state = state.New(model.SensorSnapshot{
		Temperature: s.cfg.DefaultTemperature,
		Humidity:    s.cfg.DefaultHumidity,
		Light:       s.cfg.DefaultLight,
	})

	if s.bus == nil {
		b, err := s.openBus(ctx)
		if err != nil {
			s.closeStorage(ctx)
			return err
		}
		s.bus = b
	}

	s.bridge = ingest.New(s.state, s.writer,
		ingest.WithPublisher(s.bus),
		ingest.WithLocation(s.cfg.Location),
		ingest.WithTopics(s.cfg.TopicSensor, s.cfg.TopicMotion),
		ingest.WithLogger(s.logger.Named("ingest")),
	)
	// Delivery runs until Stop, not until the caller's context ends.
	if err := s.bus.Subscribe(context.WithoutCancel(ctx), s.bridge, s.cfg.TopicSensor, s.cfg.TopicMotion); err != nil {
		_ = s.bus.Close(ctx)
		s.closeStorage(ctx)
		return fmt.Errorf("subscribe: %w", err)
	}

	s.engine = s.newEngine(ctx, s.loadPredictor(ctx))

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "smartart service started",
		logger.String("bus", s.cfg.BusDriver),
		logger.String("store", s.cfg.StoreDriver),
		logger.String("location", s.cfg.Location),
		logger.Bool("model", s.engine.HasModel()),
	)
	return nil
}

func (s *Service) openBus(ctx context.Context) (bus.Bus, error) {
	switch s.cfg.BusDriver {
	case config.BusMQTT:
		b, err := bus.NewMQTTBus(ctx, mqttConfig(s.cfg), s.logger.Named("bus"))
		if err != nil {
			return nil, fmt.Errorf("connect mqtt: %w", err)
		}
		return b, nil
	default:
		q := queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.EventQueueSize))
		return bus.NewMemoryBus(q,
			bus.WithWorkers(s.cfg.WorkerCount),
			bus.WithMemoryLogger(s.logger.Named("bus")),
		), nil
	}
}

func mqttConfig(cfg *config.Config) bus.MQTTConfig {
	return bus.MQTTConfig{
		Broker:           cfg.MQTTBroker,
		ClientID:         cfg.MQTTClientID,
		QoS:              byte(cfg.MQTTQoS),
		Timeout:          cfg.MQTTTimeout(),
		Username:         cfg.MQTTUsername,
		Password:         cfg.MQTTPassword,
		RedeliveryWindow: cfg.MQTTRedeliveryWindow,
	}
}

func (s *Service) loadPredictor(ctx context.Context) scoring.Predictor {
	if s.predictor != nil {
		return s.predictor
	}
	if s.cfg.ModelPath == "" {
		return nil
	}
	m, err := scoring.Load(s.cfg.ModelPath)
	if err != nil {
		s.logger.Warn(ctx, "suggestion model not loaded", logger.String("path", s.cfg.ModelPath), logger.Error(err))
		return nil
	}
	return m
}

func (s *Service) newEngine(ctx context.Context, p scoring.Predictor) *blend.Engine {
	opts := []blend.Option{
		blend.WithAlpha(s.cfg.BlendAlpha),
		blend.WithSampleCount(s.cfg.SampleCount),
		blend.WithLogger(s.logger.Named("blend")),
	}
	if p != nil {
		opts = append(opts, blend.WithModel(p))
	}
	if s.sampler != nil {
		opts = append(opts, blend.WithSampler(s.sampler))
	}
	return blend.NewEngine(ctx, opts...)
}

// Stop shuts down in order: bus (drains queued events), bridge, writer (drains
// pending appends), store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping smartart service...")

	if err := s.bus.Close(ctx); err != nil {
		s.logger.Warn(ctx, "bus close", logger.Error(err))
	}
	s.bridge.Close()
	s.closeStorage(ctx)

	s.store, s.bus, s.writer = nil, nil, nil
	s.started = false
	s.logger.Info(ctx, "smartart service stopped")
}

func (s *Service) closeStorage(ctx context.Context) {
	if s.writer != nil {
		if err := s.writer.Close(ctx); err != nil {
			s.logger.Warn(ctx, "writer drain", logger.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "store close", logger.Error(err))
		}
	}
}

// Submit validates a sensor or motion request body and publishes it on the bus.
func (s *Service) Submit(ctx context.Context, path string, payload []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return s.bridge.OnHTTPSubmission(ctx, path, payload)
}

// SubmitRating stores a rating synchronously.
func (s *Service) SubmitRating(ctx context.Context, in RatingInput) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}

	ev := in.Event(s.now())
	start := time.Now()
	if err := s.store.Append(ctx, ev.Record()); err != nil {
		metrics.RecordStoreWriteError(model.MeasurementVisualRatings, "error")
		s.logger.Error(ctx, "store rating", logger.String("user_id", ev.UserID), logger.Error(err))
		if !errors.Is(err, repository.ErrStoreWrite) {
			err = fmt.Errorf("%w: %w", repository.ErrStoreWrite, err)
		}
		return err
	}
	metrics.RecordStoreWrite(model.MeasurementVisualRatings, time.Since(start))
	metrics.RecordRatingSubmitted()
	s.logger.Info(ctx, "rating saved",
		logger.String("user_id", ev.UserID),
		logger.Int("rating", ev.Rating),
		logger.Time("visual_time", ev.VisualTime))
	return nil
}

// LatestVisual returns the most recent unified snapshot record.
func (s *Service) LatestVisual(ctx context.Context) (model.PersistedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.PersistedRecord{}, ErrNotStarted
	}
	rec, err := repository.Latest(ctx, s.store, model.MeasurementSensorData)
	if errors.Is(err, repository.ErrNotFound) {
		return model.PersistedRecord{}, ErrNoVisual
	}
	return rec, err
}

// Snapshot returns the live state.
func (s *Service) Snapshot(_ context.Context) (model.SensorSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.SensorSnapshot{}, ErrNotStarted
	}
	return s.state.Read(), nil
}

// Blend mixes the model suggestion into the live state.
func (s *Service) Blend(ctx context.Context) (model.BlendedVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.BlendedVector{}, ErrNotStarted
	}
	return s.engine.Generate(ctx, s.state.Read()), nil
}

// ReloadModel reads model_path again and swaps the blending engine.
func (s *Service) ReloadModel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}
	m, err := scoring.Load(s.cfg.ModelPath)
	if err != nil {
		return err
	}
	s.engine = s.newEngine(ctx, m)
	s.logger.Info(ctx, "suggestion model reloaded",
		logger.String("path", s.cfg.ModelPath),
		logger.Int("samples", m.Samples),
		logger.Float64("r_squared", m.RSquared))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":  s.started,
		"bus":      s.cfg.BusDriver,
		"store":    s.cfg.StoreDriver,
		"location": s.cfg.Location,
	}
	if !s.started {
		return stats
	}

	stats["uptimeSeconds"] = s.now().Sub(s.startedAt).Seconds()
	stats["modelAvailable"] = s.engine.HasModel()
	stats["alpha"] = s.engine.Alpha()
	stats["writer"] = s.writer.Stats()
	stats["state"] = s.state.Read()
	if mb, ok := s.bus.(*bus.MemoryBus); ok {
		stats["busBacklog"] = mb.Backlog()
	}
	return stats
}

// RefreshMetrics sets the bus queue and writer backlog gauges.
func (s *Service) RefreshMetrics() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return
	}
	if mb, ok := s.bus.(*bus.MemoryBus); ok {
		metrics.UpdateQueueSize(mb.Backlog())
	}
	metrics.UpdateWriterBacklog(s.writer.Stats().Backlog)
}
