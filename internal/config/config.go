// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Flat koanf keys so that every field maps to one SMARTART_<KEY> env var.
// - New(ctx) returns a Config holding all defaults.
// - Validate reports problems wrapped in ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Supported bus drivers.
const (
	BusMemory = "memory"
	BusMQTT   = "mqtt"
)

// Supported store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
	StoreInflux = "influx"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// BusDriver selects the push bus: memory or mqtt.
	BusDriver string `koanf:"bus_driver"`

	// MQTT connection settings, used when BusDriver is mqtt.
	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTClientID string `koanf:"mqtt_client_id"`
	MQTTQoS      int    `koanf:"mqtt_qos"`
	MQTTUsername string `koanf:"mqtt_username"`
	MQTTPassword string `koanf:"mqtt_password"`

	// MQTTTimeoutMS bounds connect, publish and subscribe acknowledgements.
	MQTTTimeoutMS int `koanf:"mqtt_timeout_ms"`

	// MQTTRedeliveryWindow is how many recent packet IDs are kept to drop QoS 1
	// redeliveries. Zero uses the dedupe default.
	MQTTRedeliveryWindow int `koanf:"mqtt_redelivery_window"`

	// TopicSensor and TopicMotion name the two ingress topics.
	TopicSensor string `koanf:"topic_sensor"`
	TopicMotion string `koanf:"topic_motion"`

	// EventQueueSize bounds the in-memory bus queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of bus workers. One worker keeps per-topic arrival order.
	WorkerCount int `koanf:"worker_count"`

	// StoreDriver selects the time-series backend.
	StoreDriver string `koanf:"store_driver"`

	SQLitePath string `koanf:"sqlite_path"`
	BadgerDir  string `koanf:"badger_dir"`

	InfluxURL    string `koanf:"influx_url"`
	InfluxToken  string `koanf:"influx_token"`
	InfluxOrg    string `koanf:"influx_org"`
	InfluxBucket string `koanf:"influx_bucket"`

	// StoreWriteTimeoutMS bounds a single append.
	StoreWriteTimeoutMS int `koanf:"store_write_timeout_ms"`

	// WriteBufferSize bounds the asynchronous writer backlog.
	WriteBufferSize int `koanf:"write_buffer_size"`

	// Location is the tag attached to every sensor record.
	Location string `koanf:"location"`

	// CorrelationWindowMS is the maximum rating/sensor distance used by training.
	// It must be positive.
	CorrelationWindowMS int `koanf:"correlation_window_ms"`

	// SampleCount is the number of random candidates evaluated per suggestion.
	SampleCount int `koanf:"sample_count"`

	// BlendAlpha weighs the suggestion against the live snapshot, in [0,1].
	BlendAlpha float64 `koanf:"blend_alpha"`

	// ModelPath points at a trained model file; empty disables suggestions.
	ModelPath string `koanf:"model_path"`

	// Initial snapshot values used until the first reading arrives.
	DefaultLight       float64 `koanf:"default_light"`
	DefaultTemperature float64 `koanf:"default_temperature"`
	DefaultHumidity    float64 `koanf:"default_humidity"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":5000",
		BusDriver:           BusMemory,
		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientID:        "smartart-bridge",
		MQTTQoS:             1,
		MQTTTimeoutMS:       10_000,
		TopicSensor:         "smartart/sensor",
		TopicMotion:         "smartart/motion",
		EventQueueSize:      10_000,
		WorkerCount:         1,
		StoreDriver:         StoreMemory,
		SQLitePath:          "smartart.db",
		BadgerDir:           "data/badger",
		InfluxURL:           "http://localhost:8086",
		InfluxOrg:           "smartart",
		InfluxBucket:        "smartart",
		StoreWriteTimeoutMS: 2000,
		WriteBufferSize:     runtime.NumCPU() * 256,
		Location:            "room1",
		CorrelationWindowMS: 5000,
		SampleCount:         100,
		BlendAlpha:          0.5,
		DefaultLight:        300,
		DefaultTemperature:  22,
		DefaultHumidity:     50,
	}
}

// StoreWriteTimeout returns StoreWriteTimeoutMS as a duration.
func (c *Config) StoreWriteTimeout() time.Duration {
	return time.Duration(c.StoreWriteTimeoutMS) * time.Millisecond
}

// MQTTTimeout returns MQTTTimeoutMS as a duration.
func (c *Config) MQTTTimeout() time.Duration {
	return time.Duration(c.MQTTTimeoutMS) * time.Millisecond
}

// CorrelationWindow returns CorrelationWindowMS as a duration.
func (c *Config) CorrelationWindow() time.Duration {
	return time.Duration(c.CorrelationWindowMS) * time.Millisecond
}

// Validate checks field ranges and driver names.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BusDriver != BusMemory && c.BusDriver != BusMQTT:
		return fmt.Errorf("%w: unknown bus_driver %q", ErrInvalidConfig, c.BusDriver)
	case c.TopicSensor == "" || c.TopicMotion == "":
		return fmt.Errorf("%w: topics must not be empty", ErrInvalidConfig)
	case c.TopicSensor == c.TopicMotion:
		return fmt.Errorf("%w: sensor and motion topics must differ", ErrInvalidConfig)
	case c.MQTTQoS < 0 || c.MQTTQoS > 2:
		return fmt.Errorf("%w: mqtt_qos must be 0, 1 or 2", ErrInvalidConfig)
	case c.MQTTTimeoutMS < 1:
		return fmt.Errorf("%w: mqtt_timeout_ms must be positive", ErrInvalidConfig)
	case c.MQTTRedeliveryWindow < 0:
		return fmt.Errorf("%w: mqtt_redelivery_window must not be negative", ErrInvalidConfig)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.WriteBufferSize < 1:
		return fmt.Errorf("%w: write_buffer_size must be positive", ErrInvalidConfig)
	case c.StoreWriteTimeoutMS < 1:
		return fmt.Errorf("%w: store_write_timeout_ms must be positive", ErrInvalidConfig)
	case c.CorrelationWindowMS < 1:
		return fmt.Errorf("%w: correlation_window_ms must be positive", ErrInvalidConfig)
	case c.SampleCount < 1:
		return fmt.Errorf("%w: sample_count must be at least 1", ErrInvalidConfig)
	case !(c.BlendAlpha >= 0 && c.BlendAlpha <= 1):
		return fmt.Errorf("%w: blend_alpha must be within [0,1]", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	case StoreBadger:
		if c.BadgerDir == "" {
			return fmt.Errorf("%w: badger_dir must not be empty", ErrInvalidConfig)
		}
	case StoreInflux:
		if c.InfluxURL == "" || c.InfluxBucket == "" {
			return fmt.Errorf("%w: influx_url and influx_bucket must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
