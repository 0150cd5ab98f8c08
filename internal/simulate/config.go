package simulate

import (
	"time"

	"github.com/okian/smartart/internal/domain/ingest"
)

// Defaults applied to a zero Config.
const (
	DefaultBaseURL  = "http://localhost:5000"
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 10 * time.Second
	DefaultUsers    = 3
)

// Config drives a simulation run.
type Config struct {
	BaseURL  string        // service root used by the HTTP client
	Interval time.Duration // pause between readings
	// Count is the number of readings; zero runs until ctx is done.
	Count             int
	MotionProbability float64 // chance a reading is followed by motion=1
	// RateEvery submits a rating after every n-th reading; zero disables rating.
	RateEvery   int
	Users       int
	Timeout     time.Duration
	Seed        int64
	SensorTopic string
	MotionTopic string
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Users <= 0 {
		c.Users = DefaultUsers
	}
	if c.SensorTopic == "" {
		c.SensorTopic = ingest.DefaultSensorTopic
	}
	if c.MotionTopic == "" {
		c.MotionTopic = ingest.DefaultMotionTopic
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

// Stats counts what a run did.
type Stats struct {
	Readings      int
	MotionEvents  int
	Ratings       int
	PublishFailed int
	RateFailed    int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
