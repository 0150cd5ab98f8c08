package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is an envelope carried by the push bus.
type Message struct {
	ID         string
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// NewMessage wraps payload for topic with a fresh id.
func NewMessage(topic string, payload []byte, at time.Time) Message {
	return Message{
		ID:         uuid.NewString(),
		Topic:      topic,
		Payload:    payload,
		ReceivedAt: at,
	}
}

// CorrelatedSample pairs one rating with the sensor features around its visual time.
type CorrelatedSample struct {
	Features   Vector    `json:"features"`
	Label      int       `json:"label"`
	SensorTime time.Time `json:"sensor_time"`
	VisualTime time.Time `json:"visual_time"`
}
