// Package model contains domain models passed between layers.
package model

import "time"

// Measurement names used by the time-series store.
const (
	MeasurementAllSensorData = "all_sensor_data"
	MeasurementSensorData    = "sensor_data"
	MeasurementVisualRatings = "visual_ratings"
)

// Field and tag names shared by records.
const (
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldLight       = "light"
	FieldMotion      = "motion"

	FieldRating     = "rating"
	FieldVisualTime = "visual_time"
	FieldTimestamp  = "timestamp"

	TagLocation = "location"
	TagUserID   = "user_id"
)

// FeatureFields lists the environmental fields used as model features, in vector order.
var FeatureFields = []string{FieldTemperature, FieldHumidity, FieldLight}

// SensorSnapshot is the full latest-known environment.
type SensorSnapshot struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Light       float64   `json:"light"`
	Motion      int       `json:"motion"`
	ObservedAt  time.Time `json:"observed_at"`
}

// DefaultSnapshot returns the snapshot used before any reading arrives.
func DefaultSnapshot() SensorSnapshot {
	return SensorSnapshot{Temperature: 22, Humidity: 50, Light: 300, Motion: 0}
}

// Vector returns the environmental part of the snapshot.
func (s SensorSnapshot) Vector() Vector {
	return Vector{Temperature: s.Temperature, Humidity: s.Humidity, Light: s.Light}
}

// Fields renders the snapshot as a record field map.
func (s SensorSnapshot) Fields() map[string]any {
	return map[string]any{
		FieldTemperature: s.Temperature,
		FieldHumidity:    s.Humidity,
		FieldLight:       s.Light,
		FieldMotion:      s.Motion,
	}
}

// Record builds a persisted record for measurement stamped with ObservedAt.
func (s SensorSnapshot) Record(measurement, location string) PersistedRecord {
	rec := PersistedRecord{
		Measurement: measurement,
		Fields:      s.Fields(),
		Time:        s.ObservedAt,
	}
	if location != "" {
		rec.Tags = map[string]string{TagLocation: location}
	}
	return rec
}

// PartialSnapshot carries only the fields present in one event.
type PartialSnapshot struct {
	Temperature *float64
	Humidity    *float64
	Light       *float64
	Motion      *int
	ObservedAt  time.Time
}

// IsEmpty reports whether no field is present.
func (p PartialSnapshot) IsEmpty() bool {
	return p.Temperature == nil && p.Humidity == nil && p.Light == nil && p.Motion == nil
}

// Vector is the blendable environmental feature vector.
type Vector struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Humidity    float64 `json:"humidity" yaml:"humidity"`
	Light       float64 `json:"light" yaml:"light"`
}

// Slice returns the vector in FeatureFields order.
func (v Vector) Slice() []float64 {
	return []float64{v.Temperature, v.Humidity, v.Light}
}

// BlendedVector is what the rendering consumer receives.
type BlendedVector struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Light       float64   `json:"light"`
	Motion      int       `json:"motion"`
	ObservedAt  time.Time `json:"observed_at"`
	Alpha       float64   `json:"alpha"`
	Suggested   bool      `json:"suggested"`
}

// Vector returns the environmental part of the blended output.
func (b BlendedVector) Vector() Vector {
	return Vector{Temperature: b.Temperature, Humidity: b.Humidity, Light: b.Light}
}
