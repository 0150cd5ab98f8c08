package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// PersistedRecord is one point in the time-series store.
type PersistedRecord struct {
	Measurement string            `json:"measurement"`
	Fields      map[string]any    `json:"fields"`
	Tags        map[string]string `json:"tags,omitempty"`
	Time        time.Time         `json:"time"`
}

// Float returns a numeric field as float64.
func (r PersistedRecord) Float(name string) (float64, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns an integral field; fractional values are rejected.
func (r PersistedRecord) Int(name string) (int, bool) {
	f, ok := r.Float(name)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// String returns a field rendered as string. Strings are returned as-is.
func (r PersistedRecord) String(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int, int64:
		return fmt.Sprint(s), true
	default:
		return "", false
	}
}

// Features extracts the model feature vector; ok is false when any feature is missing.
func (r PersistedRecord) Features() (Vector, bool) {
	t, ok1 := r.Float(FieldTemperature)
	h, ok2 := r.Float(FieldHumidity)
	l, ok3 := r.Float(FieldLight)
	if !ok1 || !ok2 || !ok3 {
		return Vector{}, false
	}
	return Vector{Temperature: t, Humidity: h, Light: l}, true
}

// MatchesTags reports whether every tag in want has the same value on the record.
func (r PersistedRecord) MatchesTags(want map[string]string) bool {
	for k, v := range want {
		if r.Tags[k] != v {
			return false
		}
	}
	return true
}

// Flatten renders the record as a flat object with an RFC3339 "time" key.
func (r PersistedRecord) Flatten() map[string]any {
	out := make(map[string]any, len(r.Fields)+len(r.Tags)+1)
	for k, v := range r.Tags {
		out[k] = v
	}
	for k, v := range r.Fields {
		out[k] = v
	}
	out["time"] = r.Time.UTC().Format(time.RFC3339Nano)
	return out
}
