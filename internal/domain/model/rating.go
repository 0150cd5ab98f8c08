package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRating marks a rating record that cannot be decoded.
var ErrInvalidRating = errors.New("invalid rating record")

// RatingEvent is one human rating of a rendered visual.
type RatingEvent struct {
	UserID      string    `json:"user_id"`
	Rating      int       `json:"rating"`
	VisualTime  time.Time `json:"visual_time"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Record builds the visual_ratings record for the rating.
func (r RatingEvent) Record() PersistedRecord {
	return PersistedRecord{
		Measurement: MeasurementVisualRatings,
		Fields: map[string]any{
			FieldRating:     r.Rating,
			FieldVisualTime: r.VisualTime.UTC().Format(time.RFC3339Nano),
			FieldTimestamp:  r.SubmittedAt.UTC().Format(time.RFC3339Nano),
		},
		Tags: map[string]string{TagUserID: r.UserID},
		Time: r.SubmittedAt,
	}
}

// RatingFromRecord decodes a visual_ratings record.
func RatingFromRecord(rec PersistedRecord) (RatingEvent, error) {
	rating, ok := rec.Int(FieldRating)
	if !ok {
		return RatingEvent{}, fmt.Errorf("%w: rating field", ErrInvalidRating)
	}
	raw, ok := rec.String(FieldVisualTime)
	if !ok {
		return RatingEvent{}, fmt.Errorf("%w: visual_time field", ErrInvalidRating)
	}
	vt, err := ParseTime(raw)
	if err != nil {
		return RatingEvent{}, fmt.Errorf("%w: %w", ErrInvalidRating, err)
	}
	return RatingEvent{
		UserID:      rec.Tags[TagUserID],
		Rating:      rating,
		VisualTime:  vt,
		SubmittedAt: rec.Time,
	}, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime accepts RFC3339 and the zone-less ISO-8601 forms; zone-less values are UTC.
func ParseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
