package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/smartart/internal/domain/model"
)

// Rating bounds.
const (
	MinRating = 0
	MaxRating = 5
)

// RatingInput is a validated rating submission.
type RatingInput struct {
	UserID     string
	Rating     int
	VisualTime time.Time
}

// DecodeRating validates a rating request body: user_id as string or integer,
// rating as an integer in [0,5] and visual_time as an ISO-8601 timestamp.
func DecodeRating(body []byte) (RatingInput, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return RatingInput{}, fmt.Errorf("%w: %w", ErrInvalidRating, err)
	}
	if raw == nil {
		return RatingInput{}, fmt.Errorf("%w: body must be an object", ErrInvalidRating)
	}
	for _, k := range []string{"user_id", "rating", "visual_time"} {
		if _, ok := raw[k]; !ok {
			return RatingInput{}, fmt.Errorf("%w: missing field %s", ErrInvalidRating, k)
		}
	}

	var in RatingInput
	switch v := raw["user_id"].(type) {
	case string:
		in.UserID = strings.TrimSpace(v)
	case json.Number:
		id, err := v.Int64()
		if err != nil {
			return RatingInput{}, fmt.Errorf("%w: user_id must be a string or integer", ErrInvalidRating)
		}
		in.UserID = strconv.FormatInt(id, 10)
	default:
		return RatingInput{}, fmt.Errorf("%w: user_id must be a string or integer", ErrInvalidRating)
	}
	if in.UserID == "" {
		return RatingInput{}, fmt.Errorf("%w: empty user_id", ErrInvalidRating)
	}

	rating, err := ratingValue(raw["rating"])
	if err != nil {
		return RatingInput{}, err
	}
	in.Rating = rating

	vt, ok := raw["visual_time"].(string)
	if !ok {
		return RatingInput{}, fmt.Errorf("%w: visual_time must be a string", ErrInvalidRating)
	}
	parsed, err := model.ParseTime(vt)
	if err != nil {
		return RatingInput{}, fmt.Errorf("%w: visual_time: %w", ErrInvalidRating, err)
	}
	in.VisualTime = parsed
	return in, nil
}

// ratingValue accepts an integral number or a string holding one.
func ratingValue(v any) (int, error) {
	var s string
	switch r := v.(type) {
	case json.Number:
		s = r.String()
	case string:
		s = strings.TrimSpace(r)
	default:
		return 0, fmt.Errorf("%w: rating must be an integer", ErrInvalidRating)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: rating must be an integer", ErrInvalidRating)
	}
	if n < MinRating || n > MaxRating {
		return 0, fmt.Errorf("%w: rating %d outside [%d,%d]", ErrInvalidRating, n, MinRating, MaxRating)
	}
	return n, nil
}

// Event converts the input into a rating submitted at the given time.
func (in RatingInput) Event(submittedAt time.Time) model.RatingEvent {
	return model.RatingEvent{
		UserID:      in.UserID,
		Rating:      in.Rating,
		VisualTime:  in.VisualTime,
		SubmittedAt: submittedAt.UTC(),
	}
}
