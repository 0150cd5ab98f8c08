package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/okian/smartart/internal/domain/model"
)

// decodeObject parses payload as a single JSON object, keeping numbers as json.Number.
func decodeObject(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("payload is not an object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after object")
	}
	return obj, nil
}

func number(obj map[string]any, key string) (float64, bool, error) {
	raw, ok := obj[key]
	if !ok {
		return 0, false, nil
	}
	n, isNum := raw.(json.Number)
	if !isNum {
		return 0, true, fmt.Errorf("%s: expected number, got %T", key, raw)
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) {
		return 0, true, fmt.Errorf("%s: %q out of range", key, n.String())
	}
	return f, true, nil
}

// decodeSensor extracts the known environmental fields. Unknown keys are ignored.
func decodeSensor(payload []byte) (model.PartialSnapshot, error) {
	obj, err := decodeObject(payload)
	if err != nil {
		return model.PartialSnapshot{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	var p model.PartialSnapshot
	targets := map[string]**float64{
		model.FieldTemperature: &p.Temperature,
		model.FieldHumidity:    &p.Humidity,
		model.FieldLight:       &p.Light,
	}
	for key, dst := range targets {
		v, present, err := number(obj, key)
		if err != nil {
			return model.PartialSnapshot{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		if present {
			*dst = &v
		}
	}
	return p, nil
}

// decodeMotion extracts the motion flag, which must be the integer 0 or 1.
func decodeMotion(payload []byte) (int, error) {
	obj, err := decodeObject(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	v, present, err := number(obj, model.FieldMotion)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if !present {
		return 0, fmt.Errorf("%w: motion field missing", ErrMalformedPayload)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: motion must be an integer, got %v", ErrMalformedPayload, v)
	}
	if v != 0 && v != 1 {
		return 0, fmt.Errorf("%w: motion must be 0 or 1, got %v", ErrMalformedPayload, v)
	}
	return int(v), nil
}
