package blend

import "github.com/okian/smartart/internal/domain/model"

// Range is a closed interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) at(u float64) float64 { return r.Min + u*(r.Max-r.Min) }

// Bounds is the search domain of the suggestion step.
type Bounds struct {
	Temperature Range `json:"temperature"`
	Humidity    Range `json:"humidity"`
	Light       Range `json:"light"`
}

// DefaultBounds returns the domain the generator renders sensibly.
func DefaultBounds() Bounds {
	return Bounds{
		Temperature: Range{Min: 10, Max: 40},
		Humidity:    Range{Min: 30, Max: 90},
		Light:       Range{Min: 0, Max: 1000},
	}
}

// Contains reports whether v lies inside the bounds.
func (b Bounds) Contains(v model.Vector) bool {
	in := func(r Range, x float64) bool { return x >= r.Min && x <= r.Max }
	return in(b.Temperature, v.Temperature) && in(b.Humidity, v.Humidity) && in(b.Light, v.Light)
}
