package simulate

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/okian/smartart/internal/domain/model"
)

// Reading ranges.
const (
	lightMin       = 100.0
	lightMax       = 800.0
	temperatureMin = 0.0
	temperatureMax = 35.0
	humidityMin    = 30.0
	humidityMax    = 90.0
)

// Reading is one synthetic sensor sample.
type Reading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Light       float64 `json:"light"`
}

// Generator produces readings, motion flags and ratings from a seeded source.
type Generator struct {
	rnd   *rand.Rand
	users []string
}

// NewGenerator creates a Generator with n synthetic user IDs.
func NewGenerator(seed int64, users int) *Generator {
	g := &Generator{rnd: rand.New(rand.NewSource(seed))}
	for i := 0; i < users; i++ {
		g.users = append(g.users, uuid.NewString())
	}
	return g
}

// Users returns the synthetic user IDs.
func (g *Generator) Users() []string {
	return g.users
}

// Reading draws a sample with every field inside its range.
func (g *Generator) Reading() Reading {
	return Reading{
		Temperature: round1(temperatureMin + g.rnd.Float64()*(temperatureMax-temperatureMin)),
		Humidity:    round1(humidityMin + g.rnd.Float64()*(humidityMax-humidityMin)),
		Light:       float64(int(lightMin) + g.rnd.Intn(int(lightMax-lightMin)+1)),
	}
}

// Motion reports whether motion fires with probability p.
func (g *Generator) Motion(p float64) bool {
	return p > 0 && g.rnd.Float64() < p
}

// Rating picks a user and a score in [MinRating, MaxRating].
func (g *Generator) Rating() (user string, rating int) {
	user = g.users[g.rnd.Intn(len(g.users))]
	return user, minRating + g.rnd.Intn(maxRating-minRating+1)
}

const (
	minRating = 0
	maxRating = 5
)

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// fieldsOf keys a reading by the measurement field names.
func fieldsOf(r Reading) map[string]float64 {
	return map[string]float64{
		model.FieldTemperature: r.Temperature,
		model.FieldHumidity:    r.Humidity,
		model.FieldLight:       r.Light,
	}
}
