package zsmgenerator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	zsmmodels "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Models"
)

// timestampLayout renders local wall-clock seconds. The trailing Z is appended
// as a label, matching what the device cloud returns.
const timestampLayout = "2006-01-02T15:04:05"

// Value ranges of the simulated probe.
const (
	moistureBase   = 34.5
	moistureSpan   = 1.0
	moistureJitter = 0.5

	soilTempBase   = 19.0
	soilTempSpan   = 2.0
	soilTempJitter = 0.2

	rainChance = 0.2
	rainMaxMM  = 0.5
)

// Generator fabricates soil readings in place of the device cloud API.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithRand overrides the random source.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// New creates a generator seeded from the current time.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate simulates one call to the readings API. It never panics: missing
// input produces a failed batch.
func (g *Generator) Generate(apiToken, deviceID string) zsmmodels.ReadingBatch {
	reading, err := g.Measure(apiToken, deviceID)
	if err != nil {
		return zsmmodels.FailedBatch(err)
	}
	return zsmmodels.ReadingBatch{
		Success:  true,
		DeviceID: deviceID,
		Readings: []zsmmodels.Reading{reading},
	}
}

// Measure produces a single reading or ErrMissingCredentials.
func (g *Generator) Measure(apiToken, deviceID string) (zsmmodels.Reading, error) {
	if apiToken == "" || deviceID == "" {
		return zsmmodels.Reading{}, zsmmodels.ErrMissingCredentials
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().Truncate(time.Second).Format(timestampLayout) + "Z"

	moisture := g.uniform(moistureBase, moistureBase+moistureSpan) + g.uniform(-moistureJitter, moistureJitter)
	soilTemp := g.uniform(soilTempBase, soilTempBase+soilTempSpan) + g.uniform(-soilTempJitter, soilTempJitter)

	rain := 0.0
	if g.rng.Float64() > 1-rainChance {
		rain = round2(g.uniform(0, rainMaxMM))
	}

	return zsmmodels.Reading{
		Timestamp: ts,
		DeviceID:  deviceID,
		Measurements: zsmmodels.Measurement{
			SoilMoisturePercent:    round2(moisture),
			SoilTemperatureCelsius: round2(soilTemp),
			PrecipitationMM:        rain,
		},
	}, nil
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
