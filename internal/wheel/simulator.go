package wheel

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// SimulatedWheel is a Sampler for a hamster running at a constant speed.
// Each rotation starts with the magnet in front of the sensor for a tenth of
// the period.
type SimulatedWheel struct {
	clock  clockwork.Clock
	start  time.Time
	period time.Duration
}

// NewSimulatedWheel spins a wheel of the given circumference at speedKmh.
func NewSimulatedWheel(clock clockwork.Clock, circumference, speedKmh float64) *SimulatedWheel {
	metresPerSecond := speedKmh / 3.6
	period := time.Duration(circumference / metresPerSecond * float64(time.Second))
	return &SimulatedWheel{clock: clock, start: clock.Now(), period: period}
}

func (w *SimulatedWheel) Period() time.Duration {
	return w.period
}

func (w *SimulatedWheel) Sample() (int, error) {
	phase := w.clock.Since(w.start) % w.period
	if phase < w.period/10 {
		return 0, nil
	}
	return 1, nil
}
