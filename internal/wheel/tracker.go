// Package wheel turns photo-reflector samples from the hamster wheel into
// runs and groups consecutive runs into sprints.
package wheel

import (
	"time"

	"github.com/refty/hamcounter/internal/domain"
)

const (
	// DefaultCircumference is the wheel's circumference in metres.
	DefaultCircumference = 0.425
	// DefaultIdleTimeout discards an unfinished rotation.
	DefaultIdleTimeout = 1500 * time.Millisecond
)

// Tracker detects rotations. The magnet passing the sensor pulls the signal
// from 1 to 0; each falling edge ends the rotation in progress and starts the
// next one.
type Tracker struct {
	circumference float64
	idleTimeout   time.Duration

	previous    int
	hasPrevious bool

	inProgress bool
	start      time.Time
	lastEdge   time.Time
}

func NewTracker(circumference float64, idleTimeout time.Duration) *Tracker {
	return &Tracker{circumference: circumference, idleTimeout: idleTimeout}
}

// Observe feeds one sample taken at at. It returns a run when a falling edge
// completes a rotation.
func (t *Tracker) Observe(state int, at time.Time) (domain.Run, bool) {
	var (
		run  domain.Run
		done bool
	)

	if t.hasPrevious && t.previous == 1 && state == 0 {
		if t.inProgress {
			run, done = t.finish(at)
		}
		t.inProgress = true
		t.start = at
		t.lastEdge = at
	}

	if t.inProgress && at.Sub(t.lastEdge) > t.idleTimeout {
		t.inProgress = false
	}

	t.previous = state
	t.hasPrevious = true
	return run, done
}

// InProgress reports whether a rotation has started and not timed out.
func (t *Tracker) InProgress() bool {
	return t.inProgress
}

func (t *Tracker) finish(end time.Time) (domain.Run, bool) {
	duration := end.Sub(t.start)
	if duration <= 0 {
		return domain.Run{}, false
	}
	return domain.Run{
		From:    t.start,
		To:      end,
		Seconds: duration.Seconds(),
		Speed:   Speed(t.circumference, duration),
	}, true
}

// Speed converts one rotation of the given circumference into km/h.
func Speed(circumference float64, duration time.Duration) float64 {
	return circumference / duration.Seconds() * 3.6
}
