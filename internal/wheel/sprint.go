package wheel

import (
	"time"

	"github.com/refty/hamcounter/internal/domain"
)

// DefaultBreakGap ends a sprint when no rotation follows within it.
const DefaultBreakGap = 5 * time.Second

// SprintBuilder groups consecutive runs into sprints. Runs belong to the same
// sprint while each starts less than the break gap after the previous one
// ended.
type SprintBuilder struct {
	gap      time.Duration
	minCount int

	open     bool
	current  domain.Sprint
	speedSum float64
}

// NewSprintBuilder drops sprints with fewer than minCount runs.
func NewSprintBuilder(gap time.Duration, minCount int) *SprintBuilder {
	if minCount < 1 {
		minCount = 1
	}
	return &SprintBuilder{gap: gap, minCount: minCount}
}

// Add records run. If run starts a new sprint, the previous one is returned.
func (b *SprintBuilder) Add(run domain.Run) (domain.Sprint, bool) {
	var (
		finished domain.Sprint
		ok       bool
	)
	if b.open && run.From.Sub(b.current.To) >= b.gap {
		finished, ok = b.close()
	}

	if !b.open {
		b.open = true
		b.current = domain.Sprint{From: run.From, To: run.To}
		b.speedSum = 0
	}
	b.current.To = run.To
	b.current.Count++
	b.speedSum += run.Speed
	return finished, ok
}

// Flush closes the open sprint once now is at least the break gap past its
// last run.
func (b *SprintBuilder) Flush(now time.Time) (domain.Sprint, bool) {
	if !b.open || now.Sub(b.current.To) < b.gap {
		return domain.Sprint{}, false
	}
	return b.close()
}

func (b *SprintBuilder) close() (domain.Sprint, bool) {
	sprint := b.current
	b.open = false
	if sprint.Count < b.minCount {
		return domain.Sprint{}, false
	}
	sprint.AverageSpeed = b.speedSum / float64(sprint.Count)
	return sprint, true
}
