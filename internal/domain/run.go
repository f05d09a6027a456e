package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run is one recorded wheel rotation.
type Run struct {
	ID        uuid.UUID `json:"id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Seconds   float64   `json:"seconds"`
	Speed     float64   `json:"speed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sprint summarises a burst of consecutive rotations.
type Sprint struct {
	ID           uuid.UUID `json:"id"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Count        int       `json:"count"`
	AverageSpeed float64   `json:"averageSpeed"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Running is the same-day aggregate pushed to dashboard clients.
type Running struct {
	TotalCount int64     `json:"totalCount"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Speed      float64   `json:"speed"`
	Seconds    float64   `json:"seconds"`
}

// RunningFor reports an inserted run together with the day's total.
func RunningFor(run Run, total int64) Running {
	return Running{
		TotalCount: total,
		From:       run.From,
		To:         run.To,
		Speed:      run.Speed,
		Seconds:    run.Seconds,
	}
}

// Heartbeat reports the day's total with no rotation attached.
func Heartbeat(now time.Time, total int64) Running {
	return Running{TotalCount: total, From: now, To: now}
}

// DayBounds returns the UTC instants at which the calendar day containing now
// starts and ends in loc. The end is exclusive.
func DayBounds(now time.Time, loc *time.Location) (start, end time.Time) {
	local := now.In(loc)
	y, m, d := local.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	end = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return start.UTC(), end.UTC()
}

// LastInstant is the latest timestamp the store can hold before end.
func LastInstant(end time.Time) time.Time {
	return end.Add(-time.Microsecond)
}

// DayKey names the local calendar day containing now, e.g. "2026-03-14".
func DayKey(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(time.DateOnly)
}
