package clock

import (
	"fmt"
	"time"
)

// Clock abstracts the time source so schedulers and counters can be
// driven by a fake in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the wall clock.
func System() Clock { return systemClock{} }

const dayLayout = "2006-01-02"

// Resolver converts instants into local calendar days and hours for a
// single configured IANA timezone. Day keys ("2006-01-02") are the unit
// of daily resets and report deduplication.
type Resolver struct {
	loc   *time.Location
	clock Clock
}

func NewResolver(timezone string, c Clock) (*Resolver, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	if c == nil {
		c = System()
	}
	return &Resolver{loc: loc, clock: c}, nil
}

// Now returns the current instant in the configured zone.
func (r *Resolver) Now() time.Time { return r.clock.Now().In(r.loc) }

// DayKey formats an instant as its local calendar day.
func (r *Resolver) DayKey(t time.Time) string { return t.In(r.loc).Format(dayLayout) }

// Today is DayKey(Now()).
func (r *Resolver) Today() string { return r.DayKey(r.clock.Now()) }

// Hour returns the local hour of an instant.
func (r *Resolver) Hour(t time.Time) int { return t.In(r.loc).Hour() }

// DayBounds returns the [start, end) instants of a local calendar day.
func (r *Resolver) DayBounds(day string) (time.Time, time.Time, error) {
	d0, err := time.ParseInLocation(dayLayout, day, r.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse day %q: %w", day, err)
	}
	return d0, d0.AddDate(0, 0, 1), nil
}

// Location exposes the zone for collaborators that schedule in local
// time (cron).
func (r *Resolver) Location() *time.Location { return r.loc }
