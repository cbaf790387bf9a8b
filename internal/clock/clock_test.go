package clock

import (
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

func TestDayKeyUsesConfiguredZone(t *testing.T) {
	// 2024-06-02 03:30 UTC is still 2024-06-01 in Los Angeles.
	now := time.Date(2024, 6, 2, 3, 30, 0, 0, time.UTC)
	r, err := NewResolver("America/Los_Angeles", fakeClock{now: now})
	if err != nil {
		t.Fatalf("resolver init: %v", err)
	}
	if got := r.Today(); got != "2024-06-01" {
		t.Fatalf("Today() = %q, want 2024-06-01", got)
	}
	if got := r.Hour(now); got != 20 {
		t.Fatalf("Hour() = %d, want 20", got)
	}
}

func TestDayBounds(t *testing.T) {
	r, err := NewResolver("Europe/Moscow", fakeClock{now: time.Now()})
	if err != nil {
		t.Fatalf("resolver init: %v", err)
	}
	d0, d1, err := r.DayBounds("2024-06-01")
	if err != nil {
		t.Fatalf("DayBounds: %v", err)
	}
	if d0.Hour() != 0 || d1.Sub(d0) != 24*time.Hour {
		t.Fatalf("unexpected bounds: %v .. %v", d0, d1)
	}
	if r.DayKey(d0) != "2024-06-01" || r.DayKey(d1) != "2024-06-02" {
		t.Fatalf("bounds map to wrong days: %v %v", r.DayKey(d0), r.DayKey(d1))
	}
}

func TestBadTimezoneRejected(t *testing.T) {
	if _, err := NewResolver("Neverland/Nowhere", nil); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
