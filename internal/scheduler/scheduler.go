package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"dungeon-oracle/internal/clock"
)

// ReportState persists which local day was last reported, so restarts
// and multiple ticks inside the trigger hour cannot double-send.
type ReportState interface {
	LastReportDate() (string, error)
	SetLastReportDate(day string) error
}

// ReportFunc builds and delivers the report for the given local day.
// An error means delivery did not happen and the tick may retry.
type ReportFunc func(ctx context.Context, day string) error

// Scheduler ticks once per minute and fires the daily report exactly
// once per local day at the configured hour. A failed delivery is
// retried on following ticks until the day rolls over, at which point
// the stale report is abandoned.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	resolver   *clock.Resolver
	state      ReportState
	hour       int
	reportFunc ReportFunc
}

func New(resolver *clock.Resolver, state ReportState, hour int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(resolver.Location())),
		ctx:      ctx,
		cancel:   cancel,
		resolver: resolver,
		state:    state,
		hour:     hour,
	}
}

// SetReportFunction sets the delivery callback.
func (s *Scheduler) SetReportFunction(f ReportFunc) {
	s.reportFunc = f
}

// Start begins the per-minute tick loop.
func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		log.Println("⚠️ Report function not set, scheduler will not send reports")
		return nil
	}

	_, err := s.cron.AddFunc("* * * * *", func() {
		s.Tick(s.resolver.Now())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("📅 Scheduler started - daily reports fire at %02d:00 %s", s.hour, s.resolver.Location())
	return nil
}

// Tick runs one pass of the trigger state machine for the instant now.
// Exported so tests can drive it with a fake clock.
func (s *Scheduler) Tick(now time.Time) {
	if s.resolver.Hour(now) != s.hour {
		return
	}
	day := s.resolver.DayKey(now)
	last, err := s.state.LastReportDate()
	if err != nil {
		log.Printf("❌ Failed to read report state: %v", err)
		return
	}
	if last == day {
		return
	}
	if err := s.reportFunc(s.ctx, day); err != nil {
		// Delivery failed: keep the state unset so the next tick retries.
		log.Printf("❌ Daily report delivery failed, will retry next tick: %v", err)
		return
	}
	if err := s.state.SetLastReportDate(day); err != nil {
		log.Printf("❌ Failed to persist report state: %v", err)
	}
}

// Stop halts the tick loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("📅 Scheduler stopped")
}

// IsRunning reports whether the tick loop is active.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
