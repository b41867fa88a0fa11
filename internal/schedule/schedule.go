// Package schedule runs the daily digest and the morning overdue sweep.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/erazemk/labtrack/internal/model"
	"github.com/erazemk/labtrack/internal/notify"
)

// Router is the part of the notification router the hooks use.
type Router interface {
	Mode(ctx context.Context) notify.Mode
	Notify(ctx context.Context, ev notify.Event)
	SendDigest(ctx context.Context) error
}

// OverdueSource lists overdue checkouts.
type OverdueSource interface {
	OverdueCheckouts(ctx context.Context, day time.Time) ([]model.Checkout, error)
}

// Scheduler fires the hooks at fixed local hours.
type Scheduler struct {
	router  Router
	overdue OverdueSource

	DigestHour int
	SweepHour  int
	Location   *time.Location
	Now        func() time.Time
}

// New returns a scheduler with the digest at 17:00 and the sweep at 08:00.
func New(router Router, overdue OverdueSource) *Scheduler {
	return &Scheduler{
		router:     router,
		overdue:    overdue,
		DigestHour: 17,
		SweepHour:  8,
		Location:   time.Local,
		Now:        time.Now,
	}
}

// DailyDigest sends the digest unless notifications are off.
func (s *Scheduler) DailyDigest(ctx context.Context) error {
	if s.router.Mode(ctx) == notify.ModeOff {
		slog.Info("notifications off, skipping digest")
		return nil
	}
	return s.router.SendDigest(ctx)
}

// MorningSweep sends one alert listing overdue checkouts. Nothing is sent
// when none are overdue.
func (s *Scheduler) MorningSweep(ctx context.Context) error {
	overdue, err := s.overdue.OverdueCheckouts(ctx, s.Now().In(s.Location))
	if err != nil {
		return err
	}
	if len(overdue) == 0 {
		return nil
	}
	s.router.Notify(ctx, notify.OverdueEvent(overdue))
	return nil
}

// Run fires both hooks daily until ctx is cancelled. The two timers are
// independent.
func (s *Scheduler) Run(ctx context.Context) {
	done := make(chan struct{}, 2)
	go func() {
		s.loop(ctx, "digest", s.DigestHour, s.DailyDigest)
		done <- struct{}{}
	}()
	go func() {
		s.loop(ctx, "overdue sweep", s.SweepHour, s.MorningSweep)
		done <- struct{}{}
	}()
	<-done
	<-done
}

func (s *Scheduler) loop(ctx context.Context, name string, hour int, hook func(context.Context) error) {
	for {
		next := NextRun(s.Now().In(s.Location), hour)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		slog.Info("running scheduled hook", "hook", name)
		if err := hook(ctx); err != nil {
			slog.Error("scheduled hook failed", "hook", name, "error", err)
		}
	}
}

// NextRun returns the next time at the given hour strictly after now, in
// now's location.
func NextRun(now time.Time, hour int) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, m, d+1, hour, 0, 0, 0, now.Location())
	}
	return next
}
