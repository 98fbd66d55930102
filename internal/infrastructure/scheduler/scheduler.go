package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/robfig/cron/v3"
)

// DefaultPollInterval is how often a Waiter re-checks the clock.
const DefaultPollInterval = 5 * time.Second

// Schedule is a parsed five-field cron expression.
type Schedule struct {
	spec  string
	sched cron.Schedule
}

func Parse(spec string) (*Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return &Schedule{spec: spec, sched: sched}, nil
}

// Next returns the first activation strictly after t.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

func (s *Schedule) String() string {
	return s.spec
}

// Waiter blocks until a wall-clock instant by polling at a coarse interval,
// so a waiting process stays responsive to cancellation.
type Waiter struct {
	clock    clock.Clock
	interval time.Duration
}

func NewWaiter(clk clock.Clock, interval time.Duration) *Waiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Waiter{clock: clk, interval: interval}
}

// WaitUntil returns nil once the clock reads t or later, or the context
// error if ctx ends first.
func (w *Waiter) WaitUntil(ctx context.Context, t time.Time) error {
	for w.clock.Now().Before(t) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.clock.After(w.interval):
		}
	}
	return nil
}
