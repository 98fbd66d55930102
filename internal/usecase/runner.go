package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/juju/clock"

	"github.com/semmidev/dbwarden/internal/domain"
)

type State int

const (
	StateIdle State = iota
	StateWaiting
	StateDiscovering
	StateRunning
	StateReporting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateDiscovering:
		return "discovering"
	case StateRunning:
		return "running"
	case StateReporting:
		return "reporting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

type CycleRunner interface {
	RunCycle(ctx context.Context) *domain.CycleResult
}

// Schedule yields the activation after a given instant.
type Schedule interface {
	Next(t time.Time) time.Time
}

type Waiter interface {
	WaitUntil(ctx context.Context, t time.Time) error
}

// Runner drives cycles according to the schedule until it is cancelled.
type Runner struct {
	cycle    CycleRunner
	schedule Schedule
	waiter   Waiter
	clock    clock.Clock
	logger   Logger
	startup  bool
	once     bool

	state        State
	onTransition func(from, to State)
}

type RunnerOptions struct {
	// Schedule may be nil, in which case exactly one cycle runs.
	Schedule Schedule
	// Startup runs the first cycle immediately instead of waiting.
	Startup bool
	// Once forces a single cycle even when a schedule is set.
	Once bool
	// OnTransition, if set, is called on every state change.
	OnTransition func(from, to State)
}

func NewRunner(cycle CycleRunner, waiter Waiter, clk clock.Clock, logger Logger, opts RunnerOptions) *Runner {
	r := &Runner{
		cycle:        cycle,
		schedule:     opts.Schedule,
		waiter:       waiter,
		clock:        clk,
		logger:       logger,
		startup:      opts.Startup,
		once:         opts.Once,
		state:        StateIdle,
		onTransition: opts.OnTransition,
	}
	if o, ok := cycle.(interface{ Observe(func(State)) }); ok {
		o.Observe(r.enter)
	}
	return r
}

func (r *Runner) State() State {
	return r.state
}

func (r *Runner) enter(s State) {
	from := r.state
	r.state = s
	if r.onTransition != nil && from != s {
		r.onTransition(from, s)
	}
}

// Run blocks until the runner terminates. It returns nil after a single run
// or when ctx is cancelled while waiting.
func (r *Runner) Run(ctx context.Context) error {
	defer r.enter(StateTerminated)

	if r.schedule == nil || r.once {
		if r.schedule == nil {
			r.logger.Infof("SCHEDULE value is empty, running a single backup cycle")
		}
		r.cycle.RunCycle(ctx)
		return nil
	}

	next := r.clock.Now()
	if !r.startup {
		next = r.schedule.Next(next)
	}
	r.logger.Infof("Schedule is activated. First run at %s", next.Format(time.RFC3339))

	for {
		r.enter(StateWaiting)
		if err := r.waiter.WaitUntil(ctx, next); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.logger.Infof("Shutting down")
				return nil
			}
			return err
		}

		r.cycle.RunCycle(ctx)

		if ctx.Err() != nil {
			r.logger.Infof("Shutting down")
			return nil
		}

		next = r.schedule.Next(r.clock.Now())
		r.logger.Infof("Next run at %s", next.Format(time.RFC3339))
	}
}
