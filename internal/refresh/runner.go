package refresh

import (
	"context"
	"time"

	"ipmitree/internal/config"
)

// Runner re-arms a one-shot timer after every step, so steps never overlap
// and a slow step only delays the next one.
//
// The owning loop selects on C and calls Fire when it delivers.
type Runner struct {
	sched    *Scheduler
	clock    Clock
	interval time.Duration
	timer    <-chan time.Time
}

// NewRunner creates a runner stepping sched every interval.
func NewRunner(sched *Scheduler, clock Clock, interval time.Duration) *Runner {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = config.DefaultRefreshInterval
	}
	return &Runner{sched: sched, clock: clock, interval: interval}
}

// C returns the channel that delivers when the next step is due. The first
// call arms the timer.
func (r *Runner) C() <-chan time.Time {
	if r.timer == nil {
		r.timer = r.clock.After(r.interval)
	}
	return r.timer
}

// Fire runs one step and then arms the timer for the next.
func (r *Runner) Fire() StepResult {
	r.timer = nil
	res := r.sched.Step()
	r.timer = r.clock.After(r.interval)
	return res
}

// Run steps the scheduler until ctx is done. It must be the only goroutine
// touching the store while it runs.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.C():
			r.Fire()
		}
	}
}
