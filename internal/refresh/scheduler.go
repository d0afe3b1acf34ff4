// Package refresh drives the periodic, bounded refresh scan over the tree.
//
// Each Step examines a capped number of nodes in traversal order, starting
// where the previous step stopped, so every node is eventually visited no
// matter how large the tree grows.
package refresh

import (
	"fmt"
	"time"

	"ipmitree/internal/config"
	"ipmitree/internal/debug"
	"ipmitree/internal/domain"
	"ipmitree/internal/tree"
)

// StepResult summarises one Step.
type StepResult struct {
	Examined  int
	Performed int
	Failed    int
	// Restarted is set when a saved cursor could not be resumed.
	Restarted bool
	// Exhausted is set when the step reached the end of the traversal.
	Exhausted bool
	Duration  time.Duration
}

// Scheduler performs bounded refresh steps. Like the store it walks, it is
// owned by a single loop.
type Scheduler struct {
	store *tree.Store
	clock Clock

	maxPerformed int
	maxExamined  int
	visibleOnly  bool

	cursor    tree.ID
	hasCursor bool

	observers []func(StepResult)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the system clock used to time steps.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithObserver registers fn to receive every StepResult.
func WithObserver(fn func(StepResult)) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// New creates a scheduler over store. Non-positive caps fall back to the
// configured defaults.
func New(store *tree.Store, cfg config.RefreshSettings, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:        store,
		clock:        SystemClock{},
		maxPerformed: cfg.MaxPerformed,
		maxExamined:  cfg.MaxExamined,
		visibleOnly:  cfg.VisibleOnly,
	}
	if s.maxPerformed <= 0 {
		s.maxPerformed = config.DefaultMaxPerformed
	}
	if s.maxExamined <= 0 {
		s.maxExamined = config.DefaultMaxExamined
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cursor returns the id the next step will start from, if any.
func (s *Scheduler) Cursor() (tree.ID, bool) {
	return s.cursor, s.hasCursor
}

// Reset clears the cursor so the next step starts at the root.
func (s *Scheduler) Reset() {
	s.cursor, s.hasCursor = "", false
}

// Step runs one bounded scan. It resumes from the saved cursor, or from the
// root when there is none or the cursor node has gone (or been hidden). It
// stops once MaxPerformed refreshes have been issued, MaxExamined nodes
// have been looked at, or the traversal ends.
func (s *Scheduler) Step() StepResult {
	start := s.clock.Now()
	opts := tree.WalkOptions{VisibleOnly: s.visibleOnly}

	var res StepResult
	w := s.store.Walk(s.cursor, opts)
	if s.hasCursor && w.Lost() {
		debug.Logf("refresh: cursor %s no longer reachable, restarting scan", s.cursor)
		res.Restarted = true
		w = s.store.Walk("", opts)
	}

	for res.Examined < s.maxExamined && res.Performed < s.maxPerformed {
		v, ok := w.Next()
		if !ok {
			break
		}
		res.Examined++
		r, ok := v.Payload.(domain.Refresher)
		if !ok {
			continue
		}
		res.Performed++
		if err := invoke(r, v.ID); err != nil {
			res.Failed++
			debug.Logf("refresh: %s failed: %v", v.ID, err)
		}
	}

	if next, ok := w.Peek(); ok {
		s.cursor, s.hasCursor = next, true
	} else {
		// A walk that lost its place mid-step is not exhausted, but the
		// next step restarts from the root either way.
		res.Exhausted = !w.Lost()
		s.Reset()
	}
	res.Duration = s.clock.Now().Sub(start)

	for _, fn := range s.observers {
		fn(res)
	}
	return res
}

// invoke calls the refresh capability, converting a panic into an error so
// one broken node cannot abort the step.
func invoke(r domain.Refresher, id tree.ID) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.Refresh(string(id))
}
