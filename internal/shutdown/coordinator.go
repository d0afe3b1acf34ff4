// Package shutdown implements the fan-in barrier that finishes teardown
// only after every outstanding resource has reported that it closed.
package shutdown

import (
	"slices"
	"sync"
	"time"

	"ipmitree/internal/debug"
)

// Closer issues an asynchronous close request for a resource. The owner of
// the resource later reports completion through OnResourceClosed.
type Closer interface {
	RequestClose(id string) error
}

// CloserFunc adapts a function to Closer.
type CloserFunc func(id string) error

// RequestClose calls f(id).
func (f CloserFunc) RequestClose(id string) error {
	return f(id)
}

// Result is handed to the completion callback.
type Result struct {
	Closed []string
	// TimedOut is set when Expire forced completion.
	TimedOut bool
	// Stragglers lists resources that never reported on a timed out
	// shutdown.
	Stragglers []string
	Elapsed    time.Duration
}

type barrier struct {
	pending    map[string]struct{}
	closed     []string
	onComplete func(Result)
	once       sync.Once
	started    time.Time
	generation uint64
}

// Coordinator owns at most one barrier at a time. Its methods are safe to
// call from any goroutine; the completion callback runs on whichever
// goroutine delivered the final close, without the lock held.
type Coordinator struct {
	mu         sync.Mutex
	closer     Closer
	timeout    time.Duration
	now        func() time.Time
	current    *barrier
	generation uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout arms a deadline for every shutdown; zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithNow replaces the time source used for Elapsed.
func WithNow(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a coordinator that requests closes through closer. A nil
// closer means close requests are assumed to have been issued elsewhere.
func New(closer Closer, opts ...Option) *Coordinator {
	c := &Coordinator{closer: closer, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin starts a shutdown over ids and requests that each one close. With
// no ids, onComplete runs before Begin returns. A second Begin while a
// barrier is outstanding fails with a double shutdown error.
func (c *Coordinator) Begin(ids []string, onComplete func(Result)) error {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return doubleShutdownError(len(c.current.pending))
	}
	c.generation++
	b := &barrier{
		pending:    make(map[string]struct{}, len(ids)),
		onComplete: onComplete,
		started:    c.now(),
		generation: c.generation,
	}
	for _, id := range ids {
		b.pending[id] = struct{}{}
	}
	if len(b.pending) == 0 {
		c.mu.Unlock()
		debug.Log("shutdown: nothing to close")
		c.fire(b, Result{})
		return nil
	}
	c.current = b
	order := c.pendingLocked()
	c.mu.Unlock()

	debug.Logf("shutdown: waiting on %d resources", len(order))
	if c.closer == nil {
		return nil
	}
	for _, id := range order {
		if err := c.closer.RequestClose(id); err != nil {
			debug.Logf("shutdown: close request for %s failed, treating as closed: %v", id, err)
			c.OnResourceClosed(id)
		}
	}
	return nil
}

// OnResourceClosed records that id finished closing. Ids the barrier is not
// waiting on, including repeats, are ignored.
func (c *Coordinator) OnResourceClosed(id string) {
	c.mu.Lock()
	b := c.current
	if b == nil {
		c.mu.Unlock()
		debug.Logf("shutdown: close of %s reported with no shutdown in progress", id)
		return
	}
	if _, ok := b.pending[id]; !ok {
		c.mu.Unlock()
		debug.Logf("shutdown: ignoring unexpected close of %s", id)
		return
	}
	delete(b.pending, id)
	b.closed = append(b.closed, id)
	if len(b.pending) > 0 {
		c.mu.Unlock()
		return
	}
	c.current = nil
	res := Result{Closed: slices.Clone(b.closed), Elapsed: c.now().Sub(b.started)}
	c.mu.Unlock()

	c.fire(b, res)
}

// Deadline returns the configured timeout and the generation of the
// outstanding barrier. ok is false when there is no barrier or no timeout.
func (c *Coordinator) Deadline() (timeout time.Duration, generation uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.timeout <= 0 {
		return 0, 0, false
	}
	return c.timeout, c.current.generation, true
}

// Expire force-completes the barrier of the given generation, listing the
// resources that never reported. It does nothing if that barrier already
// completed.
func (c *Coordinator) Expire(generation uint64) bool {
	c.mu.Lock()
	b := c.current
	if b == nil || b.generation != generation {
		c.mu.Unlock()
		return false
	}
	c.current = nil
	res := Result{
		Closed:     slices.Clone(b.closed),
		TimedOut:   true,
		Stragglers: c.pendingOf(b),
		Elapsed:    c.now().Sub(b.started),
	}
	c.mu.Unlock()

	debug.Logf("shutdown: timed out waiting on %v", res.Stragglers)
	c.fire(b, res)
	return true
}

// Active reports whether a shutdown is outstanding.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Pending returns the number of resources still to report.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0
	}
	return len(c.current.pending)
}

func (c *Coordinator) pendingLocked() []string {
	if c.current == nil {
		return nil
	}
	return c.pendingOf(c.current)
}

func (c *Coordinator) pendingOf(b *barrier) []string {
	out := make([]string, 0, len(b.pending))
	for id := range b.pending {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (c *Coordinator) fire(b *barrier, res Result) {
	b.once.Do(func() {
		if b.onComplete != nil {
			b.onComplete(res)
		}
	})
}
