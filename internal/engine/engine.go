// Package engine wires the tree, bridge, refresh scheduler and shutdown
// barrier into one unit owned by a single goroutine, and exposes the
// read side the presentation layer renders from.
package engine

import (
	"time"

	"ipmitree/internal/bridge"
	"ipmitree/internal/config"
	"ipmitree/internal/debug"
	"ipmitree/internal/domain"
	"ipmitree/internal/metrics"
	"ipmitree/internal/refresh"
	"ipmitree/internal/shutdown"
	"ipmitree/internal/tree"
)

// Row is one visible line of the tree.
type Row struct {
	ID          tree.ID
	Name        string
	Value       string
	Kind        domain.Kind
	Depth       int
	Color       domain.Color
	Counts      domain.Counts
	Active      bool
	Expanded    bool
	HasChildren bool
}

// Engine owns the model. Apart from RequestShutdown and Exec, its methods
// must be called from the goroutine that owns it: either Loop, or a UI
// update function.
type Engine struct {
	settings config.Settings
	clock    refresh.Clock
	metrics  *metrics.Metrics
	closer   shutdown.Closer

	store    *tree.Store
	bridge   *bridge.Bridge
	sched    *refresh.Scheduler
	runner   *refresh.Runner
	shutdown *shutdown.Coordinator

	requests chan struct{}
	calls    chan func()
	expireC  <-chan time.Time
	expireG  uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock for the scheduler and shutdown timer.
func WithClock(c refresh.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithMetrics records scheduler, event and shutdown metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCloser routes shutdown close requests to c.
func WithCloser(c shutdown.Closer) Option {
	return func(e *Engine) {
		e.closer = c
	}
}

// New builds an engine from settings.
func New(settings config.Settings, opts ...Option) *Engine {
	e := &Engine{
		settings: settings,
		clock:    refresh.SystemClock{},
		requests: make(chan struct{}, 1),
		calls:    make(chan func()),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.store = tree.New(tree.WithViolationReporter(e.reportViolation))
	e.shutdown = shutdown.New(e.closer,
		shutdown.WithTimeout(settings.Shutdown.Timeout),
		shutdown.WithNow(e.clock.Now),
	)
	e.bridge = bridge.New(e.store,
		bridge.WithClosedHandler(e.shutdown),
		bridge.WithLogSettings(settings.Log),
		bridge.WithObserver(e.observeEvent),
	)
	e.sched = refresh.New(e.store, settings.Refresh,
		refresh.WithClock(e.clock),
		refresh.WithObserver(e.observeStep),
	)
	e.runner = refresh.NewRunner(e.sched, e.clock, settings.Refresh.Interval)
	return e
}

// Store returns the underlying tree.
func (e *Engine) Store() *tree.Store {
	return e.store
}

// Settings returns the configuration the engine was built with.
func (e *Engine) Settings() config.Settings {
	return e.settings
}

// Subscribe registers fn on the tree's change feed.
func (e *Engine) Subscribe(fn func(tree.Change)) (cancel func()) {
	return e.store.Subscribe(fn)
}

// Apply feeds one monitoring event into the tree.
func (e *Engine) Apply(ev bridge.Event) error {
	return e.bridge.Apply(ev)
}

// ApplyAll feeds events in order and joins the failures.
func (e *Engine) ApplyAll(events []bridge.Event) error {
	return e.bridge.ApplyAll(events)
}

// RunSchedulerTick performs one bounded refresh step.
func (e *Engine) RunSchedulerTick() refresh.StepResult {
	return e.sched.Step()
}

// Snapshot returns the rows currently visible, in display order.
func (e *Engine) Snapshot() []Row {
	rows := make([]Row, 0, e.store.Len())
	for v := range e.store.Walk("", tree.WalkOptions{VisibleOnly: true}).All() {
		rows = append(rows, rowOf(v))
	}
	return rows
}

func rowOf(v tree.NodeView) Row {
	return Row{
		ID:          v.ID,
		Name:        v.Name,
		Value:       v.Value,
		Kind:        v.Kind,
		Depth:       v.Depth,
		Color:       v.Color,
		Counts:      v.Counts,
		Active:      v.Active,
		Expanded:    v.Expanded,
		HasChildren: v.HasChildren(),
	}
}

// ShutdownTargets lists the resources a graceful exit must close: every
// domain in the tree.
func (e *Engine) ShutdownTargets() []string {
	var ids []string
	for _, child := range e.store.Children(tree.RootID) {
		if v, ok := e.store.Get(child); ok && v.Kind == domain.KindDomain {
			ids = append(ids, string(child))
		}
	}
	return ids
}

// BeginShutdown starts the close barrier over ids. onComplete runs once
// every resource has reported closed, or the configured timeout expired.
func (e *Engine) BeginShutdown(ids []string, onComplete func(shutdown.Result)) error {
	err := e.shutdown.Begin(ids, func(res shutdown.Result) {
		e.expireC = nil
		if e.metrics != nil {
			e.metrics.ObserveShutdown(res)
		}
		if onComplete != nil {
			onComplete(res)
		}
	})
	if err != nil {
		return err
	}
	if timeout, gen, ok := e.shutdown.Deadline(); ok {
		e.expireC = e.clock.After(timeout)
		e.expireG = gen
	}
	return nil
}

// OnResourceClosed reports that a resource finished closing.
func (e *Engine) OnResourceClosed(id string) {
	e.shutdown.OnResourceClosed(id)
}

// ShutdownDeadline is the channel that delivers when an armed shutdown
// timeout expires. It is nil when no timeout is pending.
func (e *Engine) ShutdownDeadline() <-chan time.Time {
	return e.expireC
}

// ExpireShutdown force-completes the shutdown the deadline was armed for.
func (e *Engine) ExpireShutdown() bool {
	e.expireC = nil
	return e.shutdown.Expire(e.expireG)
}

// ShuttingDown reports whether a close barrier is outstanding.
func (e *Engine) ShuttingDown() bool {
	return e.shutdown.Active()
}

func (e *Engine) reportViolation(v tree.Violation) {
	debug.Reportf("%s", v)
	if e.metrics != nil {
		e.metrics.ObserveViolation(v)
	}
}

func (e *Engine) observeEvent(ev bridge.Event, err error) {
	if e.metrics != nil {
		e.metrics.ObserveEvent(ev.Label(), err)
		e.metrics.SetNodes(e.store.Len())
	}
}

func (e *Engine) observeStep(res refresh.StepResult) {
	if res.Failed > 0 || res.Restarted {
		debug.Logf("engine: refresh step examined=%d performed=%d failed=%d restarted=%t",
			res.Examined, res.Performed, res.Failed, res.Restarted)
	}
	if e.metrics != nil {
		e.metrics.ObserveStep(res)
	}
}
