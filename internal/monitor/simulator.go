package monitor

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"ipmitree/internal/bridge"
	"ipmitree/internal/debug"
	"ipmitree/internal/refresh"
	"ipmitree/internal/tree"
)

// Simulator plays a Scenario. It is the only writer to its event channel;
// everything it learns or produces reaches the tree as an event.
//
// Refresh and RequestClose may be called from the loop goroutine; they
// never block on the channel.
type Simulator struct {
	sc     *Scenario
	clock  refresh.Clock
	events chan bridge.Event

	mu       sync.Mutex
	values   map[string]string
	readings map[string]int

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithClock replaces the system clock.
func WithClock(c refresh.Clock) SimulatorOption {
	return func(s *Simulator) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithBuffer sets the event channel capacity.
func WithBuffer(n int) SimulatorOption {
	return func(s *Simulator) {
		if n >= 0 {
			s.events = make(chan bridge.Event, n)
		}
	}
}

// NewSimulator prepares sc for playback.
func NewSimulator(sc *Scenario, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		sc:       sc,
		clock:    refresh.SystemClock{},
		events:   make(chan bridge.Event, 64),
		values:   make(map[string]string),
		readings: make(map[string]int),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, res := range sc.Resources {
		if res.Value != "" {
			s.values[res.ID] = res.Value
		}
	}
	return s
}

// Events is the channel every notification is delivered on.
func (s *Simulator) Events() <-chan bridge.Event {
	return s.events
}

// InitialEvents returns the add events for the scenario's starting
// resources. Resources with a reading get the simulator as payload so the
// scheduler can refresh them.
func (s *Simulator) InitialEvents() []bridge.Event {
	return s.sc.InitialEvents(func(res Resource) any {
		if res.Value == "" {
			return nil
		}
		return s
	})
}

// Run plays the scenario steps until they run out or ctx is done. It does
// not close the event channel: refresh and close replies may still follow.
func (s *Simulator) Run(ctx context.Context) error {
	for _, st := range s.sc.Steps {
		if st.After > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.done:
				return nil
			case <-s.clock.After(st.After):
			}
		}
		if st.Action == ActionValue || (st.Action == ActionAdd && st.Value != "") {
			s.mu.Lock()
			s.values[st.ID] = st.Value
			s.readings[st.ID] = 0
			s.mu.Unlock()
		}
		var payload any
		if st.Action == ActionAdd && st.Value != "" {
			payload = s
		}
		ev, ok := st.event(payload)
		if !ok {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case s.events <- ev:
		}
	}
	debug.Log("monitor: scenario finished")
	return nil
}

// Refresh answers asynchronously with the resource's next reading.
func (s *Simulator) Refresh(id string) error {
	s.mu.Lock()
	base, ok := s.values[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("resource %s has no reading", id)
	}
	s.readings[id]++
	value := base
	if n := s.readings[id]; n > 1 {
		value = fmt.Sprintf("%s (#%d)", base, n)
	}
	s.mu.Unlock()

	s.send(bridge.RefreshCompleted{ID: tree.ID(id), Value: value})
	return nil
}

// RequestClose acknowledges with ResourceClosed once the close delay has
// passed. Resources listed as failing are refused; hanging ones never
// answer.
func (s *Simulator) RequestClose(id string) error {
	if slices.Contains(s.sc.Close.Fail, id) {
		return fmt.Errorf("close of %s refused", id)
	}
	if slices.Contains(s.sc.Close.Hang, id) {
		debug.Logf("monitor: %s will never report closed", id)
		return nil
	}
	delay := s.sc.Close.Delay
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if delay > 0 {
			select {
			case <-s.done:
				return
			case <-s.clock.After(delay):
			}
		}
		select {
		case <-s.done:
		case s.events <- bridge.ResourceClosed{ID: tree.ID(id)}:
		}
	}()
	return nil
}

// Stop abandons pending replies and stops Run. It is safe to call more
// than once.
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Simulator) send(ev bridge.Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-s.done:
		case s.events <- ev:
		}
	}()
}
