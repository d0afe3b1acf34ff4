package main

import (
	"context"
	"fmt"

	"ipmitree/internal/bridge"
	"ipmitree/internal/config"
	"ipmitree/internal/debug"
	"ipmitree/internal/domain"
	"ipmitree/internal/engine"
	"ipmitree/internal/inventory"
	"ipmitree/internal/metrics"
	"ipmitree/internal/monitor"
	"ipmitree/internal/shutdown"
	"ipmitree/internal/tree"
)

// session is everything one invocation runs: the engine, the optional
// simulated collaborator and the events that seed the tree.
type session struct {
	settings config.Settings
	engine   *engine.Engine
	metrics  *metrics.Metrics
	sim      *monitor.Simulator
	initial  []bridge.Event
}

// newSession loads the scenario and inventory named in settings and
// builds the engine around them. It does not apply the initial events;
// the caller does that on the goroutine that will own the engine.
func newSession(ctx context.Context, settings config.Settings) (*session, error) {
	s := &session{settings: settings, metrics: metrics.New()}

	if settings.Scenario != "" {
		sc, err := monitor.LoadFile(settings.Scenario)
		if err != nil {
			return nil, err
		}
		s.sim = monitor.NewSimulator(sc)
	}

	var closer shutdown.Closer
	if s.sim != nil {
		closer = s.sim
	} else {
		// Nothing remote to close: every domain closes as soon as asked.
		closer = shutdown.CloserFunc(func(id string) error {
			s.engine.OnResourceClosed(id)
			return nil
		})
	}
	s.engine = engine.New(settings, engine.WithMetrics(s.metrics), engine.WithCloser(closer))

	if settings.Inventory != "" {
		reader, err := inventory.NewReader(settings.Inventory, inventory.WithPayload(s.inventoryPayload))
		if err != nil {
			return nil, err
		}
		events, err := reader.Load(ctx)
		if err != nil {
			return nil, err
		}
		debug.Logf("session: loaded %d inventory events from %s", len(events), settings.Inventory)
		s.initial = append(s.initial, events...)
	}
	if s.sim != nil {
		s.initial = append(s.initial, s.sim.InitialEvents()...)
	}
	return s, nil
}

// inventoryPayload lets the simulator answer refreshes for inventory
// sensors when both are configured.
func (s *session) inventoryPayload(_ tree.ID, kind domain.Kind) any {
	if s.sim == nil || kind != domain.KindSensor {
		return nil
	}
	return s.sim
}

// seed applies the initial events. Failures are reported but do not stop
// the session.
func (s *session) seed() error {
	if err := s.engine.ApplyAll(s.initial); err != nil {
		return fmt.Errorf("seed tree: %w", err)
	}
	return nil
}

func (s *session) events() <-chan bridge.Event {
	if s.sim == nil {
		return nil
	}
	return s.sim.Events()
}

func (s *session) close() {
	if s.sim != nil {
		s.sim.Stop()
	}
}
