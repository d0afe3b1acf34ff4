package monitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipmitree/internal/bridge"
	"ipmitree/internal/domain"
	"ipmitree/internal/refresh"
	"ipmitree/internal/tree"
)

func newSim(t *testing.T, body string) (*Simulator, *refresh.FakeClock) {
	t.Helper()
	sc, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	clock := refresh.NewFakeClock(time.Unix(0, 0))
	sim := NewSimulator(sc, WithClock(clock))
	t.Cleanup(sim.Stop)
	return sim, clock
}

func receive(t *testing.T, sim *Simulator) bridge.Event {
	t.Helper()
	select {
	case ev := <-sim.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for an event")
		return nil
	}
}

// advanceWhenArmed waits for n timers to be armed, then advances the clock.
func advanceWhenArmed(t *testing.T, clock *refresh.FakeClock, n int, d time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool { return clock.Waiters() >= n }, 2*time.Second, time.Millisecond)
	clock.Advance(d)
}

func TestInitialEventsCarryRefreshPayload(t *testing.T) {
	sim, _ := newSim(t, siteScenario)
	events := sim.InitialEvents()
	require.Len(t, events, 3)

	dom := events[0].(bridge.ResourceAdded)
	assert.Nil(t, dom.Payload, "resources without a reading are not refreshable")
	temp := events[2].(bridge.ResourceAdded)
	_, ok := temp.Payload.(domain.Refresher)
	assert.True(t, ok, "sensor with a reading should be refreshable")
}

func TestRunPlaysStepsOnClock(t *testing.T) {
	sim, clock := newSim(t, siteScenario)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	advanceWhenArmed(t, clock, 1, time.Second)
	assert.Equal(t, bridge.ConditionEntered{ID: "temp", Level: domain.LevelCritical}, receive(t, sim))

	advanceWhenArmed(t, clock, 1, 2*time.Second)
	assert.Equal(t, bridge.ConditionCleared{ID: "temp", Level: domain.LevelCritical}, receive(t, sim))
	require.NoError(t, <-done)

	require.NoError(t, sim.Refresh("temp"))
	assert.Equal(t, bridge.RefreshCompleted{ID: "temp", Value: "88 C"}, receive(t, sim))
}

func TestRefreshNumbersReadings(t *testing.T) {
	sim, _ := newSim(t, siteScenario)

	require.NoError(t, sim.Refresh("temp"))
	first := receive(t, sim).(bridge.RefreshCompleted)
	require.NoError(t, sim.Refresh("temp"))
	second := receive(t, sim).(bridge.RefreshCompleted)

	assert.Equal(t, "41 C", first.Value)
	assert.Equal(t, "41 C (#2)", second.Value)
	assert.Error(t, sim.Refresh("dom"))
}

func TestRequestCloseRules(t *testing.T) {
	sim, clock := newSim(t, siteScenario)

	assert.Error(t, sim.RequestClose("dom-fail"))
	require.NoError(t, sim.RequestClose("dom-hang"))
	require.NoError(t, sim.RequestClose("dom"))

	advanceWhenArmed(t, clock, 1, 500*time.Millisecond)
	assert.Equal(t, bridge.ResourceClosed{ID: tree.ID("dom")}, receive(t, sim))

	select {
	case ev := <-sim.Events():
		t.Fatalf("hanging resource reported %v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	sim, _ := newSim(t, siteScenario)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sim.Run(ctx), context.Canceled)
}

func TestStopAbandonsPendingReplies(t *testing.T) {
	sim, clock := newSim(t, siteScenario)
	require.NoError(t, sim.RequestClose("dom"))
	require.Eventually(t, func() bool { return clock.Waiters() == 1 }, 2*time.Second, time.Millisecond)

	sim.Stop()
	sim.Stop()
	assert.Empty(t, sim.Events())
}
