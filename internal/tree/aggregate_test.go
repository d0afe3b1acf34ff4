package tree

import (
	"testing"

	"ipmitree/internal/domain"
	appErrors "ipmitree/internal/errors"
)

// chain builds root > dom > ent > sensor, all active.
func chain(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(opts...)
	mustAdd(t, s, RootID, "dom")
	mustAdd(t, s, "dom", "ent")
	mustAdd(t, s, "ent", "sensor")
	return s
}

func colorOf(t *testing.T, s *Store, id ID) domain.Color {
	t.Helper()
	v, ok := s.Get(id)
	if !ok {
		t.Fatalf("%s not found", id)
	}
	return v.Color
}

func TestIncrementRollsUpToRoot(t *testing.T) {
	s := chain(t)
	if err := s.IncrementSevere("sensor"); err != nil {
		t.Fatalf("IncrementSevere: %v", err)
	}
	for _, id := range []ID{"sensor", "ent", "dom", RootID} {
		v, _ := s.Get(id)
		if v.Counts != (domain.Counts{Severe: 1}) {
			t.Fatalf("%s counts %v, want severe=1", id, v.Counts)
		}
		if v.Color != domain.ColorSevere {
			t.Fatalf("%s color %s, want severe", id, v.Color)
		}
	}
	if v, _ := s.Get("ent"); !v.Own.IsZero() {
		t.Fatalf("ancestor own counts should stay zero, got %v", v.Own)
	}
	mustVerify(t, s)
}

func TestColorFollowsPrecedence(t *testing.T) {
	s := chain(t)
	steps := []struct {
		apply func() error
		want  domain.Color
	}{
		{func() error { return s.IncrementWarning("sensor") }, domain.ColorWarning},
		{func() error { return s.IncrementCritical("sensor") }, domain.ColorCritical},
		{func() error { return s.IncrementSevere("sensor") }, domain.ColorCritical},
		{func() error { return s.DecrementCritical("sensor") }, domain.ColorSevere},
		{func() error { return s.DecrementSevere("sensor") }, domain.ColorWarning},
		{func() error { return s.DecrementWarning("sensor") }, domain.ColorNormal},
	}
	for i, step := range steps {
		if err := step.apply(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := colorOf(t, s, RootID); got != step.want {
			t.Fatalf("step %d: root color %s, want %s", i, got, step.want)
		}
	}
	mustVerify(t, s)
}

func TestRecolorEmittedOnlyOnTransition(t *testing.T) {
	s := chain(t)
	var recolors []Change
	s.Subscribe(func(c Change) {
		if c.Kind == ChangeRecolored && c.ID == RootID {
			recolors = append(recolors, c)
		}
	})

	mustNoErr(t, s.IncrementWarning("sensor"))
	mustNoErr(t, s.IncrementWarning("sensor"))
	mustNoErr(t, s.DecrementWarning("sensor"))
	if len(recolors) != 1 {
		t.Fatalf("expected a single recolor while warning stays outstanding, got %d", len(recolors))
	}
	mustNoErr(t, s.DecrementWarning("sensor"))
	if len(recolors) != 2 {
		t.Fatalf("expected a recolor back to normal, got %d", len(recolors))
	}
	last := recolors[1]
	if last.Previous != domain.ColorWarning || last.Color != domain.ColorNormal {
		t.Fatalf("unexpected transition %s -> %s", last.Previous, last.Color)
	}
}

func TestUnmatchedDecrementIsReportedAndIgnored(t *testing.T) {
	var reported []Violation
	s := chain(t, WithViolationReporter(func(v Violation) { reported = append(reported, v) }))
	mustNoErr(t, s.IncrementWarning("ent"))

	// sensor has no outstanding warning of its own even though ent does.
	err := s.DecrementWarning("sensor")
	if !appErrors.IsCode(err, appErrors.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if len(reported) != 1 || reported[0].ID != "sensor" || reported[0].Level != domain.LevelWarning {
		t.Fatalf("unexpected reports %+v", reported)
	}
	if v, _ := s.Get(RootID); v.Counts != (domain.Counts{Warning: 1}) {
		t.Fatalf("root counts changed on rejected decrement: %v", v.Counts)
	}
	mustVerify(t, s)
}

func TestIncrementErrors(t *testing.T) {
	s := chain(t)
	if err := s.Increment("ghost", domain.LevelWarning); !appErrors.IsCode(err, appErrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.Increment("sensor", domain.Level("fatal")); !appErrors.IsCode(err, appErrors.CodeInvalidLevel) {
		t.Fatalf("expected invalid level, got %v", err)
	}
	if err := s.Decrement("ghost", domain.LevelWarning); !appErrors.IsCode(err, appErrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInactiveNodeKeepsCountingButShowsInactive(t *testing.T) {
	s := New()
	if _, err := s.AddNode(RootID, "mc", NodeSpec{Kind: domain.KindMC}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	mustAdd(t, s, "mc", "sensor")

	mustNoErr(t, s.IncrementCritical("sensor"))
	mc, _ := s.Get("mc")
	if mc.Color != domain.ColorInactive {
		t.Fatalf("inactive node should show inactive, got %s", mc.Color)
	}
	if mc.Counts.Critical != 1 {
		t.Fatalf("inactive node should still accumulate, got %v", mc.Counts)
	}
	if got := colorOf(t, s, RootID); got != domain.ColorCritical {
		t.Fatalf("rollup should pass through inactive node, root is %s", got)
	}

	mustNoErr(t, s.SetActive("mc", true))
	if got := colorOf(t, s, "mc"); got != domain.ColorCritical {
		t.Fatalf("activation should recompute color from counts, got %s", got)
	}
	mustNoErr(t, s.SetActive("mc", false))
	if got := colorOf(t, s, "mc"); got != domain.ColorInactive {
		t.Fatalf("deactivation should show inactive, got %s", got)
	}
	mustVerify(t, s)
}

func TestRemoveRetractsSubtreeContribution(t *testing.T) {
	s := New()
	mustAdd(t, s, RootID, "A")
	mustAdd(t, s, "A", "B")
	mustAdd(t, s, "B", "C")
	mustAdd(t, s, "A", "other")
	mustNoErr(t, s.IncrementWarning("C"))
	mustNoErr(t, s.IncrementWarning("C"))
	mustNoErr(t, s.IncrementSevere("B"))
	mustNoErr(t, s.IncrementCritical("other"))

	mustNoErr(t, s.RemoveNode("B"))

	if v, _ := s.Get("A"); v.Counts != (domain.Counts{Critical: 1}) {
		t.Fatalf("A counts %v after retracting B", v.Counts)
	}
	if v := s.Root(); v.Counts != (domain.Counts{Critical: 1}) {
		t.Fatalf("root counts %v after retracting B", v.Counts)
	}
	mustNoErr(t, s.RemoveNode("other"))
	if v := s.Root(); !v.Counts.IsZero() || v.Color != domain.ColorNormal {
		t.Fatalf("root should be clear, got %v %s", v.Counts, v.Color)
	}
	mustVerify(t, s)
}

func TestReparentOnlyTouchesUnsharedAncestors(t *testing.T) {
	s := New()
	mustAdd(t, s, RootID, "dom")
	mustAdd(t, s, "dom", "left")
	mustAdd(t, s, "dom", "right")
	mustAdd(t, s, "left", "ent")
	mustNoErr(t, s.IncrementSevere("ent"))

	var recolored []ID
	s.Subscribe(func(c Change) {
		if c.Kind == ChangeRecolored {
			recolored = append(recolored, c.ID)
		}
	})
	mustNoErr(t, s.Reparent("ent", "right", Append))

	if len(recolored) != 2 {
		t.Fatalf("expected only left and right to recolor, got %v", recolored)
	}
	for _, id := range recolored {
		if id != "left" && id != "right" {
			t.Fatalf("shared ancestor %s recolored during move", id)
		}
	}
	if got := colorOf(t, s, "left"); got != domain.ColorNormal {
		t.Fatalf("left should be normal, got %s", got)
	}
	if got := colorOf(t, s, "right"); got != domain.ColorSevere {
		t.Fatalf("right should be severe, got %s", got)
	}
	if v, _ := s.Get("dom"); v.Counts != (domain.Counts{Severe: 1}) {
		t.Fatalf("dom counts %v, want severe=1", v.Counts)
	}
	mustVerify(t, s)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	s := chain(t)
	mustNoErr(t, s.IncrementWarning("sensor"))
	slot := s.index["ent"]
	s.nodes[slot].counts = domain.Counts{}

	if err := s.Verify(); err == nil {
		t.Fatalf("expected Verify to flag a corrupted rollup")
	}
}

func mustNoErr(t fataler, err error) {
	helper(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
