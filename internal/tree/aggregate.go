package tree

import (
	"errors"
	"fmt"

	"ipmitree/internal/domain"
)

// Violation describes a counter update that would have taken a counter
// below zero. It always means an enter/leave pair was mismatched upstream.
type Violation struct {
	ID ID
	// Level is set for a single decrement; bulk retractions leave it blank.
	Level domain.Level
	// Before holds the counters as they were prior to the update.
	Before domain.Counts
	Delta  domain.Counts
	// Clamped is true when a counter was floored at zero during the walk.
	Clamped bool
}

func (v Violation) String() string {
	if v.Clamped {
		return fmt.Sprintf("counter underflow at %s: %v%+v clamped to zero", v.ID, v.Before, v.Delta)
	}
	return fmt.Sprintf("unmatched %s clear on %s (own %v)", v.Level, v.ID, v.Before)
}

// ViolationReporter receives invariant violations.
type ViolationReporter func(Violation)

// Increment records one new outstanding condition of level on id and
// rolls it up through every ancestor to the root.
func (s *Store) Increment(id ID, level domain.Level) error {
	if err := level.Validate(); err != nil {
		return err
	}
	slot, ok := s.lookup(id)
	if !ok {
		return notFoundError(id)
	}
	unit := domain.Unit(level)
	s.nodes[slot].own = s.nodes[slot].own.Add(unit)
	s.applyChain(slot, noSlot, unit)
	return nil
}

// Decrement resolves one outstanding condition of level on id. If id has
// none of that level outstanding, nothing changes: the mismatch is
// reported and returned as an invariant violation.
func (s *Store) Decrement(id ID, level domain.Level) error {
	if err := level.Validate(); err != nil {
		return err
	}
	slot, ok := s.lookup(id)
	if !ok {
		return notFoundError(id)
	}
	n := &s.nodes[slot]
	if n.own.Get(level) <= 0 {
		v := Violation{ID: id, Level: level, Before: n.own, Delta: domain.Unit(level).Neg()}
		s.report(v)
		return invariantViolationError(v)
	}
	unit := domain.Unit(level).Neg()
	n.own = n.own.Add(unit)
	if clamped := s.applyChain(slot, noSlot, unit); clamped > 0 {
		return invariantViolationError(Violation{ID: id, Level: level, Delta: unit, Clamped: true})
	}
	return nil
}

func (s *Store) IncrementWarning(id ID) error  { return s.Increment(id, domain.LevelWarning) }
func (s *Store) IncrementSevere(id ID) error   { return s.Increment(id, domain.LevelSevere) }
func (s *Store) IncrementCritical(id ID) error { return s.Increment(id, domain.LevelCritical) }
func (s *Store) DecrementWarning(id ID) error  { return s.Decrement(id, domain.LevelWarning) }
func (s *Store) DecrementSevere(id ID) error   { return s.Decrement(id, domain.LevelSevere) }
func (s *Store) DecrementCritical(id ID) error { return s.Decrement(id, domain.LevelCritical) }

// applyChain adds delta to every node from slot up to, but not including,
// stop (noSlot walks to the root inclusive). A counter that would go
// negative is floored at zero and reported; the walk still completes so
// the chain settles on a consistent floor. It returns the number of
// clamped nodes.
func (s *Store) applyChain(slot, stop int, delta domain.Counts) int {
	clamped := 0
	for cur := slot; cur != noSlot && cur != stop; cur = s.nodes[cur].parent {
		n := &s.nodes[cur]
		before := n.counts
		next := before.Add(delta)
		if !next.NonNegative() {
			next = domain.Counts{
				Warning:  max(next.Warning, 0),
				Severe:   max(next.Severe, 0),
				Critical: max(next.Critical, 0),
			}
			clamped++
			s.report(Violation{ID: n.id, Before: before, Delta: delta, Clamped: true})
		}
		n.counts = next
		s.recolor(cur)
	}
	return clamped
}

// recolor recomputes an active node's color and emits a change only when
// the top-of-precedence state moved.
func (s *Store) recolor(slot int) {
	n := &s.nodes[slot]
	if !n.active {
		return
	}
	next := domain.ColorFor(n.counts, true)
	if next == n.color {
		return
	}
	prev := n.color
	n.color = next
	s.emit(Change{Kind: ChangeRecolored, ID: n.id, Color: next, Previous: prev})
}

// Verify recomputes every rollup from the per-node own counts and checks
// structural consistency. It is a full scan intended for tests and
// diagnostics, never for the update path.
func (s *Store) Verify() error {
	var errs []error
	order := make([]int, 0, len(s.index))
	s.eachSlot(func(slot int) { order = append(order, slot) })
	if len(order) != len(s.index) {
		errs = append(errs, fmt.Errorf("reachable nodes %d != indexed nodes %d", len(order), len(s.index)))
	}

	expected := make(map[int]domain.Counts, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		slot := order[i]
		n := s.nodes[slot]
		sum := n.own
		for _, c := range n.children {
			sum = sum.Add(expected[c])
			if s.nodes[c].parent != slot {
				errs = append(errs, fmt.Errorf("%s lists %s as child but parent link differs", n.id, s.nodes[c].id))
			}
		}
		expected[slot] = sum
		if !n.own.NonNegative() || !n.counts.NonNegative() {
			errs = append(errs, fmt.Errorf("%s has negative counters: own %v counts %v", n.id, n.own, n.counts))
		}
		if n.counts != sum {
			errs = append(errs, fmt.Errorf("%s rollup %v, recomputed %v", n.id, n.counts, sum))
		}
		if want := domain.ColorFor(n.counts, n.active); n.color != want {
			errs = append(errs, fmt.Errorf("%s color %s, want %s", n.id, n.color, want))
		}
		if got, ok := s.index[n.id]; !ok || got != slot {
			errs = append(errs, fmt.Errorf("%s missing from index", n.id))
		}
	}
	return errors.Join(errs...)
}
