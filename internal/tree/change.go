package tree

import (
	"slices"

	"ipmitree/internal/domain"
)

// ChangeKind classifies an entry in the change feed.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota + 1
	ChangeRemoved
	ChangeMoved
	ChangeRecolored
	ChangeValue
	ChangeActivity
	ChangeExpanded
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeMoved:
		return "moved"
	case ChangeRecolored:
		return "recolored"
	case ChangeValue:
		return "value"
	case ChangeActivity:
		return "activity"
	case ChangeExpanded:
		return "expanded"
	}
	return "unknown"
}

// Change is one incremental update for the presentation layer.
type Change struct {
	Kind   ChangeKind
	ID     ID
	Parent ID
	// OldParent is set for ChangeMoved.
	OldParent ID
	// Color and Previous are set for ChangeAdded, ChangeRecolored and
	// ChangeActivity.
	Color    domain.Color
	Previous domain.Color
}

type observer struct {
	id int
	fn func(Change)
}

// Subscribe registers fn to receive every change. Observers run
// synchronously inside the mutating call, in subscription order, and must
// not mutate the store. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	id := s.nextObs
	s.nextObs++
	s.observers = append(s.observers, observer{id: id, fn: fn})
	return func() {
		s.observers = slices.DeleteFunc(s.observers, func(o observer) bool {
			return o.id == id
		})
	}
}

func (s *Store) emit(c Change) {
	for _, o := range s.observers {
		o.fn(c)
	}
}
