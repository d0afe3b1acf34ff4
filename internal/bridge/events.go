package bridge

import (
	"fmt"

	"ipmitree/internal/domain"
	"ipmitree/internal/tree"
)

// Event is a notification from the monitoring collaborator. The set of
// variants is closed; Apply switches over them.
type Event interface {
	// Target is the resource the event is about.
	Target() tree.ID
	// Label is a short name for the event used in logs.
	Label() string
	isEvent()
}

// ResourceAdded reports a new resource beneath Parent. An empty Parent
// means the root.
type ResourceAdded struct {
	Parent  tree.ID
	ID      tree.ID
	Name    string
	Kind    domain.Kind
	Active  bool
	Prepend bool
	Payload any
}

// ResourceRemoved reports that a resource disappeared.
type ResourceRemoved struct {
	ID tree.ID
}

// ResourceMoved reports that a resource now lives under NewParent. An
// empty NewParent files an entity under its domain's entity group.
type ResourceMoved struct {
	ID        tree.ID
	NewParent tree.ID
}

// ConditionEntered reports that a resource began being in Level.
type ConditionEntered struct {
	ID    tree.ID
	Level domain.Level
}

// ConditionCleared reports that a resource stopped being in Level.
type ConditionCleared struct {
	ID    tree.ID
	Level domain.Level
}

// ActivityChanged reports that a resource became present or absent.
type ActivityChanged struct {
	ID     tree.ID
	Active bool
}

// RefreshCompleted carries the result of a scheduler-initiated refresh.
type RefreshCompleted struct {
	ID    tree.ID
	Value string
	Err   error
}

// ResourceClosed reports that a close request finished.
type ResourceClosed struct {
	ID tree.ID
}

func (e ResourceAdded) Target() tree.ID    { return e.ID }
func (e ResourceRemoved) Target() tree.ID  { return e.ID }
func (e ResourceMoved) Target() tree.ID    { return e.ID }
func (e ConditionEntered) Target() tree.ID { return e.ID }
func (e ConditionCleared) Target() tree.ID { return e.ID }
func (e ActivityChanged) Target() tree.ID  { return e.ID }
func (e RefreshCompleted) Target() tree.ID { return e.ID }
func (e ResourceClosed) Target() tree.ID   { return e.ID }

func (ResourceAdded) Label() string    { return "resource-added" }
func (ResourceRemoved) Label() string  { return "resource-removed" }
func (ResourceMoved) Label() string    { return "resource-moved" }
func (ConditionEntered) Label() string { return "condition-entered" }
func (ConditionCleared) Label() string { return "condition-cleared" }
func (ActivityChanged) Label() string  { return "activity-changed" }
func (RefreshCompleted) Label() string { return "refresh-completed" }
func (ResourceClosed) Label() string   { return "resource-closed" }

func (ResourceAdded) isEvent()    {}
func (ResourceRemoved) isEvent()  {}
func (ResourceMoved) isEvent()    {}
func (ConditionEntered) isEvent() {}
func (ConditionCleared) isEvent() {}
func (ActivityChanged) isEvent()  {}
func (RefreshCompleted) isEvent() {}
func (ResourceClosed) isEvent()   {}

// Describe renders ev for the event log. full adds every field.
func Describe(ev Event, full bool) string {
	if !full {
		return fmt.Sprintf("%s %s", ev.Label(), ev.Target())
	}
	switch e := ev.(type) {
	case ResourceAdded:
		return fmt.Sprintf("%s %s parent=%s kind=%s active=%t prepend=%t", e.Label(), e.ID, e.Parent, e.Kind, e.Active, e.Prepend)
	case ResourceMoved:
		return fmt.Sprintf("%s %s new-parent=%s", e.Label(), e.ID, e.NewParent)
	case ConditionEntered:
		return fmt.Sprintf("%s %s level=%s", e.Label(), e.ID, e.Level)
	case ConditionCleared:
		return fmt.Sprintf("%s %s level=%s", e.Label(), e.ID, e.Level)
	case ActivityChanged:
		return fmt.Sprintf("%s %s active=%t", e.Label(), e.ID, e.Active)
	case RefreshCompleted:
		if e.Err != nil {
			return fmt.Sprintf("%s %s err=%v", e.Label(), e.ID, e.Err)
		}
		return fmt.Sprintf("%s %s value=%q", e.Label(), e.ID, e.Value)
	}
	return fmt.Sprintf("%s %s", ev.Label(), ev.Target())
}
