// Package bridge translates notifications from the monitoring collaborator
// into tree mutations, one call per event.
package bridge

import (
	"errors"
	"fmt"

	"ipmitree/internal/config"
	"ipmitree/internal/debug"
	"ipmitree/internal/domain"
	appErrors "ipmitree/internal/errors"
	"ipmitree/internal/tree"
)

// ClosedHandler receives close completions. The shutdown coordinator
// implements it.
type ClosedHandler interface {
	OnResourceClosed(id string)
}

// Bridge applies events to a store. It must run on the loop that owns the
// store.
type Bridge struct {
	store    *tree.Store
	closed   ClosedHandler
	log      config.LogSettings
	observer func(Event, error)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithClosedHandler forwards ResourceClosed events to h.
func WithClosedHandler(h ClosedHandler) Option {
	return func(b *Bridge) {
		b.closed = h
	}
}

// WithLogSettings enables event logging.
func WithLogSettings(s config.LogSettings) Option {
	return func(b *Bridge) {
		b.log = s
	}
}

// WithObserver registers fn to see each applied event and its outcome.
func WithObserver(fn func(Event, error)) Option {
	return func(b *Bridge) {
		b.observer = fn
	}
}

// New creates a bridge over store.
func New(store *tree.Store, opts ...Option) *Bridge {
	b := &Bridge{store: store}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Apply translates ev into the matching store call. Removal, condition and
// activity events for resources that are already gone are dropped, since
// the collaborator may deliver them after the resource left the tree.
// Structural errors on add and move are returned.
func (b *Bridge) Apply(ev Event) error {
	if b.log.Events || b.log.FullEvents {
		debug.Logf("event: %s", Describe(ev, b.log.FullEvents))
	}
	err := b.apply(ev)
	if err != nil {
		err = fmt.Errorf("%s %s: %w", ev.Label(), ev.Target(), err)
	}
	if b.observer != nil {
		b.observer(ev, err)
	}
	return err
}

// ApplyAll applies every event in order and joins the failures.
func (b *Bridge) ApplyAll(events []Event) error {
	var errs []error
	for _, ev := range events {
		if err := b.Apply(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bridge) apply(ev Event) error {
	switch e := ev.(type) {
	case ResourceAdded:
		return b.add(e)
	case ResourceRemoved:
		return b.store.RemoveNode(e.ID)
	case ResourceMoved:
		return b.move(e)
	case ConditionEntered:
		return tolerateMissing(ev, b.store.Increment(e.ID, e.Level))
	case ConditionCleared:
		return tolerateMissing(ev, b.store.Decrement(e.ID, e.Level))
	case ActivityChanged:
		return tolerateMissing(ev, b.store.SetActive(e.ID, e.Active))
	case RefreshCompleted:
		if e.Err != nil {
			debug.Logf("refresh of %s failed: %v", e.ID, e.Err)
			return nil
		}
		return tolerateMissing(ev, b.store.SetValue(e.ID, e.Value))
	case ResourceClosed:
		if b.closed != nil {
			b.closed.OnResourceClosed(string(e.ID))
		}
		return nil
	}
	return appErrors.New(appErrors.CodeInvalidArgument, fmt.Sprintf("unsupported event %T", ev), nil)
}

func (b *Bridge) add(e ResourceAdded) error {
	parent := b.placement(e.Parent, e.Kind)
	pos := tree.Append
	if e.Prepend {
		pos = tree.Prepend
	}
	spec := tree.NodeSpec{
		Name:     e.Name,
		Kind:     e.Kind,
		Active:   e.Active || e.Kind.StartsActive(),
		Payload:  e.Payload,
		Position: pos,
	}
	if _, err := b.store.AddNode(parent, e.ID, spec); err != nil {
		return err
	}
	for _, group := range e.Kind.Groups() {
		gid := tree.GroupID(e.ID, group)
		if _, err := b.store.AddNode(e.ID, gid, tree.NodeSpec{Name: group, Kind: domain.KindGroup, Active: true}); err != nil {
			// A resource without its full set of groups is not added at all.
			if rmErr := b.store.RemoveNode(e.ID); rmErr != nil {
				return errors.Join(err, rmErr)
			}
			return err
		}
	}
	return nil
}

func (b *Bridge) move(e ResourceMoved) error {
	target := e.NewParent
	node, ok := b.store.Get(e.ID)
	if !ok {
		return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("node %q not found", e.ID), nil)
	}
	if target == "" {
		dom, ok := b.enclosingDomain(e.ID)
		if !ok || node.Kind != domain.KindEntity {
			return appErrors.New(appErrors.CodeInvalidMove, fmt.Sprintf("no default parent for %s %q", node.Kind, e.ID), nil)
		}
		target = dom
	}
	return b.store.Reparent(e.ID, b.placement(target, node.Kind), tree.Append)
}

// placement files a node of kind under parent's standard group when parent
// has one for it.
func (b *Bridge) placement(parent tree.ID, kind domain.Kind) tree.ID {
	if parent == "" {
		return tree.RootID
	}
	group := kind.ParentGroup()
	if group == "" {
		return parent
	}
	if gid := tree.GroupID(parent, group); b.store.Contains(gid) {
		return gid
	}
	return parent
}

func (b *Bridge) enclosingDomain(id tree.ID) (tree.ID, bool) {
	path := b.store.Path(id)
	for i := len(path) - 1; i >= 0; i-- {
		if v, ok := b.store.Get(path[i]); ok && v.Kind == domain.KindDomain {
			return v.ID, true
		}
	}
	return "", false
}

func tolerateMissing(ev Event, err error) error {
	if appErrors.IsCode(err, appErrors.CodeNotFound) {
		debug.Logf("dropping %s for missing %s", ev.Label(), ev.Target())
		return nil
	}
	return err
}
