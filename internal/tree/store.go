package tree

import (
	"strings"

	"ipmitree/internal/debug"
	"ipmitree/internal/domain"
)

// ID identifies a node. It is opaque to the store and unique within it.
type ID string

// RootID is the identity of the root node every store starts with.
const RootID ID = "domains"

const noSlot = -1

// Position chooses where a node lands among its new siblings.
type Position int

const (
	Append Position = iota
	Prepend
)

// NodeSpec describes a node to add.
type NodeSpec struct {
	Name     string
	Kind     domain.Kind
	Active   bool
	Payload  any
	Position Position
}

// NodeRef is a handle to a node slot. It goes stale once the node is
// removed, even if its slot is later reused.
type NodeRef struct {
	ID   ID
	slot int
	gen  uint32
}

type node struct {
	id       ID
	gen      uint32
	live     bool
	parent   int
	children []int

	name     string
	value    string
	kind     domain.Kind
	active   bool
	expanded bool
	payload  any

	// counts is the rollup of own plus every descendant's own.
	counts domain.Counts
	own    domain.Counts
	color  domain.Color
}

// Store owns the resource hierarchy. Nodes live in a single arena and link
// to each other by slot index. All mutation goes through Store methods;
// it is not safe for concurrent use and is meant to be owned by one loop.
type Store struct {
	nodes []node
	free  []int
	index map[ID]int
	root  int

	// version changes on every structural mutation so walkers can re-seek.
	version uint64

	observers []observer
	nextObs   int
	report    ViolationReporter
}

// Option configures a Store.
type Option func(*Store)

// WithViolationReporter routes invariant violations to fn instead of the
// debug report channel.
func WithViolationReporter(fn ViolationReporter) Option {
	return func(s *Store) {
		if fn != nil {
			s.report = fn
		}
	}
}

// New creates a store containing only the active, expanded root node.
func New(opts ...Option) *Store {
	s := &Store{
		index: make(map[ID]int),
		report: func(v Violation) {
			debug.Reportf("%s", v)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.root = s.alloc(node{
		id:       RootID,
		parent:   noSlot,
		name:     "Domains",
		kind:     domain.KindRoot,
		active:   true,
		expanded: true,
		color:    domain.ColorNormal,
	})
	return s
}

func (s *Store) alloc(n node) int {
	n.live = true
	if k := len(s.free); k > 0 {
		slot := s.free[k-1]
		s.free = s.free[:k-1]
		n.gen = s.nodes[slot].gen + 1
		s.nodes[slot] = n
		s.index[n.id] = slot
		return slot
	}
	s.nodes = append(s.nodes, n)
	slot := len(s.nodes) - 1
	s.index[n.id] = slot
	return slot
}

func (s *Store) lookup(id ID) (int, bool) {
	slot, ok := s.index[id]
	return slot, ok
}

// AddNode creates a node with zero counts under parent.
func (s *Store) AddNode(parent, id ID, spec NodeSpec) (NodeRef, error) {
	if strings.TrimSpace(string(id)) == "" {
		return NodeRef{}, invalidArgumentError("node id must not be empty")
	}
	parentSlot, ok := s.lookup(parent)
	if !ok {
		return NodeRef{}, notFoundError(parent)
	}
	if _, exists := s.index[id]; exists {
		return NodeRef{}, duplicateNodeError(id)
	}

	name := spec.Name
	if name == "" {
		name = string(id)
	}
	slot := s.alloc(node{
		id:      id,
		parent:  parentSlot,
		name:    name,
		kind:    spec.Kind,
		active:  spec.Active,
		payload: spec.Payload,
		color:   domain.ColorFor(domain.Counts{}, spec.Active),
	})
	s.link(parentSlot, slot, spec.Position)
	s.version++

	s.emit(Change{Kind: ChangeAdded, ID: id, Parent: parent, Color: s.nodes[slot].color})
	return NodeRef{ID: id, slot: slot, gen: s.nodes[slot].gen}, nil
}

func (s *Store) link(parentSlot, slot int, pos Position) {
	p := &s.nodes[parentSlot]
	if pos == Prepend {
		p.children = append(p.children, 0)
		copy(p.children[1:], p.children)
		p.children[0] = slot
	} else {
		p.children = append(p.children, slot)
	}
	s.nodes[slot].parent = parentSlot
}

func (s *Store) unlink(slot int) {
	parentSlot := s.nodes[slot].parent
	if parentSlot == noSlot {
		return
	}
	p := &s.nodes[parentSlot]
	for i, c := range p.children {
		if c == slot {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	s.nodes[slot].parent = noSlot
}

// RemoveNode detaches id and its subtree. Everything the subtree
// contributed to its ancestors' counters is retracted first, so no
// severity signal outlives the node. Removing an absent id is a no-op.
func (s *Store) RemoveNode(id ID) error {
	slot, ok := s.lookup(id)
	if !ok {
		return nil
	}
	if slot == s.root {
		return invalidMoveError("the root node cannot be removed")
	}

	n := s.nodes[slot]
	if !n.counts.IsZero() {
		s.applyChain(n.parent, noSlot, n.counts.Neg())
	}
	parentID := s.nodes[n.parent].id
	s.unlink(slot)

	stack := []int{slot}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, s.nodes[cur].children...)
		delete(s.index, s.nodes[cur].id)
		s.nodes[cur] = node{gen: s.nodes[cur].gen, parent: noSlot}
		s.free = append(s.free, cur)
	}
	s.version++

	s.emit(Change{Kind: ChangeRemoved, ID: id, Parent: parentID})
	return nil
}

// Reparent moves id, with its subtree and accumulated counts, beneath
// newParent. Only ancestors that are not shared by the old and new
// positions see their counters change.
func (s *Store) Reparent(id, newParent ID, pos Position) error {
	slot, ok := s.lookup(id)
	if !ok {
		return notFoundError(id)
	}
	target, ok := s.lookup(newParent)
	if !ok {
		return notFoundError(newParent)
	}
	if slot == s.root {
		return invalidMoveError("the root node cannot be moved")
	}
	for cur := target; cur != noSlot; cur = s.nodes[cur].parent {
		if cur == slot {
			return invalidMoveError("cannot move " + string(id) + " beneath its own subtree")
		}
	}

	oldParent := s.nodes[slot].parent
	counts := s.nodes[slot].counts
	if oldParent != target && !counts.IsZero() {
		lca := s.commonAncestor(oldParent, target)
		s.applyChain(oldParent, lca, counts.Neg())
		s.applyChain(target, lca, counts)
	}
	s.unlink(slot)
	s.link(target, slot, pos)
	s.version++

	s.emit(Change{Kind: ChangeMoved, ID: id, Parent: newParent, OldParent: s.nodes[oldParent].id})
	return nil
}

// commonAncestor returns the deepest slot that is an ancestor-or-self of
// both a and b.
func (s *Store) commonAncestor(a, b int) int {
	seen := make(map[int]struct{})
	for cur := a; cur != noSlot; cur = s.nodes[cur].parent {
		seen[cur] = struct{}{}
	}
	for cur := b; cur != noSlot; cur = s.nodes[cur].parent {
		if _, ok := seen[cur]; ok {
			return cur
		}
	}
	return s.root
}

// SetActive toggles whether a node takes part in color transitions. On
// activation its color is recomputed from the current counts.
func (s *Store) SetActive(id ID, active bool) error {
	slot, ok := s.lookup(id)
	if !ok {
		return notFoundError(id)
	}
	n := &s.nodes[slot]
	if n.active == active {
		return nil
	}
	n.active = active
	prev := n.color
	n.color = domain.ColorFor(n.counts, active)
	s.emit(Change{Kind: ChangeActivity, ID: id, Color: n.color, Previous: prev})
	return nil
}

// SetValue records the latest value text reported for a node.
func (s *Store) SetValue(id ID, value string) error {
	slot, ok := s.lookup(id)
	if !ok {
		return notFoundError(id)
	}
	if s.nodes[slot].value == value {
		return nil
	}
	s.nodes[slot].value = value
	s.emit(Change{Kind: ChangeValue, ID: id})
	return nil
}

// SetExpanded sets whether a node's children are visible.
func (s *Store) SetExpanded(id ID, expanded bool) error {
	slot, ok := s.lookup(id)
	if !ok {
		return notFoundError(id)
	}
	s.setExpanded(slot, expanded)
	return nil
}

func (s *Store) setExpanded(slot int, expanded bool) {
	n := &s.nodes[slot]
	if n.expanded == expanded {
		return
	}
	n.expanded = expanded
	s.version++
	s.emit(Change{Kind: ChangeExpanded, ID: n.id})
}

// ExpandAll expands every node that has children.
func (s *Store) ExpandAll() {
	s.eachSlot(func(slot int) {
		if len(s.nodes[slot].children) > 0 {
			s.setExpanded(slot, true)
		}
	})
}

// CollapseAll collapses every node below the root. The root stays
// expanded so its direct children remain visible.
func (s *Store) CollapseAll() {
	s.eachSlot(func(slot int) {
		if slot != s.root {
			s.setExpanded(slot, false)
		}
	})
}

func (s *Store) eachSlot(fn func(slot int)) {
	stack := []int{s.root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(cur)
		children := s.nodes[cur].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Contains reports whether id is in the store.
func (s *Store) Contains(id ID) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of live nodes, root included.
func (s *Store) Len() int {
	return len(s.index)
}

// Root returns a view of the root node.
func (s *Store) Root() NodeView {
	return s.view(s.root, s.depth(s.root))
}

// Get returns a read-only view of id.
func (s *Store) Get(id ID) (NodeView, bool) {
	slot, ok := s.lookup(id)
	if !ok {
		return NodeView{}, false
	}
	return s.view(slot, s.depth(slot)), true
}

// Resolve returns the node ref points at, unless it has since been removed.
func (s *Store) Resolve(ref NodeRef) (NodeView, bool) {
	if ref.slot < 0 || ref.slot >= len(s.nodes) {
		return NodeView{}, false
	}
	n := s.nodes[ref.slot]
	if !n.live || n.gen != ref.gen || n.id != ref.ID {
		return NodeView{}, false
	}
	return s.view(ref.slot, s.depth(ref.slot)), true
}

// Children returns the ids of id's children in display order.
func (s *Store) Children(id ID) []ID {
	slot, ok := s.lookup(id)
	if !ok {
		return nil
	}
	out := make([]ID, 0, len(s.nodes[slot].children))
	for _, c := range s.nodes[slot].children {
		out = append(out, s.nodes[c].id)
	}
	return out
}

// Path returns the ids from the root down to id, inclusive.
func (s *Store) Path(id ID) []ID {
	slot, ok := s.lookup(id)
	if !ok {
		return nil
	}
	var path []ID
	for cur := slot; cur != noSlot; cur = s.nodes[cur].parent {
		path = append(path, s.nodes[cur].id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (s *Store) depth(slot int) int {
	d := 0
	for cur := s.nodes[slot].parent; cur != noSlot; cur = s.nodes[cur].parent {
		d++
	}
	return d
}

// visible reports whether every ancestor of slot is expanded.
func (s *Store) visible(slot int) bool {
	for cur := s.nodes[slot].parent; cur != noSlot; cur = s.nodes[cur].parent {
		if !s.nodes[cur].expanded {
			return false
		}
	}
	return true
}
