package tree

import (
	"iter"

	"ipmitree/internal/domain"
)

// NodeView is a read-only copy of a node, handed to the presentation layer.
type NodeView struct {
	Ref        NodeRef
	ID         ID
	Parent     ID
	Name       string
	Value      string
	Kind       domain.Kind
	Active     bool
	Expanded   bool
	Counts     domain.Counts
	Own        domain.Counts
	Color      domain.Color
	Depth      int
	ChildCount int
	Payload    any
}

// HasChildren reports whether the node has any children.
func (v NodeView) HasChildren() bool {
	return v.ChildCount > 0
}

func (s *Store) view(slot, depth int) NodeView {
	n := s.nodes[slot]
	var parent ID
	if n.parent != noSlot {
		parent = s.nodes[n.parent].id
	}
	return NodeView{
		Ref:        NodeRef{ID: n.id, slot: slot, gen: n.gen},
		ID:         n.id,
		Parent:     parent,
		Name:       n.name,
		Value:      n.value,
		Kind:       n.kind,
		Active:     n.active,
		Expanded:   n.expanded,
		Counts:     n.counts,
		Own:        n.own,
		Color:      n.color,
		Depth:      depth,
		ChildCount: len(n.children),
		Payload:    n.payload,
	}
}

// WalkOptions tunes a traversal.
type WalkOptions struct {
	// VisibleOnly skips the children of collapsed nodes.
	VisibleOnly bool
}

// Walker steps through the store in pre-order (document order). It can be
// abandoned at any point and resumed later with Walk(id), where id is the
// node the walker would have yielded next.
//
// A structural mutation between calls to Next makes the walker re-seek
// from its pending node. If that node is gone (or hidden, for a
// visible-only walk) the walker stops and Lost reports true.
type Walker struct {
	s       *Store
	opts    WalkOptions
	cur     int
	curID   ID
	stack   []int
	version uint64
	lost    bool
}

// Walk starts a traversal at from. An empty from starts at the root. If
// from does not exist, or is hidden in a visible-only walk, the returned
// walker is already exhausted and Lost reports true.
func (s *Store) Walk(from ID, opts WalkOptions) *Walker {
	w := &Walker{s: s, opts: opts, cur: noSlot}
	if from == "" {
		from = s.nodes[s.root].id
	}
	w.seek(from)
	return w
}

// Traverse yields every node in pre-order.
func (s *Store) Traverse() iter.Seq[NodeView] {
	return s.Walk("", WalkOptions{}).All()
}

// All adapts the remainder of the walk to a range-over-func sequence.
func (w *Walker) All() iter.Seq[NodeView] {
	return func(yield func(NodeView) bool) {
		for {
			v, ok := w.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

func (w *Walker) seek(id ID) {
	w.version = w.s.version
	w.stack = w.stack[:0]
	slot, ok := w.s.lookup(id)
	if !ok || (w.opts.VisibleOnly && !w.s.visible(slot)) {
		w.cur = noSlot
		w.curID = ""
		w.lost = true
		return
	}
	// stack holds, for each level below the root, the position of the
	// path node within its parent's children.
	for cur := slot; w.s.nodes[cur].parent != noSlot; cur = w.s.nodes[cur].parent {
		siblings := w.s.nodes[w.s.nodes[cur].parent].children
		for i, c := range siblings {
			if c == cur {
				w.stack = append(w.stack, i)
				break
			}
		}
	}
	for i, j := 0, len(w.stack)-1; i < j; i, j = i+1, j-1 {
		w.stack[i], w.stack[j] = w.stack[j], w.stack[i]
	}
	w.cur = slot
	w.curID = id
}

// Peek returns the id of the node Next would yield.
func (w *Walker) Peek() (ID, bool) {
	w.revalidate()
	if w.cur == noSlot {
		return "", false
	}
	return w.curID, true
}

// Next yields the next node in traversal order.
func (w *Walker) Next() (NodeView, bool) {
	w.revalidate()
	if w.cur == noSlot {
		return NodeView{}, false
	}
	out := w.s.view(w.cur, len(w.stack))
	w.advance()
	return out, true
}

// Lost reports whether the walk stopped because its pending node vanished.
func (w *Walker) Lost() bool {
	return w.lost
}

func (w *Walker) revalidate() {
	if w.cur == noSlot || w.version == w.s.version {
		return
	}
	w.seek(w.curID)
}

func (w *Walker) advance() {
	nodes := w.s.nodes
	n := nodes[w.cur]
	if len(n.children) > 0 && (!w.opts.VisibleOnly || n.expanded) {
		w.stack = append(w.stack, 0)
		w.setCur(n.children[0])
		return
	}
	cur := w.cur
	for len(w.stack) > 0 {
		top := len(w.stack) - 1
		parent := nodes[cur].parent
		if next := w.stack[top] + 1; next < len(nodes[parent].children) {
			w.stack[top] = next
			w.setCur(nodes[parent].children[next])
			return
		}
		w.stack = w.stack[:top]
		cur = parent
	}
	w.cur = noSlot
	w.curID = ""
}

func (w *Walker) setCur(slot int) {
	w.cur = slot
	w.curID = w.s.nodes[slot].id
}
