// Package tree holds an accessibility tree in memory behind the
// hierarchy.Node contract, with child handles drawn from a bounded pool.
package tree

import (
	"fmt"

	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
)

// Node is an in-memory accessibility node. A nil entry in the children
// slice is a null child reference.
type Node struct {
	info     hierarchy.NodeInfo
	children []*Node
	pool     *HandlePool
}

// NewNode creates a node with the given attributes and children.
func NewNode(info hierarchy.NodeInfo, children ...*Node) *Node {
	return &Node{info: info, children: children}
}

// Info returns the node attributes.
func (n *Node) Info() (hierarchy.NodeInfo, error) {
	return n.info, nil
}

// ChildCount returns the number of child slots.
func (n *Node) ChildCount() int {
	return len(n.children)
}

// Child acquires a pooled handle for child i.
func (n *Node) Child(i int) (hierarchy.Node, error) {
	if i < 0 || i >= len(n.children) {
		return nil, fmt.Errorf("child index %d out of range [0,%d)", i, len(n.children))
	}
	c := n.children[i]
	if c == nil {
		return nil, nil
	}
	if c.pool != nil {
		if err := c.pool.acquire(); err != nil {
			return nil, err
		}
	}
	return &handle{Node: c}, nil
}

// Release is a no-op for window roots, which are not pooled.
func (n *Node) Release() {}

// handle is a pooled reference to a child node.
type handle struct {
	*Node
	released bool
}

func (h *handle) Release() {
	if h.released {
		return
	}
	h.released = true
	if h.pool != nil {
		h.pool.release()
	}
}

// Tree is a set of window roots sharing one handle pool.
type Tree struct {
	Rotation int
	windows  []*Node
	pool     *HandlePool
}

// New builds a tree over windows and binds every node to pool.
func New(pool *HandlePool, windows ...*Node) *Tree {
	t := &Tree{windows: windows, pool: pool}
	var bind func(*Node)
	bind = func(n *Node) {
		if n == nil {
			return
		}
		n.pool = pool
		for _, c := range n.children {
			bind(c)
		}
	}
	for _, w := range windows {
		bind(w)
	}
	return t
}

// Roots returns the window roots in order.
func (t *Tree) Roots() []hierarchy.Node {
	roots := make([]hierarchy.Node, len(t.windows))
	for i, w := range t.windows {
		if w != nil {
			roots[i] = w
		}
	}
	return roots
}

// Windows returns the window root nodes.
func (t *Tree) Windows() []*Node {
	return t.windows
}

// Pool returns the handle pool.
func (t *Tree) Pool() *HandlePool {
	return t.pool
}

// Len counts the non-null nodes of all windows.
func (t *Tree) Len() int {
	var count func(*Node) int
	count = func(n *Node) int {
		if n == nil {
			return 0
		}
		total := 1
		for _, c := range n.children {
			total += count(c)
		}
		return total
	}
	total := 0
	for _, w := range t.windows {
		total += count(w)
	}
	return total
}

// Walk visits every non-null node in depth-first pre-order until fn returns
// false. It reads the in-memory tree directly and takes no handles.
func (t *Tree) Walk(fn func(n *Node, info hierarchy.NodeInfo) bool) {
	var visit func(*Node) bool
	visit = func(n *Node) bool {
		if n == nil {
			return true
		}
		if !fn(n, n.info) {
			return false
		}
		for _, c := range n.children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	for _, w := range t.windows {
		if !visit(w) {
			return
		}
	}
}
