// Package hierarchy turns a live accessibility tree into a deterministic,
// hashable model of widgets and serializes the raw tree for diagnostics.
//
// The tree is reached through the Node interface. Implementations hold a
// handle from a bounded native pool; every handle obtained from Child must be
// released exactly once, and the traversals in this package release each
// child as soon as its subtree has been processed.
package hierarchy

import "github.com/devicelab-dev/droidscan/pkg/core"

// Node is one native accessibility node.
type Node interface {
	// Info reads the node's attributes. An error means the attributes could
	// not be extracted; the node's subtree is then skipped.
	Info() (NodeInfo, error)

	// ChildCount returns the number of child slots, including null ones.
	ChildCount() int

	// Child acquires the handle of child i. It returns (nil, nil) for a null
	// child reference and an error when no handle could be acquired.
	Child(i int) (Node, error)

	// Release returns the node's handle to its pool.
	Release()
}

// NodeInfo is the raw attribute set of a node. Strings are unsanitized.
type NodeInfo struct {
	ClassName   string
	Text        string
	ContentDesc string
	ResourceID  string
	PackageName string

	Enabled       bool
	Editable      bool
	Password      bool
	Clickable     bool
	LongClickable bool
	Scrollable    bool
	Selected      bool
	VisibleToUser bool
	Checkable     bool
	Checked       bool
	Focusable     bool
	Focused       bool

	// BoundsInScreen is the node rectangle in screen coordinates, already
	// clipped by the platform against its ancestors.
	BoundsInScreen core.Bounds
}
