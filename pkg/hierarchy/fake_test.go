package hierarchy

import (
	"errors"
	"fmt"

	"github.com/devicelab-dev/droidscan/pkg/core"
)

// fakePool counts outstanding child handles.
type fakePool struct {
	capacity int // 0 means unbounded
	inUse    int
	acquired int
}

type fakeNode struct {
	info     NodeInfo
	infoErr  error
	children []*fakeNode // nil entries are null children
	pool     *fakePool
}

func fake(class string, b core.Bounds, children ...*fakeNode) *fakeNode {
	return &fakeNode{
		info: NodeInfo{
			ClassName:      class,
			PackageName:    "com.example.app",
			Enabled:        true,
			VisibleToUser:  true,
			BoundsInScreen: b,
		},
		children: children,
	}
}

func (f *fakeNode) with(mod func(*NodeInfo)) *fakeNode {
	mod(&f.info)
	return f
}

func (f *fakeNode) Info() (NodeInfo, error) {
	if f.infoErr != nil {
		return NodeInfo{}, f.infoErr
	}
	return f.info, nil
}

func (f *fakeNode) ChildCount() int {
	return len(f.children)
}

func (f *fakeNode) Child(i int) (Node, error) {
	if i < 0 || i >= len(f.children) {
		return nil, fmt.Errorf("child %d out of range", i)
	}
	c := f.children[i]
	if c == nil {
		return nil, nil
	}
	if f.pool.capacity > 0 && f.pool.inUse >= f.pool.capacity {
		return nil, core.ErrHandleExhausted.WithCause(errors.New("fake pool at capacity"))
	}
	f.pool.inUse++
	f.pool.acquired++
	return c, nil
}

func (f *fakeNode) Release() {
	f.pool.inUse--
}

// track attaches one pool to every node under roots.
func track(capacity int, roots ...*fakeNode) *fakePool {
	p := &fakePool{capacity: capacity}
	var walk func(*fakeNode)
	walk = func(n *fakeNode) {
		if n == nil {
			return
		}
		n.pool = p
		for _, c := range n.children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return p
}

func asNodes(roots ...*fakeNode) []Node {
	nodes := make([]Node, len(roots))
	for i, r := range roots {
		nodes[i] = r
	}
	return nodes
}

func clickable(i *NodeInfo) { i.Clickable = true }

func bounds(x, y, w, h int) core.Bounds {
	return core.Bounds{X: x, Y: y, Width: w, Height: h}
}

func mustFetcher(cfg Config) *Fetcher {
	f, err := NewFetcher(cfg)
	if err != nil {
		panic(err)
	}
	return f
}

func byXpath(widgets []*Widget) map[string]*Widget {
	m := make(map[string]*Widget, len(widgets))
	for _, w := range widgets {
		m[w.Xpath] = w
	}
	return m
}
