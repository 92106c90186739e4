package hierarchy

import (
	"errors"

	"github.com/devicelab-dev/droidscan/pkg/core"
	"github.com/devicelab-dev/droidscan/pkg/logger"
)

// Fetcher extracts widgets from window roots.
type Fetcher struct {
	cfg  Config
	hash HashFunc
}

// NewFetcher creates a Fetcher. It fails only for an unknown hash scheme.
func NewFetcher(cfg Config) (*Fetcher, error) {
	hash, err := cfg.Hash.Func()
	if err != nil {
		return nil, core.ErrInvalidConfig.WithCause(err)
	}
	return &Fetcher{cfg: cfg, hash: hash}, nil
}

// position locates a node among its siblings and within its window.
type position struct {
	index       int
	parentXpath string
	parentHash  int32
	rootIdx     int
}

// Fetch walks every window root not owned by the system package and returns
// one widget per reachable node, children before parents. Roots remain owned
// by the caller.
//
// Null children and nodes whose attributes cannot be read are logged and
// their subtrees omitted. Failing to acquire a child handle aborts the fetch
// with an error matching core.ErrHandleExhausted.
func (f *Fetcher) Fetch(roots []Node, width, height int) ([]*Widget, error) {
	var widgets []*Widget
	rootIdx := 0

	for i, root := range roots {
		if root == nil {
			logger.Warn("Null window root %d/%d", i, len(roots))
			continue
		}
		info, err := root.Info()
		if err != nil {
			logger.Warn("Window root %d/%d skipped: %v", i, len(roots), err)
			rootIdx++
			continue
		}
		if f.cfg.SystemPackage != "" && info.PackageName == f.cfg.SystemPackage {
			logger.Debug("Window root %d/%d skipped: system package %s", i, len(roots), info.PackageName)
			continue
		}

		pos := position{parentXpath: RootXpath, rootIdx: rootIdx}
		_, nodes, err := f.processNode(root, info, pos, width, height)
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, nodes...)
		rootIdx++
	}

	logger.Debug("Fetched %d widgets from %d windows (%dx%d)", len(widgets), rootIdx, width, height)
	return widgets, nil
}

// processNode resolves n after all of its children and returns n's widget
// together with every widget of its subtree, n last.
func (f *Fetcher) processNode(n Node, info NodeInfo, pos position, width, height int) (*Widget, []*Widget, error) {
	xpath, hash := Identify(f.hash, pos.parentXpath, info.ClassName, pos.index, pos.rootIdx)

	var nodes []*Widget
	var children []*Widget
	count := n.ChildCount()
	for i := 0; i < count; i++ {
		childPos := position{
			index:       i,
			parentXpath: childXpath(xpath),
			parentHash:  hash,
			rootIdx:     pos.rootIdx,
		}
		child, desc, err := f.processChild(n, childPos, count, width, height)
		if err != nil {
			return nil, nil, err
		}
		if child == nil {
			continue
		}
		nodes = append(nodes, desc...)
		children = append(children, child)
	}

	w := newWidget(info, ResolveBounds(info.BoundsInScreen, info.VisibleToUser, width, height))
	w.Xpath = xpath
	w.XpathHash = hash
	w.ParentHash = pos.parentHash
	w.ChildrenHashes = make([]int32, len(children))
	for i, c := range children {
		w.ChildrenHashes[i] = c.XpathHash
	}
	w.IsLeaf = len(children) == 0
	w.UncoveredCoord = UncoveredCoord(w, children)

	return w, append(nodes, w), nil
}

// processChild holds the handle of one child for exactly the time its
// subtree is processed. A nil widget with a nil error means the child was
// skipped.
func (f *Fetcher) processChild(parent Node, pos position, count, width, height int) (*Widget, []*Widget, error) {
	child, err := parent.Child(pos.index)
	if err != nil {
		return nil, nil, acquireError(err, pos.index, count, pos.parentXpath)
	}
	if child == nil {
		logger.Warn("Null child %d/%d, parent: %s", pos.index, count, pos.parentXpath)
		return nil, nil, nil
	}
	defer child.Release()

	info, err := child.Info()
	if err != nil {
		logger.Warn("Child %d/%d of %s skipped: %v", pos.index, count, pos.parentXpath, err)
		return nil, nil, nil
	}
	return f.processNode(child, info, pos, width, height)
}

// acquireError reports a failed handle acquisition as handle exhaustion.
func acquireError(err error, index, count int, parentXpath string) error {
	var execErr *core.ExecutionError
	if !errors.As(err, &execErr) || !errors.Is(err, core.ErrHandleExhausted) {
		execErr = core.ErrHandleExhausted.WithCause(err)
	}
	return execErr.WithDetails(map[string]interface{}{
		"child":  index,
		"count":  count,
		"parent": parentXpath,
	})
}
