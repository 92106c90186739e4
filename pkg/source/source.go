// Package source captures the window hierarchy of a device screen from a
// saved dump, from adb, or from a running UIAutomator2 server.
package source

import (
	"context"

	"github.com/devicelab-dev/droidscan/pkg/tree"
)

// Display describes the screen the hierarchy was captured on.
type Display struct {
	Width    int `json:"width" yaml:"width"`
	Height   int `json:"height" yaml:"height"`
	Rotation int `json:"rotation" yaml:"rotation"`
}

// Capture is one parsed screen.
type Capture struct {
	Tree    *tree.Tree
	Display Display
	Raw     string
}

// Source produces captures.
type Source interface {
	Capture(ctx context.Context) (*Capture, error)
	Name() string
}

// Options shared by all sources.
type Options struct {
	// PoolSize bounds the child handles of each captured tree.
	PoolSize int
	// Display overrides the reported screen size when non-zero.
	Display Display
}

func (o Options) pool() *tree.HandlePool {
	size := o.PoolSize
	if size == 0 {
		size = tree.DefaultPoolSize
	}
	return tree.NewHandlePool(size)
}

// parse builds a capture from raw XML, filling display fields that the
// caller left zero from the tree itself.
func (o Options) parse(raw string, d Display) (*Capture, error) {
	t, err := tree.ParseString(raw, o.pool())
	if err != nil {
		return nil, err
	}

	if o.Display.Width > 0 && o.Display.Height > 0 {
		d.Width, d.Height = o.Display.Width, o.Display.Height
	}
	if d.Width == 0 || d.Height == 0 {
		d.Width, d.Height = extent(t)
	}
	if d.Rotation == 0 {
		d.Rotation = t.Rotation
	}
	return &Capture{Tree: t, Display: d, Raw: raw}, nil
}

// extent returns the far corner of the window roots, used when a dump is
// read without display metrics.
func extent(t *tree.Tree) (int, int) {
	var w, h int
	for _, n := range t.Windows() {
		info, err := n.Info()
		if err != nil {
			continue
		}
		w = max(w, info.BoundsInScreen.Right())
		h = max(h, info.BoundsInScreen.Bottom())
	}
	return w, h
}
