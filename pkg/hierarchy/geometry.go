package hierarchy

import "github.com/devicelab-dev/droidscan/pkg/core"

// ResolveBounds returns the rectangle reported for a node. Visible nodes are
// clipped to the [0,width) x [0,height) viewport; invisible nodes keep their
// raw bounds and must not be treated as interactable.
func ResolveBounds(raw core.Bounds, visible bool, width, height int) core.Bounds {
	if !visible {
		return raw
	}
	return VisibleBounds(raw, width, height)
}

// VisibleBounds clips raw to the display.
func VisibleBounds(raw core.Bounds, width, height int) core.Bounds {
	return raw.Intersect(core.Bounds{Width: width, Height: height})
}
