package hierarchy

import (
	"slices"

	"github.com/devicelab-dev/droidscan/pkg/core"
)

// UncoveredCoord computes a tap target for w that no direct child covers.
// children must already carry their own uncovered coordinates.
//
// A non-actable child's coordinate is propagated first, so taps on passive
// wrappers reach the same free area as the wrapper itself. Propagation is
// gated: the coordinate must lie inside w and outside every actable sibling,
// otherwise the next passive child is tried. Otherwise, if w is
// larger than its children's combined area, the first free row (top-down) and
// the first free column within it are used. A fully covered widget has no
// coordinate.
func UncoveredCoord(w *Widget, children []*Widget) *core.Point {
	own := w.Bounds()

	for _, c := range children {
		if c.Actable() || c.UncoveredCoord == nil {
			continue
		}
		p := *c.UncoveredCoord
		if own.Contains(p.X, p.Y) && !coveredByActable(children, p) {
			return &p
		}
	}

	childArea := 0
	for _, c := range children {
		childArea += c.Bounds().Area()
	}
	if own.Area() <= childArea {
		return nil
	}

	covers := make([]core.Bounds, 0, len(children))
	for _, c := range children {
		if r := c.Bounds().Intersect(own); !r.Empty() {
			covers = append(covers, r)
		}
	}
	return firstUncovered(own, covers)
}

func coveredByActable(children []*Widget, p core.Point) bool {
	for _, c := range children {
		if c.Actable() && c.Bounds().Contains(p.X, p.Y) {
			return true
		}
	}
	return false
}

// firstUncovered scans area row by row for a pixel outside every cover.
// A row can only become free at the area's top edge or right below a cover,
// and a column only at the area's left edge or right after a cover, so those
// edges are the only candidates.
func firstUncovered(area core.Bounds, covers []core.Bounds) *core.Point {
	rows := []int{area.Y}
	for _, r := range covers {
		rows = append(rows, r.Bottom())
	}
	rows = inRange(rows, area.Y, area.Bottom())

	for _, y := range rows {
		var spans []core.Bounds
		cols := []int{area.X}
		for _, r := range covers {
			if y >= r.Y && y < r.Bottom() {
				spans = append(spans, r)
				cols = append(cols, r.Right())
			}
		}
		for _, x := range inRange(cols, area.X, area.Right()) {
			if !coveredAt(spans, x) {
				return &core.Point{X: x, Y: y}
			}
		}
	}
	return nil
}

// inRange sorts and dedups vals, keeping those in [lo, hi).
func inRange(vals []int, lo, hi int) []int {
	slices.Sort(vals)
	vals = slices.Compact(vals)
	out := vals[:0]
	for _, v := range vals {
		if v >= lo && v < hi {
			out = append(out, v)
		}
	}
	return out
}

func coveredAt(spans []core.Bounds, x int) bool {
	for _, r := range spans {
		if x >= r.X && x < r.Right() {
			return true
		}
	}
	return false
}
