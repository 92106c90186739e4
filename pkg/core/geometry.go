package core

import "fmt"

// Bounds represents element position and size in screen pixels.
// The covered area is [X, X+Width) x [Y, Y+Height).
type Bounds struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// NewBoundsLTRB builds Bounds from left/top/right/bottom edges.
func NewBoundsLTRB(left, top, right, bottom int) Bounds {
	return Bounds{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Right returns the exclusive right edge.
func (b Bounds) Right() int {
	return b.X + b.Width
}

// Bottom returns the exclusive bottom edge.
func (b Bounds) Bottom() int {
	return b.Y + b.Height
}

// Area returns Width*Height, or 0 for empty bounds.
func (b Bounds) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width * b.Height
}

// Empty reports whether the bounds cover no pixel.
func (b Bounds) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Center returns the center point of the bounds
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains checks if a point is within the bounds
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Intersect returns the overlap of b and o. When they do not overlap the
// result has zero width or height and its origin is clamped into o.
func (b Bounds) Intersect(o Bounds) Bounds {
	left := max(b.X, o.X)
	top := max(b.Y, o.Y)
	right := min(b.Right(), o.Right())
	bottom := min(b.Bottom(), o.Bottom())
	if right < left {
		left = min(left, o.Right())
		right = left
	}
	if bottom < top {
		top = min(top, o.Bottom())
		bottom = top
	}
	return NewBoundsLTRB(left, top, right, bottom)
}

// ShortString formats the bounds the way uiautomator dumps do: [l,t][r,b].
func (b Bounds) ShortString() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", b.X, b.Y, b.Right(), b.Bottom())
}

// Point is a screen coordinate.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}
