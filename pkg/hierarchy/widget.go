package hierarchy

import (
	"encoding/json"
	"fmt"

	"github.com/devicelab-dev/droidscan/pkg/core"
	"github.com/devicelab-dev/droidscan/pkg/sanitize"
)

// TriState is a capability-dependent boolean.
type TriState int8

const (
	NotApplicable TriState = iota // The capability does not apply to the node
	False
	True
)

// TriStateOf returns NotApplicable when the capability is absent, otherwise
// the value.
func TriStateOf(applicable, value bool) TriState {
	switch {
	case !applicable:
		return NotApplicable
	case value:
		return True
	default:
		return False
	}
}

// Applicable reports whether the state carries a value.
func (t TriState) Applicable() bool {
	return t != NotApplicable
}

// Bool returns the value and whether it applies.
func (t TriState) Bool() (value, ok bool) {
	return t == True, t != NotApplicable
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "n/a"
	}
}

// MarshalJSON encodes NotApplicable as null.
func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false and null.
func (t *TriState) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("tri-state: %w", err)
	}
	if v == nil {
		*t = NotApplicable
	} else {
		*t = TriStateOf(true, *v)
	}
	return nil
}

// MarshalYAML encodes NotApplicable as null.
func (t TriState) MarshalYAML() (interface{}, error) {
	if v, ok := t.Bool(); ok {
		return v, nil
	}
	return nil, nil
}

// Widget is the sanitized, hashed model of one accessibility node.
// A Widget is not modified after Fetch returns it.
type Widget struct {
	Xpath          string  `json:"xpath" yaml:"xpath"`
	XpathHash      int32   `json:"xpathHash" yaml:"xpathHash"`
	ParentHash     int32   `json:"parentHash" yaml:"parentHash"`
	ChildrenHashes []int32 `json:"childrenHashes" yaml:"childrenHashes"`
	IsLeaf         bool    `json:"isLeaf" yaml:"isLeaf"`

	Text        string `json:"text" yaml:"text"`
	ContentDesc string `json:"contentDesc" yaml:"contentDesc"`
	ResourceID  string `json:"resourceId" yaml:"resourceId"`
	ClassName   string `json:"className" yaml:"className"`
	PackageName string `json:"packageName" yaml:"packageName"`

	Enabled       bool     `json:"enabled" yaml:"enabled"`
	Editable      bool     `json:"editable" yaml:"editable"`
	IsPassword    bool     `json:"isPassword" yaml:"isPassword"`
	Clickable     bool     `json:"clickable" yaml:"clickable"`
	LongClickable bool     `json:"longClickable" yaml:"longClickable"`
	Scrollable    bool     `json:"scrollable" yaml:"scrollable"`
	Selected      bool     `json:"selected" yaml:"selected"`
	Visible       bool     `json:"visible" yaml:"visible"`
	Checked       TriState `json:"checked" yaml:"checked"`
	Focused       TriState `json:"focused" yaml:"focused"`

	BoundsX      int `json:"boundsX" yaml:"boundsX"`
	BoundsY      int `json:"boundsY" yaml:"boundsY"`
	BoundsWidth  int `json:"boundsWidth" yaml:"boundsWidth"`
	BoundsHeight int `json:"boundsHeight" yaml:"boundsHeight"`

	UncoveredCoord *core.Point `json:"uncoveredCoord,omitempty" yaml:"uncoveredCoord,omitempty"`
}

// newWidget copies the sanitized attributes of info into a Widget with the
// resolved bounds. Identity fields are set by the caller.
func newWidget(info NodeInfo, b core.Bounds) *Widget {
	return &Widget{
		Text:          sanitize.Sanitize(info.Text),
		ContentDesc:   sanitize.Sanitize(info.ContentDesc),
		ResourceID:    sanitize.Sanitize(info.ResourceID),
		ClassName:     sanitize.Sanitize(info.ClassName),
		PackageName:   sanitize.Sanitize(info.PackageName),
		Enabled:       info.Enabled,
		Editable:      info.Editable,
		IsPassword:    info.Password,
		Clickable:     info.Clickable,
		LongClickable: info.LongClickable,
		Scrollable:    info.Scrollable,
		Selected:      info.Selected,
		Visible:       info.VisibleToUser,
		Checked:       TriStateOf(info.Checkable, info.Checked),
		Focused:       TriStateOf(info.Focusable, info.Focused),
		BoundsX:       b.X,
		BoundsY:       b.Y,
		BoundsWidth:   b.Width,
		BoundsHeight:  b.Height,
	}
}

// Bounds returns the widget rectangle.
func (w *Widget) Bounds() core.Bounds {
	return core.Bounds{X: w.BoundsX, Y: w.BoundsY, Width: w.BoundsWidth, Height: w.BoundsHeight}
}

// Checkable reports whether the node exposes a checked state.
func (w *Widget) Checkable() bool {
	return w.Checked.Applicable()
}

// Actable reports whether the widget accepts a direct user interaction.
func (w *Widget) Actable() bool {
	return w.Clickable || w.LongClickable || w.Scrollable || w.Checkable() || w.Editable
}

// ClickPoint returns where a tap on the widget should land: the uncovered
// coordinate when one exists, otherwise the bounds center.
func (w *Widget) ClickPoint() core.Point {
	if w.UncoveredCoord != nil {
		return *w.UncoveredCoord
	}
	x, y := w.Bounds().Center()
	return core.Point{X: x, Y: y}
}

func (w *Widget) String() string {
	return fmt.Sprintf("%s#%d %s", w.Xpath, w.XpathHash, w.Bounds().ShortString())
}
