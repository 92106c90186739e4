package jsengine

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/devicelab-dev/droidscan/pkg/core"
	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
)

// Filter is a compiled boolean expression over one widget, bound as w.
//
//	w.clickable && w.text.startsWith("OK")
//	w.resourceId.endsWith(":id/login") || w.bounds.height > 200
type Filter struct {
	engine  *Engine
	program *goja.Program
	expr    string
}

// Compile parses expr once for repeated matching.
func (e *Engine) Compile(expr string) (*Filter, error) {
	program, err := goja.Compile("filter", "("+expr+"\n)", true)
	if err != nil {
		return nil, core.ErrInvalidConfig.WithMessage("invalid filter expression").WithCause(err)
	}
	return &Filter{engine: e, program: program, expr: expr}, nil
}

func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the filter against w using JavaScript truthiness.
func (f *Filter) Match(w *hierarchy.Widget) (bool, error) {
	e := f.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.runtime.Set("w", widgetObject(w)); err != nil {
		return false, fmt.Errorf("bind widget: %w", err)
	}
	v, err := e.run(func() (goja.Value, error) {
		return e.runtime.RunProgram(f.program)
	})
	if err != nil {
		return false, fmt.Errorf("filter %q on %s: %w", f.expr, w.Xpath, err)
	}
	return v.ToBoolean(), nil
}

// Select returns the widgets that match, in order. It stops at the first
// evaluation error.
func (f *Filter) Select(widgets []*hierarchy.Widget) ([]*hierarchy.Widget, error) {
	var out []*hierarchy.Widget
	for _, w := range widgets {
		ok, err := f.Match(w)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, w)
		}
	}
	return out, nil
}

// widgetObject exposes a widget under its JSON field names plus a few
// derived values.
func widgetObject(w *hierarchy.Widget) map[string]interface{} {
	b := w.Bounds()
	click := w.ClickPoint()

	var uncovered interface{}
	if w.UncoveredCoord != nil {
		uncovered = map[string]interface{}{"x": w.UncoveredCoord.X, "y": w.UncoveredCoord.Y}
	}
	children := make([]interface{}, len(w.ChildrenHashes))
	for i, h := range w.ChildrenHashes {
		children[i] = h
	}

	return map[string]interface{}{
		"xpath":          w.Xpath,
		"xpathHash":      w.XpathHash,
		"parentHash":     w.ParentHash,
		"childrenHashes": children,
		"isLeaf":         w.IsLeaf,
		"text":           w.Text,
		"contentDesc":    w.ContentDesc,
		"resourceId":     w.ResourceID,
		"className":      w.ClassName,
		"packageName":    w.PackageName,
		"enabled":        w.Enabled,
		"editable":       w.Editable,
		"isPassword":     w.IsPassword,
		"clickable":      w.Clickable,
		"longClickable":  w.LongClickable,
		"scrollable":     w.Scrollable,
		"selected":       w.Selected,
		"visible":        w.Visible,
		"checked":        triState(w.Checked),
		"focused":        triState(w.Focused),
		"checkable":      w.Checkable(),
		"actable":        w.Actable(),
		"bounds":         map[string]interface{}{"x": b.X, "y": b.Y, "width": b.Width, "height": b.Height},
		"uncoveredCoord": uncovered,
		"clickPoint":     map[string]interface{}{"x": click.X, "y": click.Y},
	}
}

func triState(t hierarchy.TriState) interface{} {
	if v, ok := t.Bool(); ok {
		return v
	}
	return nil
}
