package tree

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/devicelab-dev/droidscan/pkg/core"
	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
)

// Parse reads a uiautomator window dump into a tree bound to pool.
// Both layouts are accepted:
//   - uiautomator dump: <node class="..."> elements
//   - uiautomator2 server source: elements named after their class
//
// Each element directly under <hierarchy> becomes a window root.
func Parse(r io.Reader, pool *HandlePool) (*Tree, error) {
	decoder := xml.NewDecoder(r)

	var (
		windows       []*Node
		rotation      int
		hierarchySeen bool
	)

	var parseElement func() (*Node, error)
	parseElement = func() (*Node, error) {
		for {
			token, err := decoder.Token()
			if err != nil {
				return nil, err
			}

			switch t := token.(type) {
			case xml.StartElement:
				if t.Name.Local == "hierarchy" {
					hierarchySeen = true
					rotation = intAttr(t.Attr, "rotation")
					continue
				}

				n := &Node{info: parseInfo(t)}
				for {
					child, err := parseElement()
					if errors.Is(err, io.EOF) {
						return nil, io.ErrUnexpectedEOF
					}
					if err != nil {
						return nil, err
					}
					if child == nil {
						break
					}
					n.children = append(n.children, child)
				}
				return n, nil

			case xml.EndElement:
				return nil, nil
			}
		}
	}

	for {
		n, err := parseElement()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.ErrInvalidHierarchy.WithCause(err)
		}
		if n != nil {
			windows = append(windows, n)
		}
	}

	if !hierarchySeen {
		return nil, core.ErrInvalidHierarchy.WithMessage("no hierarchy element found")
	}

	t := New(pool, windows...)
	t.Rotation = rotation
	return t, nil
}

// ParseString is Parse over an in-memory dump.
func ParseString(dump string, pool *HandlePool) (*Tree, error) {
	return Parse(strings.NewReader(dump), pool)
}

func parseInfo(el xml.StartElement) hierarchy.NodeInfo {
	info := hierarchy.NodeInfo{
		ClassName:     el.Name.Local,
		VisibleToUser: true,
	}
	if info.ClassName == "node" {
		info.ClassName = ""
	}

	for _, attr := range el.Attr {
		v := attr.Value
		switch attr.Name.Local {
		case "text":
			info.Text = v
		case "resource-id":
			info.ResourceID = v
		case "content-desc":
			info.ContentDesc = v
		case "class":
			info.ClassName = v
		case "package":
			info.PackageName = v
		case "bounds":
			info.BoundsInScreen = parseBounds(v)
		case "checkable":
			info.Checkable = v == "true"
		case "checked":
			info.Checked = v == "true"
		case "clickable":
			info.Clickable = v == "true"
		case "enabled":
			info.Enabled = v == "true"
		case "focusable":
			info.Focusable = v == "true"
		case "focused":
			info.Focused = v == "true"
		case "scrollable":
			info.Scrollable = v == "true"
		case "long-clickable":
			info.LongClickable = v == "true"
		case "password":
			info.Password = v == "true"
		case "selected":
			info.Selected = v == "true"
		case "editable":
			info.Editable = v == "true"
		case "visible-to-user", "displayed":
			info.VisibleToUser = v != "false"
		}
	}
	return info
}

func intAttr(attrs []xml.Attr, name string) int {
	for _, a := range attrs {
		if a.Name.Local == name {
			v, _ := strconv.Atoi(a.Value)
			return v
		}
	}
	return 0
}

// parseBounds parses the "[x1,y1][x2,y2]" bounds format.
func parseBounds(s string) core.Bounds {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return core.Bounds{}
	}

	var edges [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return core.Bounds{}
		}
		edges[i] = v
	}
	return core.NewBoundsLTRB(edges[0], edges[1], edges[2], edges[3])
}
