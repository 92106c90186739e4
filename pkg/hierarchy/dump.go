package hierarchy

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/devicelab-dev/droidscan/pkg/logger"
	"github.com/devicelab-dev/droidscan/pkg/sanitize"
)

// DumpHeader is the XML declaration written before the hierarchy element.
const DumpHeader = "<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>"

// Dumper serializes the raw accessibility tree to XML.
type Dumper struct {
	cfg Config
}

// NewDumper creates a Dumper using cfg's NAF exclusion list.
func NewDumper(cfg Config) *Dumper {
	return &Dumper{cfg: cfg}
}

// Dump writes every node of every window, including system windows, as a
// <node> element under a single <hierarchy rotation="..."> root.
func (d *Dumper) Dump(roots []Node, w io.Writer, width, height, rotation int) error {
	if _, err := io.WriteString(w, DumpHeader+"\n"); err != nil {
		return fmt.Errorf("write dump header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	hierarchy := xml.StartElement{
		Name: xml.Name{Local: "hierarchy"},
		Attr: []xml.Attr{attr("rotation", strconv.Itoa(rotation))},
	}
	if err := enc.EncodeToken(hierarchy); err != nil {
		return fmt.Errorf("write hierarchy: %w", err)
	}

	for i, root := range roots {
		if root == nil {
			logger.Warn("Null window root %d/%d in dump", i, len(roots))
			continue
		}
		if err := d.dumpNode(enc, root, 0, width, height); err != nil {
			return err
		}
	}

	if err := enc.EncodeToken(hierarchy.End()); err != nil {
		return fmt.Errorf("write hierarchy: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("flush dump: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (d *Dumper) dumpNode(enc *xml.Encoder, n Node, index, width, height int) error {
	info, err := n.Info()
	if err != nil {
		logger.Warn("Node %d skipped in dump: %v", index, err)
		return nil
	}

	start := xml.StartElement{Name: xml.Name{Local: "node"}, Attr: d.nodeAttrs(info, index, width, height)}
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("write node: %w", err)
	}

	count := n.ChildCount()
	for i := 0; i < count; i++ {
		if err := d.dumpChild(enc, n, i, count, width, height); err != nil {
			return err
		}
	}

	if err := enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("write node: %w", err)
	}
	return nil
}

// dumpChild releases the child handle once its subtree is written, whether
// or not writing succeeded.
func (d *Dumper) dumpChild(enc *xml.Encoder, parent Node, i, count, width, height int) error {
	child, err := parent.Child(i)
	if err != nil {
		return acquireError(err, i, count, "")
	}
	if child == nil {
		logger.Warn("Null child %d/%d in dump", i, count)
		return nil
	}
	defer child.Release()

	return d.dumpNode(enc, child, i, width, height)
}

func (d *Dumper) nodeAttrs(info NodeInfo, index, width, height int) []xml.Attr {
	attrs := make([]xml.Attr, 0, 20)
	if !d.cfg.nafExcluded(info.ClassName) {
		attrs = append(attrs, attr("NAF", "true"))
	}
	return append(attrs,
		attr("index", strconv.Itoa(index)),
		attr("text", sanitize.Sanitize(info.Text)),
		attr("resource-id", sanitize.Sanitize(info.ResourceID)),
		attr("class", sanitize.Sanitize(info.ClassName)),
		attr("package", sanitize.Sanitize(info.PackageName)),
		attr("content-desc", sanitize.Sanitize(info.ContentDesc)),
		boolAttr("checkable", info.Checkable),
		boolAttr("checked", info.Checked),
		boolAttr("clickable", info.Clickable),
		boolAttr("enabled", info.Enabled),
		boolAttr("focusable", info.Focusable),
		boolAttr("focused", info.Focused),
		boolAttr("scrollable", info.Scrollable),
		boolAttr("long-clickable", info.LongClickable),
		boolAttr("password", info.Password),
		boolAttr("selected", info.Selected),
		boolAttr("visible-to-user", info.VisibleToUser),
		attr("bounds", VisibleBounds(info.BoundsInScreen, width, height).ShortString()),
		boolAttr("editable", info.Editable),
	)
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func boolAttr(name string, value bool) xml.Attr {
	return attr(name, strconv.FormatBool(value))
}
