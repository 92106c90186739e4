package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
	"github.com/devicelab-dev/droidscan/pkg/sanitize"
)

// Output formats for widget lists.
const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatCSV   = "csv"
	formatTable = "table"
)

var formats = []string{formatJSON, formatYAML, formatCSV, formatTable}

// writeWidgets renders widgets in the given format.
func writeWidgets(w io.Writer, format string, widgets []*hierarchy.Widget) error {
	if widgets == nil {
		widgets = []*hierarchy.Widget{}
	}
	switch format {
	case formatJSON, "":
		return writeJSON(w, widgets)
	case formatYAML:
		return writeYAML(w, widgets)
	case formatCSV:
		return writeCSV(w, widgets)
	case formatTable:
		return writeTable(w, widgets)
	default:
		return fmt.Errorf("unknown format %q (use %s)", format, strings.Join(formats, ", "))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

var csvHeader = []string{
	"xpath", "xpathHash", "parentHash", "isLeaf", "className", "resourceId",
	"text", "contentDesc", "packageName", "clickable", "checked", "enabled",
	"visible", "bounds", "clickX", "clickY",
}

func writeCSV(w io.Writer, widgets []*hierarchy.Widget) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, wd := range widgets {
		p := wd.ClickPoint()
		record := []string{
			wd.Xpath,
			strconv.FormatInt(int64(wd.XpathHash), 10),
			strconv.FormatInt(int64(wd.ParentHash), 10),
			strconv.FormatBool(wd.IsLeaf),
			wd.ClassName,
			wd.ResourceID,
			wd.Text,
			wd.ContentDesc,
			wd.PackageName,
			strconv.FormatBool(wd.Clickable),
			wd.Checked.String(),
			strconv.FormatBool(wd.Enabled),
			strconv.FormatBool(wd.Visible),
			wd.Bounds().ShortString(),
			strconv.Itoa(p.X),
			strconv.Itoa(p.Y),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Column widths of the table format.
const (
	colHash   = 11
	colClass  = 24
	colLabel  = 28
	colBounds = 24
)

func writeTable(w io.Writer, widgets []*hierarchy.Widget) error {
	header := cell("HASH", colHash) + " " + cell("CLASS", colClass) + " " +
		cell("LABEL", colLabel) + " " + cell("BOUNDS", colBounds) + " FLAGS"
	if _, err := fmt.Fprintf(w, "%s%s%s\n", color(colorBold), header, color(colorReset)); err != nil {
		return err
	}

	for _, wd := range widgets {
		rowColor := ""
		if wd.Actable() {
			rowColor = color(colorGreen)
		} else if !wd.Visible {
			rowColor = color(colorGray)
		}
		line := cell(strconv.FormatInt(int64(wd.XpathHash), 10), colHash) + " " +
			cell(shortClass(wd.ClassName), colClass) + " " +
			cell(label(wd), colLabel) + " " +
			cell(wd.Bounds().ShortString(), colBounds) + " " +
			flags(wd)
		if _, err := fmt.Fprintf(w, "%s%s%s\n", rowColor, line, resetIf(rowColor)); err != nil {
			return err
		}
	}
	return nil
}

// cell truncates or pads s to width terminal columns.
func cell(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

func shortClass(className string) string {
	if i := strings.LastIndex(className, "."); i >= 0 {
		return className[i+1:]
	}
	return className
}

// label picks the most descriptive text of a widget.
func label(w *hierarchy.Widget) string {
	switch {
	case w.Text != "":
		return sanitize.Restore(w.Text)
	case w.ContentDesc != "":
		return sanitize.Restore(w.ContentDesc)
	case w.ResourceID != "":
		if i := strings.Index(w.ResourceID, ":id/"); i >= 0 {
			return "#" + w.ResourceID[i+4:]
		}
		return "#" + w.ResourceID
	default:
		return ""
	}
}

func flags(w *hierarchy.Widget) string {
	var f []string
	if w.Clickable {
		f = append(f, "click")
	}
	if w.LongClickable {
		f = append(f, "long")
	}
	if w.Scrollable {
		f = append(f, "scroll")
	}
	if w.Editable {
		f = append(f, "edit")
	}
	if v, ok := w.Checked.Bool(); ok {
		if v {
			f = append(f, "checked")
		} else {
			f = append(f, "unchecked")
		}
	}
	if !w.Enabled {
		f = append(f, "disabled")
	}
	if w.UncoveredCoord != nil {
		f = append(f, fmt.Sprintf("at(%d,%d)", w.UncoveredCoord.X, w.UncoveredCoord.Y))
	}
	return strings.Join(f, ",")
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func resetIf(c string) string {
	if c == "" {
		return ""
	}
	return color(colorReset)
}

func printStep(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s⏳%s %s\n", color(colorCyan), color(colorReset), msg)
}

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s✓%s %s\n", color(colorGreen), color(colorReset), msg)
}

func printWarning(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s⚠%s %s\n", color(colorYellow), color(colorReset), msg)
}

func printFailure(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s✗%s %s\n", color(colorRed), color(colorReset), msg)
}
