package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
	"github.com/devicelab-dev/droidscan/pkg/jsengine"
	"github.com/devicelab-dev/droidscan/pkg/logger"
	"github.com/devicelab-dev/droidscan/pkg/snapshot"
)

var hierarchyCommand = &cli.Command{
	Name:  "hierarchy",
	Usage: "Print the widgets of the current screen",
	Description: `Capture the screen, extract one widget per accessibility node and print
them children first.

Filters are JavaScript expressions over the widget w, for example
  w.clickable && w.text != ""
  w.resourceId.endsWith(":id/login")
  w.bounds.height > 200

Examples:
  droidscan hierarchy
  droidscan hierarchy --format table --filter 'w.actable'
  droidscan -d emulator-5554,emulator-5556 hierarchy --save`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format (" + strings.Join(formats, ", ") + ")",
			Value: formatJSON,
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: "Only print widgets matching this JavaScript expression",
		},
		&cli.BoolFlag{
			Name:  "save",
			Usage: "Store the result as a snapshot under --output-dir",
		},
	},
	Action: runHierarchy,
}

func runHierarchy(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	format := c.String("format")
	if !slices.Contains(formats, format) {
		return fmt.Errorf("unknown format %q (use %s)", format, strings.Join(formats, ", "))
	}
	filter, err := compileFilter(c.String("filter"))
	if err != nil {
		return err
	}
	save := c.Bool("save")

	targets := s.targets()
	scans := make([]*scan, len(targets))

	g, ctx := errgroup.WithContext(c.Context)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			sess, err := s.open(ctx, t)
			if err != nil {
				return err
			}
			defer sess.Close()

			sc, err := s.fetch(ctx, sess.src)
			if err != nil {
				return fmt.Errorf("%s: %w", sess.src.Name(), err)
			}
			if save {
				meta, err := s.saveScan(sc)
				if err != nil {
					return err
				}
				printSuccess(c.App.ErrWriter, fmt.Sprintf("Saved snapshot %s (%d widgets)", meta.ID, meta.WidgetCount))
			}
			if filter != nil {
				if sc.Widgets, err = filter.Select(sc.Widgets); err != nil {
					return err
				}
			}
			scans[i] = sc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return writeScans(c.App.Writer, format, scans)
}

// writeScans prints one scan as a plain widget list. Several scans are keyed
// by device in JSON and YAML and separated by a comment line otherwise.
func writeScans(w io.Writer, format string, scans []*scan) error {
	if len(scans) == 1 {
		return writeWidgets(w, format, scans[0].Widgets)
	}

	switch format {
	case formatJSON, formatYAML:
		byDevice := make(map[string][]*hierarchy.Widget, len(scans))
		for _, sc := range scans {
			byDevice[sc.Name] = sc.Widgets
		}
		if format == formatJSON {
			return writeJSON(w, byDevice)
		}
		return writeYAML(w, byDevice)
	default:
		for _, sc := range scans {
			if _, err := fmt.Fprintf(w, "# %s\n", sc.Name); err != nil {
				return err
			}
			if err := writeWidgets(w, format, sc.Widgets); err != nil {
				return err
			}
		}
		return nil
	}
}

func compileFilter(expr string) (*jsengine.Filter, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	return jsengine.New().Compile(expr)
}

// saveScan stores sc in the snapshot directory of its device.
func (s *settings) saveScan(sc *scan) (snapshot.Meta, error) {
	store, err := snapshot.NewStore(s.snapshotDir(sc.Name))
	if err != nil {
		return snapshot.Meta{}, err
	}
	meta, err := store.Save(snapshot.Meta{
		Source:     sc.Name,
		Display:    sc.Capture.Display,
		Validation: sc.Validation,
	}, sc.Widgets, []byte(sc.Capture.Raw))
	if err != nil {
		return snapshot.Meta{}, err
	}
	logger.Info("Snapshot %s saved to %s", meta.ID, store.Dir())
	return meta, nil
}
