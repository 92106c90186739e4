package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
	"github.com/devicelab-dev/droidscan/pkg/logger"
)

var dumpCommand = &cli.Command{
	Name:  "dump",
	Usage: "Write the window hierarchy as uiautomator XML",
	Description: `Re-serialize the captured accessibility tree, including system windows,
in the uiautomator dump format.

Examples:
  droidscan dump
  droidscan dump --out screen.xml
  droidscan -s uia2 dump --raw`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "out",
			Usage: "Write to this file instead of stdout",
		},
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "Write the source's dump unchanged",
		},
	},
	Action: runDump,
}

func runDump(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	targets := s.targets()
	if len(targets) != 1 {
		return fmt.Errorf("dump takes a single device, got %d", len(targets))
	}

	sess, err := s.open(c.Context, targets[0])
	if err != nil {
		return err
	}
	defer sess.Close()

	capture, err := sess.src.Capture(c.Context)
	if err != nil {
		return fmt.Errorf("%s: %w", sess.src.Name(), err)
	}

	var w io.Writer = c.App.Writer
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	if c.Bool("raw") {
		_, err := io.WriteString(w, capture.Raw)
		return err
	}

	d := capture.Display
	if err := hierarchy.NewDumper(s.Hierarchy).Dump(capture.Tree.Roots(), w, d.Width, d.Height, d.Rotation); err != nil {
		return err
	}
	logger.Info("Dumped %d windows of %s (%dx%d, rotation %d)", capture.Tree.Len(), sess.src.Name(), d.Width, d.Height, d.Rotation)
	return nil
}
