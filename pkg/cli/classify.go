package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droidscan/pkg/dialog"
)

var classifyCommand = &cli.Command{
	Name:      "classify",
	Usage:     "Check whether a window dump is usable",
	ArgsUsage: "[dump.xml...]",
	Description: `Classify window dumps given as arguments, or the current screen when
none are given. Reports empty and truncated dumps and blocking system dialogs.

Examples:
  droidscan classify window_dump.xml
  droidscan classify --strict`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Exit with an error when any dump is not valid",
		},
	},
	Action: runClassify,
}

func runClassify(c *cli.Context) error {
	type entry struct {
		name   string
		result dialog.ValidationResult
	}
	var entries []entry

	if c.NArg() > 0 {
		for _, path := range c.Args().Slice() {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			dump := string(data)
			entries = append(entries, entry{path, dialog.Classify(&dump)})
		}
	} else {
		s, err := loadSettings(c)
		if err != nil {
			return err
		}
		for _, t := range s.targets() {
			sess, err := s.open(c.Context, t)
			if err != nil {
				return err
			}
			capture, err := sess.src.Capture(c.Context)
			name := sess.src.Name()
			sess.Close()

			if err != nil {
				// An unparsable dump still gets a classification.
				entries = append(entries, entry{name, dialog.Error})
				printWarning(c.App.ErrWriter, fmt.Sprintf("%s: %v", name, err))
				continue
			}
			entries = append(entries, entry{name, dialog.Classify(&capture.Raw)})
		}
	}

	invalid := 0
	for _, e := range entries {
		msg := fmt.Sprintf("%s: %s (%s)", e.name, e.result, e.result.Description())
		if e.result.Valid() {
			printSuccess(c.App.Writer, msg)
		} else {
			invalid++
			printFailure(c.App.Writer, msg)
		}
	}

	if invalid > 0 && c.Bool("strict") {
		return fmt.Errorf("%d of %d dumps are not valid", invalid, len(entries))
	}
	return nil
}
