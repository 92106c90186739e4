package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droidscan/pkg/device"
)

// listDevices is replaced in tests.
var listDevices = device.ListDevices

var devicesCommand = &cli.Command{
	Name:  "devices",
	Usage: "List the Android devices adb can see",
	Description: `List attached devices with their state. Only devices in the "device"
state can be captured.

Examples:
  droidscan devices
  droidscan devices --json`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output in JSON format",
		},
	},
	Action: runDevices,
}

func runDevices(c *cli.Context) error {
	entries, err := listDevices(c.Context)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	w := c.App.Writer
	if c.Bool("json") {
		if entries == nil {
			entries = []device.Entry{}
		}
		return writeJSON(w, entries)
	}

	if len(entries) == 0 {
		printWarning(w, "No devices attached")
		return nil
	}
	fmt.Fprintf(w, "%s  %s  %s\n", cell("SERIAL", 24), cell("STATE", 12), "MODEL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s  %s\n", cell(e.Serial, 24), cell(e.State, 12), e.Model)
	}
	return nil
}
