// Package cli provides the command-line interface for droidscan.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droidscan/pkg/config"
	"github.com/devicelab-dev/droidscan/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (default: config.yaml in the working directory)",
		EnvVars: []string{"DROIDSCAN_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "Device serial to capture from (can be comma-separated)",
		EnvVars: []string{"DROIDSCAN_DEVICE", "ANDROID_SERIAL"},
	},
	&cli.StringFlag{
		Name:    "source",
		Aliases: []string{"s"},
		Usage:   "Hierarchy source (adb, uia2, file)",
		EnvVars: []string{"DROIDSCAN_SOURCE"},
	},
	&cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "Window dump to read when --source=file",
		EnvVars: []string{"DROIDSCAN_FILE"},
	},
	&cli.StringFlag{
		Name:    "uia2-url",
		Usage:   "URL of a running UIAutomator2 server (skips starting one)",
		EnvVars: []string{"DROIDSCAN_UIA2_URL"},
	},
	&cli.StringFlag{
		Name:    "hash",
		Usage:   "Widget hash scheme (java, xxhash)",
		EnvVars: []string{"DROIDSCAN_HASH"},
	},
	&cli.IntFlag{
		Name:    "pool-size",
		Usage:   "Maximum native node handles held at once",
		EnvVars: []string{"DROIDSCAN_POOL_SIZE"},
	},
	&cli.StringFlag{
		Name:    "output-dir",
		Aliases: []string{"o"},
		Usage:   "Snapshot directory; ${serial} expands to the device serial",
		EnvVars: []string{"DROIDSCAN_OUTPUT_DIR"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write logs to this file (a bare name is placed in the droidscan logs directory)",
		EnvVars: []string{"DROIDSCAN_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"DROIDSCAN_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// Commands are the droidscan subcommands.
var Commands = []*cli.Command{
	hierarchyCommand,
	dumpCommand,
	classifyCommand,
	watchCommand,
	deployCommand,
	devicesCommand,
}

// NewApp builds the droidscan application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "droidscan",
		Usage:   "Extract and inspect Android accessibility trees",
		Version: Version,
		Description: `droidscan captures the on-screen accessibility tree of an Android
device and turns it into a list of identified, geometrically resolved widgets.

Examples:
  droidscan hierarchy
  droidscan -s file -f window_dump.xml hierarchy --format table
  droidscan -d emulator-5554,emulator-5556 hierarchy --filter 'w.clickable'
  droidscan watch --interval 2s
  droidscan deploy app.apk --package com.example.app`,
		Flags:    GlobalFlags,
		Commands: Commands,
		Before:   setupLogging,
		After: func(*cli.Context) error {
			logger.Close()
			return nil
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(c *cli.Context) error {
	if c.Bool("no-ansi") {
		colorsEnabled = false
	}

	verbose := c.Bool("verbose")
	if path := c.String("log-file"); path != "" {
		if filepath.Base(path) == path {
			path = filepath.Join(config.GetLogsDir(), path)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to create logs directory: %v\n", err)
			}
		}
		if err := logger.Init(path, verbose); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to initialize logger: %v\n", err)
		}
		return nil
	}
	if verbose {
		logger.SetOutput(c.App.ErrWriter, true)
	}
	return nil
}
