package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droidscan/pkg/config"
	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
	"github.com/devicelab-dev/droidscan/pkg/jsengine"
	"github.com/devicelab-dev/droidscan/pkg/source"
)

// settings is the workspace config merged with command-line flags. Flags
// take precedence.
type settings struct {
	Hierarchy hierarchy.Config
	Source    string
	File      string
	Devices   []string // Serials; nil auto-detects one device
	UIA2      config.UIA2
	PoolSize  int
	Display   source.Display
	OutputDir string // May contain ${serial}
	Apps      []config.App
}

// lookup reads a flag from the command or, when unset there, from the
// global flags of the parent context.
type lookup struct {
	c *cli.Context
}

func (l lookup) ctx(name string) *cli.Context {
	for _, c := range l.c.Lineage() {
		if c != nil && c.IsSet(name) {
			return c
		}
	}
	return l.c
}

func (l lookup) isSet(name string) bool {
	return l.ctx(name).IsSet(name)
}

func (l lookup) String(name string) string {
	return l.ctx(name).String(name)
}

func (l lookup) Int(name string) int {
	return l.ctx(name).Int(name)
}

func (l lookup) Bool(name string) bool {
	return l.ctx(name).Bool(name)
}

func (l lookup) Duration(name string) time.Duration {
	return l.ctx(name).Duration(name)
}

// loadSettings reads the config file named by --config, or config.yaml in
// the working directory, and applies flag overrides.
func loadSettings(c *cli.Context) (*settings, error) {
	f := lookup{c}

	var cfg *config.Config
	var err error
	if path := f.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if f.isSet("source") {
		cfg.Source = f.String("source")
	}
	if f.isSet("hash") {
		cfg.Hash = f.String("hash")
	}
	if f.isSet("pool-size") {
		cfg.HandlePoolSize = f.Int("pool-size")
	}
	if f.isSet("uia2-url") {
		cfg.UIA2.URL = f.String("uia2-url")
	}
	if f.isSet("output-dir") {
		cfg.OutputDir = f.String("output-dir")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &settings{
		Hierarchy: cfg.Hierarchy(),
		Source:    cfg.Source,
		File:      f.String("file"),
		UIA2:      cfg.UIA2,
		PoolSize:  cfg.HandlePoolSize,
		Display:   source.Display{Width: cfg.Display.Width, Height: cfg.Display.Height},
		OutputDir: cfg.OutputDir,
		Apps:      cfg.Apps,
	}

	devices := f.String("device")
	if devices == "" {
		devices = cfg.Device
	}
	s.Devices = parseDevices(devices)

	if s.Source == "" {
		if s.File != "" {
			s.Source = config.SourceFile
		} else {
			s.Source = config.SourceADB
		}
	}
	if s.Source == config.SourceFile && s.File == "" {
		return nil, fmt.Errorf("--file is required with --source=file")
	}
	return s, nil
}

// parseDevices splits a comma-separated serial list. Empty means
// auto-detect.
func parseDevices(deviceFlag string) []string {
	if deviceFlag == "" {
		return nil
	}
	var devices []string
	for _, d := range strings.Split(deviceFlag, ",") {
		if d = strings.TrimSpace(d); d != "" {
			devices = append(devices, d)
		}
	}
	return devices
}

// snapshotDir resolves the snapshot root for one device. ${...} expressions
// see the serial; an empty setting uses <home>/snapshots/<serial>.
func (s *settings) snapshotDir(serial string) string {
	if s.OutputDir == "" {
		return filepath.Join(config.GetSnapshotsDir(), safeName(serial))
	}
	engine := jsengine.New()
	engine.SetVariable("serial", safeName(serial))
	return filepath.Clean(engine.ExpandVariables(s.OutputDir))
}

func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, name)
}

// sourceOptions returns the options shared by every source.
func (s *settings) sourceOptions() source.Options {
	return source.Options{PoolSize: s.PoolSize, Display: s.Display}
}
