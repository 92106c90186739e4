// Package config handles configuration for droidscan.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/droidscan/pkg/core"
	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
)

// Hierarchy sources.
const (
	SourceADB  = "adb"
	SourceUIA2 = "uia2"
	SourceFile = "file"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	// Extraction settings. A nil SystemPackage keeps the default; an empty
	// one disables window exclusion.
	SystemPackage      *string  `yaml:"systemPackage"`
	NAFExcludedClasses []string `yaml:"nafExcludedClasses"`
	Hash               string   `yaml:"hash"`           // java or xxhash
	HandlePoolSize     int      `yaml:"handlePoolSize"` // Max outstanding child handles

	// Device settings
	Device  string  `yaml:"device"` // Serial; empty auto-detects
	Source  string  `yaml:"source"` // adb, uia2 or file
	Display Display `yaml:"display"`
	UIA2    UIA2    `yaml:"uia2"`

	// Output
	OutputDir string `yaml:"outputDir"` // Snapshot root

	// Apps deployed by the deploy command
	Apps []App `yaml:"apps"`
}

// Display overrides the screen size reported by the device.
type Display struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// UIA2 configures the UIAutomator2 server source.
type UIA2 struct {
	URL        string `yaml:"url"`        // Use an already running server
	Socket     string `yaml:"socket"`     // Local forwarded unix socket
	Port       int    `yaml:"port"`       // Local forwarded TCP port
	DevicePort int    `yaml:"devicePort"` // Server port on the device
	Timeout    string `yaml:"timeout"`    // Startup timeout, e.g. 30s
}

// App is an APK to deploy.
type App struct {
	Path    string `yaml:"path"`
	Package string `yaml:"package"`
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithMessage("invalid " + filepath.Base(path)).WithCause(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"config.yaml", "config.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found, return empty config
	return &Config{}, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Source {
	case "", SourceADB, SourceUIA2, SourceFile:
	default:
		return invalid("source", fmt.Errorf("unknown source %q (use adb, uia2 or file)", c.Source))
	}
	if _, err := hierarchy.HashScheme(c.Hash).Func(); err != nil {
		return invalid("hash", err)
	}
	if c.HandlePoolSize < 0 {
		return invalid("handlePoolSize", fmt.Errorf("must not be negative, got %d", c.HandlePoolSize))
	}
	if c.Display.Width < 0 || c.Display.Height < 0 {
		return invalid("display", fmt.Errorf("size must not be negative, got %dx%d", c.Display.Width, c.Display.Height))
	}
	if _, err := c.UIA2.StartupTimeout(); err != nil {
		return invalid("uia2.timeout", err)
	}
	for i, app := range c.Apps {
		if app.Path == "" || app.Package == "" {
			return invalid(fmt.Sprintf("apps[%d]", i), fmt.Errorf("path and package are required"))
		}
	}
	return nil
}

func invalid(field string, err error) error {
	return core.ErrInvalidConfig.WithDetails(map[string]interface{}{"field": field}).WithCause(fmt.Errorf("%s: %w", field, err))
}

// Hierarchy returns the extraction settings with defaults applied.
func (c *Config) Hierarchy() hierarchy.Config {
	h := hierarchy.DefaultConfig()
	if c.SystemPackage != nil {
		h.SystemPackage = *c.SystemPackage
	}
	if len(c.NAFExcludedClasses) > 0 {
		h.NAFExcludedClasses = append([]string(nil), c.NAFExcludedClasses...)
	}
	if c.Hash != "" {
		h.Hash = hierarchy.HashScheme(c.Hash)
	}
	return h
}

// StartupTimeout parses Timeout, zero when unset.
func (u UIA2) StartupTimeout() (time.Duration, error) {
	if u.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(u.Timeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %s", u.Timeout)
	}
	return d, nil
}
