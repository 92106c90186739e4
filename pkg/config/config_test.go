package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/droidscan/pkg/core"
	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
systemPackage: com.vendor.systemui
nafExcludedClasses:
  - RecyclerView
hash: xxhash
handlePoolSize: 128
device: emulator-5554
source: uia2
display:
  width: 720
  height: 1280
uia2:
  socket: /tmp/uia2.sock
  devicePort: 6790
  timeout: 45s
outputDir: out
apps:
  - path: app.apk
    package: com.example.app
`
	cfg, err := Load(writeConfig(t, t.TempDir(), "config.yaml", content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SystemPackage == nil || *cfg.SystemPackage != "com.vendor.systemui" {
		t.Errorf("expected systemPackage com.vendor.systemui, got %v", cfg.SystemPackage)
	}
	if cfg.HandlePoolSize != 128 {
		t.Errorf("expected handlePoolSize 128, got %d", cfg.HandlePoolSize)
	}
	if cfg.Device != "emulator-5554" || cfg.Source != SourceUIA2 {
		t.Errorf("expected device emulator-5554 via uia2, got %s via %s", cfg.Device, cfg.Source)
	}
	if cfg.Display.Width != 720 || cfg.Display.Height != 1280 {
		t.Errorf("expected display 720x1280, got %+v", cfg.Display)
	}
	if cfg.UIA2.Socket != "/tmp/uia2.sock" || cfg.UIA2.DevicePort != 6790 {
		t.Errorf("unexpected uia2 %+v", cfg.UIA2)
	}
	if d, _ := cfg.UIA2.StartupTimeout(); d != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", d)
	}
	if cfg.OutputDir != "out" {
		t.Errorf("expected outputDir out, got %s", cfg.OutputDir)
	}
	if len(cfg.Apps) != 1 || cfg.Apps[0].Package != "com.example.app" {
		t.Errorf("expected one app, got %v", cfg.Apps)
	}

	h := cfg.Hierarchy()
	if h.SystemPackage != "com.vendor.systemui" || h.Hash != hierarchy.HashXX {
		t.Errorf("Hierarchy() = %+v", h)
	}
	if len(h.NAFExcludedClasses) != 1 || h.NAFExcludedClasses[0] != "RecyclerView" {
		t.Errorf("Hierarchy().NAFExcludedClasses = %v", h.NAFExcludedClasses)
	}
}

func TestHierarchy_Defaults(t *testing.T) {
	cfg := &Config{}
	h := cfg.Hierarchy()
	want := hierarchy.DefaultConfig()

	if h.SystemPackage != want.SystemPackage {
		t.Errorf("SystemPackage = %q, want %q", h.SystemPackage, want.SystemPackage)
	}
	if len(h.NAFExcludedClasses) != len(want.NAFExcludedClasses) {
		t.Errorf("NAFExcludedClasses = %v, want %v", h.NAFExcludedClasses, want.NAFExcludedClasses)
	}
	if h.Hash != hierarchy.HashJava {
		t.Errorf("Hash = %q, want java", h.Hash)
	}
}

func TestHierarchy_EmptySystemPackageDisablesExclusion(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), "config.yaml", `systemPackage: ""`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Hierarchy().SystemPackage; got != "" {
		t.Errorf("SystemPackage = %q, want empty", got)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, t.TempDir(), "config.yaml", `apps: [invalid yaml`))
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"unknown source", "source: usb", "source"},
		{"unknown hash", "hash: md5", "hash"},
		{"negative pool", "handlePoolSize: -1", "handlePoolSize"},
		{"negative display", "display: {width: -1}", "display"},
		{"bad timeout", "uia2: {timeout: soon}", "uia2.timeout"},
		{"app without package", "apps: [{path: a.apk}]", "apps[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), "config.yaml", tt.content))
			var execErr *core.ExecutionError
			if !errors.As(err, &execErr) || !errors.Is(err, core.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if execErr.Details["field"] != tt.field {
				t.Errorf("field = %v, want %s", execErr.Details["field"], tt.field)
			}
		})
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), "config.yaml", ``))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source != "" || len(cfg.Apps) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestLoadFromDir_ConfigYml(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `source: file`)

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source != SourceFile {
		t.Errorf("expected source file, got %s", cfg.Source)
	}
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device != "" || cfg.SystemPackage != nil {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestLoadFromDir_PrefersYamlOverYml(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `device: from-yaml`)
	writeConfig(t, dir, "config.yml", `device: from-yml`)

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device != "from-yaml" {
		t.Errorf("expected device from-yaml (from config.yaml), got %s", cfg.Device)
	}
}
