package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/devicelab-dev/droidscan/pkg/core"
	"github.com/devicelab-dev/droidscan/pkg/uiautomator2"
)

const dump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="3">
  <node index="0" class="android.widget.FrameLayout" package="com.example.app" bounds="[0,0][720,1280]">
    <node index="0" class="android.widget.Button" package="com.example.app" clickable="true" bounds="[10,10][110,60]" />
  </node>
</hierarchy>`

type fakeDevice struct {
	dump    string
	dumpErr error
	w, h    int
	sizeErr error
	rot     int
	rotErr  error
}

func (f *fakeDevice) Serial() string { return "emulator-5554" }

func (f *fakeDevice) DumpHierarchy(context.Context) (string, error) { return f.dump, f.dumpErr }

func (f *fakeDevice) DisplaySize(context.Context) (int, int, error) { return f.w, f.h, f.sizeErr }

func (f *fakeDevice) Rotation(context.Context) (int, error) { return f.rot, f.rotErr }

type fakeServer struct {
	source      string
	sourceErr   error
	size        uiautomator2.WindowSize
	sizeErr     error
	orientation string
}

func (f *fakeServer) Source(context.Context) (string, error) { return f.source, f.sourceErr }

func (f *fakeServer) GetWindowSize(context.Context) (uiautomator2.WindowSize, error) {
	return f.size, f.sizeErr
}

func (f *fakeServer) GetOrientation(context.Context) (string, error) { return f.orientation, nil }

func TestFile_Capture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window_dump.xml")
	if err := os.WriteFile(path, []byte(dump), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := NewFile(path, Options{PoolSize: 8}).Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	want := Display{Width: 720, Height: 1280, Rotation: 3}
	if c.Display != want {
		t.Errorf("Display = %+v, want %+v (inferred from roots)", c.Display, want)
	}
	if c.Tree.Pool().Capacity() != 8 {
		t.Errorf("pool capacity = %d, want 8", c.Tree.Pool().Capacity())
	}
	if c.Raw != dump {
		t.Error("Raw should hold the file contents")
	}
}

func TestFile_DisplayOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window_dump.xml")
	if err := os.WriteFile(path, []byte(dump), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := NewFile(path, Options{Display: Display{Width: 1080, Height: 1920}}).Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if c.Display.Width != 1080 || c.Display.Height != 1920 {
		t.Errorf("Display = %+v, want override", c.Display)
	}
	if c.Tree.Pool().Capacity() == 0 {
		t.Error("default pool should be bounded")
	}
}

func TestFile_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewFile(filepath.Join(dir, "missing.xml"), Options{}).Capture(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.xml")
	if err := os.WriteFile(bad, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFile(bad, Options{}).Capture(context.Background())
	if !errors.Is(err, core.ErrInvalidHierarchy) {
		t.Errorf("Capture() error = %v, want ErrInvalidHierarchy", err)
	}
}

func TestADB_Capture(t *testing.T) {
	dev := &fakeDevice{dump: dump, w: 1080, h: 1920, rot: 1}

	src := NewADB(dev, Options{})
	c, err := src.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if want := (Display{Width: 1080, Height: 1920, Rotation: 1}); c.Display != want {
		t.Errorf("Display = %+v, want %+v", c.Display, want)
	}
	if src.Name() != "emulator-5554" {
		t.Errorf("Name() = %q", src.Name())
	}
}

func TestADB_RotationFallsBackToDump(t *testing.T) {
	dev := &fakeDevice{dump: dump, w: 1080, h: 1920, rotErr: errors.New("dumpsys failed")}

	c, err := NewADB(dev, Options{}).Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if c.Display.Rotation != 3 {
		t.Errorf("Rotation = %d, want 3 from dump", c.Display.Rotation)
	}
}

func TestADB_DumpFailureIsRetryable(t *testing.T) {
	dev := &fakeDevice{dumpErr: errors.New("device offline")}

	_, err := NewADB(dev, Options{}).Capture(context.Background())
	var execErr *core.ExecutionError
	if !errors.As(err, &execErr) || !execErr.Retryable() {
		t.Fatalf("Capture() error = %v, want retryable ExecutionError", err)
	}
	if execErr.Details["serial"] != "emulator-5554" {
		t.Errorf("details = %v", execErr.Details)
	}
}

func TestADB_DisplaySizeError(t *testing.T) {
	dev := &fakeDevice{dump: dump, sizeErr: errors.New("wm: not found")}

	if _, err := NewADB(dev, Options{}).Capture(context.Background()); err == nil {
		t.Error("expected error when display size is unavailable")
	}
	if _, err := NewADB(dev, Options{Display: Display{Width: 720, Height: 1280}}).Capture(context.Background()); err != nil {
		t.Errorf("display override should skip wm size, got %v", err)
	}
}

func TestUIA2_Capture(t *testing.T) {
	srv := &fakeServer{
		source:      dump,
		size:        uiautomator2.WindowSize{Width: 1440, Height: 2560},
		orientation: uiautomator2.OrientationLandscape,
	}

	c, err := NewUIA2(srv, "pixel", Options{}).Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if want := (Display{Width: 1440, Height: 2560, Rotation: 1}); c.Display != want {
		t.Errorf("Display = %+v, want %+v", c.Display, want)
	}
}

func TestUIA2_WindowSizeFallback(t *testing.T) {
	srv := &fakeServer{source: dump, sizeErr: errors.New("no session"), orientation: uiautomator2.OrientationPortrait}

	c, err := NewUIA2(srv, "pixel", Options{}).Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if want := (Display{Width: 720, Height: 1280, Rotation: 3}); c.Display != want {
		t.Errorf("Display = %+v, want %+v", c.Display, want)
	}
}

func TestUIA2_SourceError(t *testing.T) {
	srv := &fakeServer{sourceErr: core.ErrServerUnreachable}
	if _, err := NewUIA2(srv, "pixel", Options{}).Capture(context.Background()); !errors.Is(err, core.ErrServerUnreachable) {
		t.Errorf("Capture() error = %v, want ErrServerUnreachable", err)
	}
}
