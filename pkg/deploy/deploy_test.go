package deploy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/devicelab-dev/droidscan/pkg/core"
)

type fakeDevice struct {
	calls        []string
	unavailable  bool
	installErr   error
	clearErr     error
	uninstallErr error // returned only when ignoreFailure is false
}

func (f *fakeDevice) Install(_ context.Context, apk string) error {
	f.calls = append(f.calls, "install "+apk)
	return f.installErr
}

func (f *fakeDevice) Uninstall(_ context.Context, pkg string, ignoreFailure bool) error {
	if ignoreFailure {
		f.calls = append(f.calls, "uninstall? "+pkg)
		return nil
	}
	f.calls = append(f.calls, "uninstall "+pkg)
	return f.uninstallErr
}

func (f *fakeDevice) Clear(_ context.Context, pkg string) error {
	f.calls = append(f.calls, "clear "+pkg)
	return f.clearErr
}

func (f *fakeDevice) IsAvailable(context.Context) bool {
	return !f.unavailable
}

var app = APK{Path: "app.apk", Package: "com.example.app"}

func TestWithDeployed_Order(t *testing.T) {
	dev := &fakeDevice{}
	ran := false

	err := New(dev, DefaultOptions()).WithDeployed(context.Background(), app, func(context.Context) error {
		dev.calls = append(dev.calls, "fn")
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithDeployed() error = %v", err)
	}
	if !ran {
		t.Error("fn was not run")
	}

	want := "uninstall? com.example.app|install app.apk|fn|clear com.example.app|uninstall com.example.app"
	if got := strings.Join(dev.calls, "|"); got != want {
		t.Errorf("calls = %s\nwant   %s", got, want)
	}
}

func TestWithDeployed_InstallFailureIsFatal(t *testing.T) {
	dev := &fakeDevice{installErr: errors.New("INSTALL_FAILED_OLDER_SDK")}

	err := New(dev, DefaultOptions()).WithDeployed(context.Background(), app, func(context.Context) error {
		t.Error("fn must not run after a failed install")
		return nil
	})
	if !errors.Is(err, core.ErrInstallFailed) {
		t.Fatalf("WithDeployed() error = %v, want ErrInstallFailed", err)
	}
	var f *Failure
	if !errors.As(err, &f) || f.Undeploy {
		t.Errorf("failure = %+v, want deploy-stage failure", f)
	}
	if len(dev.calls) != 2 {
		t.Errorf("calls = %v, want no cleanup after failed install", dev.calls)
	}
}

func TestWithDeployed_DeviceGoneBeforeInstall(t *testing.T) {
	dev := &fakeDevice{unavailable: true}

	err := New(dev, DefaultOptions()).WithDeployed(context.Background(), app, func(context.Context) error { return nil })
	if !errors.Is(err, core.ErrDeviceDisconnected) {
		t.Errorf("WithDeployed() error = %v, want ErrDeviceDisconnected", err)
	}
}

func TestWithDeployed_CollectsAllFailures(t *testing.T) {
	dev := &fakeDevice{uninstallErr: errors.New("DELETE_FAILED_INTERNAL_ERROR")}
	sessionErr := errors.New("session failed")

	err := New(dev, DefaultOptions()).WithDeployed(context.Background(), app, func(context.Context) error {
		return sessionErr
	})
	if !errors.Is(err, sessionErr) {
		t.Errorf("error %v does not include the session failure", err)
	}
	if !errors.Is(err, core.ErrUninstallFailed) {
		t.Errorf("error %v does not include the uninstall failure", err)
	}

	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("error %T is not a joined error", err)
	}
	failures := joined.Unwrap()
	if len(failures) != 2 {
		t.Fatalf("got %d failures, want 2", len(failures))
	}
	if f := failures[1].(*Failure); !f.Undeploy || !strings.HasPrefix(f.Error(), "undeploy com.example.app") {
		t.Errorf("second failure = %v, want undeploy failure", f)
	}
}

func TestWithDeployed_PanicIsRecorded(t *testing.T) {
	dev := &fakeDevice{clearErr: errors.New("pm clear failed")}

	err := New(dev, DefaultOptions()).WithDeployed(context.Background(), app, func(context.Context) error {
		panic("screen vanished")
	})
	if err == nil {
		t.Fatal("WithDeployed() error = nil, want panic and clear failures")
	}

	var failures []*Failure
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var f *Failure
		if errors.As(e, &f) {
			failures = append(failures, f)
		}
	}
	if len(failures) != 2 {
		t.Fatalf("got %d failures, want 2: %v", len(failures), err)
	}
	if failures[0].Undeploy || !strings.Contains(failures[0].Err.Error(), "screen vanished") {
		t.Errorf("first failure = %v, want the recovered panic", failures[0])
	}
	if !failures[1].Undeploy || !errors.Is(failures[1], core.ErrClearFailed) {
		t.Errorf("second failure = %v, want undeploy clear failure", failures[1])
	}
	if got := strings.Join(dev.calls, ","); got != "uninstall? com.example.app,install app.apk,clear com.example.app" {
		t.Errorf("calls = %s", got)
	}
}

func TestWithDeployed_ClearFailureSkipsUninstall(t *testing.T) {
	dev := &fakeDevice{clearErr: errors.New("pm clear: Failed")}

	err := New(dev, DefaultOptions()).WithDeployed(context.Background(), app, func(context.Context) error { return nil })
	if !errors.Is(err, core.ErrClearFailed) {
		t.Fatalf("WithDeployed() error = %v, want ErrClearFailed", err)
	}
	if last := dev.calls[len(dev.calls)-1]; last != "clear com.example.app" {
		t.Errorf("last call = %q, want clear", last)
	}
}

func TestWithDeployed_DeviceGoneBeforeUndeploy(t *testing.T) {
	dev := &fakeDevice{}

	err := New(dev, DefaultOptions()).WithDeployed(context.Background(), app, func(context.Context) error {
		dev.unavailable = true
		return nil
	})
	if err != nil {
		t.Errorf("WithDeployed() error = %v, want nil when device vanished", err)
	}
	if got := strings.Join(dev.calls, "|"); got != "uninstall? com.example.app|install app.apk" {
		t.Errorf("calls = %s", got)
	}
}

func TestWithDeployed_OptionsDisabled(t *testing.T) {
	dev := &fakeDevice{}

	err := New(dev, Options{}).WithDeployed(context.Background(), app, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("WithDeployed() error = %v", err)
	}
	if len(dev.calls) != 0 {
		t.Errorf("calls = %v, want none", dev.calls)
	}
}

func TestWithDeployed_MissingPackage(t *testing.T) {
	err := New(&fakeDevice{}, DefaultOptions()).WithDeployed(context.Background(), APK{Path: "app.apk"}, nil)
	if !errors.Is(err, core.ErrMissingRequired) {
		t.Errorf("WithDeployed() error = %v, want ErrMissingRequired", err)
	}
}
