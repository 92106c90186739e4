// Package deploy installs an application package for the duration of a
// session and removes it afterwards.
package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/devicelab-dev/droidscan/pkg/core"
	"github.com/devicelab-dev/droidscan/pkg/logger"
)

// Device is the package management surface of a device.
type Device interface {
	Install(ctx context.Context, apkPath string) error
	// Uninstall must succeed for a missing package when ignoreFailure is set.
	Uninstall(ctx context.Context, pkg string, ignoreFailure bool) error
	Clear(ctx context.Context, pkg string) error
	IsAvailable(ctx context.Context) bool
}

// APK names an installable package.
type APK struct {
	Path    string `json:"path" yaml:"path"`
	Package string `json:"package" yaml:"package"`
}

func (a APK) String() string {
	return fmt.Sprintf("%s (%s)", a.Path, a.Package)
}

// Options select which lifecycle steps run.
type Options struct {
	Install   bool
	Uninstall bool
}

// DefaultOptions reinstalls before and removes after.
func DefaultOptions() Options {
	return Options{Install: true, Uninstall: true}
}

// Failure is one error raised while a package was deployed.
type Failure struct {
	APK APK
	// Undeploy is set when the error came from the cleanup steps.
	Undeploy bool
	Err      error
}

func (f *Failure) Error() string {
	stage := "deployed"
	if f.Undeploy {
		stage = "undeploy"
	}
	return fmt.Sprintf("%s %s: %v", stage, f.APK.Package, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Deployer runs work with a package installed.
type Deployer struct {
	dev  Device
	opts Options
}

// New creates a Deployer for dev.
func New(dev Device, opts Options) *Deployer {
	return &Deployer{dev: dev, opts: opts}
}

// WithDeployed reinstalls apk, runs fn, then clears and uninstalls apk.
// A failed install is fatal and fn is not run. Failures of fn (including a
// panic) and of the cleanup are all collected; the result joins them as
// *Failure values, or is nil when every step succeeded.
func (d *Deployer) WithDeployed(ctx context.Context, apk APK, fn func(ctx context.Context) error) (err error) {
	if apk.Package == "" {
		return core.ErrMissingRequired.WithMessage("package name is required to deploy " + apk.Path)
	}

	if err := d.deploy(ctx, apk); err != nil {
		logger.Error("Deploying %s failed: %v", apk, err)
		return errors.Join(&Failure{APK: apk, Err: err})
	}

	var failures []error
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Session on %s panicked: %v", apk.Package, r)
			failures = append(failures, &Failure{APK: apk, Err: fmt.Errorf("panic: %v", r)})
		}
		if uerr := d.undeploy(ctx, apk); uerr != nil {
			logger.Error("Undeploying %s failed: %v", apk, uerr)
			failures = append(failures, &Failure{APK: apk, Undeploy: true, Err: uerr})
		}
		err = errors.Join(failures...)
	}()

	if ferr := fn(ctx); ferr != nil {
		logger.Warn("Session on %s failed: %v", apk.Package, ferr)
		failures = append(failures, &Failure{APK: apk, Err: ferr})
	}
	return nil
}

// deploy uninstalls any previous copy so caches are purged and a different
// signature can be installed.
func (d *Deployer) deploy(ctx context.Context, apk APK) error {
	if !d.opts.Install {
		return nil
	}
	logger.Info("Reinstalling %s", apk)

	if err := d.dev.Uninstall(ctx, apk.Package, true); err != nil {
		return core.ErrUninstallFailed.WithCause(err)
	}
	if !d.dev.IsAvailable(ctx) {
		return core.ErrDeviceDisconnected.WithMessage("no device available before installing " + apk.Path)
	}
	if err := d.dev.Install(ctx, apk.Path); err != nil {
		return core.ErrInstallFailed.WithCause(err)
	}
	return nil
}

func (d *Deployer) undeploy(ctx context.Context, apk APK) error {
	if !d.opts.Uninstall {
		return nil
	}
	if !d.dev.IsAvailable(ctx) {
		logger.Info("Device not available, skipping uninstall of %s", apk)
		return nil
	}

	logger.Info("Uninstalling %s", apk)
	if err := d.dev.Clear(ctx, apk.Package); err != nil {
		return core.ErrClearFailed.WithCause(err)
	}
	if err := d.dev.Uninstall(ctx, apk.Package, false); err != nil {
		return core.ErrUninstallFailed.WithCause(err)
	}
	return nil
}
