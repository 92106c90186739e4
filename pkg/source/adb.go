package source

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/droidscan/pkg/core"
	"github.com/devicelab-dev/droidscan/pkg/logger"
)

// ADBDevice is the part of device.AndroidDevice used to capture a screen.
type ADBDevice interface {
	Serial() string
	DumpHierarchy(ctx context.Context) (string, error)
	DisplaySize(ctx context.Context) (int, int, error)
	Rotation(ctx context.Context) (int, error)
}

// ADB captures through `uiautomator dump` on the device.
type ADB struct {
	dev ADBDevice
	Options
}

// NewADB creates an adb source for dev.
func NewADB(dev ADBDevice, opts Options) *ADB {
	return &ADB{dev: dev, Options: opts}
}

// Name returns the device serial.
func (a *ADB) Name() string {
	return a.dev.Serial()
}

// Capture dumps the hierarchy and reads the display metrics.
func (a *ADB) Capture(ctx context.Context) (*Capture, error) {
	raw, err := a.dev.DumpHierarchy(ctx)
	if err != nil {
		return nil, core.ErrDeviceDisconnected.WithCause(err).WithDetails(map[string]interface{}{
			"serial": a.dev.Serial(),
		})
	}

	var d Display
	if a.Display.Width == 0 {
		w, h, err := a.dev.DisplaySize(ctx)
		if err != nil {
			return nil, fmt.Errorf("display size of %s: %w", a.dev.Serial(), err)
		}
		d.Width, d.Height = w, h
	}
	if rot, err := a.dev.Rotation(ctx); err != nil {
		logger.Warn("Rotation of %s unavailable, using dump attribute: %v", a.dev.Serial(), err)
	} else {
		d.Rotation = rot
	}

	return a.parse(raw, d)
}
