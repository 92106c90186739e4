package source

import (
	"context"

	"github.com/devicelab-dev/droidscan/pkg/logger"
	"github.com/devicelab-dev/droidscan/pkg/uiautomator2"
)

// UIA2Client is the part of uiautomator2.Client used to capture a screen.
type UIA2Client interface {
	Source(ctx context.Context) (string, error)
	GetWindowSize(ctx context.Context) (uiautomator2.WindowSize, error)
	GetOrientation(ctx context.Context) (string, error)
}

// UIA2 captures through a UIAutomator2 server session.
type UIA2 struct {
	client UIA2Client
	name   string
	Options
}

// NewUIA2 creates a server source. name identifies the device in output.
func NewUIA2(client UIA2Client, name string, opts Options) *UIA2 {
	return &UIA2{client: client, name: name, Options: opts}
}

// Name returns the device name.
func (u *UIA2) Name() string {
	return u.name
}

// Capture fetches the page source and the window size.
func (u *UIA2) Capture(ctx context.Context) (*Capture, error) {
	raw, err := u.client.Source(ctx)
	if err != nil {
		return nil, err
	}

	var d Display
	if u.Display.Width == 0 {
		if size, err := u.client.GetWindowSize(ctx); err != nil {
			logger.Warn("Window size of %s unavailable, using root bounds: %v", u.name, err)
		} else {
			d.Width, d.Height = size.Width, size.Height
		}
	}
	if o, err := u.client.GetOrientation(ctx); err == nil && o == uiautomator2.OrientationLandscape {
		d.Rotation = 1
	}

	return u.parse(raw, d)
}
