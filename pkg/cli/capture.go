package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/devicelab-dev/droidscan/pkg/config"
	"github.com/devicelab-dev/droidscan/pkg/device"
	"github.com/devicelab-dev/droidscan/pkg/dialog"
	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
	"github.com/devicelab-dev/droidscan/pkg/logger"
	"github.com/devicelab-dev/droidscan/pkg/source"
	"github.com/devicelab-dev/droidscan/pkg/uiautomator2"
)

// target is one place to capture from.
type target struct {
	serial string // empty for file sources and auto-detection
}

// targets lists what a command should capture. File sources and a missing
// --device yield a single target.
func (s *settings) targets() []target {
	if s.Source == config.SourceFile || len(s.Devices) == 0 {
		return []target{{}}
	}
	out := make([]target, len(s.Devices))
	for i, serial := range s.Devices {
		out[i] = target{serial: serial}
	}
	return out
}

// session is an open source plus the device behind it, if any.
type session struct {
	src     source.Source
	dev     *device.AndroidDevice
	cleanup func()
}

func (s *session) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// open connects to the target and builds its source.
func (s *settings) open(ctx context.Context, t target) (*session, error) {
	opts := s.sourceOptions()

	if s.Source == config.SourceFile {
		return &session{src: source.NewFile(s.File, opts)}, nil
	}

	if s.Source == config.SourceUIA2 && s.UIA2.URL != "" {
		client := uiautomator2.NewClientURL(s.UIA2.URL)
		return s.uia2Session(ctx, client, nil, s.UIA2.URL, func() { client.Close() })
	}

	if t.serial != "" {
		logger.Info("Connecting to Android device: %s", t.serial)
	} else {
		logger.Info("Auto-detecting Android device...")
	}
	dev, err := device.New(ctx, t.serial)
	if err != nil {
		return nil, fmt.Errorf("connect to device: %w", err)
	}
	if info, err := dev.Info(ctx); err == nil {
		logger.Info("Connected to %s %s (SDK %s, emulator: %t)", info.Brand, info.Model, info.SDK, info.IsEmulator)
	}

	switch s.Source {
	case config.SourceADB:
		return &session{src: source.NewADB(dev, opts), dev: dev}, nil
	case config.SourceUIA2:
		return s.startUIA2(ctx, dev)
	default:
		return nil, fmt.Errorf("unsupported source: %s (use adb, uia2 or file)", s.Source)
	}
}

// startUIA2 starts the server on dev and opens a session against it.
func (s *settings) startUIA2(ctx context.Context, dev *device.AndroidDevice) (*session, error) {
	cfg := device.DefaultUIAutomator2Config()
	cfg.SocketPath = s.UIA2.Socket
	cfg.LocalPort = s.UIA2.Port
	if s.UIA2.DevicePort != 0 {
		cfg.DevicePort = s.UIA2.DevicePort
	}
	if d, _ := s.UIA2.StartupTimeout(); d > 0 {
		cfg.Timeout = d
	}

	logger.Info("Starting UIAutomator2 server on device %s", dev.Serial())
	if err := dev.StartUIAutomator2(ctx, cfg); err != nil {
		return nil, fmt.Errorf("start UIAutomator2: %w", err)
	}

	var client *uiautomator2.Client
	if dev.SocketPath() != "" {
		client = uiautomator2.NewClient(dev.SocketPath())
	} else {
		client = uiautomator2.NewClientTCP(dev.LocalPort())
	}

	stop := func() {
		client.Close()
		dev.StopUIAutomator2(context.Background(), cfg)
	}
	return s.uia2Session(ctx, client, dev, dev.Serial(), stop)
}

func (s *settings) uia2Session(ctx context.Context, client *uiautomator2.Client, dev *device.AndroidDevice, name string, cleanup func()) (*session, error) {
	caps := uiautomator2.Capabilities{PlatformName: "Android", AutomationName: "UiAutomator2"}
	if dev != nil {
		caps.DeviceName = dev.Serial()
	}
	if err := client.CreateSession(ctx, caps); err != nil {
		cleanup()
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.Info("Session created successfully: %s", client.SessionID())
	return &session{
		src:     source.NewUIA2(client, name, s.sourceOptions()),
		dev:     dev,
		cleanup: cleanup,
	}, nil
}

// scan is one captured and extracted screen.
type scan struct {
	Name       string
	Capture    *source.Capture
	Widgets    []*hierarchy.Widget
	Validation dialog.ValidationResult
}

// fetch captures one screen, classifies the raw dump and extracts widgets.
func (s *settings) fetch(ctx context.Context, src source.Source) (*scan, error) {
	capture, err := src.Capture(ctx)
	if err != nil {
		return nil, err
	}

	fetcher, err := hierarchy.NewFetcher(s.Hierarchy)
	if err != nil {
		return nil, err
	}
	widgets, err := fetcher.Fetch(capture.Tree.Roots(), capture.Display.Width, capture.Display.Height)
	if err != nil {
		return nil, err
	}
	pool := capture.Tree.Pool()
	if inUse := pool.InUse(); inUse != 0 {
		logger.Error("%d node handles still held after fetch", inUse)
	}
	logger.With("source", src.Name()).Debug("fetched",
		"widgets", len(widgets),
		"handles", pool.Acquired(),
		"peak", pool.Peak(),
		"capacity", pool.Capacity())

	result := dialog.Classify(&capture.Raw)
	if !result.Valid() {
		logger.Warn("Dump from %s classified as %s: %s", src.Name(), result, result.Description())
	}

	return &scan{
		Name:       src.Name(),
		Capture:    capture,
		Widgets:    widgets,
		Validation: result,
	}, nil
}

// retryable reports whether err may clear up on a later attempt.
func retryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
