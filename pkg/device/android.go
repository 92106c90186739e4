// Package device provides Android device management via ADB.
package device

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/devicelab-dev/droidscan/pkg/logger"
)

// runFunc executes a command and returns its stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// AndroidDevice manages an Android device connection via ADB.
type AndroidDevice struct {
	serial     string
	adbPath    string
	run        runFunc
	socketPath string // Unix socket path for UIAutomator2 (Linux/Mac)
	localPort  int    // TCP port for UIAutomator2 (Windows)
}

// DeviceInfo contains basic device information.
type DeviceInfo struct {
	Serial     string `json:"serial" yaml:"serial"`
	Model      string `json:"model" yaml:"model"`
	SDK        string `json:"sdk" yaml:"sdk"`
	Brand      string `json:"brand" yaml:"brand"`
	IsEmulator bool   `json:"isEmulator" yaml:"isEmulator"`
}

// Entry is one line of `adb devices -l`.
type Entry struct {
	Serial string `json:"serial" yaml:"serial"`
	State  string `json:"state" yaml:"state"`
	Model  string `json:"model,omitempty" yaml:"model,omitempty"`
}

// New creates an AndroidDevice for the given serial.
// If serial is empty, it auto-detects the connected device.
func New(ctx context.Context, serial string) (*AndroidDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}
	return newDevice(ctx, serial, adbPath, execRun)
}

func newDevice(ctx context.Context, serial, adbPath string, run runFunc) (*AndroidDevice, error) {
	if serial == "" {
		entries, err := listDevices(ctx, adbPath, run)
		if err != nil {
			return nil, fmt.Errorf("no device specified and auto-detect failed: %w", err)
		}
		serial, err = firstReady(entries)
		if err != nil {
			return nil, err
		}
	}

	d := &AndroidDevice{serial: serial, adbPath: adbPath, run: run}
	if err := d.waitForDevice(ctx, 5*time.Second); err != nil {
		return nil, fmt.Errorf("device not found: %w", err)
	}
	return d, nil
}

// ListDevices returns every device adb knows about, in any state.
func ListDevices(ctx context.Context) ([]Entry, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}
	return listDevices(ctx, adbPath, execRun)
}

func listDevices(ctx context.Context, adbPath string, run runFunc) ([]Entry, error) {
	out, stderr, err := run(ctx, adbPath, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w: %s", err, stderr)
	}
	return parseDevices(string(out)), nil
}

func parseDevices(out string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		e := Entry{Serial: parts[0], State: parts[1]}
		for _, p := range parts[2:] {
			if model, ok := strings.CutPrefix(p, "model:"); ok {
				e.Model = model
			}
		}
		entries = append(entries, e)
	}
	return entries
}

func firstReady(entries []Entry) (string, error) {
	for _, e := range entries {
		if e.State == "device" {
			return e.Serial, nil
		}
	}
	return "", &NoDevicesError{
		Message: "No Android devices found",
		Suggestions: []string{
			"Connect a physical device via USB and enable USB debugging",
			"Start an emulator: emulator -avd <name>",
			"Pass --file to read a saved window dump instead",
		},
	}
}

// NoDevicesError is returned when auto-detection finds no ready device.
type NoDevicesError struct {
	Message     string
	Suggestions []string
}

func (e *NoDevicesError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if len(e.Suggestions) > 0 {
		sb.WriteString("\n\nOptions:\n")
		for _, s := range e.Suggestions {
			sb.WriteString("  - ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Serial returns the device serial number.
func (d *AndroidDevice) Serial() string {
	return d.serial
}

// Shell executes a shell command on the device.
func (d *AndroidDevice) Shell(ctx context.Context, cmd string) (string, error) {
	return d.adb(ctx, "shell", cmd)
}

// Install installs an APK on the device, granting runtime permissions.
func (d *AndroidDevice) Install(ctx context.Context, apkPath string) error {
	out, err := d.adb(ctx, "install", "-r", "-g", apkPath)
	if err != nil {
		return err
	}
	if strings.Contains(out, "Failure") {
		return fmt.Errorf("adb install %s: %s", apkPath, strings.TrimSpace(out))
	}
	return nil
}

// Uninstall removes a package. With ignoreFailure, a failed uninstall (for
// example of a package that is not installed) is logged and not returned.
func (d *AndroidDevice) Uninstall(ctx context.Context, pkg string, ignoreFailure bool) error {
	out, err := d.adb(ctx, "uninstall", pkg)
	if err == nil && strings.Contains(out, "Failure") {
		err = fmt.Errorf("adb uninstall %s: %s", pkg, strings.TrimSpace(out))
	}
	if err != nil && ignoreFailure {
		logger.Debug("Ignoring uninstall failure for %s: %v", pkg, err)
		return nil
	}
	return err
}

// Clear wipes the package's data and stops it.
func (d *AndroidDevice) Clear(ctx context.Context, pkg string) error {
	out, err := d.Shell(ctx, "pm clear "+pkg)
	if err != nil {
		return err
	}
	if !strings.Contains(out, "Success") {
		return fmt.Errorf("pm clear %s: %s", pkg, strings.TrimSpace(out))
	}
	return nil
}

// IsInstalled checks if a package is installed.
func (d *AndroidDevice) IsInstalled(ctx context.Context, pkg string) bool {
	out, err := d.Shell(ctx, "pm list packages "+pkg)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "package:"+pkg {
			return true
		}
	}
	return false
}

// IsAvailable reports whether the device is connected and online.
func (d *AndroidDevice) IsAvailable(ctx context.Context) bool {
	out, err := d.adb(ctx, "get-state")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "device"
}

// Info returns device information.
func (d *AndroidDevice) Info(ctx context.Context) (DeviceInfo, error) {
	info := DeviceInfo{Serial: d.serial}

	if model, err := d.Shell(ctx, "getprop ro.product.model"); err == nil {
		info.Model = strings.TrimSpace(model)
	}
	if sdk, err := d.Shell(ctx, "getprop ro.build.version.sdk"); err == nil {
		info.SDK = strings.TrimSpace(sdk)
	}
	if brand, err := d.Shell(ctx, "getprop ro.product.brand"); err == nil {
		info.Brand = strings.TrimSpace(brand)
	}

	qemu, _ := d.Shell(ctx, "getprop ro.kernel.qemu")
	info.IsEmulator = strings.TrimSpace(qemu) == "1"

	return info, nil
}

// adb executes an ADB command against this device.
func (d *AndroidDevice) adb(ctx context.Context, args ...string) (string, error) {
	cmdArgs := make([]string, 0, len(args)+2)
	if d.serial != "" {
		cmdArgs = append(cmdArgs, "-s", d.serial)
	}
	cmdArgs = append(cmdArgs, args...)

	stdout, stderr, err := d.run(ctx, d.adbPath, cmdArgs...)
	if err != nil {
		errMsg := string(stderr)
		if errMsg == "" {
			errMsg = string(stdout)
		}
		return "", fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(errMsg))
	}
	return string(stdout), nil
}

// waitForDevice waits for the device to be available.
func (d *AndroidDevice) waitForDevice(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		if d.IsAvailable(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for device %s", d.serial)
		case <-ticker.C:
		}
	}
}

// findADB locates the ADB binary.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("adb not found in PATH; ensure Android SDK is installed")
}
