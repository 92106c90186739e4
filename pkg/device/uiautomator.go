package device

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/devicelab-dev/droidscan/pkg/logger"
)

// UIAutomator2 package names
const (
	UIAutomator2Server = "io.appium.uiautomator2.server"
	UIAutomator2Test   = "io.appium.uiautomator2.server.test"
)

// Port range for TCP forwarding (Windows)
const (
	portRangeStart = 6001
	portRangeEnd   = 7001
)

// UIAutomator2Config holds configuration for the UIAutomator2 server.
type UIAutomator2Config struct {
	SocketPath string        // Unix socket path (Linux/Mac only, default: /tmp/uia2-<serial>.sock)
	LocalPort  int           // TCP port (Windows only, default: auto-find free port)
	DevicePort int           // Port on device (default: 6790)
	Timeout    time.Duration // Startup timeout (default: 30s)
}

// DefaultUIAutomator2Config returns default configuration.
func DefaultUIAutomator2Config() UIAutomator2Config {
	return UIAutomator2Config{
		DevicePort: 6790,
		Timeout:    30 * time.Second,
	}
}

// DefaultSocketPath returns the default Unix socket path for this device.
func (d *AndroidDevice) DefaultSocketPath() string {
	return fmt.Sprintf("/tmp/uia2-%s.sock", d.serial)
}

// SocketPath returns the forwarded UIAutomator2 socket, empty if not started.
func (d *AndroidDevice) SocketPath() string {
	return d.socketPath
}

// LocalPort returns the forwarded UIAutomator2 TCP port, 0 if not started.
func (d *AndroidDevice) LocalPort() int {
	return d.localPort
}

// StartUIAutomator2 starts the UIAutomator2 server on the device and
// forwards it to a local socket (or TCP port on Windows).
func (d *AndroidDevice) StartUIAutomator2(ctx context.Context, cfg UIAutomator2Config) error {
	if !d.IsInstalled(ctx, UIAutomator2Server) {
		return fmt.Errorf("UIAutomator2 server not installed: %s", UIAutomator2Server)
	}
	if !d.IsInstalled(ctx, UIAutomator2Test) {
		return fmt.Errorf("UIAutomator2 test APK not installed: %s", UIAutomator2Test)
	}

	d.StopUIAutomator2(ctx, cfg)

	var err error
	if runtime.GOOS == "windows" {
		err = d.setupTCPForward(ctx, cfg)
	} else {
		err = d.setupSocketForward(ctx, cfg)
	}
	if err != nil {
		return err
	}

	instrumentCmd := fmt.Sprintf(
		"nohup am instrument -w -e disableAnalytics true "+
			"%s/androidx.test.runner.AndroidJUnitRunner "+
			"> /dev/null 2>&1 &",
		UIAutomator2Test,
	)
	if _, err := d.Shell(ctx, instrumentCmd); err != nil {
		return fmt.Errorf("failed to start instrumentation: %w", err)
	}

	if err := d.waitForUIAutomator2Ready(ctx, cfg.Timeout); err != nil {
		d.StopUIAutomator2(ctx, cfg)
		return err
	}
	logger.Info("UIAutomator2 ready on %s (socket=%q port=%d)", d.serial, d.socketPath, d.localPort)
	return nil
}

func (d *AndroidDevice) setupSocketForward(ctx context.Context, cfg UIAutomator2Config) error {
	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = d.DefaultSocketPath()
	}
	os.Remove(socketPath)

	if _, err := d.adb(ctx, "forward", "localfilesystem:"+socketPath, fmt.Sprintf("tcp:%d", cfg.DevicePort)); err != nil {
		return fmt.Errorf("socket forward failed: %w", err)
	}
	d.socketPath = socketPath
	return nil
}

func (d *AndroidDevice) setupTCPForward(ctx context.Context, cfg UIAutomator2Config) error {
	localPort := cfg.LocalPort
	if localPort == 0 {
		port, err := findFreePort(portRangeStart, portRangeEnd)
		if err != nil {
			return err
		}
		localPort = port
	}

	if _, err := d.adb(ctx, "forward", fmt.Sprintf("tcp:%d", localPort), fmt.Sprintf("tcp:%d", cfg.DevicePort)); err != nil {
		return fmt.Errorf("port forward failed: %w", err)
	}
	d.localPort = localPort
	return nil
}

// findFreePort finds a free TCP port in the given range.
func findFreePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			ln.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port found in range %d-%d", start, end)
}

// StopUIAutomator2 stops the server and removes its forwards. Failures are
// ignored so it can run on a device where the server never started.
func (d *AndroidDevice) StopUIAutomator2(ctx context.Context, cfg UIAutomator2Config) {
	d.Shell(ctx, "am force-stop "+UIAutomator2Server)
	d.Shell(ctx, "am force-stop "+UIAutomator2Test)

	for _, socket := range []string{d.socketPath, d.DefaultSocketPath()} {
		if socket == "" {
			continue
		}
		d.adb(ctx, "forward", "--remove", "localfilesystem:"+socket)
		os.Remove(socket)
	}
	d.socketPath = ""

	if d.localPort != 0 {
		d.adb(ctx, "forward", "--remove", fmt.Sprintf("tcp:%d", d.localPort))
		d.localPort = 0
	}
	if cfg.DevicePort != 0 {
		d.adb(ctx, "forward", "--remove", fmt.Sprintf("tcp:%d", cfg.DevicePort))
	}
}

func (d *AndroidDevice) waitForUIAutomator2Ready(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		if d.checkHealth() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("UIAutomator2 server not ready after %v", timeout)
		case <-ticker.C:
		}
	}
}

func (d *AndroidDevice) checkHealth() bool {
	switch {
	case d.socketPath != "":
		client := &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var dialer net.Dialer
					return dialer.DialContext(ctx, "unix", d.socketPath)
				},
			},
			Timeout: 2 * time.Second,
		}
		return checkHealthWithClient(client, "http://localhost/status")
	case d.localPort != 0:
		client := &http.Client{Timeout: 2 * time.Second}
		return checkHealthWithClient(client, fmt.Sprintf("http://127.0.0.1:%d/status", d.localPort))
	default:
		return false
	}
}

func checkHealthWithClient(client *http.Client, url string) bool {
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
