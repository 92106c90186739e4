package device

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devicelab-dev/droidscan/pkg/logger"
)

const (
	dumpPath     = "/data/local/tmp/window_dump.xml"
	dumpAttempts = 3
)

var (
	sizePattern        = regexp.MustCompile(`(Physical|Override) size:\s*(\d+)x(\d+)`)
	orientationPattern = regexp.MustCompile(`SurfaceOrientation:\s*(\d)`)
)

// DumpHierarchy runs `uiautomator dump` on the device and returns the XML.
// The dump is retried because uiautomator fails while the UI is animating.
func (d *AndroidDevice) DumpHierarchy(ctx context.Context) (string, error) {
	var (
		out string
		err error
	)
	cmd := fmt.Sprintf("uiautomator dump %s >/dev/null && cat %s", dumpPath, dumpPath)

	for attempt := 0; attempt < dumpAttempts; attempt++ {
		if attempt > 0 {
			d.Shell(ctx, "pkill uiautomator")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}

		out, err = d.Shell(ctx, cmd)
		if err == nil && strings.Contains(out, "<hierarchy") {
			return trimDump(out), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Debug("uiautomator dump attempt %d/%d failed: %v", attempt+1, dumpAttempts, err)
	}

	if err == nil {
		err = fmt.Errorf("no hierarchy in output")
	}
	return "", fmt.Errorf("uiautomator dump failed after %d attempts: %w", dumpAttempts, err)
}

// trimDump drops anything adb prints around the XML document.
func trimDump(out string) string {
	start := strings.Index(out, "<?xml")
	if start == -1 {
		start = strings.Index(out, "<hierarchy")
	}
	if start > 0 {
		out = out[start:]
	}
	if end := strings.LastIndex(out, ">"); end != -1 {
		out = out[:end+1]
	}
	return out
}

// DisplaySize returns the effective display size, preferring the override
// size over the physical one.
func (d *AndroidDevice) DisplaySize(ctx context.Context) (width, height int, err error) {
	out, err := d.Shell(ctx, "wm size")
	if err != nil {
		return 0, 0, err
	}
	return parseDisplaySize(out)
}

func parseDisplaySize(out string) (int, int, error) {
	var width, height int
	for _, m := range sizePattern.FindAllStringSubmatch(out, -1) {
		w, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])
		if width == 0 || m[1] == "Override" {
			width, height = w, h
		}
	}
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("unexpected wm size output: %q", strings.TrimSpace(out))
	}
	return width, height, nil
}

// Rotation returns the display rotation in quarter turns (0-3).
func (d *AndroidDevice) Rotation(ctx context.Context) (int, error) {
	out, err := d.Shell(ctx, "dumpsys input")
	if err != nil {
		return 0, err
	}
	return parseRotation(out), nil
}

func parseRotation(out string) int {
	m := orientationPattern.FindStringSubmatch(out)
	if m == nil {
		return 0
	}
	r, _ := strconv.Atoi(m[1])
	return r % 4
}
