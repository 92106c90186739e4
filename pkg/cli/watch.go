package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
	"github.com/devicelab-dev/droidscan/pkg/logger"
	"github.com/devicelab-dev/droidscan/pkg/snapshot"
)

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "Capture the screen repeatedly and report widget changes",
	Description: `Poll one device, printing how the set of widgets changes between
captures and how many widgets have never been seen before. Failed captures
are retried on the next tick when the error is transient.

Examples:
  droidscan watch
  droidscan watch --interval 500ms --count 20 --save`,
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "Time between captures",
			Value: 2 * time.Second,
		},
		&cli.IntFlag{
			Name:  "count",
			Usage: "Stop after this many captures (0 = until interrupted)",
		},
		&cli.IntFlag{
			Name:  "seen-size",
			Usage: "Number of widget identities to remember",
			Value: snapshot.DefaultSeenSize,
		},
		&cli.BoolFlag{
			Name:  "save",
			Usage: "Store every capture as a snapshot under --output-dir",
		},
	},
	Action: runWatch,
}

func runWatch(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	targets := s.targets()
	if len(targets) != 1 {
		return fmt.Errorf("watch takes a single device, got %d", len(targets))
	}
	interval := c.Duration("interval")
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	sess, err := s.open(ctx, targets[0])
	if err != nil {
		return err
	}
	defer sess.Close()

	seen, err := snapshot.NewSeen(c.Int("seen-size"))
	if err != nil {
		return err
	}

	w := &watcher{
		settings: s,
		seen:     seen,
		save:     c.Bool("save"),
		out:      c.App.Writer,
		errOut:   c.App.ErrWriter,
	}
	err = w.run(ctx, sess, interval, c.Int("count"))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type watcher struct {
	settings *settings
	seen     *snapshot.Seen
	save     bool
	out      io.Writer
	errOut   io.Writer

	prev []*hierarchy.Widget
}

// run captures count times, or until ctx is done when count is zero.
func (w *watcher) run(ctx context.Context, sess *session, interval time.Duration, count int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; count == 0 || n <= count; n++ {
		if n > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		if err := w.tick(ctx, sess, n); err != nil {
			return err
		}
	}
	return nil
}

func (w *watcher) tick(ctx context.Context, sess *session, n int) error {
	sc, err := w.settings.fetch(ctx, sess.src)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if retryable(err) {
			logger.Warn("Capture %d failed, retrying on next tick: %v", n, err)
			printWarning(w.errOut, fmt.Sprintf("capture %d failed: %v", n, err))
			return nil
		}
		return err
	}

	id := fmt.Sprintf("#%d", n)
	if w.save {
		meta, err := w.settings.saveScan(sc)
		if err != nil {
			return err
		}
		id = meta.ID
	}

	fresh := w.seen.Observe(id, sc.Widgets)
	diff := snapshot.Compare(w.prev, sc.Widgets)
	w.prev = sc.Widgets

	status := ""
	if !sc.Validation.Valid() || sc.Validation.IsDialog() {
		status = " " + color(colorYellow) + sc.Validation.String() + color(colorReset)
	}
	fmt.Fprintf(w.out, "%s %s%s%s %d widgets  +%d -%d  new %d%s\n",
		time.Now().Format("15:04:05"), color(colorGray), id, color(colorReset),
		len(sc.Widgets), len(diff.Added), len(diff.Removed), len(fresh), status)
	return nil
}
