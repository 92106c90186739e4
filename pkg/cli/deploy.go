package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/droidscan/pkg/config"
	"github.com/devicelab-dev/droidscan/pkg/deploy"
	"github.com/devicelab-dev/droidscan/pkg/logger"
)

var deployCommand = &cli.Command{
	Name:      "deploy",
	Usage:     "Reinstall an app, capture its first screen, then remove it",
	ArgsUsage: "[app.apk]",
	Description: `Uninstall any previous copy, install the APK, launch it and capture the
screen once it settles. The app's data is cleared and the app removed
afterwards unless --keep is given. Without an argument the apps listed in
the config file are deployed one after another.

Examples:
  droidscan deploy --package com.example.app app.apk
  droidscan deploy --keep --settle 5s`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "package",
			Usage: "Package name of the APK",
		},
		&cli.BoolFlag{
			Name:  "keep",
			Usage: "Leave the app installed",
		},
		&cli.BoolFlag{
			Name:  "no-launch",
			Usage: "Install without launching the app",
		},
		&cli.DurationFlag{
			Name:  "settle",
			Usage: "Wait after launching before capturing",
			Value: 3 * time.Second,
		},
		&cli.BoolFlag{
			Name:  "save",
			Usage: "Store the capture as a snapshot under --output-dir",
		},
	},
	Action: runDeploy,
}

// deployApps returns the APKs named on the command line, or the configured
// ones.
func deployApps(c *cli.Context, s *settings) ([]deploy.APK, error) {
	if c.NArg() > 0 {
		pkg := c.String("package")
		if pkg == "" {
			return nil, fmt.Errorf("--package is required when an APK is given")
		}
		return []deploy.APK{{Path: c.Args().First(), Package: pkg}}, nil
	}
	if len(s.Apps) == 0 {
		return nil, fmt.Errorf("no APK given and no apps in the config file")
	}
	apps := make([]deploy.APK, len(s.Apps))
	for i, a := range s.Apps {
		apps[i] = deploy.APK{Path: a.Path, Package: a.Package}
	}
	return apps, nil
}

func runDeploy(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	if s.Source == config.SourceFile {
		return fmt.Errorf("deploy needs a device, not --source=file")
	}
	apps, err := deployApps(c, s)
	if err != nil {
		return err
	}
	targets := s.targets()
	if len(targets) != 1 {
		return fmt.Errorf("deploy takes a single device, got %d", len(targets))
	}

	sess, err := s.open(c.Context, targets[0])
	if err != nil {
		return err
	}
	defer sess.Close()
	if sess.dev == nil {
		return fmt.Errorf("deploy needs a device connection")
	}

	opts := deploy.DefaultOptions()
	opts.Uninstall = !c.Bool("keep")
	deployer := deploy.New(sess.dev, opts)

	launch := !c.Bool("no-launch")
	settle := c.Duration("settle")
	save := c.Bool("save")

	var failed int
	for _, apk := range apps {
		printStep(c.App.ErrWriter, fmt.Sprintf("Deploying %s", apk))
		err := deployer.WithDeployed(c.Context, apk, func(ctx context.Context) error {
			if launch {
				if err := launchApp(ctx, sess, apk.Package, settle); err != nil {
					return err
				}
			}
			sc, err := s.fetch(ctx, sess.src)
			if err != nil {
				return err
			}
			if save {
				if _, err := s.saveScan(sc); err != nil {
					return err
				}
			}
			printSuccess(c.App.Writer, fmt.Sprintf("%s: %d widgets, %s", apk.Package, len(sc.Widgets), sc.Validation))
			return nil
		})
		if err != nil {
			failed++
			printFailure(c.App.ErrWriter, err.Error())
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d deployments failed", failed, len(apps))
	}
	return nil
}

// launchApp starts the package's launcher activity and waits for it to
// settle.
func launchApp(ctx context.Context, sess *session, pkg string, settle time.Duration) error {
	logger.Info("Launching %s", pkg)
	if _, err := sess.dev.Shell(ctx, fmt.Sprintf("monkey -p %s -c android.intent.category.LAUNCHER 1", pkg)); err != nil {
		return fmt.Errorf("launch %s: %w", pkg, err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
		return nil
	}
}
