package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"
	"github.com/tss-calculator/go-lib/pkg/infrastructure/logger"
	"github.com/urfave/cli/v2"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/config/matrixconfig"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/dependency"
	"github.com/tss-calculator/matrixbuild/pkg/matrix/infrastructure/trigger"
)

func main() {
	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()
	ctx = listenOSKillSignalsContext(ctx)
	mainLogger := logger.NewTextLogger()

	eventFlags := []cli.Flag{
		&cli.StringFlag{Name: "commit", Usage: "commit to build, defaults to $GITHUB_SHA or HEAD"},
		&cli.StringFlag{Name: "ref", Usage: "ref of the event, defaults to $GITHUB_REF or the current branch"},
		&cli.StringFlag{Name: "event", Usage: "push or pull_request, defaults to $GITHUB_EVENT_NAME"},
	}

	app := &cli.App{
		Name:  "matrixbuild",
		Usage: "build native bindings for every target of a matrix and publish them as one release",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "matrix.json",
			},
			&cli.StringFlag{
				Name:  "workdir",
				Value: ".",
			},
		},
		Commands: cli.Commands{
			&cli.Command{
				Name: "run",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "targets"},
					&cli.IntFlag{Name: "parallelism"},
					&cli.BoolFlag{Name: "in-place", Usage: "build every job in the working directory instead of a git worktree"},
					&cli.StringFlag{Name: "metrics-textfile"},
				}, eventFlags...),
				Before: func(c *cli.Context) error {
					return setupContainer(c, mainLogger, !c.Bool("in-place"))
				},
				After: closeContainer,
				Action: func(c *cli.Context) error {
					return run(c.Context, eventFlagsFrom(c), c.StringSlice("targets"), c.String("metrics-textfile"))
				},
			},
			&cli.Command{
				Name: "build",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "target",
						Required: true,
					},
				}, eventFlags...),
				Before: func(c *cli.Context) error {
					return setupContainer(c, mainLogger, false)
				},
				After: closeContainer,
				Action: func(c *cli.Context) error {
					return build(c.Context, eventFlagsFrom(c), c.String("target"))
				},
			},
			&cli.Command{
				Name:  "publish",
				Flags: eventFlags,
				Before: func(c *cli.Context) error {
					return setupContainer(c, mainLogger, false)
				},
				After: closeContainer,
				Action: func(c *cli.Context) error {
					return publish(c.Context, eventFlagsFrom(c))
				},
			},
			&cli.Command{
				Name: "plan",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "targets"},
				},
				Action: func(c *cli.Context) error {
					settings, err := matrixconfig.Load(c.String("config"), os.Getenv)
					if err != nil {
						return err
					}
					return plan(os.Stdout, settings.Matrix, c.StringSlice("targets"))
				},
			},
		},
	}
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		mainLogger.FatalError(err, "failed execute command "+strings.Join(os.Args, " "))
	}
}

func setupContainer(c *cli.Context, logger applogger.Logger, worktrees bool) error {
	settings, err := matrixconfig.Load(c.String("config"), os.Getenv)
	if err != nil {
		return err
	}
	settings.Matrix.Policy = overridePolicy(settings.Matrix.Policy, c.IsSet("parallelism"), c.Int("parallelism"), !worktrees)
	if !worktrees && c.Bool("in-place") {
		logger.Info("in-place run shares one working directory, jobs run one at a time")
	}
	workDir, err := filepath.Abs(c.String("workdir"))
	if err != nil {
		return err
	}
	container, err := dependency.NewDependencyContainer(c.Context, logger, settings, dependency.Options{
		WorkDir:   workDir,
		Worktrees: worktrees,
	})
	if err != nil {
		return err
	}
	c.Context = dependency.ContainerToContext(c.Context, container)
	return nil
}

// overridePolicy applies command line overrides. Jobs sharing one working
// directory never run concurrently.
func overridePolicy(policy model.Policy, parallelismSet bool, parallelism int, inPlace bool) model.Policy {
	if parallelismSet {
		policy.Parallelism = parallelism
	}
	if inPlace {
		policy.Parallelism = 1
	}
	return policy
}

func closeContainer(c *cli.Context) error {
	container, err := dependency.ContainerFromContext(c.Context)
	if err != nil {
		return nil
	}
	return container.Close()
}

func eventFlagsFrom(c *cli.Context) trigger.Flags {
	return trigger.Flags{
		Commit: c.String("commit"),
		Ref:    c.String("ref"),
		Kind:   c.String("event"),
	}
}

func listenOSKillSignalsContext(ctx context.Context) context.Context {
	var cancelFunc context.CancelFunc
	ctx, cancelFunc = context.WithCancel(ctx)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-ch:
			cancelFunc()
		case <-ctx.Done():
			return
		}
	}()
	return ctx
}
