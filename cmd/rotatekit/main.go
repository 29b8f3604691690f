package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/dev-tams/rotatekit/internal/app"
	"github.com/dev-tams/rotatekit/internal/config"
	"github.com/dev-tams/rotatekit/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "rotatekit",
		Usage: "find and delete old backups by the dates in their names",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"ROTATEKIT_LOG_LEVEL"},
				Usage:   "debug, info, warn or error (overrides log_level from config)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "print the items each job would delete",
				Flags: append(configFlags(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"o"},
						Value:   app.FormatText,
						Usage:   "output format: text, json or yaml",
					},
				),
				Action: func(c *cli.Context) error {
					cfg, log, err := setup(c)
					if err != nil {
						return err
					}
					return app.RunList(c.Context, cfg, c.String("job"), c.App.Writer, c.String("format"), app.WithLogger(log))
				},
			},
			{
				Name:  "rotate",
				Usage: "delete the items selected by each job",
				Flags: append(configFlags(),
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "log what would be deleted without deleting it",
					},
				),
				Action: func(c *cli.Context) error {
					cfg, log, err := setup(c)
					if err != nil {
						return err
					}
					results, err := app.RunRotate(c.Context, cfg, c.String("job"), c.Bool("dry-run"), app.WithLogger(log))
					for _, r := range results {
						fmt.Fprintf(c.App.Writer, "rotate %s: job=%s selected=%d deleted=%d failed=%d skipped=%d\n",
							r.Status(), r.Job, r.Selected, r.Deleted, r.Failed, r.Skipped)
					}
					return err
				},
			},
			{
				Name:  "daemon",
				Usage: "run jobs on their schedules",
				Flags: append(configFlags(),
					&cli.DurationFlag{
						Name:  "run-timeout",
						Usage: "abort a triggered run after this long (0 disables)",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "serve Prometheus metrics on this address, e.g. :9102",
					},
					&cli.BoolFlag{
						Name:  "no-reload",
						Usage: "do not watch the config file for changes",
					},
				),
				Action: func(c *cli.Context) error {
					cfg, log, err := setup(c)
					if err != nil {
						return err
					}
					opts := app.DaemonOptions{
						RunTimeout:  c.Duration("run-timeout"),
						MetricsAddr: c.String("metrics-addr"),
					}
					if !c.Bool("no-reload") {
						opts.ConfigPath = c.String("config")
					}
					return app.RunDaemon(c.Context, cfg, opts, app.WithLogger(log))
				},
			},
			{
				Name:  "validate",
				Usage: "check the config file, including every job query",
				Flags: configFlags(),
				Action: func(c *cli.Context) error {
					cfg, err := loadValidatedConfig(c.String("config"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "config OK: %d source(s), %d job(s)\n", len(cfg.Sources), len(cfg.Jobs))
					return nil
				},
			},
			scanCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Required: true,
			EnvVars:  []string{"ROTATEKIT_CONFIG"},
			Usage:    "path to config yaml",
		},
		&cli.StringFlag{
			Name:  "job",
			Usage: "only run this job (defaults to every job)",
		},
	}
}

func setup(c *cli.Context) (*config.Config, *logrus.Logger, error) {
	cfg, err := loadValidatedConfig(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	log, err := logging.New(level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func loadValidatedConfig(cfgPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
