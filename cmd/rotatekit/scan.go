package main

import (
	"github.com/urfave/cli/v2"

	"github.com/dev-tams/rotatekit/internal/app"
	"github.com/dev-tams/rotatekit/internal/logging"
	"github.com/dev-tams/rotatekit/internal/rotate"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "select (and optionally delete) items of one directory without a config file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Value: ".", Usage: "directory to scan"},
			&cli.StringFlag{Name: "kind", Value: "archives", Usage: "archives, logs or items"},
			&cli.StringFlag{Name: "before", Usage: "only items dated before this date or age (2024-01-31, 30d, 2w, 36h)"},
			&cli.StringFlag{Name: "after", Usage: "only items dated after this date or age"},
			&cli.IntSliceFlag{Name: "hour", Usage: "only items from these hours"},
			&cli.IntSliceFlag{Name: "except-hour", Usage: "skip items from these hours"},
			&cli.IntSliceFlag{Name: "day", Usage: "only items from these days of the month"},
			&cli.IntSliceFlag{Name: "except-day", Usage: "skip items from these days of the month"},
			&cli.IntSliceFlag{Name: "year", Usage: "only items from these years"},
			&cli.IntSliceFlag{Name: "except-year", Usage: "skip items from these years"},
			&cli.StringFlag{Name: "pattern", Usage: "regular expression names must match from their start"},
			&cli.StringSliceFlag{Name: "startswith", Usage: "names must start with one of these"},
			&cli.StringSliceFlag{Name: "except-startswith", Usage: "names must not start with any of these"},
			&cli.StringSliceFlag{Name: "endswith", Usage: "names must end with one of these"},
			&cli.StringSliceFlag{Name: "except-endswith", Usage: "names must not end with any of these"},
			&cli.StringFlag{Name: "except-first", Usage: "keep the earliest item of every day or month"},
			&cli.StringFlag{Name: "except-last", Usage: "keep the latest item of every day or month"},
			&cli.BoolFlag{Name: "include-undated", Usage: "also consider items without a date in their name"},
			&cli.BoolFlag{Name: "debug", Usage: "log how every item is evaluated"},
			&cli.BoolFlag{Name: "delete", Usage: "delete the selected items"},
			&cli.IntFlag{Name: "concurrency", Value: 4, Usage: "parallel deletions"},
			&cli.StringFlag{Name: "format", Aliases: []string{"o"}, Value: app.FormatText, Usage: "output format: text, json or yaml"},
		},
		Action: func(c *cli.Context) error {
			log, err := logging.New(c.String("log-level"))
			if err != nil {
				return err
			}
			s := app.Scan{
				Dir:         c.String("dir"),
				Kind:        c.String("kind"),
				Query:       scanQuery(c),
				Delete:      c.Bool("delete"),
				Concurrency: c.Int("concurrency"),
			}
			return app.RunScan(c.Context, s, c.App.Writer, c.String("format"), app.WithLogger(log))
		},
	}
}

var (
	scanStringKeys = map[string]string{
		"before":       rotate.KeyBefore,
		"after":        rotate.KeyAfter,
		"pattern":      rotate.KeyPattern,
		"except-first": rotate.KeyExceptFirst,
		"except-last":  rotate.KeyExceptLast,
	}
	scanIntListKeys = map[string]string{
		"hour":        rotate.KeyHour,
		"except-hour": rotate.KeyExceptHour,
		"day":         rotate.KeyDay,
		"except-day":  rotate.KeyExceptDay,
		"year":        rotate.KeyYear,
		"except-year": rotate.KeyExceptYear,
	}
	scanStringListKeys = map[string]string{
		"startswith":        rotate.KeyStartsWith,
		"except-startswith": rotate.KeyExceptStartsWith,
		"endswith":          rotate.KeyEndsWith,
		"except-endswith":   rotate.KeyExceptEndsWith,
	}
)

// scanQuery turns the flags the user actually set into a query.
func scanQuery(c *cli.Context) rotate.Query {
	q := rotate.Query{}
	for flag, key := range scanStringKeys {
		if c.IsSet(flag) {
			q[key] = c.String(flag)
		}
	}
	for flag, key := range scanIntListKeys {
		if c.IsSet(flag) {
			q[key] = c.IntSlice(flag)
		}
	}
	for flag, key := range scanStringListKeys {
		if c.IsSet(flag) {
			q[key] = c.StringSlice(flag)
		}
	}
	if c.Bool("include-undated") {
		q[rotate.KeyHasDate] = false
	}
	if c.Bool("debug") {
		q[rotate.KeyDebug] = true
	}
	return q
}
