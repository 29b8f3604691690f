package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"go.yaml.in/yaml/v3"

	"github.com/dev-tams/rotatekit/internal/config"
	"github.com/dev-tams/rotatekit/internal/rotate"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Listing is one selected item as printed by RunList.
type Listing struct {
	Job     string    `json:"job" yaml:"job"`
	Source  string    `json:"source" yaml:"source"`
	Name    string    `json:"name" yaml:"name"`
	ID      string    `json:"id" yaml:"id"`
	Date    *time.Time `json:"date,omitempty" yaml:"date,omitempty"`
	Size    int64      `json:"size" yaml:"size"`
	ModTime *time.Time `json:"mod_time,omitempty" yaml:"mod_time,omitempty"`
}

// timeOrNil keeps unknown times out of json and yaml output.
func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// RunList prints what RunRotate would delete for jobName (every job when
// empty) without deleting anything.
func RunList(ctx context.Context, cfg *config.Config, jobName string, out io.Writer, format string, opts ...Option) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	jobs, err := cfg.SelectJobs(jobName)
	if err != nil {
		return err
	}
	o := newOptions(opts)
	engine, err := o.engine(cfg)
	if err != nil {
		return err
	}

	srcs := newSources(cfg, o.open)
	defer srcs.close()

	var rows []Listing
	var errs []error
	for _, job := range jobs {
		log := o.log.WithField("job", job.Name)
		var res JobResult
		sel, _, err := selectJob(ctx, engine, srcs, job, &res, log)
		if err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.Name, err))
			continue
		}
		rows = append(rows, listings(job, sel)...)
	}

	if err := writeListings(out, format, rows, o.now()); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func listings(job config.JobConfig, sel *rotate.Selection) []Listing {
	out := make([]Listing, 0, len(sel.Entries))
	for _, e := range sel.Entries {
		out = append(out, Listing{
			Job:     job.Name,
			Source:  job.Source,
			Name:    e.Parsed.Name,
			ID:      e.Item.Handle(),
			Date:    timeOrNil(e.Parsed.Date),
			Size:    e.Item.Size,
			ModTime: timeOrNil(e.Item.ModTime),
		})
	}
	return out
}

func writeListings(out io.Writer, format string, rows []Listing, now time.Time) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText, "":
		return writeText(out, rows, now)
	case FormatJSON:
		if rows == nil {
			rows = []Listing{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func writeText(out io.Writer, rows []Listing, now time.Time) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tNAME\tDATE\tSIZE\tAGE")
	for _, r := range rows {
		date, size, age := "-", "-", "-"
		if r.Size > 0 {
			size = humanize.IBytes(uint64(r.Size))
		}
		if r.Date != nil {
			date = r.Date.Format(time.RFC3339)
			age = humanize.RelTime(*r.Date, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Job, r.Name, date, size, age)
	}
	return tw.Flush()
}
