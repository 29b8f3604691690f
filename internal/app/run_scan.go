package app

import (
	"context"
	"fmt"
	"io"

	"github.com/dev-tams/rotatekit/internal/config"
	"github.com/dev-tams/rotatekit/internal/rotate"
	"github.com/dev-tams/rotatekit/internal/storage"
)

// Scan is an ad-hoc rotation of one local directory, without a config file.
type Scan struct {
	Dir         string
	Kind        string
	Query       rotate.Query
	Delete      bool
	Concurrency int
}

// RunScan prints the items of s.Dir selected by s.Query and, when s.Delete is
// set, removes them.
func RunScan(ctx context.Context, s Scan, out io.Writer, format string, opts ...Option) error {
	o := newOptions(opts)
	class, err := rotate.ParseClass(s.Kind)
	if err != nil {
		return err
	}
	if class == rotate.ClassTable {
		return fmt.Errorf("scan works on directories; use a sqlite or mysql source for tables")
	}

	job := config.JobConfig{Name: "scan", Source: "scan", Kind: s.Kind, Query: s.Query}
	cfg := &config.Config{
		Version:     1,
		Concurrency: s.Concurrency,
		Sources: []config.SourceConfig{
			{Name: "scan", Type: "local", Local: &config.LocalConfig{Path: s.Dir}},
		},
		Jobs: []config.JobConfig{job},
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	engine, err := o.engine(cfg)
	if err != nil {
		return err
	}

	srcs := newSources(cfg, o.open)
	defer srcs.close()

	var res JobResult
	sel, st, err := selectJob(ctx, engine, srcs, job, &res, o.log.WithField("dir", s.Dir))
	if err != nil {
		return err
	}
	if err := writeListings(out, format, listings(job, sel), o.now()); err != nil {
		return err
	}
	if !s.Delete {
		return nil
	}

	rm, err := storage.RemoveItems(ctx, st, sel.Items(), cfg.Concurrency)
	o.log.WithField("dir", s.Dir).WithField("deleted", len(rm.Removed)).Info("scan: removed selected items")
	return err
}
