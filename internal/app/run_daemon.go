package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/dev-tams/rotatekit/internal/config"
	"github.com/dev-tams/rotatekit/internal/schedule"
)

type DaemonOptions struct {
	// ConfigPath, when set, is watched and reloaded configs replace the
	// running one at the next minute boundary.
	ConfigPath string
	// RunTimeout bounds every triggered run. Zero means no limit.
	RunTimeout time.Duration
	// MetricsAddr, when set, serves /metrics on that address.
	MetricsAddr string
}

type daemonJob struct {
	job      config.JobConfig
	schedule schedule.CronSpec
}

type daemon struct {
	cfg        *config.Config
	jobs       []daemonJob
	runTimeout time.Duration
	o          *options
	lastRun    map[string]time.Time
}

func RunDaemon(ctx context.Context, cfg *config.Config, dopts DaemonOptions, opts ...Option) error {
	o := newOptions(opts)
	if dopts.MetricsAddr != "" && o.metrics == nil {
		o.metrics = NewMetrics(prometheus.NewRegistry())
	}

	d, err := newDaemon(cfg, dopts.RunTimeout, o)
	if err != nil {
		return err
	}

	reloads := make(chan *config.Config, 1)
	if dopts.ConfigPath != "" {
		err := config.Watch(ctx, dopts.ConfigPath, func(next *config.Config, err error) {
			if err != nil {
				o.log.WithError(err).Error("daemon: config reload rejected, keeping previous config")
				return
			}
			select {
			case <-reloads:
			default:
			}
			reloads <- next
		})
		if err != nil {
			return err
		}
	}

	if dopts.MetricsAddr != "" {
		stop := serveMetrics(dopts.MetricsAddr, o.metrics, o.log)
		defer stop()
	}

	o.log.WithField("jobs", len(d.jobs)).Info("daemon: started")

	lastMinute := time.Time{}
	for {
		select {
		case <-ctx.Done():
			o.log.Info("daemon: shutdown requested")
			return nil
		case next := <-reloads:
			if err := d.reload(next); err != nil {
				o.log.WithError(err).Error("daemon: config reload rejected, keeping previous config")
			} else {
				o.log.WithField("jobs", len(d.jobs)).Info("daemon: config reloaded")
			}
		default:
		}

		now := o.now().UTC()
		currentMinute := now.Truncate(time.Minute)
		if currentMinute.Equal(lastMinute) {
			sleepUntilNextPoll(ctx, 500*time.Millisecond)
			continue
		}
		lastMinute = currentMinute

		d.tick(ctx, currentMinute)
	}
}

func newDaemon(cfg *config.Config, runTimeout time.Duration, o *options) (*daemon, error) {
	d := &daemon{runTimeout: runTimeout, o: o, lastRun: make(map[string]time.Time)}
	if err := d.reload(cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// reload swaps in cfg and its scheduled jobs. Run history survives for jobs
// that keep their name.
func (d *daemon) reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	jobs := make([]daemonJob, 0, len(cfg.Jobs))
	for _, job := range cfg.Jobs {
		s := strings.TrimSpace(job.Schedule)
		if s == "" {
			d.o.log.WithField("job", job.Name).Debug("daemon: skipped (empty schedule)")
			continue
		}

		spec, err := schedule.ParseCronSpec(s)
		if err != nil {
			return fmt.Errorf("job %s: invalid schedule %q: %w", job.Name, s, err)
		}
		jobs = append(jobs, daemonJob{job: job, schedule: spec})
	}

	if len(jobs) == 0 {
		return fmt.Errorf("daemon: no jobs with a valid non-empty schedule")
	}

	d.cfg = cfg
	d.jobs = jobs
	return nil
}

// due returns the jobs scheduled for minute that have not run in it yet.
func (d *daemon) due(minute time.Time) []config.JobConfig {
	due := make([]config.JobConfig, 0, len(d.jobs))
	for _, dj := range d.jobs {
		if !dj.schedule.Matches(minute) {
			continue
		}
		if lm, ok := d.lastRun[dj.job.Name]; ok && lm.Equal(minute) {
			continue
		}
		due = append(due, dj.job)
	}
	return due
}

// tick runs the jobs due at minute. Failures are logged; the daemon keeps
// going.
func (d *daemon) tick(ctx context.Context, minute time.Time) []JobResult {
	due := d.due(minute)
	if len(due) == 0 {
		return nil
	}

	log := d.o.log.WithField("minute", minute.Format(time.RFC3339))
	log.WithField("jobs", len(due)).Info("daemon: triggering rotation jobs")

	runCtx := ctx
	cancel := func() {}
	if d.runTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d.runTimeout)
	}
	results, err := rotateJobs(runCtx, d.cfg, due, false, d.o)
	timedOut := d.runTimeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded)
	cancel()

	for _, job := range due {
		d.lastRun[job.Name] = minute
	}

	switch {
	case timedOut:
		log.WithFields(logrus.Fields{"timeout": d.runTimeout, "jobs": len(due)}).Error("daemon: run timed out")
	case err != nil:
		log.WithError(err).Error("daemon: run finished with errors")
	}
	return results
}

func serveMetrics(addr string, m *Metrics, log logrus.FieldLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("daemon: metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("daemon: serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func sleepUntilNextPoll(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
