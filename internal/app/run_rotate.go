package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dev-tams/rotatekit/internal/config"
	"github.com/dev-tams/rotatekit/internal/notify"
	"github.com/dev-tams/rotatekit/internal/rotate"
	"github.com/dev-tams/rotatekit/internal/storage"
)

const notificationTimeout = 5 * time.Second

type JobResult struct {
	Job      string
	Source   string
	DryRun   bool
	Listed   int
	Selected int
	Deleted  int
	Failed   int
	Skipped  int
	Duration time.Duration
	Err      error
}

// Status is failure when the job errored and partial when some selected
// items could not be deleted.
func (r JobResult) Status() string {
	switch {
	case r.Err != nil:
		return notify.StatusFailure
	case r.Failed > 0:
		return notify.StatusPartial
	default:
		return notify.StatusSuccess
	}
}

// RunRotate runs the job called jobName, or every job when it is empty: list
// the source, select with the job's query and delete the selection. Nothing
// is deleted when dryRun is set or the job is marked dry_run. A failing job
// does not stop the ones after it; their errors are joined.
func RunRotate(ctx context.Context, cfg *config.Config, jobName string, dryRun bool, opts ...Option) ([]JobResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	jobs, err := cfg.SelectJobs(jobName)
	if err != nil {
		return nil, err
	}
	return rotateJobs(ctx, cfg, jobs, dryRun, newOptions(opts))
}

func rotateJobs(ctx context.Context, cfg *config.Config, jobs []config.JobConfig, dryRun bool, o *options) ([]JobResult, error) {
	engine, err := o.engine(cfg)
	if err != nil {
		return nil, err
	}
	dispatcher, err := notify.NewDispatcher(cfg.Notifications)
	if err != nil {
		return nil, err
	}

	srcs := newSources(cfg, o.open)
	defer srcs.close()

	runID := uuid.NewString()
	log := o.log.WithField("run", runID)

	results := make([]JobResult, 0, len(jobs))
	var errs []error
	for _, job := range jobs {
		res := rotateJob(ctx, cfg, engine, srcs, job, dryRun || job.DryRun, log)
		results = append(results, res)

		o.metrics.observe(res)
		notifyResult(ctx, dispatcher, runID, res, log)

		if res.Err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.Name, res.Err))
		}
	}
	return results, errors.Join(errs...)
}

func rotateJob(
	ctx context.Context,
	cfg *config.Config,
	engine *rotate.Engine,
	srcs *sources,
	job config.JobConfig,
	dryRun bool,
	log logrus.FieldLogger,
) JobResult {
	started := time.Now()
	res := JobResult{Job: job.Name, Source: job.Source, DryRun: dryRun}
	log = log.WithFields(logrus.Fields{"job": job.Name, "source": job.Source})

	sel, st, err := selectJob(ctx, engine, srcs, job, &res, log)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(started)
		log.WithError(err).Error("rotation failed")
		return res
	}

	if dryRun {
		for _, item := range sel.Items() {
			log.WithField("item", item.Handle()).Info("would delete")
		}
	} else {
		rm, err := storage.RemoveItems(ctx, st, sel.Items(), cfg.Concurrency)
		res.Deleted = len(rm.Removed)
		res.Failed = rm.Failed(res.Selected)
		res.Err = err
		for _, item := range rm.Removed {
			log.WithField("item", item.Handle()).Debug("deleted")
		}
		for _, f := range rm.Skipped {
			log.WithField("item", f.Item.Handle()).WithError(f.Err).Warn("delete failed, skipped")
		}
	}
	res.Duration = time.Since(started)

	entry := log.WithFields(logrus.Fields{
		"listed":   res.Listed,
		"selected": res.Selected,
		"deleted":  res.Deleted,
		"failed":   res.Failed,
		"skipped":  res.Skipped,
		"dry_run":  dryRun,
		"duration": res.Duration.Round(time.Millisecond),
	})
	if res.Err != nil {
		entry.WithError(res.Err).Error("rotation finished with errors")
	} else {
		entry.Info("rotation finished")
	}
	return res
}

// selectJob lists the job's source and applies its query. Listed, Selected and
// Skipped are recorded in res as they become known.
func selectJob(
	ctx context.Context,
	engine *rotate.Engine,
	srcs *sources,
	job config.JobConfig,
	res *JobResult,
	log logrus.FieldLogger,
) (*rotate.Selection, storage.Storage, error) {
	st, err := srcs.get(ctx, job.Source)
	if err != nil {
		return nil, nil, err
	}
	class, err := job.Class()
	if err != nil {
		return nil, nil, err
	}

	items, err := st.List(ctx, job.Prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("list %s: %w", st.Name(), err)
	}
	res.Listed = len(items)

	sel, err := engine.Select(items, class, job.RotateQuery())
	if err != nil {
		return nil, nil, err
	}
	res.Skipped = len(sel.Skipped)
	res.Selected = len(sel.Entries)
	for _, s := range sel.Skipped {
		log.WithField("item", s.Item.Handle()).WithError(s.Err).Warn("skipped item with unreadable date")
	}
	return sel, st, nil
}

func notifyResult(ctx context.Context, dispatcher *notify.Dispatcher, runID string, res JobResult, log logrus.FieldLogger) {
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}

	event := notify.Event{
		RunID:    runID,
		Job:      res.Job,
		Source:   res.Source,
		Status:   res.Status(),
		Selected: res.Selected,
		Deleted:  res.Deleted,
		Failed:   res.Failed,
		DryRun:   res.DryRun,
		Duration: res.Duration.Round(time.Millisecond).String(),
		Error:    errMsg,
	}

	notifyCtx, cancel := notificationContext(ctx)
	defer cancel()

	if err := dispatcher.Notify(notifyCtx, event); err != nil {
		log.WithFields(logrus.Fields{"job": res.Job, "status": event.Status}).WithError(err).Warn("notification failed")
	}
}

func notificationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), notificationTimeout)
	}
	return context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
}
