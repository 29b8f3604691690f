package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dev-tams/rotatekit/internal/config"
)

const (
	StatusSuccess = "success"
	// StatusPartial is a run that finished but left some selected items in
	// place because their store refused to delete them.
	StatusPartial = "partial"
	StatusFailure = "failure"
)

// Event is the notification payload shared by all notifier implementations.
// One event is sent per job run.
type Event struct {
	RunID    string `json:"run_id"`
	Job      string `json:"job"`
	Source   string `json:"source"`
	Status   string `json:"status"`
	Selected int    `json:"selected"`
	Deleted  int    `json:"deleted"`
	Failed   int    `json:"failed"`
	DryRun   bool   `json:"dry_run"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type route struct {
	on       map[string]bool
	jobs     map[string]struct{}
	dryRuns  bool
	notifier Notifier
}

type Dispatcher struct {
	routes []route
}

func NewDispatcher(cfgs []config.NotificationConfig) (*Dispatcher, error) {
	routes := make([]route, 0, len(cfgs))
	for i, n := range cfgs {
		on, err := parseOn(n.On)
		if err != nil {
			return nil, fmt.Errorf("notifications[%d]: %w", i, err)
		}
		r := route{on: on, jobs: jobSet(n.Jobs), dryRuns: n.DryRun}

		switch strings.ToLower(strings.TrimSpace(n.Type)) {
		case "webhook":
			nf, err := NewWebhook(n.Config.URL, n.Config.Headers)
			if err != nil {
				return nil, fmt.Errorf("notifications[%d] webhook: %w", i, err)
			}
			r.notifier = nf
		case "email":
			nf, err := NewEmail(n.Config.SMTPHost, n.Config.SMTPPort, n.Config.From, n.Config.To, n.Config.Username, n.Config.Password)
			if err != nil {
				return nil, fmt.Errorf("notifications[%d] email: %w", i, err)
			}
			r.notifier = nf
		default:
			return nil, fmt.Errorf("notifications[%d]: unsupported notification type %q", i, n.Type)
		}
		routes = append(routes, r)
	}
	return &Dispatcher{routes: routes}, nil
}

func (d *Dispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil || len(d.routes) == 0 {
		return nil
	}

	var errs []error
	for i, r := range d.routes {
		if !r.wants(event) {
			continue
		}
		if err := r.notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("notification route %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// wants reports whether the route delivers event. Dry runs are dropped unless
// the route asks for them.
func (r route) wants(event Event) bool {
	if event.DryRun && !r.dryRuns {
		return false
	}
	if len(r.jobs) > 0 {
		if _, ok := r.jobs[event.Job]; !ok {
			return false
		}
	}
	return r.on[event.Status]
}

func jobSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[strings.TrimSpace(n)] = struct{}{}
	}
	return out
}

// parseOn maps the configured triggers to statuses. "failure" also covers
// partial runs; "both" covers everything.
func parseOn(raw []string) (map[string]bool, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("on must include success, partial, failure, or both")
	}

	on := make(map[string]bool, 3)
	for _, v := range raw {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "success":
			on[StatusSuccess] = true
		case "partial":
			on[StatusPartial] = true
		case "failure":
			on[StatusPartial] = true
			on[StatusFailure] = true
		case "both":
			on[StatusSuccess] = true
			on[StatusPartial] = true
			on[StatusFailure] = true
		default:
			return nil, fmt.Errorf("on contains unsupported value %q", v)
		}
	}
	return on, nil
}
