package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CronSpec is a parsed five-field cron expression (minute hour dom month dow).
// Descriptors such as @daily are accepted too.
type CronSpec struct {
	expr  string
	sched cron.Schedule
}

func ParseCronSpec(expr string) (CronSpec, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return CronSpec{}, fmt.Errorf("empty schedule")
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return CronSpec{}, err
	}
	return CronSpec{expr: expr, sched: sched}, nil
}

func (s CronSpec) String() string { return s.expr }

// Matches reports whether the schedule fires in the minute containing t.
func (s CronSpec) Matches(t time.Time) bool {
	if s.sched == nil {
		return false
	}
	minute := t.Truncate(time.Minute)
	return s.sched.Next(minute.Add(-time.Second)).Equal(minute)
}

// Next returns the first activation strictly after t.
func (s CronSpec) Next(t time.Time) time.Time {
	if s.sched == nil {
		return time.Time{}
	}
	return s.sched.Next(t)
}
