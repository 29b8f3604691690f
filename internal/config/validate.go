package config

import (
	"fmt"
	"strings"

	"github.com/dev-tams/rotatekit/internal/logging"
	"github.com/dev-tams/rotatekit/internal/rotate"
	"github.com/dev-tams/rotatekit/internal/schedule"
)

var sourceTypes = map[string]struct{}{
	"local":  {},
	"s3":     {},
	"ec2":    {},
	"sqlite": {},
	"mysql":  {},
}

// IsDatabase reports whether a source type lists tables.
func IsDatabase(sourceType string) bool {
	return sourceType == "sqlite" || sourceType == "mysql"
}

func (c *Config) Validate() error {
	if c.Version == 0 {
		return fmt.Errorf("config.version must be > 0")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config.log_level: %w", err)
	}
	loc, err := c.Loc()
	if err != nil {
		return fmt.Errorf("config.%w", err)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config.concurrency must be >= 0")
	}

	sources := make(map[string]SourceConfig, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if _, ok := sources[src.Name]; ok {
			return fmt.Errorf("sources[%d] duplicate name %q", i, src.Name)
		}
		if err := src.validate(); err != nil {
			return fmt.Errorf("sources[%d] %w", i, err)
		}
		sources[src.Name] = src
	}

	engine := rotate.New(rotate.WithLocation(loc))
	jobNames := make(map[string]struct{}, len(c.Jobs))
	for i, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("jobs[%d].name is required", i)
		}
		if _, ok := jobNames[job.Name]; ok {
			return fmt.Errorf("jobs[%d] duplicate name %q", i, job.Name)
		}
		jobNames[job.Name] = struct{}{}

		src, ok := sources[job.Source]
		if !ok {
			return fmt.Errorf("jobs[%d].source=%q not found in sources list", i, job.Source)
		}

		class, err := job.Class()
		if err != nil {
			return fmt.Errorf("jobs[%d].kind: %w", i, err)
		}
		if IsDatabase(src.Type) != (class == rotate.ClassTable) {
			return fmt.Errorf("jobs[%d].kind=%q does not fit %s source %q", i, class, src.Type, src.Name)
		}

		if s := strings.TrimSpace(job.Schedule); s != "" {
			if _, err := schedule.ParseCronSpec(s); err != nil {
				return fmt.Errorf("jobs[%d].schedule=%q is invalid: %w", i, s, err)
			}
		}

		if _, err := engine.Compile(job.RotateQuery()); err != nil {
			return fmt.Errorf("jobs[%d].query: %w", i, err)
		}
	}
	for i, n := range c.Notifications {
		for _, name := range n.Jobs {
			if _, ok := jobNames[strings.TrimSpace(name)]; !ok {
				return fmt.Errorf("notifications[%d].jobs: job %q not found", i, name)
			}
		}
	}

	return nil
}

func (s SourceConfig) validate() error {
	if _, ok := sourceTypes[s.Type]; !ok {
		return fmt.Errorf("type %q is unsupported (local, s3, ec2, sqlite, mysql)", s.Type)
	}
	switch s.Type {
	case "local":
		if s.Local == nil || s.Local.Path == "" {
			return fmt.Errorf("local.path is required")
		}
	case "s3":
		if s.S3 == nil || s.S3.Bucket == "" || s.S3.Region == "" {
			return fmt.Errorf("s3.bucket and s3.region are required")
		}
	case "ec2":
		if s.EC2 == nil || s.EC2.Region == "" {
			return fmt.Errorf("ec2.region is required")
		}
	default:
		if s.Database == nil || s.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required")
		}
	}
	return nil
}
