package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/dev-tams/rotatekit/internal/rotate"
)

const (
	DefaultLogLevel    = "info"
	DefaultLocation    = "UTC"
	DefaultConcurrency = 4
)

type Config struct {
	Version       int                  `mapstructure:"version" yaml:"version"`
	LogLevel      string               `mapstructure:"log_level" yaml:"log_level"`
	Location      string               `mapstructure:"location" yaml:"location"`
	Concurrency   int                  `mapstructure:"concurrency" yaml:"concurrency"`
	Sources       []SourceConfig       `mapstructure:"sources" yaml:"sources"`
	Jobs          []JobConfig          `mapstructure:"jobs" yaml:"jobs"`
	Notifications []NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
}

// SourceConfig describes where candidate items are listed from and deleted.
// Exactly one of the typed blocks is read, chosen by Type.
type SourceConfig struct {
	Name     string          `mapstructure:"name" yaml:"name"`
	Type     string          `mapstructure:"type" yaml:"type"`
	Local    *LocalConfig    `mapstructure:"local" yaml:"local,omitempty"`
	S3       *S3Config       `mapstructure:"s3" yaml:"s3,omitempty"`
	EC2      *EC2Config      `mapstructure:"ec2" yaml:"ec2,omitempty"`
	Database *DatabaseConfig `mapstructure:"database" yaml:"database,omitempty"`
}

type LocalConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
}

type EC2Config struct {
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Owner     string `mapstructure:"owner" yaml:"owner"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// JobConfig is one rotation: a source, the kind of items to consider and the
// query selecting which of them to delete.
type JobConfig struct {
	Name     string         `mapstructure:"name" yaml:"name"`
	Source   string         `mapstructure:"source" yaml:"source"`
	Prefix   string         `mapstructure:"prefix" yaml:"prefix"`
	Kind     string         `mapstructure:"kind" yaml:"kind"`
	Schedule string         `mapstructure:"schedule" yaml:"schedule"`
	DryRun   bool           `mapstructure:"dry_run" yaml:"dry_run"`
	Query    map[string]any `mapstructure:"query" yaml:"query"`
}

type NotificationConfig struct {
	Type string   `mapstructure:"type" yaml:"type"`
	On   []string `mapstructure:"on" yaml:"on"`
	// Jobs limits the route to these jobs; empty means every job.
	Jobs []string `mapstructure:"jobs" yaml:"jobs"`
	// DryRun also delivers events of dry runs, which are dropped otherwise.
	DryRun bool                `mapstructure:"dry_run" yaml:"dry_run"`
	Config NotificationDetails `mapstructure:"config" yaml:"config"`
}

type NotificationDetails struct {
	SMTPHost string            `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort int               `mapstructure:"smtp_port" yaml:"smtp_port"`
	From     string            `mapstructure:"from" yaml:"from"`
	To       string            `mapstructure:"to" yaml:"to"`
	Username string            `mapstructure:"username" yaml:"username"`
	Password string            `mapstructure:"password" yaml:"password"`
	URL      string            `mapstructure:"url" yaml:"url"`
	Headers  map[string]string `mapstructure:"headers" yaml:"headers"`
}

func LoadConfig(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return decode(v)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("location", DefaultLocation)
	v.SetDefault("concurrency", DefaultConcurrency)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := ModifyConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch reloads path whenever it changes on disk and hands the new, validated
// config to onChange. A config that fails to load or validate is passed as an
// error instead; the caller decides whether to keep its previous config.
// Callbacks stop once ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config, error)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			onChange(nil, fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		onChange(cfg, nil)
	})
	v.WatchConfig()
	return nil
}

// ModifyConfig expands ${ENV} references and a leading ~ in paths.
func ModifyConfig(cfg *Config) error {
	cfg.LogLevel = os.ExpandEnv(cfg.LogLevel)
	cfg.Location = os.ExpandEnv(cfg.Location)

	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		src.Name = os.ExpandEnv(src.Name)
		src.Type = os.ExpandEnv(src.Type)

		if src.Local != nil {
			p, err := homedir.Expand(os.ExpandEnv(src.Local.Path))
			if err != nil {
				return fmt.Errorf("sources[%d].local.path: %w", i, err)
			}
			src.Local.Path = p
		}
		if src.S3 != nil {
			src.S3.Bucket = os.ExpandEnv(src.S3.Bucket)
			src.S3.Region = os.ExpandEnv(src.S3.Region)
			src.S3.Prefix = os.ExpandEnv(src.S3.Prefix)
			src.S3.AccessKey = os.ExpandEnv(src.S3.AccessKey)
			src.S3.SecretKey = os.ExpandEnv(src.S3.SecretKey)
			src.S3.Endpoint = os.ExpandEnv(src.S3.Endpoint)
		}
		if src.EC2 != nil {
			src.EC2.Region = os.ExpandEnv(src.EC2.Region)
			src.EC2.AccessKey = os.ExpandEnv(src.EC2.AccessKey)
			src.EC2.SecretKey = os.ExpandEnv(src.EC2.SecretKey)
			src.EC2.Owner = os.ExpandEnv(src.EC2.Owner)
		}
		if src.Database != nil {
			dsn := os.ExpandEnv(src.Database.DSN)
			if src.Type == "sqlite" {
				p, err := homedir.Expand(dsn)
				if err != nil {
					return fmt.Errorf("sources[%d].database.dsn: %w", i, err)
				}
				dsn = p
			}
			src.Database.DSN = dsn
		}
	}

	for i := range cfg.Jobs {
		job := &cfg.Jobs[i]
		job.Name = os.ExpandEnv(job.Name)
		job.Source = os.ExpandEnv(job.Source)
		job.Prefix = os.ExpandEnv(job.Prefix)
		job.Kind = os.ExpandEnv(job.Kind)
		job.Schedule = os.ExpandEnv(job.Schedule)
		for k, v := range job.Query {
			if s, ok := v.(string); ok {
				job.Query[k] = os.ExpandEnv(s)
			}
		}
	}

	for i := range cfg.Notifications {
		nt := &cfg.Notifications[i]
		nt.Type = os.ExpandEnv(nt.Type)
		for j := range nt.On {
			nt.On[j] = os.ExpandEnv(nt.On[j])
		}
		nt.Config.SMTPHost = os.ExpandEnv(nt.Config.SMTPHost)
		nt.Config.From = os.ExpandEnv(nt.Config.From)
		nt.Config.To = os.ExpandEnv(nt.Config.To)
		nt.Config.Username = os.ExpandEnv(nt.Config.Username)
		nt.Config.Password = os.ExpandEnv(nt.Config.Password)
		nt.Config.URL = os.ExpandEnv(nt.Config.URL)
		for k, v := range nt.Config.Headers {
			nt.Config.Headers[k] = os.ExpandEnv(v)
		}
	}
	return nil
}

// Loc returns the location dates in names are interpreted in.
func (c *Config) Loc() (*time.Location, error) {
	name := strings.TrimSpace(c.Location)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("location %q: %w", name, err)
	}
	return loc, nil
}

func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// SelectJobs returns the job called name, or every job when name is empty.
func (c *Config) SelectJobs(name string) ([]JobConfig, error) {
	if name == "" {
		return c.Jobs, nil
	}
	for _, j := range c.Jobs {
		if j.Name == name {
			return []JobConfig{j}, nil
		}
	}
	return nil, fmt.Errorf("job %q not found", name)
}

// Class is the item kind a job selects, defaulting to archives.
func (j JobConfig) Class() (rotate.Class, error) {
	if strings.TrimSpace(j.Kind) == "" {
		return rotate.ClassArchive, nil
	}
	return rotate.ParseClass(j.Kind)
}

func (j JobConfig) RotateQuery() rotate.Query {
	return rotate.Query(j.Query)
}
