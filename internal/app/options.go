package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dev-tams/rotatekit/internal/config"
	"github.com/dev-tams/rotatekit/internal/logging"
	"github.com/dev-tams/rotatekit/internal/rotate"
	"github.com/dev-tams/rotatekit/internal/storage"
)

// Opener builds the storage backend for a configured source.
type Opener func(ctx context.Context, src config.SourceConfig) (storage.Storage, error)

type Option func(*options)

type options struct {
	log     logrus.FieldLogger
	metrics *Metrics
	open    Opener
	now     func() time.Time
}

// WithLogger sets where run progress is logged. Runs are silent by default.
func WithLogger(l logrus.FieldLogger) Option { return func(o *options) { o.log = l } }

// WithMetrics records every job run in m.
func WithMetrics(m *Metrics) Option { return func(o *options) { o.metrics = m } }

// WithOpener replaces storage.Open, mostly for tests.
func WithOpener(open Opener) Option { return func(o *options) { o.open = open } }

// WithClock replaces time.Now as the anchor of relative before/after values.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func newOptions(opts []Option) *options {
	o := &options{open: storage.Open, now: time.Now}
	for _, fn := range opts {
		fn(o)
	}
	if o.log == nil {
		o.log = logging.Discard()
	}
	return o
}

func (o *options) engine(cfg *config.Config) (*rotate.Engine, error) {
	loc, err := cfg.Loc()
	if err != nil {
		return nil, err
	}
	return rotate.New(
		rotate.WithLocation(loc),
		rotate.WithClock(o.now),
		rotate.WithLogger(o.log),
	), nil
}

// sources opens each configured source at most once for the lifetime of a run.
type sources struct {
	cfg   *config.Config
	open  Opener
	cache map[string]storage.Storage
}

func newSources(cfg *config.Config, open Opener) *sources {
	return &sources{cfg: cfg, open: open, cache: make(map[string]storage.Storage)}
}

func (s *sources) get(ctx context.Context, name string) (storage.Storage, error) {
	if st, ok := s.cache[name]; ok {
		return st, nil
	}
	src, ok := s.cfg.Source(name)
	if !ok {
		return nil, fmt.Errorf("source %q not found", name)
	}
	st, err := s.open(ctx, src)
	if err != nil {
		return nil, err
	}
	s.cache[name] = st
	return st, nil
}

func (s *sources) close() { storage.Close(s.cache) }
