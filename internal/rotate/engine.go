package rotate

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dev-tams/rotatekit/internal/logging"
)

// Engine evaluates retention queries against candidate items. It holds no
// per-call state, so one Engine may serve concurrent callers.
type Engine struct {
	reg *Registry
	x   Extractor
	now func() time.Time
	log logrus.FieldLogger
}

type Option func(*Engine)

// WithRegistry shares a registry between engines.
func WithRegistry(r *Registry) Option { return func(e *Engine) { e.reg = r } }

// WithLocation sets the location dates found in names are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.x.Location = loc }
}

// WithClock replaces time.Now as the anchor for relative before/after values.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithLogger(l logrus.FieldLogger) Option { return func(e *Engine) { e.log = l } }

func New(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, o := range opts {
		o(e)
	}
	if e.reg == nil {
		e.reg = NewRegistry()
	}
	if e.log == nil {
		e.log = logging.Discard()
	}
	return e
}

func (e *Engine) Registry() *Registry { return e.reg }

// Plan is a compiled query: every requested criterion and filter bound to its
// normalized argument. A Plan is immutable.
type Plan struct {
	criteria     []boundCriterion
	filters      []boundFilter
	useStartTime bool
	debug        bool
	x            Extractor
	log          logrus.FieldLogger
}

type boundCriterion struct {
	key string
	arg any
	c   Criterion
}

type boundFilter struct {
	key string
	f   Filter
}

// Compile binds every recognized key of q. has_date defaults to true, also
// when it is present but empty.
// Relative before/after values are anchored to the engine clock now.
func (e *Engine) Compile(q Query) (*Plan, error) {
	useStartTime, err := q.flag(KeySnapshotUseStartTime)
	if err != nil {
		return nil, err
	}
	debug, err := q.flag(KeyDebug)
	if err != nil {
		return nil, err
	}

	if v, ok := q[KeyHasDate]; !ok || v == nil {
		q = q.With(KeyHasDate, true)
	}

	b := Bind{Now: e.now(), Location: e.x.Location}
	p := &Plan{useStartTime: useStartTime, debug: debug, x: e.x, log: e.log}

	for _, key := range slices.Sorted(maps.Keys(q)) {
		arg := q[key]
		if factory, ok := e.reg.criterion(key); ok {
			c, err := factory(arg, b)
			if err != nil {
				return nil, asConfigError(key, err)
			}
			p.criteria = append(p.criteria, boundCriterion{key: key, arg: arg, c: c})
			continue
		}
		if factory, ok := e.reg.filter(key); ok {
			f, err := factory(arg)
			if err != nil {
				return nil, asConfigError(key, err)
			}
			p.filters = append(p.filters, boundFilter{key: key, f: f})
		}
	}
	return p, nil
}

func asConfigError(key string, err error) error {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return err
	}
	return &ConfigError{Key: key, Err: err}
}

// Parse resolves item and extracts its date using the plan's settings.
func (p *Plan) Parse(item Item) (ParsedName, error) {
	return p.x.ParseName(item, p.useStartTime)
}

// Test applies every bound criterion, stopping at the first failure.
func (p *Plan) Test(parsed ParsedName) bool {
	if p.debug {
		keys := make([]string, 0, len(p.criteria))
		for _, c := range p.criteria {
			keys = append(keys, c.key)
		}
		p.log.WithFields(logrus.Fields{
			"item":  parsed.Name,
			"date":  formatDate(parsed),
			"tests": keys,
		}).Info("evaluating item")
	}

	for _, c := range p.criteria {
		if !c.c.Test(parsed.Name, parsed) {
			if p.debug {
				p.log.WithFields(logrus.Fields{
					"item":      parsed.Name,
					"criterion": c.key,
					"argument":  FormatArg(c.arg),
				}).Info("criterion failed")
			}
			return false
		}
	}
	return true
}

// Match parses item and tests it.
func (p *Plan) Match(item Item) (Entry, bool, error) {
	parsed, err := p.Parse(item)
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{Item: item, Parsed: parsed}, p.Test(parsed), nil
}

// Reduce runs every bound filter over entries, in key order.
func (p *Plan) Reduce(entries []Entry) []Entry {
	for _, f := range p.filters {
		before := len(entries)
		entries = f.f.Filter(entries)
		if p.debug {
			p.log.WithFields(logrus.Fields{
				"filter": f.key,
				"in":     before,
				"out":    len(entries),
			}).Info("filter applied")
		}
	}
	return entries
}

// Meets reports whether item passes every criterion requested by q.
func (e *Engine) Meets(item Item, q Query) (bool, error) {
	p, err := e.Compile(q)
	if err != nil {
		return false, err
	}
	_, ok, err := p.Match(item)
	return ok, err
}

// Reduce applies the filters requested by q to entries.
func (e *Engine) Reduce(entries []Entry, q Query) ([]Entry, error) {
	p, err := e.Compile(q)
	if err != nil {
		return nil, err
	}
	return p.Reduce(entries), nil
}

// Selection is the outcome of a list call.
type Selection struct {
	Entries []Entry
	// Skipped holds items excluded because their date could not be extracted.
	Skipped []Skipped
}

type Skipped struct {
	Item Item
	Err  error
}

// Items returns the selected items in order.
func (s *Selection) Items() []Item {
	out := make([]Item, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Item)
	}
	return out
}

// Names returns the effective names of the selected items.
func (s *Selection) Names() []string {
	out := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Parsed.Name)
	}
	return out
}

// Select gates items by class, matches them against q and reduces the
// survivors with q's filters. An item whose date cannot be extracted is
// excluded and recorded in Skipped; the rest of the batch carries on. Only
// configuration errors are returned.
func (e *Engine) Select(items []Item, class Class, q Query) (*Selection, error) {
	p, err := e.Compile(q)
	if err != nil {
		return nil, err
	}

	sel := &Selection{}
	matched := make([]Entry, 0, len(items))
	for _, item := range items {
		switch class {
		case ClassArchive:
			if !IsArchive(item) {
				continue
			}
		case ClassLog:
			if !IsLog(item) {
				continue
			}
		}

		parsed, err := p.Parse(item)
		if err != nil {
			sel.Skipped = append(sel.Skipped, Skipped{Item: item, Err: err})
			continue
		}
		if (class == ClassAny || class == ClassTable) && !parsed.HasDate {
			continue
		}
		if p.Test(parsed) {
			matched = append(matched, Entry{Item: item, Parsed: parsed})
		}
	}

	sel.Entries = p.Reduce(matched)
	return sel, nil
}

// ListArchives selects archive-like items.
func (e *Engine) ListArchives(items []Item, q Query) (*Selection, error) {
	return e.Select(items, ClassArchive, q)
}

// ListLogs selects log-like items.
func (e *Engine) ListLogs(items []Item, q Query) (*Selection, error) {
	return e.Select(items, ClassLog, q)
}

// ListItems selects any dated item.
func (e *Engine) ListItems(items []Item, q Query) (*Selection, error) {
	return e.Select(items, ClassAny, q)
}

// ListBackupTables selects table names carrying a timestamp.
func (e *Engine) ListBackupTables(items []Item, q Query) (*Selection, error) {
	return e.Select(items, ClassTable, q)
}

func formatDate(p ParsedName) string {
	if !p.HasDate {
		return "none"
	}
	return p.Date.Format(time.RFC3339)
}
