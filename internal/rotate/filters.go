package rotate

import "time"

// Entry is an item that survived the per-item criteria, with its parsed name.
type Entry struct {
	Item   Item
	Parsed ParsedName
}

// Filter reduces a whole set of entries at once, comparing them against each
// other. The result keeps the input order.
type Filter interface {
	Filter(entries []Entry) []Entry
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(entries []Entry) []Entry

func (f FilterFunc) Filter(entries []Entry) []Entry { return f(entries) }

// FilterFactory validates arg and returns a ready filter. Bad arguments must
// be reported as *ConfigError.
type FilterFactory func(arg any) (Filter, error)

// Period is the grouping granularity of except_first and except_last.
type Period int

const (
	PeriodDay Period = iota
	PeriodMonth
)

func (p Period) String() string {
	if p == PeriodMonth {
		return "month"
	}
	return "day"
}

func parsePeriod(key string, arg any) (Period, error) {
	s, ok := arg.(string)
	if !ok {
		return 0, configErr(key, "want \"day\" or \"month\", got %T", arg)
	}
	switch s {
	case "day":
		return PeriodDay, nil
	case "month":
		return PeriodMonth, nil
	default:
		return 0, configErr(key, "want \"day\" or \"month\", got %q", s)
	}
}

func builtinFilters() map[string]FilterFactory {
	return map[string]FilterFactory{
		KeyExceptFirst: edgeFilter(KeyExceptFirst, false),
		KeyExceptLast:  edgeFilter(KeyExceptLast, true),
	}
}

func edgeFilter(key string, latest bool) FilterFactory {
	return func(arg any) (Filter, error) {
		p, err := parsePeriod(key, arg)
		if err != nil {
			return nil, err
		}
		return exceptEdge{period: p, latest: latest}, nil
	}
}

type periodKey struct {
	year  int
	month time.Month
	day   int
}

func keyFor(t time.Time, p Period) periodKey {
	if p == PeriodMonth {
		return periodKey{year: t.Year(), month: t.Month()}
	}
	return periodKey{year: t.Year(), month: t.Month(), day: t.Day()}
}

// exceptEdge drops the earliest (or latest) entry of every period group. A
// group of one loses its only member. Undated entries have no period and are
// dropped as well.
type exceptEdge struct {
	period Period
	latest bool
}

func (f exceptEdge) Filter(entries []Entry) []Entry {
	groups := make(map[periodKey][]int)
	for i, e := range entries {
		if !e.Parsed.HasDate {
			continue
		}
		k := keyFor(e.Parsed.Date, f.period)
		groups[k] = append(groups[k], i)
	}

	drop := make(map[int]struct{}, len(groups))
	for _, idx := range groups {
		edge := idx[0]
		for _, i := range idx[1:] {
			d, cur := entries[i].Parsed.Date, entries[edge].Parsed.Date
			if (f.latest && !d.Before(cur)) || (!f.latest && d.Before(cur)) {
				edge = i
			}
		}
		drop[edge] = struct{}{}
	}

	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		if !e.Parsed.HasDate {
			continue
		}
		if _, ok := drop[i]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}
