package rotate

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

// Criterion is a single-item predicate with its argument already bound.
type Criterion interface {
	Test(name string, parsed ParsedName) bool
}

// CriterionFunc adapts a plain function to Criterion.
type CriterionFunc func(name string, parsed ParsedName) bool

func (f CriterionFunc) Test(name string, parsed ParsedName) bool { return f(name, parsed) }

// Bind carries what a factory needs to normalize its argument: the evaluation
// instant and the location names are interpreted in.
type Bind struct {
	Now      time.Time
	Location *time.Location
}

func (b Bind) location() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}

// CriterionFactory validates and normalizes arg once and returns the bound
// criterion. Shape errors must be reported as *ConfigError.
type CriterionFactory func(arg any, b Bind) (Criterion, error)

// Negate builds the "except_" form of a criterion.
func Negate(inner CriterionFactory) CriterionFactory {
	return func(arg any, b Bind) (Criterion, error) {
		c, err := inner(arg, b)
		if err != nil {
			return nil, err
		}
		return CriterionFunc(func(name string, parsed ParsedName) bool {
			return !c.Test(name, parsed)
		}), nil
	}
}

func builtinCriteria() map[string]CriterionFactory {
	return map[string]CriterionFactory{
		KeyHasDate:          hasDateCriterion,
		KeyBefore:           beforeCriterion,
		KeyAfter:            afterCriterion,
		KeyHour:             datePart(KeyHour, time.Time.Hour),
		KeyExceptHour:       Negate(datePart(KeyExceptHour, time.Time.Hour)),
		KeyDay:              datePart(KeyDay, time.Time.Day),
		KeyExceptDay:        Negate(datePart(KeyExceptDay, time.Time.Day)),
		KeyYear:             datePart(KeyYear, time.Time.Year),
		KeyExceptYear:       Negate(datePart(KeyExceptYear, time.Time.Year)),
		KeyPattern:          patternCriterion,
		KeyStartsWith:       affix(KeyStartsWith, strings.HasPrefix),
		KeyExceptStartsWith: Negate(affix(KeyExceptStartsWith, strings.HasPrefix)),
		KeyEndsWith:         affix(KeyEndsWith, strings.HasSuffix),
		KeyExceptEndsWith:   Negate(affix(KeyExceptEndsWith, strings.HasSuffix)),
	}
}

// has_date=false never fails.
func hasDateCriterion(arg any, _ Bind) (Criterion, error) {
	want, err := toBool(KeyHasDate, arg)
	if err != nil {
		return nil, err
	}
	return CriterionFunc(func(_ string, parsed ParsedName) bool {
		return !want || parsed.HasDate
	}), nil
}

func beforeCriterion(arg any, b Bind) (Criterion, error) {
	limit, err := toMoment(KeyBefore, arg, b)
	if err != nil {
		return nil, err
	}
	return CriterionFunc(func(_ string, parsed ParsedName) bool {
		return parsed.HasDate && parsed.Date.Before(limit)
	}), nil
}

func afterCriterion(arg any, b Bind) (Criterion, error) {
	limit, err := toMoment(KeyAfter, arg, b)
	if err != nil {
		return nil, err
	}
	return CriterionFunc(func(_ string, parsed ParsedName) bool {
		return parsed.HasDate && parsed.Date.After(limit)
	}), nil
}

func datePart(key string, part func(time.Time) int) CriterionFactory {
	return func(arg any, _ Bind) (Criterion, error) {
		want, err := toIntList(key, arg)
		if err != nil {
			return nil, err
		}
		return CriterionFunc(func(_ string, parsed ParsedName) bool {
			return parsed.HasDate && slices.Contains(want, part(parsed.Date))
		}), nil
	}
}

// patternCriterion matches a regular expression anchored at the start of the
// name.
func patternCriterion(arg any, _ Bind) (Criterion, error) {
	var re *regexp.Regexp
	switch v := arg.(type) {
	case *regexp.Regexp:
		if v == nil {
			return nil, configErr(KeyPattern, "nil expression")
		}
		re = v
	case string:
		compiled, err := regexp.Compile(`^(?:` + v + `)`)
		if err != nil {
			return nil, configErr(KeyPattern, "%v", err)
		}
		re = compiled
	default:
		return nil, configErr(KeyPattern, "want a regular expression, got %T", arg)
	}
	return CriterionFunc(func(name string, _ ParsedName) bool {
		loc := re.FindStringIndex(name)
		return loc != nil && loc[0] == 0
	}), nil
}

func affix(key string, has func(s, affix string) bool) CriterionFactory {
	return func(arg any, _ Bind) (Criterion, error) {
		want, err := toStringList(key, arg)
		if err != nil {
			return nil, err
		}
		return CriterionFunc(func(name string, _ ParsedName) bool {
			for _, w := range want {
				if has(name, w) {
					return true
				}
			}
			return false
		}), nil
	}
}
