package rotate

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Date patterns, tried in this order. The first one that matches anywhere in
// the text wins.
var (
	// YYYY-MM-DDTHH:MM[:SS], colons optional.
	fullTimePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})T(\d{2}):?(\d{2}):?(\d{2})?`)
	// YYYY-MM-DDTHH[MM][-ZZZZ]. The offset only anchors the match.
	packedTimePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})T(\d{2})(\d{2})?-?(\d{4})?`)
	// YYYY-MM-DD or YYYYMMDD.
	dayPattern = regexp.MustCompile(`(\d{4})-?(\d{2})-?(\d{2})`)
	// Start times always carry colons: YYYY-MM-DDTHH:MM:[SS].
	altTimePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})?`)
)

// ParsedName is the name/date pair derived from an Item. It is recomputed on
// every call and never stored.
type ParsedName struct {
	Name    string
	Date    time.Time
	HasDate bool
}

// Extract returns the first date found in text, interpreting it as UTC wall
// clock time. See Extractor.Extract.
func Extract(text string, preferAlt bool, alt string) (time.Time, bool, error) {
	return Extractor{}.Extract(text, preferAlt, alt)
}

// ParseName resolves item and extracts its date as UTC wall clock time.
func ParseName(item Item, useStartTime bool) (ParsedName, error) {
	return Extractor{}.ParseName(item, useStartTime)
}

// Extractor turns names into points in time. The zero value interprets dates
// in UTC.
type Extractor struct {
	Location *time.Location
}

func (x Extractor) loc() *time.Location {
	if x.Location == nil {
		return time.UTC
	}
	return x.Location
}

// ParseName resolves item and extracts its date. With useStartTime set the
// item's start time is consulted before its name.
func (x Extractor) ParseName(item Item, useStartTime bool) (ParsedName, error) {
	name, alt := item.Resolve()
	t, ok, err := x.Extract(name, useStartTime, alt)
	if err != nil {
		return ParsedName{Name: name}, err
	}
	return ParsedName{Name: name, Date: t, HasDate: ok}, nil
}

// Extract applies the date patterns to text in priority order. When nothing
// matches, alt is tried with the colon separated time pattern. preferAlt moves that alt
// attempt in front of the text attempts.
func (x Extractor) Extract(text string, preferAlt bool, alt string) (time.Time, bool, error) {
	if preferAlt && alt != "" {
		t, ok, err := x.altTime(alt)
		if err != nil || ok {
			return t, ok, err
		}
	}

	if t, ok, err := x.fullTime(text); err != nil || ok {
		return t, ok, err
	}

	if m := packedTimePattern.FindStringSubmatch(text); m != nil {
		minute := "0"
		if m[5] != "" {
			minute = m[5]
		}
		return x.build(text, m[1], m[2], m[3], m[4], minute, "0")
	}

	if m := dayPattern.FindStringSubmatch(text); m != nil {
		return x.build(text, m[1], m[2], m[3], "0", "0", "0")
	}

	if !preferAlt && alt != "" {
		return x.altTime(alt)
	}
	return time.Time{}, false, nil
}

func (x Extractor) fullTime(text string) (time.Time, bool, error) {
	return x.timeOf(fullTimePattern, text)
}

func (x Extractor) altTime(text string) (time.Time, bool, error) {
	return x.timeOf(altTimePattern, text)
}

func (x Extractor) timeOf(re *regexp.Regexp, text string) (time.Time, bool, error) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false, nil
	}
	sec := "0"
	if m[6] != "" {
		sec = m[6]
	}
	return x.build(text, m[1], m[2], m[3], m[4], m[5], sec)
}

func (x Extractor) build(text string, parts ...string) (time.Time, bool, error) {
	var v [6]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false, &ExtractionError{Text: text, Err: err}
		}
		v[i] = n
	}
	year, month, day, hour, minute, sec := v[0], v[1], v[2], v[3], v[4], v[5]

	switch {
	case year < 1:
		return time.Time{}, false, &ExtractionError{Text: text, Err: fmt.Errorf("year %d out of range", year)}
	case month < 1 || month > 12:
		return time.Time{}, false, &ExtractionError{Text: text, Err: fmt.Errorf("month %d out of range", month)}
	case day < 1 || day > daysIn(year, time.Month(month)):
		return time.Time{}, false, &ExtractionError{Text: text, Err: fmt.Errorf("day %d out of range for %04d-%02d", day, year, month)}
	case hour > 23:
		return time.Time{}, false, &ExtractionError{Text: text, Err: fmt.Errorf("hour %d out of range", hour)}
	case minute > 59:
		return time.Time{}, false, &ExtractionError{Text: text, Err: fmt.Errorf("minute %d out of range", minute)}
	case sec > 59:
		return time.Time{}, false, &ExtractionError{Text: text, Err: fmt.Errorf("second %d out of range", sec)}
	}

	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, x.loc()), true, nil
}

func daysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
