package rotate

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

var fixedNow = time.Date(2009, 6, 22, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return New(WithClock(func() time.Time { return fixedNow }))
}

func mustMeet(t *testing.T, e *Engine, name string, q Query) bool {
	t.Helper()
	ok, err := e.Meets(Plain(name), q)
	if err != nil {
		t.Fatalf("Meets(%q, %v) unexpected error: %v", name, q, err)
	}
	return ok
}

func TestMeetsHasDateDefault(t *testing.T) {
	e := testEngine()
	if mustMeet(t, e, "test.zip", nil) {
		t.Fatalf("undated item must fail by default")
	}
	if !mustMeet(t, e, "test20121110.zip", nil) {
		t.Fatalf("dated item must pass by default")
	}
	if !mustMeet(t, e, "test.zip", Query{KeyHasDate: false}) {
		t.Fatalf("has_date=false must let undated item pass")
	}
	if mustMeet(t, e, "test.zip", Query{KeyHasDate: true}) {
		t.Fatalf("has_date=true must fail undated item")
	}
	if mustMeet(t, e, "undated.gz", Query{KeyHasDate: nil}) {
		t.Fatalf("empty has_date must keep the default and fail undated item")
	}
	if !mustMeet(t, e, "test20121110.zip", Query{KeyHasDate: nil}) {
		t.Fatalf("empty has_date must let dated item pass")
	}
}

func TestHasDateCriterionRejectsNothing(t *testing.T) {
	_, err := hasDateCriterion(nil, Bind{Now: fixedNow})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("hasDateCriterion(nil) err = %v, want *ConfigError", err)
	}
}

func TestMeetsNumericStringsAreDecimal(t *testing.T) {
	e := testEngine()
	at08, at10 := "test2009-06-15T08.zip", "test2009-06-15T10.zip"

	if mustMeet(t, e, at08, Query{KeyHour: "010"}) {
		t.Fatalf(`hour "010" must not match 08:00`)
	}
	if !mustMeet(t, e, at10, Query{KeyHour: "010"}) {
		t.Fatalf(`hour "010" must match 10:00`)
	}
	if !mustMeet(t, e, at08, Query{KeyHour: "08"}) {
		t.Fatalf(`hour "08" must match 08:00`)
	}
	if !mustMeet(t, e, at08, Query{KeyHour: []any{"08", 9}}) {
		t.Fatalf(`hour ["08" 9] must match 08:00`)
	}
	if _, err := e.Meets(Plain(at08), Query{KeyHour: []string{"8", "x"}}); err == nil {
		t.Fatalf("non numeric hour must be rejected")
	}
}

func TestMeetsBeforeAndAfterAreStrict(t *testing.T) {
	e := testEngine()
	first, second, dayOnly := "file2009-06-20T15.sql.bz2", "file2009-06-25T15.sql.bz2", "file2009-06-25.sql.bz2"

	if !mustMeet(t, e, first, Query{KeyBefore: time.Date(2009, 6, 23, 0, 0, 0, 0, time.UTC)}) {
		t.Fatalf("%s should be before 2009-06-23", first)
	}
	if mustMeet(t, e, second, Query{KeyBefore: time.Date(2009, 6, 23, 0, 0, 0, 0, time.UTC)}) {
		t.Fatalf("%s should not be before 2009-06-23", second)
	}
	if mustMeet(t, e, dayOnly, Query{KeyBefore: time.Date(2009, 6, 25, 0, 0, 0, 0, time.UTC)}) {
		t.Fatalf("equal moment must not count as before")
	}
	if mustMeet(t, e, dayOnly, Query{KeyAfter: time.Date(2009, 6, 25, 0, 0, 0, 0, time.UTC)}) {
		t.Fatalf("equal moment must not count as after")
	}
	if !mustMeet(t, e, second, Query{KeyAfter: "2009-06-23"}) {
		t.Fatalf("%s should be after 2009-06-23", second)
	}
	if mustMeet(t, e, "test.zip", Query{KeyHasDate: false, KeyBefore: "2030-01-01"}) {
		t.Fatalf("before requires a date even with has_date=false")
	}
}

func TestMeetsRelativeBeforeUsesClock(t *testing.T) {
	name := "file2009-06-20T15.sql.bz2"
	e := testEngine()
	if !mustMeet(t, e, name, Query{KeyBefore: 24 * time.Hour}) {
		t.Fatalf("expected pass with clock %s", fixedNow)
	}
	if !mustMeet(t, e, name, Query{KeyBefore: "1d"}) {
		t.Fatalf("expected pass for \"1d\"")
	}
	if !mustMeet(t, e, name, Query{KeyBefore: 1}) {
		t.Fatalf("expected pass for integer day count")
	}

	early := New(WithClock(func() time.Time { return time.Date(2009, 6, 21, 0, 0, 0, 0, time.UTC) }))
	if mustMeet(t, early, name, Query{KeyBefore: 24 * time.Hour}) {
		t.Fatalf("relative before must follow the evaluation instant")
	}
}

func TestMeetsListCriteria(t *testing.T) {
	e := testEngine()
	at11, at13 := "test2009-06-15T11.zip", "test2009-06-15T13.zip"

	if !mustMeet(t, e, at11, Query{KeyHour: []int{11, 12}}) {
		t.Fatalf("hour 11 should match [11 12]")
	}
	if mustMeet(t, e, at13, Query{KeyHour: []int{11, 12}}) {
		t.Fatalf("hour 13 should not match [11 12]")
	}
	if mustMeet(t, e, at11, Query{KeyExceptHour: []any{11, 12}}) {
		t.Fatalf("except_hour should exclude hour 11")
	}
	if !mustMeet(t, e, at13, Query{KeyExceptHour: 11}) {
		t.Fatalf("except_hour scalar should keep hour 13")
	}
	if mustMeet(t, e, "test.zip", Query{KeyExceptHour: 11}) {
		t.Fatalf("undated items stay excluded by has_date")
	}

	if !mustMeet(t, e, "test20120101.zip", Query{KeyDay: 1}) {
		t.Fatalf("day 1 should match")
	}
	if mustMeet(t, e, "test.zip", Query{KeyDay: 1, KeyHasDate: false}) {
		t.Fatalf("day needs a date")
	}
	if mustMeet(t, e, "test20120101.zip", Query{KeyExceptDay: []int{1, 15}}) {
		t.Fatalf("except_day should exclude day 1")
	}

	if !mustMeet(t, e, "test20110101.zip", Query{KeyYear: []int{2012, 2011}}) {
		t.Fatalf("year list should match")
	}
	if mustMeet(t, e, "test20120101.zip", Query{KeyExceptYear: 2012}) {
		t.Fatalf("except_year should exclude 2012")
	}
	if !mustMeet(t, e, "test20110101.zip", Query{KeyExceptYear: "2012"}) {
		t.Fatalf("except_year should keep 2011")
	}
}

func TestMeetsNameCriteria(t *testing.T) {
	e := testEngine()
	name := "test20121110.zip"

	if !mustMeet(t, e, name, Query{KeyPattern: `test`}) {
		t.Fatalf("pattern should match at start")
	}
	if mustMeet(t, e, name, Query{KeyPattern: `2012`}) {
		t.Fatalf("pattern is anchored at the start")
	}
	if !mustMeet(t, e, name, Query{KeyPattern: regexp.MustCompile(`te.t`)}) {
		t.Fatalf("precompiled pattern should match")
	}
	if !mustMeet(t, e, name, Query{KeyStartsWith: []string{"steve", "test"}}) {
		t.Fatalf("startswith list should match")
	}
	if mustMeet(t, e, name, Query{KeyStartsWith: "steve"}) {
		t.Fatalf("startswith steve should fail")
	}
	if mustMeet(t, e, name, Query{KeyExceptStartsWith: []any{"test", "steve"}}) {
		t.Fatalf("except_startswith should exclude")
	}
	if !mustMeet(t, e, name, Query{KeyExceptStartsWith: "steve"}) {
		t.Fatalf("except_startswith steve should keep")
	}
	if !mustMeet(t, e, name, Query{KeyEndsWith: "zip"}) {
		t.Fatalf("endswith zip should match")
	}
	if mustMeet(t, e, name, Query{KeyExceptEndsWith: []string{"bz2", "zip"}}) {
		t.Fatalf("except_endswith should exclude")
	}
}

func TestMeetsConfigErrors(t *testing.T) {
	e := testEngine()
	bad := []Query{
		{KeyPattern: `([`},
		{KeyPattern: 12},
		{KeyHour: "eleven"},
		{KeyBefore: struct{}{}},
		{KeyBefore: "not a date"},
		{KeyHasDate: "maybe"},
		{KeyStartsWith: 3},
		{KeyDebug: "loud"},
	}
	for _, q := range bad {
		_, err := e.Meets(Plain("test20121110.zip"), q)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Fatalf("Meets with %v: expected *ConfigError, got %v", q, err)
		}
	}

	if !mustMeet(t, e, "test20121110.zip", Query{KeyPattern: "test"}) {
		t.Fatalf("engine should keep working after configuration errors")
	}
}

func TestMeetsIgnoresUnknownKeys(t *testing.T) {
	e := testEngine()
	if !mustMeet(t, e, "test20121110.zip", Query{"no_such_option": 42, KeyDebug: false}) {
		t.Fatalf("unknown keys must be ignored")
	}
}

func TestMeetsIsIdempotent(t *testing.T) {
	e := testEngine()
	q := Query{KeyBefore: 24 * time.Hour, KeyHour: []int{15}}
	item := Plain("file2009-06-20T15.sql.bz2")

	p, err := e.Compile(q)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	a, okA, errA := p.Match(item)
	b, okB, errB := p.Match(item)
	if errA != nil || errB != nil {
		t.Fatalf("unexpected errors: %v %v", errA, errB)
	}
	if okA != okB || !a.Parsed.Date.Equal(b.Parsed.Date) {
		t.Fatalf("repeated evaluation differs: %v/%v %s/%s", okA, okB, a.Parsed.Date, b.Parsed.Date)
	}
	if _, ok := q[KeyHasDate]; ok {
		t.Fatalf("Compile must not mutate the caller's query")
	}
}

func TestMeetsPropagatesExtractionError(t *testing.T) {
	e := testEngine()
	_, err := e.Meets(Plain("backup-20091301.tgz"), nil)
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
}

func TestParseRelative(t *testing.T) {
	cases := map[string]time.Duration{
		"36h": 36 * time.Hour,
		"7d":  7 * 24 * time.Hour,
		"2w":  14 * 24 * time.Hour,
		"90m": 90 * time.Minute,
	}
	for in, want := range cases {
		got, ok := parseRelative(in)
		if !ok || got != want {
			t.Fatalf("parseRelative(%q) = %s,%v want %s", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "d", "xd", "-1d", "2009-06-20"} {
		if _, ok := parseRelative(in); ok {
			t.Fatalf("parseRelative(%q) expected failure", in)
		}
	}
}
