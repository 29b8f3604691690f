package rotate

import (
	"errors"
	"slices"
	"testing"
)

var periodItems = []string{
	"test2014-05-20T013000.sql",
	"test2014-05-20T023000.sql",
	"test2014-06-20T013000.sql",
}

func listNames(t *testing.T, q Query) []string {
	t.Helper()
	sel, err := testEngine().ListItems(Items(periodItems...), q)
	if err != nil {
		t.Fatalf("ListItems(%v) unexpected error: %v", q, err)
	}
	return sel.Names()
}

func TestExceptFirstPerDay(t *testing.T) {
	got := listNames(t, Query{KeyExceptFirst: "day"})
	if !slices.Equal(got, []string{"test2014-05-20T023000.sql"}) {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestExceptFirstPerMonth(t *testing.T) {
	got := listNames(t, Query{KeyExceptFirst: "month"})
	if !slices.Equal(got, []string{"test2014-05-20T023000.sql"}) {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestExceptLastPerDay(t *testing.T) {
	got := listNames(t, Query{KeyExceptLast: "day"})
	if !slices.Equal(got, []string{"test2014-05-20T013000.sql"}) {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestExceptLastPerMonth(t *testing.T) {
	got := listNames(t, Query{KeyExceptLast: "month"})
	if !slices.Equal(got, []string{"test2014-05-20T013000.sql"}) {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestExceptFirstKeepsInputOrder(t *testing.T) {
	names := []string{
		"db-2014-05-20T0400.gz",
		"db-2014-05-20T0100.gz",
		"db-2014-05-20T0300.gz",
		"db-2014-05-20T0200.gz",
	}
	sel, err := testEngine().ListArchives(Items(names...), Query{KeyExceptFirst: "day"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"db-2014-05-20T0400.gz", "db-2014-05-20T0300.gz", "db-2014-05-20T0200.gz"}
	if got := sel.Names(); !slices.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestEdgeFilterDropsUndated(t *testing.T) {
	x := Extractor{}
	var entries []Entry
	for _, n := range []string{"a-20140520.gz", "b-20140520.gz", "undated.gz"} {
		p, err := x.ParseName(Plain(n), false)
		if err != nil {
			t.Fatalf("ParseName(%q): %v", n, err)
		}
		entries = append(entries, Entry{Item: Plain(n), Parsed: p})
	}
	f, err := edgeFilter(KeyExceptLast, true)("day")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := f.Filter(entries)
	if len(got) != 1 || got[0].Parsed.Name != "a-20140520.gz" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestFilterRejectsBadPeriod(t *testing.T) {
	for _, arg := range []any{"week", 1, nil} {
		_, err := testEngine().ListItems(Items(periodItems...), Query{KeyExceptFirst: arg})
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Fatalf("except_first=%v: expected *ConfigError, got %v", arg, err)
		}
		if ce.Key != KeyExceptFirst {
			t.Fatalf("unexpected key in error: %q", ce.Key)
		}
	}
}

func TestEngineReduce(t *testing.T) {
	e := testEngine()
	var entries []Entry
	for _, name := range append([]string{"undated.sql"}, periodItems...) {
		parsed, err := ParseName(Plain(name), false)
		if err != nil {
			t.Fatalf("ParseName(%q): %v", name, err)
		}
		entries = append(entries, Entry{Item: Plain(name), Parsed: parsed})
	}

	got, err := e.Reduce(entries, Query{KeyExceptLast: "day"})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if len(got) != 1 || got[0].Parsed.Name != "test2014-05-20T013000.sql" {
		t.Fatalf("unexpected reduction: %+v", got)
	}

	all, err := e.Reduce(entries, Query{KeyHour: 1})
	if err != nil {
		t.Fatalf("Reduce without filters: %v", err)
	}
	if len(all) != len(entries) {
		t.Fatalf("criteria must not reduce entries: got %d, want %d", len(all), len(entries))
	}

	var cfgErr *ConfigError
	if _, err := e.Reduce(entries, Query{KeyExceptFirst: "week"}); !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}
