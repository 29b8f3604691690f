package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dev-tams/rotatekit/internal/rotate"
)

func TestRunScanListsWithoutDeleting(t *testing.T) {
	fs := seededFs(t)
	var buf bytes.Buffer

	s := Scan{Dir: "/backups/pg", Kind: "archives", Query: rotate.Query{rotate.KeyBefore: "2009-06-21"}}
	if err := RunScan(context.Background(), s, &buf, FormatText, WithOpener(memOpener(fs)), WithClock(fixedClock)); err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "test2009-06-15T11.zip") || !strings.Contains(out, "test2009-06-20T01.bz2") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !exists(t, fs, "/backups/pg/test2009-06-15T11.zip") {
		t.Fatalf("scan without delete must not remove files")
	}
}

func TestRunScanDelete(t *testing.T) {
	fs := seededFs(t)
	var buf bytes.Buffer

	s := Scan{
		Dir:    "/backups/pg",
		Kind:   "archives",
		Query:  rotate.Query{rotate.KeyBefore: "2009-06-21", rotate.KeyExceptLast: "month"},
		Delete: true,
	}
	if err := RunScan(context.Background(), s, &buf, FormatJSON, WithOpener(memOpener(fs)), WithClock(fixedClock)); err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if exists(t, fs, "/backups/pg/test2009-06-15T11.zip") {
		t.Fatalf("older archive should be removed")
	}
	if !exists(t, fs, "/backups/pg/test2009-06-20T01.bz2") {
		t.Fatalf("latest archive of the month should be kept")
	}
}

func TestRunScanRejects(t *testing.T) {
	var buf bytes.Buffer
	cases := []Scan{
		{Dir: "/x", Kind: "tables"},
		{Dir: "/x", Kind: "photos"},
		{Dir: "/x", Kind: "archives", Query: rotate.Query{rotate.KeyHour: "noon"}},
		{Dir: "", Kind: "archives"},
	}
	for i, s := range cases {
		if err := RunScan(context.Background(), s, &buf, FormatText); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
