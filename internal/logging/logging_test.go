package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"":        logrus.InfoLevel,
		"INFO":    logrus.InfoLevel,
		"warning": logrus.WarnLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Fatalf("expected error for unsupported level")
	}
}

func TestNewWithOutputFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOutput("warn", &buf)
	if err != nil {
		t.Fatalf("NewWithOutput: %v", err)
	}
	l.WithField("job", "nightly").Info("hidden")
	l.WithField("job", "nightly").Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "job=nightly") {
		t.Fatalf("expected warn line with fields, got %q", out)
	}
}
