package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/dev-tams/rotatekit/internal/config"
	"github.com/dev-tams/rotatekit/internal/storage"
	"github.com/dev-tams/rotatekit/internal/storage/local"
)

var fixedNow = time.Date(2009, 6, 22, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testConfig() *config.Config {
	return &config.Config{
		Version:     1,
		Concurrency: 2,
		Sources: []config.SourceConfig{
			{Name: "files", Type: "local", Local: &config.LocalConfig{Path: "/backups"}},
			{Name: "bucket", Type: "s3", S3: &config.S3Config{Bucket: "b", Region: "eu-west-1"}},
		},
		Jobs: []config.JobConfig{
			{
				Name:     "archives",
				Source:   "files",
				Prefix:   "pg",
				Kind:     "archives",
				Schedule: "0 3 * * *",
				Query:    map[string]any{"before": "2009-06-20", "hour": 11},
			},
			{
				Name:     "logs",
				Source:   "files",
				Prefix:   "logs",
				Kind:     "logs",
				Schedule: "*/5 * * * *",
				Query:    map[string]any{"before": "7d"},
			},
		},
	}
}

func seededFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, p := range []string{
		"/backups/pg/test.txt",
		"/backups/pg/test2009-06-15T11.zip",
		"/backups/pg/test2009-06-20T01.bz2",
		"/backups/pg/test.zip",
		"/backups/pg/bad-20091340.gz",
		"/backups/logs/app-2009-06-01.log",
		"/backups/logs/app-2009-06-21.log",
	} {
		if err := afero.WriteFile(fs, p, []byte("payload"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}
	return fs
}

func memOpener(fs afero.Fs) Opener {
	return func(_ context.Context, src config.SourceConfig) (storage.Storage, error) {
		if src.Type != "local" {
			return nil, fmt.Errorf("source %s: %s unavailable in tests", src.Name, src.Type)
		}
		return local.NewWithFs(src.Name, src.Local.Path, fs), nil
	}
}

func exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("exists %s: %v", path, err)
	}
	return ok
}
