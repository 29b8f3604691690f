package storage

import (
	"context"
	"fmt"

	"github.com/dev-tams/rotatekit/internal/config"
	"github.com/dev-tams/rotatekit/internal/storage/local"
	s3store "github.com/dev-tams/rotatekit/internal/storage/s3"
	"github.com/dev-tams/rotatekit/internal/storage/snapshots"
	"github.com/dev-tams/rotatekit/internal/storage/tables"
)

func FromConfig(ctx context.Context, cfg *config.Config) (map[string]Storage, error) {
	return FromConfigByNames(ctx, cfg, nil)
}

// FromConfigByNames builds only sources whose names are present in include.
// If include is nil, all configured sources are built.
func FromConfigByNames(ctx context.Context, cfg *config.Config, include map[string]struct{}) (map[string]Storage, error) {
	out := make(map[string]Storage, len(cfg.Sources))

	for _, src := range cfg.Sources {
		if include != nil {
			if _, ok := include[src.Name]; !ok {
				continue
			}
		}
		st, err := Open(ctx, src)
		if err != nil {
			Close(out)
			return nil, err
		}
		out[src.Name] = st
	}

	return out, nil
}

// Open builds the storage backend described by src.
func Open(ctx context.Context, src config.SourceConfig) (Storage, error) {
	switch src.Type {
	case "local":
		if src.Local == nil || src.Local.Path == "" {
			return nil, fmt.Errorf("source %s: local.path is required", src.Name)
		}
		return local.New(src.Name, src.Local.Path), nil

	case "s3":
		if src.S3 == nil {
			return nil, fmt.Errorf("source %s: s3 config missing", src.Name)
		}
		if (src.S3.AccessKey == "") != (src.S3.SecretKey == "") {
			return nil, fmt.Errorf("source %s: s3.access_key and s3.secret_key must be set together (or env expansion failed)", src.Name)
		}
		s, err := s3store.New(ctx, s3store.Options{
			Name:      src.Name,
			Bucket:    src.S3.Bucket,
			Region:    src.S3.Region,
			Prefix:    src.S3.Prefix,
			AccessKey: src.S3.AccessKey,
			SecretKey: src.S3.SecretKey,
			Endpoint:  src.S3.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		return s, nil

	case "ec2":
		if src.EC2 == nil {
			return nil, fmt.Errorf("source %s: ec2 config missing", src.Name)
		}
		s, err := snapshots.New(ctx, snapshots.Options{
			Name:      src.Name,
			Region:    src.EC2.Region,
			AccessKey: src.EC2.AccessKey,
			SecretKey: src.EC2.SecretKey,
			Owner:     src.EC2.Owner,
		})
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		return s, nil

	case "sqlite", "mysql":
		if src.Database == nil || src.Database.DSN == "" {
			return nil, fmt.Errorf("source %s: database.dsn is required", src.Name)
		}
		s, err := tables.Open(src.Name, src.Type, src.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("source %s: unknown type %q", src.Name, src.Type)
	}
}

// Close releases backends holding connections, such as database sources.
func Close(stores map[string]Storage) {
	for _, st := range stores {
		if c, ok := st.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
}
