package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/dev-tams/rotatekit/internal/rotate"
)

type Storage struct {
	name string
	base string
	fs   afero.Fs
}

func New(name, basePath string) *Storage {
	return NewWithFs(name, basePath, afero.NewOsFs())
}

// NewWithFs serves the directory tree of fs rooted at basePath.
func NewWithFs(name, basePath string, fs afero.Fs) *Storage {
	return &Storage{name: name, base: basePath, fs: fs}
}

func (s *Storage) Name() string { return s.name }

// List returns the regular files directly under prefix. Each item is named by
// its file name and identified by its slash-separated path below the base.
func (s *Storage) List(ctx context.Context, prefix string) ([]rotate.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.base, filepath.FromSlash(prefix))

	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list dir: %w", err)
	}

	out := make([]rotate.Item, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		// Skip files still being written by another tool.
		if filepath.Ext(info.Name()) == ".tmp" {
			continue
		}

		item := rotate.Plain(info.Name())
		item.ID = filepath.ToSlash(filepath.Join(prefix, info.Name()))
		item.Size = info.Size()
		item.ModTime = info.ModTime()
		out = append(out, item)
	}
	return out, nil
}

func (s *Storage) Delete(ctx context.Context, item rotate.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := item.Handle()
	p := filepath.Join(s.base, filepath.FromSlash(key))
	if err := s.fs.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
