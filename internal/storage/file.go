package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

// FileStorage keeps one file per recording in a directory.
type FileStorage struct {
	dir    string
	closed atomic.Bool
}

// NewFileStorage uses dir, creating it if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage directory")
	}
	return &FileStorage{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *FileStorage) Dir() string {
	return s.dir
}

func (s *FileStorage) path(name string) string {
	return filepath.Join(s.dir, name+Extension)
}

func (s *FileStorage) Save(_ context.Context, name string, rec *recording.Recording) error {
	if s.closed.Load() {
		return closed()
	}
	if err := checkSave(name, rec); err != nil {
		return err
	}
	return WriteFile(s.path(name), rec)
}

func (s *FileStorage) Load(_ context.Context, name string) (*recording.Recording, error) {
	if s.closed.Load() {
		return nil, closed()
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	rec, err := ReadFile(s.path(name))
	if errdefs.IsNotFound(err) {
		return nil, notFound(name)
	}
	return rec, err
}

func (s *FileStorage) List(_ context.Context) ([]Info, error) {
	if s.closed.Load() {
		return nil, closed()
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "listing storage directory")
	}

	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, Info{Name: strings.TrimSuffix(e.Name(), Extension), Size: fi.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *FileStorage) Delete(_ context.Context, name string) error {
	if s.closed.Load() {
		return closed()
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return notFound(name)
		}
		return errors.Wrap(err, "deleting recording")
	}
	return nil
}

func (s *FileStorage) Close() error {
	s.closed.Store(true)
	return nil
}
