// Package storage persists recordings by name. Every backend stores the
// same bytes: the recording codec output inside a gzip stream.
package storage

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Storage is a named recording store.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Save stores rec under name, replacing any previous recording.
	Save(ctx context.Context, name string, rec *recording.Recording) error

	// Load returns the recording stored under name. A missing name is
	// ErrNotFound.
	Load(ctx context.Context, name string) (*recording.Recording, error)

	// List returns the stored recordings sorted by name.
	List(ctx context.Context) ([]Info, error)

	// Delete removes name. A missing name is ErrNotFound.
	Delete(ctx context.Context, name string) error

	// Close releases backend resources. It is idempotent.
	Close() error
}

// Info describes a stored recording.
type Info struct {
	Name string `json:"name"`
	// Size is the stored (compressed) size in bytes.
	Size int64 `json:"size"`
}

// Config selects and configures a backend.
type Config struct {
	Backend string
	Dir     string
	Redis   RedisConfig
}

// Open constructs the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return NewFileStorage(cfg.Dir)
	case BackendMemory:
		return NewMemoryStorage(), nil
	case BackendRedis:
		return NewRedisStorage(ctx, &cfg.Redis)
	default:
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument,
			"unknown storage backend %q, must be one of: file, memory, redis", cfg.Backend)
	}
}

// ValidateName rejects names that are empty or would escape a directory.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.Wrap(errdefs.ErrInvalidArgument, "recording name is required")
	case name == "." || name == "..", strings.ContainsAny(name, `/\`), name != filepath.Base(name):
		return errors.Wrapf(errdefs.ErrInvalidArgument, "invalid recording name %q", name)
	}
	return nil
}

func checkSave(name string, rec *recording.Recording) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if rec == nil {
		return errors.Wrap(errdefs.ErrInvalidArgument, "recording is required")
	}
	return nil
}

func notFound(name string) error {
	return errors.Wrapf(errdefs.ErrNotFound, "recording %q", name)
}

func closed() error {
	return errors.Wrap(errdefs.ErrInvalidState, "storage is closed")
}
