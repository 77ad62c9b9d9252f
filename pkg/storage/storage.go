package storage

import (
	"context"

	internalstorage "github.com/SmitUplenchwar2687/vmcloop/internal/storage"
)

// Storage is a named recording store.
type Storage = internalstorage.Storage

// Info describes a stored recording.
type Info = internalstorage.Info

// Config selects and configures a backend.
type Config = internalstorage.Config

// RedisConfig configures the Redis backend.
type RedisConfig = internalstorage.RedisConfig

// FileStorage keeps one container file per recording in a directory.
type FileStorage = internalstorage.FileStorage

// MemoryStorage keeps recordings in process memory.
type MemoryStorage = internalstorage.MemoryStorage

// RedisStorage keeps recordings in Redis.
type RedisStorage = internalstorage.RedisStorage

// Open constructs the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	return internalstorage.Open(ctx, cfg)
}

// NewFileStorage creates a file backend rooted at dir.
func NewFileStorage(dir string) (*FileStorage, error) {
	return internalstorage.NewFileStorage(dir)
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return internalstorage.NewMemoryStorage()
}
