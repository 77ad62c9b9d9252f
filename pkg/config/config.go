package config

import internalconfig "github.com/SmitUplenchwar2687/vmcloop/internal/config"

// Config is the top-level vmcloop configuration.
type Config = internalconfig.Config

// CaptureConfig holds recording settings.
type CaptureConfig = internalconfig.CaptureConfig

// PlaybackConfig holds replay settings.
type PlaybackConfig = internalconfig.PlaybackConfig

// StorageConfig holds recording store settings.
type StorageConfig = internalconfig.StorageConfig

// StorageRedisConfig configures the Redis storage backend.
type StorageRedisConfig = internalconfig.StorageRedisConfig

// StatusConfig configures the HTTP status server.
type StatusConfig = internalconfig.StatusConfig

// Default returns a Config with sensible defaults.
func Default() Config {
	return internalconfig.Default()
}

// Load merges defaults, an optional YAML or JSON file and VMCLOOP_*
// environment variables.
func Load(path string) (Config, error) {
	return internalconfig.Load(path)
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	return internalconfig.WriteExample(path)
}
