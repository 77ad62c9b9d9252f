package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":39540", cfg.Capture.ListenAddr)
	assert.Equal(t, "localhost:39539", cfg.Playback.Target)
	assert.True(t, cfg.Capture.Countdown)
	assert.Zero(t, cfg.Playback.Period)
	assert.Equal(t, "file", cfg.Storage.Backend)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"listen addr without port", func(c *Config) { c.Capture.ListenAddr = "localhost" }},
		{"listen port out of range", func(c *Config) { c.Capture.ListenAddr = ":70000" }},
		{"target port zero", func(c *Config) { c.Playback.Target = "localhost:0" }},
		{"target port not a number", func(c *Config) { c.Playback.Target = "localhost:vmc" }},
		{"negative duration", func(c *Config) { c.Capture.Duration = -time.Second }},
		{"negative period", func(c *Config) { c.Playback.Period = -time.Millisecond }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "tape" }},
		{"file backend without dir", func(c *Config) { c.Storage.Dir = "" }},
		{"redis without port", func(c *Config) {
			c.Storage.Backend = "redis"
			c.Storage.Redis.Port = 0
		}},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad status addr", func(c *Config) { c.Status.Addr = "8080" }},
		{"negative feed rate", func(c *Config) { c.Status.FeedRate = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errdefs.IsInvalidArgument(err), "got %v", err)
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	cfg := Default()
	cfg.Capture.ListenAddr = ":0"
	cfg.Storage.Backend = "memory"
	cfg.Storage.Dir = ""
	cfg.Log.Level = "none"
	cfg.Status.Addr = "127.0.0.1:8080"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmcloop.yaml")
	body := `
capture:
  listen_addr: ":40000"
  duration: 1m30s
playback:
  target: "10.0.0.5:39539"
  period: 2500ms
  replace_timing: true
storage:
  backend: redis
  redis:
    cluster_nodes: ["a:7000", "b:7000"]
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":40000", cfg.Capture.ListenAddr)
	assert.Equal(t, 90*time.Second, cfg.Capture.Duration)
	assert.True(t, cfg.Capture.Countdown, "unset keys keep defaults")
	assert.Equal(t, "10.0.0.5:39539", cfg.Playback.Target)
	assert.Equal(t, 2500*time.Millisecond, cfg.Playback.Period)
	assert.True(t, cfg.Playback.ReplaceTiming)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, []string{"a:7000", "b:7000"}, cfg.Storage.Redis.ClusterNodes)
	assert.Equal(t, 6379, cfg.Storage.Redis.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmcloop.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"playback": {"period": "3s"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Playback.Period)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("VMCLOOP_PLAYBACK_TARGET", "192.168.1.20:39539")
	t.Setenv("VMCLOOP_CAPTURE_GAZE_ONLY", "true")
	t.Setenv("VMCLOOP_PLAYBACK_PERIOD", "750ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20:39539", cfg.Playback.Target)
	assert.True(t, cfg.Capture.GazeOnly)
	assert.Equal(t, 750*time.Millisecond, cfg.Playback.Period)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))
	_, err = Load(path)
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestWriteExample_LoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmcloop.yaml")
	require.NoError(t, WriteExample(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	want := Default()
	want.Playback.ReplaceTiming = true
	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("example config mismatch (-want +got):\n%s", diff)
	}
}
