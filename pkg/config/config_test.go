package config

import (
	"path/filepath"
	"testing"
)

func TestWriteExampleLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmcloop.yaml")
	if err := WriteExample(path); err != nil {
		t.Fatalf("WriteExample() error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Playback.Target != Default().Playback.Target {
		t.Fatalf("Playback.Target = %q, want %q", cfg.Playback.Target, Default().Playback.Target)
	}
}
