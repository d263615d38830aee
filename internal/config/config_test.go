package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	globalDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", globalDir)
	root := t.TempDir()

	global := filepath.Join(globalDir, "seek", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(global), 0o755))
	require.NoError(t, os.WriteFile(global, []byte("model = \"hash\"\ndefault_k = 5\n"), 0o644))

	local := LocalPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(local), 0o755))
	require.NoError(t, os.WriteFile(local, []byte("default_k = 3\n"), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	// Global overrides built-in defaults.
	assert.Equal(t, "hash", cfg.Model)
	// Local overrides global.
	assert.Equal(t, 3, cfg.DefaultK)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().VectorWeight, cfg.VectorWeight)
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()

	local := LocalPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(local), 0o755))
	require.NoError(t, os.WriteFile(local, []byte("model = [broken"), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestWrite_RoundTrip(t *testing.T) {
	root := t.TempDir()
	want := Default()
	want.Model = "hash"
	want.VectorWeight = 0.25

	path := LocalPath(root)
	require.NoError(t, Write(want, path))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults ok", func(c *Config) {}, false},
		{"bad fusion", func(c *Config) { c.Fusion = "mean" }, true},
		{"weight above one", func(c *Config) { c.VectorWeight = 1.5 }, true},
		{"negative threshold", func(c *Config) { c.RenameThreshold = -1 }, true},
		{"zero k", func(c *Config) { c.DefaultK = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
