// Package config loads seek configuration with three-level precedence:
// built-in defaults, overridden by the global file
// (~/.config/seek/config.toml), overridden by the local file
// (<root>/.seek/config.toml).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the merged configuration for one working tree.
type Config struct {
	// Model is the embedding backend identifier, e.g. "ollama:nomic-embed-text"
	// or "hash" for the deterministic local backend.
	Model string `toml:"model"`
	// OllamaURL is the base URL for the ollama backend.
	OllamaURL string `toml:"ollama_url"`
	// EmbedTimeoutSecs bounds each embedding batch call.
	EmbedTimeoutSecs int `toml:"embed_timeout_secs"`

	// Fusion selects how lexical and vector rankings merge: "linear" or "rrf".
	Fusion string `toml:"fusion"`
	// VectorWeight is the vector share in linear fusion, in [0,1].
	VectorWeight float64 `toml:"vector_weight"`
	// RRFK is the k constant for reciprocal-rank fusion.
	RRFK float64 `toml:"rrf_k"`

	// RenameThreshold is the git similarity percentage (0-100) above which a
	// moved file is treated as a rename rather than delete+add.
	RenameThreshold int `toml:"rename_threshold"`

	// DefaultK is the result count when -k is not given.
	DefaultK int `toml:"default_k"`
	// AutoSync runs a staged-mode sync before each query.
	AutoSync bool `toml:"auto_sync"`
	// Workers bounds concurrent file processing during sync. 0 means NumCPU.
	Workers int `toml:"workers"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model:            "ollama:nomic-embed-text",
		OllamaURL:        "http://localhost:11434",
		EmbedTimeoutSecs: 60,
		Fusion:           "linear",
		VectorWeight:     0.6,
		RRFK:             60,
		RenameThreshold:  50,
		DefaultK:         10,
		AutoSync:         true,
		Workers:          0,
	}
}

// LocalPath returns the per-tree config file path.
func LocalPath(root string) string {
	return filepath.Join(root, ".seek", "config.toml")
}

// GlobalPath returns the per-user config file path.
func GlobalPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "seek", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "seek", "config.toml")
}

// Load merges defaults, the global file, and the local file, in that order.
// Missing files are not errors; malformed files are.
func Load(root string) (Config, error) {
	cfg := Default()
	for _, path := range []string{GlobalPath(), LocalPath(root)} {
		if path == "" {
			continue
		}
		if err := mergeFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// LoadFile decodes a single config file without merging. Used by
// `seek config show --local/--global`.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	// Decoding into the existing struct overlays only the keys present in
	// the file, which is exactly the precedence we want.
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Write saves cfg to path, creating parent directories.
func Write(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Validate rejects values the engine cannot work with.
func (c Config) Validate() error {
	if c.Fusion != "linear" && c.Fusion != "rrf" {
		return fmt.Errorf("fusion must be \"linear\" or \"rrf\", got %q", c.Fusion)
	}
	if c.VectorWeight < 0 || c.VectorWeight > 1 {
		return fmt.Errorf("vector_weight must be in [0,1], got %v", c.VectorWeight)
	}
	if c.RenameThreshold < 0 || c.RenameThreshold > 100 {
		return fmt.Errorf("rename_threshold must be in [0,100], got %d", c.RenameThreshold)
	}
	if c.DefaultK <= 0 {
		return fmt.Errorf("default_k must be positive, got %d", c.DefaultK)
	}
	return nil
}
