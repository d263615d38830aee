// Package cmd implements the seek command-line interface.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"seek/internal/config"
	"seek/internal/embed"
	"seek/internal/errs"
	"seek/internal/extract"
	"seek/internal/extract/languages"
	"seek/internal/gitx"
	"seek/internal/search"
	"seek/internal/store"
	indexsync "seek/internal/sync"
)

var flagRepo string

var rootCmd = &cobra.Command{
	Use:           "seek",
	Short:         "Incremental hybrid code search for git repositories",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits with the stable code for the error class.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "seek: %v\n", err)
		os.Exit(errs.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRepo, "repo", "", "repository path (default: enclosing git repository)")
}

// repoRoot resolves the working tree the command operates on.
func repoRoot() (string, error) {
	dir := flagRepo
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return gitx.RepoRoot(dir)
}

func seekDir(root string) string {
	return filepath.Join(root, ".seek")
}

func indexPath(root string) string {
	return filepath.Join(root, ".seek", "index.db")
}

// env bundles everything an index-touching command needs.
type env struct {
	root    string
	seekDir string
	cfg     config.Config
	store   *store.Store
	engine  *search.Engine
	syncer  *indexsync.Syncer
}

// openEnv resolves the repository, loads config, and opens the index.
// Returns ErrNotInitialized when `seek init` has not run.
func openEnv() (*env, error) {
	root, err := repoRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(indexPath(root)); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no index at %s", errs.ErrNotInitialized, indexPath(root))
	}

	st, err := store.Open(indexPath(root))
	if err != nil {
		return nil, err
	}

	backend, err := embed.NewBackend(cfg.Model, embed.Options{
		OllamaURL:   cfg.OllamaURL,
		TimeoutSecs: cfg.EmbedTimeoutSecs,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	pipeline := embed.NewPipeline(backend, cfg.Workers)

	registry := extract.NewRegistry()
	languages.RegisterAll(registry)

	return &env{
		root:    root,
		seekDir: seekDir(root),
		cfg:     cfg,
		store:   st,
		engine: search.NewEngine(st, pipeline, search.Options{
			Fusion:       cfg.Fusion,
			VectorWeight: cfg.VectorWeight,
			RRFK:         int(cfg.RRFK),
		}),
		syncer: &indexsync.Syncer{
			Root:      root,
			Store:     st,
			Pipeline:  pipeline,
			Extractor: extract.New(registry),
			Config:    cfg,
		},
	}, nil
}

func (e *env) Close() {
	e.store.Close()
}
