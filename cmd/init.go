package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"seek/internal/config"
	"seek/internal/embed"
	"seek/internal/errs"
	"seek/internal/store"
)

var (
	flagInitModel string
	flagInitForce bool
	flagInitYes   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the index for the enclosing repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}

		dbPath := indexPath(root)
		if _, err := os.Stat(dbPath); err == nil {
			if !flagInitForce {
				return fmt.Errorf("%w: %s", errs.ErrAlreadyInitialized, dbPath)
			}
			if !flagInitYes && !confirm(fmt.Sprintf("Recreate the index at %s? This discards all indexed data. [y/N] ", dbPath)) {
				return fmt.Errorf("aborted")
			}
			if err := os.Remove(dbPath); err != nil {
				return err
			}
		}

		cfg, err := config.Load(root)
		if err != nil {
			return err
		}
		// A local config file is written only when init overrides a default,
		// so the global file keeps applying otherwise.
		if flagInitModel != "" {
			cfg.Model = flagInitModel
			if err := config.Write(cfg, config.LocalPath(root)); err != nil {
				return err
			}
		}

		if err := createIndex(root, cfg); err != nil {
			return err
		}

		fmt.Printf("Initialized empty index at %s\n", dbPath)
		fmt.Println("Run `seek sync` to index the repository.")
		return nil
	},
}

// createIndex opens a fresh store and seeds the index state: the schema
// version and the canonical id of the configured embedding model. The
// dimension stays zero until the first sync probes the backend.
func createIndex(root string, cfg config.Config) error {
	if err := os.MkdirAll(seekDir(root), 0o755); err != nil {
		return err
	}
	st, err := store.Open(indexPath(root))
	if err != nil {
		return err
	}
	defer st.Close()

	backend, err := embed.NewBackend(cfg.Model, embed.Options{
		OllamaURL:   cfg.OllamaURL,
		TimeoutSecs: cfg.EmbedTimeoutSecs,
	})
	if err != nil {
		return err
	}
	return st.SetState(store.IndexState{
		SchemaVersion:    store.SchemaVersion,
		EmbeddingModelID: backend.ID(),
	})
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	initCmd.Flags().StringVar(&flagInitModel, "model", "", "embedding model for this repository (written to the local config)")
	initCmd.Flags().BoolVar(&flagInitForce, "force", false, "recreate an existing index")
	initCmd.Flags().BoolVarP(&flagInitYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(initCmd)
}
