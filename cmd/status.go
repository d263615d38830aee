package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"seek/internal/daemon"
)

var flagStatusStaged bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index freshness and contents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.store.GetStats()
		if err != nil {
			return err
		}
		state, err := env.store.GetState()
		if err != nil {
			return err
		}

		fmt.Printf("Index:    %s\n", indexPath(env.root))
		fmt.Printf("Files:    %d\n", stats.Files)
		fmt.Printf("Symbols:  %d (%d vectors)\n", stats.Symbols, stats.Vectors)
		if state.EmbeddingModelID == "" {
			fmt.Println("Model:    (never synced)")
		} else {
			fmt.Printf("Model:    %s (%d dimensions)\n", state.EmbeddingModelID, state.EmbeddingDim)
		}
		if state.LastSyncedTree != "" {
			fmt.Printf("Synced:   %.12s (%s)\n", state.LastSyncedTree, state.SyncMode)
		}

		// Staleness is the plan that a sync would apply right now.
		p, err := env.syncer.Plan(flagStatusStaged)
		if err != nil {
			return err
		}
		if p.Empty() {
			fmt.Println("Status:   up to date")
		} else {
			fmt.Printf("Status:   stale (%d add, %d update, %d rename, %d delete pending)\n",
				len(p.Add), len(p.Update), len(p.Rename), len(p.Delete))
		}

		if daemon.Running(env.seekDir) {
			fmt.Printf("Daemon:   running (pid %d)\n", daemon.Pid(env.seekDir))
		} else {
			fmt.Println("Daemon:   not running")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&flagStatusStaged, "staged", false, "compare against the staged snapshot instead of HEAD")
	rootCmd.AddCommand(statusCmd)
}
