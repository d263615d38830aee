package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"seek/internal/daemon"
	indexsync "seek/internal/sync"
)

var (
	flagSyncStaged  bool
	flagSyncReindex bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Bring the index up to date with the repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		// A running daemon owns the sync slot; route through it so two
		// writers never race.
		if client, err := daemon.Dial(env.seekDir); err == nil {
			defer client.Close()
			resp, err := client.Do(daemon.Request{
				Op:      daemon.OpSync,
				Staged:  flagSyncStaged,
				Reindex: flagSyncReindex,
			})
			if err != nil {
				return err
			}
			printSyncReport(resp.Sync)
			return nil
		}

		start := time.Now()
		summary, err := env.syncer.Run(cmd.Context(), indexsync.Options{
			Staged:  flagSyncStaged,
			Reindex: flagSyncReindex,
		})
		if err != nil {
			return err
		}
		printSummary(summary, time.Since(start))
		return nil
	},
}

func printSummary(s *indexsync.Summary, elapsed time.Duration) {
	if s.UpToDate {
		fmt.Println("Index is up to date.")
		return
	}
	fmt.Printf("Synced in %s (%s)\n", elapsed.Round(time.Millisecond), s.Mode)
	fmt.Printf("  Files:   %d added, %d updated, %d renamed, %d deleted\n",
		s.Added, s.Updated, s.Renamed, s.Deleted)
	fmt.Printf("  Symbols: %d indexed\n", s.Symbols)
	for _, f := range s.Failures {
		fmt.Fprintf(os.Stderr, "  warning: %s: %v\n", f.Path, f.Err)
	}
	if len(s.Failures) > 0 {
		fmt.Fprintf(os.Stderr, "%d file(s) failed and will be retried on the next sync\n", len(s.Failures))
	}
}

func printSyncReport(r *daemon.SyncReport) {
	if r == nil {
		return
	}
	if r.UpToDate {
		fmt.Println("Index is up to date.")
		return
	}
	fmt.Printf("Synced (%s)\n", r.Mode)
	fmt.Printf("  Files:   %d added, %d updated, %d renamed, %d deleted\n",
		r.Added, r.Updated, r.Renamed, r.Deleted)
	fmt.Printf("  Symbols: %d indexed\n", r.Symbols)
	for _, f := range r.Failures {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", f)
	}
}

func init() {
	syncCmd.Flags().BoolVar(&flagSyncStaged, "staged", false, "sync against the staged snapshot instead of HEAD")
	syncCmd.Flags().BoolVar(&flagSyncReindex, "reindex", false, "drop all vectors and re-embed every file")
	rootCmd.AddCommand(syncCmd)
}
