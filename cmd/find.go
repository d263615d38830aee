package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"seek/internal/daemon"
	"seek/internal/resultcache"
	"seek/internal/search"
	"seek/internal/store"
	indexsync "seek/internal/sync"
)

var (
	flagFindK      int
	flagFindJSON   bool
	flagFindIn     string
	flagFindLang   string
	flagFindNoSync bool
)

var findCmd = &cobra.Command{
	Use:   "find <query>...",
	Short: "Search the index with a natural-language query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		query := strings.Join(args, " ")
		k := flagFindK
		if k == 0 {
			k = env.cfg.DefaultK
		}
		filters := store.Filters{PathGlob: flagFindIn, Language: flagFindLang}
		autoSync := env.cfg.AutoSync && !flagFindNoSync

		var results []search.Result
		if client, err := daemon.Dial(env.seekDir); err == nil {
			defer client.Close()
			if autoSync {
				if _, err := client.Do(daemon.Request{Op: daemon.OpSync, Staged: true}); err != nil {
					fmt.Fprintf(os.Stderr, "seek: auto-sync skipped: %v\n", err)
				}
			}
			resp, err := client.Do(daemon.Request{
				Op:       daemon.OpFind,
				Query:    query,
				K:        k,
				PathGlob: filters.PathGlob,
				Language: filters.Language,
			})
			if err != nil {
				return err
			}
			results = resp.Results
		} else {
			if autoSync {
				// Query what is staged right now; a failed auto-sync degrades
				// to searching the last synced state.
				if _, err := env.syncer.Run(cmd.Context(), indexsync.Options{Staged: true}); err != nil {
					fmt.Fprintf(os.Stderr, "seek: auto-sync skipped: %v\n", err)
				}
			}
			results, err = env.engine.Search(cmd.Context(), query, filters, k)
			if err != nil {
				return err
			}
		}

		if _, err := resultcache.Save(env.seekDir, query, results); err != nil {
			fmt.Fprintf(os.Stderr, "seek: could not save results for cat/open: %v\n", err)
		}

		if flagFindJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		printResults(results)
		return nil
	},
}

func printResults(results []search.Result) {
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, r := range results {
		fmt.Printf("%2d. %s:%d-%d  %s %s  (%.3f)\n",
			i+1, r.Path, r.StartLine, r.EndLine, r.Kind, r.Name, r.Score)
		if r.Snippet != "" {
			fmt.Printf("    %s\n", r.Snippet)
		}
	}
	fmt.Println("\nUse `seek cat <n>` or `seek open <n>` to view a result.")
}

func init() {
	findCmd.Flags().IntVarP(&flagFindK, "count", "k", 0, "number of results (default from config)")
	findCmd.Flags().BoolVar(&flagFindJSON, "json", false, "emit results as JSON")
	findCmd.Flags().StringVar(&flagFindIn, "in", "", "restrict to paths matching a glob, e.g. 'internal/*'")
	findCmd.Flags().StringVar(&flagFindLang, "lang", "", "restrict to a language, e.g. go, python")
	findCmd.Flags().BoolVar(&flagFindNoSync, "no-sync", false, "skip the automatic staged sync before querying")
	rootCmd.AddCommand(findCmd)
}
