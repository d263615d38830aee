package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"seek/internal/search"
	"seek/internal/store"
	indexsync "seek/internal/sync"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the index to agents over MCP stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		s := mcpserver.NewMCPServer("seek", "1.0.0", mcpserver.WithToolCapabilities(false))
		s.AddTool(searchCodeTool(), makeSearchCodeHandler(env))
		s.AddTool(indexStatusTool(), makeIndexStatusHandler(env))
		s.AddTool(syncIndexTool(), makeSyncIndexHandler(env))

		return mcpserver.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchCodeTool() mcp.Tool {
	return mcp.NewTool("search_code",
		mcp.WithDescription("Hybrid lexical + vector search over the indexed symbols of this repository. Returns ranked symbols with file paths and line spans."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of results (default 10)"),
		),
		mcp.WithString("path_glob",
			mcp.Description("Restrict to paths matching a glob, e.g. 'internal/*'"),
		),
		mcp.WithString("language",
			mcp.Description("Restrict to a language, e.g. 'go', 'python'"),
		),
	)
}

func indexStatusTool() mcp.Tool {
	return mcp.NewTool("index_status",
		mcp.WithDescription("Report index contents, the embedding model, and whether the index is stale relative to the repository."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func syncIndexTool() mcp.Tool {
	return mcp.NewTool("sync_index",
		mcp.WithDescription("Bring the index up to date with the repository before searching."),
		mcp.WithString("staged",
			mcp.Description("Set to 'true' to sync the staged snapshot instead of HEAD"),
		),
	)
}

func makeSearchCodeHandler(env *env) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", env.cfg.DefaultK)
		filters := store.Filters{
			PathGlob: req.GetString("path_glob", ""),
			Language: req.GetString("language", ""),
		}

		results, err := env.engine.Search(ctx, query, filters, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatMCPResults(env, query, results)), nil
	}
}

func makeIndexStatusHandler(env *env) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := env.store.GetStats()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
		}
		state, err := env.store.GetState()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Files: %d\nSymbols: %d (%d vectors)\n", stats.Files, stats.Symbols, stats.Vectors)
		fmt.Fprintf(&sb, "Model: %s (%d dimensions)\n", state.EmbeddingModelID, state.EmbeddingDim)
		fmt.Fprintf(&sb, "Last synced tree: %s (%s)\n", state.LastSyncedTree, state.SyncMode)
		if p, err := env.syncer.Plan(false); err == nil {
			if p.Empty() {
				sb.WriteString("Freshness: up to date\n")
			} else {
				fmt.Fprintf(&sb, "Freshness: stale, %d file change(s) pending — call sync_index\n", p.Total())
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeSyncIndexHandler(env *env) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		staged := req.GetString("staged", "") == "true"
		summary, err := env.syncer.Run(ctx, indexsync.Options{Staged: staged})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("sync failed: %v", err)), nil
		}
		if summary.UpToDate {
			return mcp.NewToolResultText("Index already up to date."), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"Synced (%s): %d added, %d updated, %d renamed, %d deleted, %d symbols indexed, %d failure(s).",
			summary.Mode, summary.Added, summary.Updated, summary.Renamed,
			summary.Deleted, summary.Symbols, len(summary.Failures))), nil
	}
}

func formatMCPResults(env *env, query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for query %q.", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for %q (%d)\n\n", query, len(results))
	for i, r := range results {
		sym, _, err := env.store.GetSymbol(r.SymbolID)
		fmt.Fprintf(&sb, "### %d. `%s` — %s %s (lines %d-%d, score %.3f)\n\n",
			i+1, r.Path, r.Kind, r.Name, r.StartLine, r.EndLine, r.Score)
		if err == nil {
			fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", r.Language, sym.Content)
		}
	}
	return sb.String()
}
