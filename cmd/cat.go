package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"seek/internal/errs"
	"seek/internal/resultcache"
)

var flagCatContext int

var catCmd = &cobra.Command{
	Use:   "cat <n>",
	Short: "Print a result from the last query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		entry, err := resolveOrdinal(env.seekDir, args[0])
		if err != nil {
			return err
		}

		full := filepath.Join(env.root, entry.Path)
		data, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("read %s (was it removed since the query?): %w", entry.Path, err)
		}

		lines := strings.Split(string(data), "\n")
		start := entry.StartLine - flagCatContext
		if start < 1 {
			start = 1
		}
		end := entry.EndLine + flagCatContext
		if end > len(lines) {
			end = len(lines)
		}

		body := strings.Join(lines[start-1:end], "\n")
		if isatty.IsTerminal(os.Stdout.Fd()) {
			body = highlight(body, entry.Language)
		}

		fmt.Printf("%s:%d-%d  %s %s\n\n", entry.Path, start, end, entry.Kind, entry.Name)
		for i, line := range strings.Split(body, "\n") {
			fmt.Printf("%5d | %s\n", start+i, line)
		}
		return nil
	},
}

func resolveOrdinal(seekDir, arg string) (*resultcache.Entry, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a result number", errs.ErrInvalidOrdinal, arg)
	}
	return resultcache.Resolve(seekDir, n)
}

// highlight renders code with ANSI colors; plain text on any failure.
func highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func init() {
	catCmd.Flags().IntVarP(&flagCatContext, "context", "C", 0, "lines of context around the symbol")
	rootCmd.AddCommand(catCmd)
}
