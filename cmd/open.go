package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open <n>",
	Short: "Open a result from the last query in $EDITOR",
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
		fmt.Printf("%s:%d\n", entry.Path, entry.StartLine)

		editor := os.Getenv("VISUAL")
		if editor == "" {
			editor = os.Getenv("EDITOR")
		}
		if editor == "" {
			// Location printed above is the whole contract without an editor.
			return nil
		}

		// +N positions the cursor on the symbol; understood by vi, vim,
		// nano, emacs, and friends.
		ed := exec.Command(editor, fmt.Sprintf("+%d", entry.StartLine), full)
		ed.Stdin = os.Stdin
		ed.Stdout = os.Stdout
		ed.Stderr = os.Stderr
		return ed.Run()
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
}
