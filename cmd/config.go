package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"seek/internal/config"
)

var (
	flagConfigLocal     bool
	flagConfigGlobal    bool
	flagConfigEffective bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit seek configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration (effective by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}

		var cfg config.Config
		switch {
		case flagConfigLocal:
			cfg, err = config.LoadFile(config.LocalPath(root))
		case flagConfigGlobal:
			cfg, err = config.LoadFile(config.GlobalPath())
		default:
			cfg, err = config.Load(root)
		}
		if err != nil {
			return err
		}
		return toml.NewEncoder(os.Stdout).Encode(cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}
		fmt.Printf("global: %s\n", config.GlobalPath())
		fmt.Printf("local:  %s\n", config.LocalPath(root))
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit a config file in $EDITOR (local by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}
		path := config.LocalPath(root)
		if flagConfigGlobal {
			path = config.GlobalPath()
		}

		// Seed the file with current effective values so editing starts
		// from something valid.
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg, err := config.Load(root)
			if err != nil {
				return err
			}
			if err := config.Write(cfg, path); err != nil {
				return err
			}
		}

		editor := os.Getenv("VISUAL")
		if editor == "" {
			editor = os.Getenv("EDITOR")
		}
		if editor == "" {
			editor = "vi"
		}
		ed := exec.Command(editor, path)
		ed.Stdin = os.Stdin
		ed.Stdout = os.Stdout
		ed.Stderr = os.Stderr
		if err := ed.Run(); err != nil {
			return err
		}

		// Reject an edit that would break the next command.
		if _, err := config.LoadFile(path); err != nil {
			return err
		}
		merged, err := config.Load(root)
		if err != nil {
			return err
		}
		return merged.Validate()
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&flagConfigLocal, "local", false, "show only the repository config file")
	configShowCmd.Flags().BoolVar(&flagConfigGlobal, "global", false, "show only the user config file")
	configShowCmd.Flags().BoolVar(&flagConfigEffective, "effective", false, "show the merged configuration (the default)")
	configEditCmd.Flags().BoolVar(&flagConfigGlobal, "global", false, "edit the user config file")
	configCmd.AddCommand(configShowCmd, configPathCmd, configEditCmd)
	rootCmd.AddCommand(configCmd)
}
