package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"seek/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background query daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon for this repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		env.Close()

		if daemon.Running(env.seekDir) {
			return fmt.Errorf("daemon already running (pid %d)", daemon.Pid(env.seekDir))
		}

		// Re-exec ourselves detached; the child runs the hidden foreground
		// command.
		self, err := os.Executable()
		if err != nil {
			return err
		}
		child := exec.Command(self, "daemon", "run", "--repo", env.root)
		child.Stdout = nil
		child.Stderr = nil
		child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if err := child.Start(); err != nil {
			return err
		}

		// Wait for the socket so "start" failing is visible immediately.
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if daemon.Running(env.seekDir) {
				fmt.Printf("Daemon started (pid %d)\n", child.Process.Pid)
				return nil
			}
			time.Sleep(50 * time.Millisecond)
		}
		return fmt.Errorf("daemon did not come up; run `seek daemon run` to see why")
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon for this repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}
		client, err := daemon.Dial(seekDir(root))
		if err != nil {
			// Socket gone but a pid file may remain from a wedged daemon.
			if pid := daemon.Pid(seekDir(root)); pid != 0 {
				if proc, perr := os.FindProcess(pid); perr == nil {
					if proc.Signal(syscall.SIGTERM) == nil {
						fmt.Printf("Daemon stopped (pid %d, via signal).\n", pid)
						return nil
					}
				}
			}
			return fmt.Errorf("daemon not running")
		}
		defer client.Close()
		if _, err := client.Do(daemon.Request{Op: daemon.OpStop}); err != nil {
			return err
		}
		fmt.Println("Daemon stopped.")
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the daemon is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := repoRoot()
		if err != nil {
			return err
		}
		if daemon.Running(seekDir(root)) {
			fmt.Printf("Daemon running (pid %d)\n", daemon.Pid(seekDir(root)))
		} else {
			fmt.Println("Daemon not running.")
		}
		return nil
	},
}

var daemonRunCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run the daemon in the foreground",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &daemon.Server{
			SeekDir: env.seekDir,
			Store:   env.store,
			Engine:  env.engine,
			Syncer:  env.syncer,
		}
		if err := srv.Listen(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Serve(ctx)
	},
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd, daemonRunCmd)
	rootCmd.AddCommand(daemonCmd)
}
