package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggeorg0/life-assistant/internal/app"
)

var (
	stopTimeout int
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running assistant",
	Long: `Stop a running assistant gracefully.
Sends SIGTERM to the process named in the pid file and waits for it to shut down.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().IntVar(&stopTimeout, "timeout", 30, "timeout in seconds to wait for the assistant to stop")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	lm, err := lifecycle()
	if err != nil {
		return err
	}
	return stopProcess(cmd, lm, time.Duration(stopTimeout)*time.Second)
}

func stopProcess(cmd *cobra.Command, lm *app.LifecycleManager, timeout time.Duration) error {
	out := cmd.OutOrStdout()

	if !lm.IsRunning() {
		return fmt.Errorf("assistant is not running")
	}

	pid, err := lm.GetPID()
	if err != nil {
		return err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !lm.IsRunning() {
			fmt.Fprintln(out, "Assistant stopped")
			return lm.Stop()
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Fprintln(out, "Timeout reached, sending SIGKILL...")
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to send SIGKILL: %w", err)
	}

	fmt.Fprintln(out, "Assistant killed")
	return lm.Stop()
}
