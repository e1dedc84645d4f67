package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ggeorg0/life-assistant/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show assistant status",
	Long:  `Show whether an assistant is running from the configured data directory.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func lifecycle() (*app.LifecycleManager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.NewLifecycleManager(cfg.DataDir, zerolog.Nop()), nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	lm, err := lifecycle()
	if err != nil {
		return err
	}
	return printStatus(cmd, lm)
}

func printStatus(cmd *cobra.Command, lm *app.LifecycleManager) error {
	out := cmd.OutOrStdout()

	if !lm.IsRunning() {
		fmt.Fprintln(out, "Status: stopped")
		return nil
	}

	pid, err := lm.GetPID()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Status: running")
	fmt.Fprintf(out, "PID: %d\n", pid)
	// the pid file is written once at start
	if info, err := os.Stat(lm.PIDFile()); err == nil {
		fmt.Fprintf(out, "Uptime: %s\n", formatDuration(time.Since(info.ModTime())))
	}
	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
