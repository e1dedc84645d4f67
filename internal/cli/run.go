package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ggeorg0/life-assistant/internal/app"
	"github.com/ggeorg0/life-assistant/internal/config"
	"github.com/ggeorg0/life-assistant/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the assistant in the foreground",
	Long: `Run the assistant in the foreground until SIGINT or SIGTERM.
The bot long-polls Telegram, binds every plugin command and schedules the
plugin notifications.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(loggerConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	assistant, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	for _, unitErr := range assistant.UnitErrors() {
		fmt.Fprintf(cmd.ErrOrStderr(), "plugin skipped: %v\n", unitErr)
	}

	if err := assistant.Start(context.Background()); err != nil {
		return err
	}
	writeStarted(cmd.OutOrStdout(), assistant.Status())
	assistant.Wait()
	return nil
}

func writeStarted(w io.Writer, status app.Status) {
	fmt.Fprintf(w, "Assistant running: %d plugins, %d scheduled jobs\n", status.Plugins, status.Jobs)
	for _, job := range status.Upcoming {
		fmt.Fprintf(w, "  %s  %s / %s\n", job.NextRun.Format(time.DateTime), job.Tag, job.Name)
	}
}

func loggerConfig(cfg *config.Config) logger.Config {
	l := cfg.Logging
	return logger.Config{
		Level:     l.Level,
		File:      l.File,
		Console:   l.Console,
		Pretty:    l.Pretty,
		Redaction: l.Redaction,
		MaxSize:   l.MaxSize,
		MaxAge:    l.MaxAge,
		Compress:  l.Compress,
	}
}
