package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ggeorg0/life-assistant/internal/config"
	"github.com/ggeorg0/life-assistant/internal/telegram"
)

var checkToken bool

// validateToken asks Telegram whether the bot token authenticates
var validateToken = telegram.ValidateToken

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and validate the effective configuration",
	Long: `Load the configuration from the config file, the dotenv file and the
environment, print it with secrets masked and report whether it is valid.
With --check-token the bot token is also verified against Telegram.`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&checkToken, "check-token", false, "verify the bot token with Telegram")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return writeConfig(cmd.OutOrStdout(), cfg, checkToken)
}

func writeConfig(out io.Writer, cfg *config.Config, withToken bool) error {
	fmt.Fprintln(out, cfg.String())

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(out, color.RedString("invalid: %v", err))
		return fmt.Errorf("invalid configuration: %w", err)
	}
	fmt.Fprintln(out, color.GreenString("configuration is valid"))

	if !withToken {
		return nil
	}
	if err := validateToken(cfg.Telegram.BotToken); err != nil {
		fmt.Fprintln(out, color.RedString("bot token rejected: %v", err))
		return fmt.Errorf("bot token rejected: %w", err)
	}
	fmt.Fprintln(out, color.GreenString("bot token accepted"))
	return nil
}
