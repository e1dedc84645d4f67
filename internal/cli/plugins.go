package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ggeorg0/life-assistant/internal/config"
	"github.com/ggeorg0/life-assistant/internal/plugins"
	"github.com/ggeorg0/life-assistant/pkg/extension"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the builtin plugins",
	Long: `List the builtin plugins with their commands and the state they start in.
Plugins whose Notion databases are not configured are reported as skipped.`,
	RunE: runPlugins,
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}

func runPlugins(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return writePlugins(cmd.OutOrStdout(), cfg)
}

func writePlugins(w io.Writer, cfg *config.Config) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	units := plugins.Units(plugins.Deps{
		Config:   cfg,
		Location: loc,
		Now:      time.Now,
		Logger:   zerolog.Nop(),
	})
	loaded, errs := extension.NewDiscovery(zerolog.Nop(), units...).LoadWithErrors()

	registry := extension.NewRegistry(zerolog.Nop())
	registry.SetPlugins(loaded)
	plugins.ApplyDisabled(registry, cfg.Plugins.Disabled)

	enabled := color.New(color.FgGreen).SprintFunc()
	disabled := color.New(color.FgYellow).SprintFunc()
	skipped := color.New(color.FgRed).SprintFunc()

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Plugin", "State", "Commands", "Triggers"})
	table.SetAutoWrapText(false)

	for _, p := range registry.Plugins() {
		state := enabled("enabled")
		if !p.Enabled() {
			state = disabled("disabled")
		}
		triggers := len(p.DailyEvents()) + len(p.MonthlyEvents()) + len(p.DisorderedEvents())
		table.Append([]string{p.Name(), state, commandList(p), fmt.Sprint(triggers)})
	}

	for _, unitErr := range errs {
		var ue *extension.UnitError
		name := "?"
		if errors.As(unitErr, &ue) {
			name = ue.Unit
		}
		table.Append([]string{name, skipped("skipped"), unitReason(unitErr), "0"})
	}

	table.Render()
	return nil
}

func commandList(p extension.Plugin) string {
	var names []string
	for _, c := range p.UserCommands() {
		names = append(names, "/"+c.Name)
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}

func unitReason(err error) string {
	var ue *extension.UnitError
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}
