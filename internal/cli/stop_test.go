package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggeorg0/life-assistant/internal/app"
)

func TestStopCommand(t *testing.T) {
	assert.True(t, hasSubcommand("stop"), "stop command should exist")

	cmd := GetRootCmd()
	cmd.SetArgs([]string{"stop", "--help"})
	output := &bytes.Buffer{}
	cmd.SetOut(output)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, output.String(), "Stop a running assistant")
	assert.Contains(t, output.String(), "timeout")
}

func TestStopProcessNotRunning(t *testing.T) {
	lm := app.NewLifecycleManager(t.TempDir(), zerolog.Nop())

	err := stopProcess(&cobra.Command{}, lm, time.Second)
	assert.ErrorContains(t, err, "not running")
}
