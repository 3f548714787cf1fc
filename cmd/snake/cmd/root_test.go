package cmd

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/MeKo-Tech/snake/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and fresh flag values.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag in the command tree to its default so one
// execution does not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "snake", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "greedy active contour")
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	output, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, output, "snake version dev (commit: unknown")
}

func TestRootCommandSubcommands(t *testing.T) {
	commandNames := make([]string, 0)
	for _, subcmd := range rootCmd.Commands() {
		commandNames = append(commandNames, subcmd.Name())
	}

	for _, expected := range []string{"run", "field", "serve", "config"} {
		assert.Contains(t, commandNames, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, err := executeCommand(t, "--no-such-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want slog.Level
	}{
		{"verbose wins", config.Config{Verbose: true, LogLevel: "error"}, slog.LevelDebug},
		{"debug", config.Config{LogLevel: "debug"}, slog.LevelDebug},
		{"warn", config.Config{LogLevel: "warn"}, slog.LevelWarn},
		{"error", config.Config{LogLevel: "error"}, slog.LevelError},
		{"unknown falls back to info", config.Config{LogLevel: "loud"}, slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logLevel(&tt.cfg))
		})
	}
}

func TestGetConfigPicksUpBoundFlags(t *testing.T) {
	_, err := executeCommand(t, "run", "--alpha", "0.25", "--max-iterations", "7")
	require.Error(t, err, "no images given")

	cfg := GetConfig()
	assert.InDelta(t, 0.25, cfg.Snake.Alpha, 1e-12)
	assert.Equal(t, 7, cfg.Run.MaxIterations)

	resetFlags(rootCmd)
	cfg = GetConfig()
	assert.Equal(t, config.DefaultConfig().Run.MaxIterations, cfg.Run.MaxIterations)
}
