package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag of cmd and its children to its default so
// that tests sharing the global command tree stay independent.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args in an isolated working directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	resetFlags(rootCmd)
	cfgFile = ""
	globalConfig = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "facescan", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	t.Chdir(t.TempDir())
	output, err := execute(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "apparent age, gender and race")
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	t.Chdir(t.TempDir())
	output, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, output, "facescan version dev")

	output, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "facescan dev (commit: unknown")
}

func TestRootCommandSubcommands(t *testing.T) {
	var names []string
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"analyze", "config", "version"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommandInvalidLogLevel(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "version", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommandFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	for _, name := range []string{"config", "verbose", "log-level", "models-dir"} {
		assert.NotNil(t, flags.Lookup(name), "missing persistent flag %s", name)
	}
	assert.Equal(t, "v", flags.Lookup("verbose").Shorthand)
}

func TestRootCommandLoadsConfigBeforeRun(t *testing.T) {
	require.NotNil(t, rootCmd.PersistentPreRunE)

	t.Chdir(t.TempDir())
	modelsDir := t.TempDir()
	_, err := execute(t, "version", "--models-dir", modelsDir, "--log-level", "warn")
	require.NoError(t, err)

	require.NotNil(t, globalConfig, "configuration is loaded by the pre-run hook")
	assert.Equal(t, modelsDir, globalConfig.ModelsDir)
	assert.Equal(t, "warn", globalConfig.LogLevel)
}
