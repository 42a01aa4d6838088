package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/facescan/internal/config"
	"github.com/MeKo-Tech/facescan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	output, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration written to facescan.yaml")
	assert.Contains(t, testutil.ReadFile(t, "facescan.yaml"), "output_file: results.csv")

	_, err = execute(t, "config", "init")
	require.Error(t, err, "existing config is not overwritten")

	custom := filepath.Join(t.TempDir(), "custom.yaml")
	_, err = execute(t, "config", "init", custom)
	require.NoError(t, err)
	assert.True(t, testutil.FileExists(custom))
}

func TestConfigShowCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	testutil.WriteFile(t, ".", "facescan.yaml", "analyze:\n  output_file: from-file.csv\n")

	output, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "# loaded from")
	assert.Contains(t, output, "output_file: from-file.csv")

	output, err = execute(t, "config", "show", "--json")
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(output), &cfg))
	assert.Equal(t, "from-file.csv", cfg.Analyze.OutputFile)
}

func TestConfigShowCommand_ExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := testutil.WriteFile(t, t.TempDir(), "other.yaml", "log_level: warn\n")

	output, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "log_level: warn")
}
