package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	ModelsDir  string
	EnvVars    []string

	// Test artifacts
	CreatedFiles       []string
	CreatedDirectories []string
}

// NewTestContext creates a new test context. Commands run inside a fresh
// temporary directory with an empty models directory, so no scenario depends
// on model files being installed.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "facescan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	ctx := &TestContext{
		WorkingDir:         tempDir,
		TempDir:            tempDir,
		ModelsDir:          filepath.Join(tempDir, "models"),
		EnvVars:            []string{},
		CreatedFiles:       []string{},
		CreatedDirectories: []string{},
	}
	if err := os.MkdirAll(ctx.ModelsDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create models directory: %w", err)
	}

	// keep user configuration out of the scenarios
	ctx.AddEnvVar("HOME", tempDir)
	ctx.AddEnvVar("XDG_CONFIG_HOME", filepath.Join(tempDir, ".config"))
	ctx.AddEnvVar("FACESCAN_MODELS_DIR", ctx.ModelsDir)
	return ctx, nil
}

// Cleanup removes all temporary files and directories created during tests.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	for _, file := range testCtx.CreatedFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove file %s: %w", file, err))
		}
	}
	for _, dir := range testCtx.CreatedDirectories {
		if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove directory %s: %w", dir, err))
		}
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// TrackFile adds a file to be cleaned up after tests.
func (testCtx *TestContext) TrackFile(filename string) {
	testCtx.CreatedFiles = append(testCtx.CreatedFiles, testCtx.path(filename))
}

// TrackDirectory adds a directory to be cleaned up after tests.
func (testCtx *TestContext) TrackDirectory(dirname string) {
	testCtx.CreatedDirectories = append(testCtx.CreatedDirectories, testCtx.path(dirname))
}

// path expands variables in name and resolves it relative to the working
// directory.
func (testCtx *TestContext) path(name string) string {
	name = testCtx.substituteCommandVariables(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.WorkingDir, name)
}

// substituteCommandVariables expands {tmp} and {models} in a command line.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	r := strings.NewReplacer("{tmp}", testCtx.TempDir, "{models}", testCtx.ModelsDir)
	return r.Replace(command)
}
