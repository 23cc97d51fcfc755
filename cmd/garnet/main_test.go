package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	cmd := newGarnetCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigurationPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "garnet.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
search_paths = ["lib"]
log_level = "info"

[security]
mode = "deny-all"
`), 0o644))
	t.Setenv("GARNET_PATH", "/opt/garnet")

	flags := globalFlags{
		configFile: file,
		include:    []string{"extra"},
		security:   "allow-list",
		allow:      []string{"Time"},
		debugAST:   true,
	}
	cfg, err := flags.configuration()
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "lib"), "/opt/garnet", "extra"}, cfg.SearchPaths)
	assert.Equal(t, "allow-list", cfg.Security.Mode)
	assert.Equal(t, []string{"Time"}, cfg.Security.Allow)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.DebugAST)
	assert.Equal(t, Version, cfg.Version)

	flags = globalFlags{configFile: filepath.Join(dir, "missing.toml")}
	_, err = flags.configuration()
	assert.Error(t, err)
}

func TestLogLevelFromString(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logLevelFromString("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logLevelFromString("warn"))
	assert.Equal(t, slog.LevelError, logLevelFromString(""))
	assert.Greater(t, logLevelFromString("none"), slog.LevelError)
}

func TestEvalCommand(t *testing.T) {
	out, err := execute(t, "eval", "--log-level", "none", "-p", "-e", "ARGV.map { |a| a.to_i * 2 }", "3", "4")
	require.NoError(t, err)
	assert.Equal(t, "[6, 8]\n", out)

	_, err = execute(t, "eval", "--log-level", "none")
	assert.ErrorContains(t, err, "nothing to evaluate")

	_, err = execute(t, "eval", "--log-level", "none", "--security", "deny-all", "-e", "Time.now")
	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "AccessDeniedError")
}

func TestRunCommand(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)

	script := filepath.Join(t.TempDir(), "fail.rb")
	require.NoError(t, os.WriteFile(script, []byte("raise ArgumentError, ARGV.first\n"), 0o644))
	_, err = execute(t, "run", "--log-level", "none", script, "bad input")
	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "bad input")
	assert.Contains(t, buf.String(), "ArgumentError")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "garnet version 'vdev' unknown unknown\n", out)
}
