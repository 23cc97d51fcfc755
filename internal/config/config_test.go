package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garnet/internal/security"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "garnet.toml", `
root = "/srv/app"
search_paths = ["lib", "/opt/garnet"]
extensions = [".rb"]
log_level = "debug"

[security]
mode = "allow-list"
allow = ["Time"]

[[error_classes]]
name = "PaymentError"
parent = "RuntimeError"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/app", cfg.RootPath)
	assert.Equal(t, []string{filepath.Join(filepath.Dir(path), "lib"), "/opt/garnet"}, cfg.SearchPaths)
	assert.Equal(t, []string{".rb"}, cfg.Extensions)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, Security{Mode: "allow-list", Allow: []string{"Time"}}, cfg.Security)
	assert.Equal(t, []ErrorClass{{Name: "PaymentError", Parent: "RuntimeError"}}, cfg.ErrorClasses)

	mode, err := cfg.SecurityMode()
	require.NoError(t, err)
	assert.Equal(t, security.AllowList, mode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "garnet.yml", `
search_paths: [vendor]
security:
  mode: deny-all
error_classes:
  - name: QuotaError
debug_ast: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultRootPath, cfg.RootPath, "unset keys keep their defaults")
	assert.Equal(t, DefaultExtensions, cfg.Extensions)
	assert.Equal(t, "deny-all", cfg.Security.Mode)
	assert.True(t, cfg.DebugAST)
	assert.Equal(t, []string{".", filepath.Join(filepath.Dir(path), "vendor")}, cfg.Paths())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeFile(t, "garnet.ini", "root=."))
	assert.ErrorContains(t, err, `unsupported config format ".ini"`)

	_, err = Load(writeFile(t, "bad.toml", "root = "))
	assert.ErrorContains(t, err, "parse")
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Security.Mode = "paranoid"
	cfg.LogLevel = "loud"
	cfg.Extensions = []string{"rb"}
	cfg.ErrorClasses = []ErrorClass{
		{Name: "lowercase"},
		{Name: "Twice"},
		{Name: "Twice", Parent: "not-a-class"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 6)
	assert.ErrorContains(t, err, `unknown security mode "paranoid"`)
	assert.ErrorContains(t, err, `unknown log level "loud"`)
	assert.ErrorContains(t, err, "error class Twice declared twice")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(PathEnv, "/a"+string(os.PathListSeparator)+string(os.PathListSeparator)+"/b")
	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, []string{"/a", "/b"}, cfg.SearchPaths)
}
