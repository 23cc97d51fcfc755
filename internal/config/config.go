// Package config holds the settings a Machine is built from, loaded from a
// TOML or YAML file and overridden by command line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"garnet/internal/security"
)

const (
	DefaultRootPath = "."
	// PathEnv lists extra search paths, separated like PATH.
	PathEnv = "GARNET_PATH"
)

// DefaultExtensions are tried in order when a required path has none.
var DefaultExtensions = []string{".rb", ".gt"}

type Security struct {
	Mode  string   `toml:"mode" yaml:"mode"`
	Allow []string `toml:"allow" yaml:"allow"`
}

// ErrorClass declares an exception class scripts can raise and rescue.
type ErrorClass struct {
	Name   string `toml:"name" yaml:"name"`
	Parent string `toml:"parent" yaml:"parent"`
}

type Configuration struct {
	Version   string `toml:"-" yaml:"-"`
	BuildDate string `toml:"-" yaml:"-"`
	Commit    string `toml:"-" yaml:"-"`

	RootPath     string       `toml:"root" yaml:"root"`
	SearchPaths  []string     `toml:"search_paths" yaml:"search_paths"`
	Extensions   []string     `toml:"extensions" yaml:"extensions"`
	Security     Security     `toml:"security" yaml:"security"`
	ErrorClasses []ErrorClass `toml:"error_classes" yaml:"error_classes"`

	LogLevel string `toml:"log_level" yaml:"log_level"`
	LogFile  string `toml:"log_file" yaml:"log_file"`
	DebugAST bool   `toml:"debug_ast" yaml:"debug_ast"`
}

// Default returns the configuration used when no file is given.
func Default() Configuration {
	return Configuration{
		RootPath:   DefaultRootPath,
		Extensions: append([]string(nil), DefaultExtensions...),
		Security:   Security{Mode: "unrestricted"},
		LogLevel:   "error",
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml, or .yaml/.yml.
func Load(path string) (Configuration, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse %s", path)
		}
	default:
		return cfg, errors.Errorf("unsupported config format %q", ext)
	}

	// relative search paths are relative to the config file
	dir := filepath.Dir(path)
	for i, p := range cfg.SearchPaths {
		if !filepath.IsAbs(p) {
			cfg.SearchPaths[i] = filepath.Join(dir, p)
		}
	}
	return cfg, nil
}

// ApplyEnv appends the search paths listed in GARNET_PATH.
func (c *Configuration) ApplyEnv() {
	for _, p := range filepath.SplitList(os.Getenv(PathEnv)) {
		if p != "" {
			c.SearchPaths = append(c.SearchPaths, p)
		}
	}
}

// Paths returns the search paths in lookup order, root path first.
func (c Configuration) Paths() []string {
	paths := make([]string, 0, len(c.SearchPaths)+1)
	if c.RootPath != "" {
		paths = append(paths, c.RootPath)
	}
	return append(paths, c.SearchPaths...)
}

func (c Configuration) SecurityMode() (security.Mode, error) {
	return security.ParseMode(c.Security.Mode)
}

// Validate reports every problem at once.
func (c Configuration) Validate() error {
	var result *multierror.Error

	if _, err := c.SecurityMode(); err != nil {
		result = multierror.Append(result, err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error", "none":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			result = multierror.Append(result, fmt.Errorf("extension %q must start with a dot", ext))
		}
	}
	seen := map[string]bool{}
	for _, ec := range c.ErrorClasses {
		switch {
		case !isConstName(ec.Name):
			result = multierror.Append(result, fmt.Errorf("error class name %q is not a constant name", ec.Name))
		case seen[ec.Name]:
			result = multierror.Append(result, fmt.Errorf("error class %s declared twice", ec.Name))
		}
		seen[ec.Name] = true
		if ec.Parent != "" && !isConstName(ec.Parent) {
			result = multierror.Append(result, fmt.Errorf("error class %s: parent %q is not a constant name", ec.Name, ec.Parent))
		}
	}
	return result.ErrorOrNil()
}

func isConstName(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
