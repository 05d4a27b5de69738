// Package config loads the optional .go-live-rst.yaml file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the workspace root.
const FileName = ".go-live-rst.yaml"

// WorkspaceMacro is replaced by the workspace root in path settings.
const WorkspaceMacro = "${workspaceRoot}"

// Default values.
const (
	DefaultAddr            = "127.0.0.1:7777"
	DefaultSphinxBuild     = "sphinx-build"
	DefaultDocutils        = "rst2html5"
	DefaultEncoding        = "utf-8"
	DefaultDebounce        = 300 * time.Millisecond
	DefaultEmulator        = "x-terminal-emulator"
	DefaultTerminalTimeout = 5 * time.Second
)

// Provider names.
const (
	ProviderAuto     = "auto"
	ProviderSphinx   = "sphinx"
	ProviderDocutils = "docutils"
)

// Config holds the parsed configuration. All fields are optional; accessor
// methods apply defaults and macro expansion.
type Config struct {
	Addr                string            `yaml:"addr"`
	Provider            string            `yaml:"provider"` // auto, sphinx, docutils
	RawConfPath         string            `yaml:"conf_path"`
	RawBuiltPath        string            `yaml:"built_documentation_path"`
	PythonPath          string            `yaml:"python_path"` // runs sphinx as "<python> -msphinx"
	SphinxBuildPath     string            `yaml:"sphinx_build_path"`
	Docutils            DocutilsConfig    `yaml:"docutils"`
	Encoding            string            `yaml:"encoding"`
	UpdateOnTextChanged *bool             `yaml:"update_on_text_changed"`
	RawDebounce         string            `yaml:"debounce"` // e.g. "300ms"
	Env                 map[string]string `yaml:"env"`
	Terminal            TerminalConfig    `yaml:"terminal"`
	Log                 LogConfig         `yaml:"log"`

	root string
}

// DocutilsConfig controls the docutils front-end.
type DocutilsConfig struct {
	Command string   `yaml:"command"` // default rst2html5
	Args    []string `yaml:"args"`    // extra flags, e.g. --stylesheet=...
}

// TerminalConfig controls the debugger terminal helper.
type TerminalConfig struct {
	Emulator   string `yaml:"emulator"`
	RawTimeout string `yaml:"timeout"`
}

// LogConfig controls the plugin's own log output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Root returns the workspace root the config was loaded for.
func (c *Config) Root() string { return c.root }

// ListenAddr returns the preview server address.
func (c *Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return DefaultAddr
}

// ConfPath returns the Sphinx source directory (where conf.py lives).
func (c *Config) ConfPath() string {
	if c.RawConfPath != "" {
		return c.Expand(c.RawConfPath)
	}
	return c.root
}

// BuiltPath returns the Sphinx HTML output directory.
func (c *Config) BuiltPath() string {
	if c.RawBuiltPath != "" {
		return c.Expand(c.RawBuiltPath)
	}
	return filepath.Join(c.root, "_build", "html")
}

// SphinxCommand returns the executable and leading arguments used to invoke Sphinx.
func (c *Config) SphinxCommand() (string, []string) {
	if c.PythonPath != "" {
		return c.Expand(c.PythonPath), []string{"-msphinx"}
	}
	if c.SphinxBuildPath != "" {
		return c.Expand(c.SphinxBuildPath), nil
	}
	return DefaultSphinxBuild, nil
}

// DocutilsCommand returns the docutils front-end executable.
func (c *Config) DocutilsCommand() string {
	if c.Docutils.Command != "" {
		return c.Expand(c.Docutils.Command)
	}
	return DefaultDocutils
}

// OutputEncoding returns the encoding used to decode builder stdout.
func (c *Config) OutputEncoding() string {
	if c.Encoding != "" {
		return c.Encoding
	}
	return DefaultEncoding
}

// LiveUpdates reports whether previews refresh on unsaved text changes.
func (c *Config) LiveUpdates() bool {
	if c.UpdateOnTextChanged == nil {
		return true
	}
	return *c.UpdateOnTextChanged
}

// Debounce returns the delay between a change and the preview refresh.
func (c *Config) Debounce() time.Duration {
	return parseDuration(c.RawDebounce, DefaultDebounce)
}

// ProcessEnv returns the environment overlay for builder processes.
func (c *Config) ProcessEnv() map[string]string {
	env := map[string]string{
		"LC_ALL": "en_US.UTF-8",
		"LANG":   "en_US.UTF-8",
	}
	for k, v := range c.Env {
		env[k] = c.Expand(v)
	}
	return env
}

// Emulator returns the terminal emulator used by the debugger helper.
func (c *Config) Emulator() string {
	if c.Terminal.Emulator != "" {
		return c.Terminal.Emulator
	}
	return DefaultEmulator
}

// TerminalTimeout bounds how long the helper waits for the tty path.
func (c *Config) TerminalTimeout() time.Duration {
	return parseDuration(c.Terminal.RawTimeout, DefaultTerminalTimeout)
}

// ResolveProvider returns the configured provider, resolving "auto" by
// looking for conf.py in the conf path.
func (c *Config) ResolveProvider() string {
	switch strings.ToLower(c.Provider) {
	case ProviderSphinx:
		return ProviderSphinx
	case ProviderDocutils:
		return ProviderDocutils
	}
	if _, err := os.Stat(filepath.Join(c.ConfPath(), "conf.py")); err == nil {
		return ProviderSphinx
	}
	return ProviderDocutils
}

// Expand replaces the workspace macro in s.
func (c *Config) Expand(s string) string {
	return strings.ReplaceAll(s, WorkspaceMacro, c.root)
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case "", ProviderAuto, ProviderSphinx, ProviderDocutils:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}

// Load reads FileName from workspace. If no file exists, a default Config
// rooted at workspace is returned.
func Load(workspace string) (*Config, error) {
	root, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(filepath.Join(root, FileName))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
	}
	cfg.root = root

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return cfg, nil
}
