package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied to zero-value fields.
const (
	DefaultListenAddr   = ":8000"
	DefaultScriptDir    = "game"
	DefaultManifestFile = "sourcemap.json"
	DefaultDebounceMS   = 200
)

// Config represents the complete rbxsyncd configuration
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Serve   ServeConfig   `yaml:"serve"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ProjectConfig locates the script repository on disk
type ProjectConfig struct {
	// Root is the project directory; relative paths in ingest requests and
	// the manifest file resolve against it. Defaults to the working directory.
	Root string `yaml:"root"`

	// ScriptDir is the script-root subdirectory under Root that the
	// sourcemap walk starts from.
	ScriptDir string `yaml:"script_dir"`

	// ManifestFile is where the generated sourcemap is persisted, relative
	// to Root unless absolute.
	ManifestFile string `yaml:"manifest_file"`
}

// ServeConfig configures the sync server
type ServeConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// WatchConfig configures sourcemap watch mode
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Default returns the built-in configuration used when no config file exists.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// finalize expands environment variables, applies defaults, and validates.
func (c *Config) finalize() error {
	c.expandEnv()
	if err := c.applyDefaults(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Project.Root = os.ExpandEnv(c.Project.Root)
	c.Project.ScriptDir = os.ExpandEnv(c.Project.ScriptDir)
	c.Project.ManifestFile = os.ExpandEnv(c.Project.ManifestFile)
	c.Serve.ListenAddr = os.ExpandEnv(c.Serve.ListenAddr)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() error {
	if c.Project.Root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		c.Project.Root = cwd
	}
	if c.Project.ScriptDir == "" {
		c.Project.ScriptDir = DefaultScriptDir
	}
	if c.Project.ManifestFile == "" {
		c.Project.ManifestFile = DefaultManifestFile
	}
	if c.Serve.ListenAddr == "" {
		c.Serve.ListenAddr = DefaultListenAddr
	}
	if c.Watch.DebounceMS == 0 {
		c.Watch.DebounceMS = DefaultDebounceMS
	}
	return nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.Project.Root) {
		return fmt.Errorf("project.root must be an absolute path: %s", c.Project.Root)
	}

	// The script dir is a name under the project root, not a path of its own
	if c.Project.ScriptDir != filepath.Base(c.Project.ScriptDir) {
		return fmt.Errorf("project.script_dir must be a plain directory name: %s", c.Project.ScriptDir)
	}

	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative: %d", c.Watch.DebounceMS)
	}

	return nil
}

// ScriptRoot returns the absolute path of the script-root directory
func (c *Config) ScriptRoot() string {
	return filepath.Join(c.Project.Root, c.Project.ScriptDir)
}

// ManifestPath returns the absolute path of the sourcemap manifest file
func (c *Config) ManifestPath() string {
	if filepath.IsAbs(c.Project.ManifestFile) {
		return c.Project.ManifestFile
	}
	return filepath.Join(c.Project.Root, c.Project.ManifestFile)
}
