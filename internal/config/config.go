package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full nbpublish configuration. All fields have working
// defaults so the tool runs without a config file at all.
type Config struct {
	SourceDir   string `yaml:"source_dir"`
	ScriptDir   string `yaml:"script_dir"`
	MarkdownDir string `yaml:"markdown_dir"`
	SnippetsDir string `yaml:"snippets_dir"`

	DocsDest    string `yaml:"docs_dest"`
	WebsiteDest string `yaml:"website_dest"`

	Kernel       string `yaml:"kernel"`
	CellTimeout  int    `yaml:"cell_timeout"` // seconds, passed to the converter per cell
	Overwrite    *bool  `yaml:"overwrite,omitempty"`
	Jobs         int    `yaml:"jobs"`
	ConverterBin string `yaml:"converter_bin"`
	Template     string `yaml:"template"`

	Logging LoggingConfig `yaml:"logging"`
	State   StateConfig   `yaml:"state"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Events  EventsConfig  `yaml:"events"`
	Index   IndexConfig   `yaml:"index"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StateConfig controls the SQLite build history store.
type StateConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// DaemonConfig controls watch mode.
type DaemonConfig struct {
	Listen          string `yaml:"listen"`
	RebuildInterval string `yaml:"rebuild_interval"` // Go duration, "0" or empty disables
	Debounce        string `yaml:"debounce"`
}

// EventsConfig controls the optional NATS build-event publisher.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// IndexConfig controls generation of the examples index page.
type IndexConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Title   string `yaml:"title"`
}

// Environment variables recognized on top of the config file.
const (
	EnvDocsDest    = "NBPUBLISH_DOCS_DEST"
	EnvWebsiteDest = "NBPUBLISH_WEBSITE_DEST"
	EnvKernel      = "NBPUBLISH_KERNEL"
)

// OverwriteEnabled reports the overwrite flag with its default (true).
func (c *Config) OverwriteEnabled() bool {
	return c.Overwrite == nil || *c.Overwrite
}

// IndexEnabled reports whether index generation is on (default true).
func (c *Config) IndexEnabled() bool {
	return c.Index.Enabled == nil || *c.Index.Enabled
}

// Load reads the configuration file at path. A missing file is not an
// error when optional is true: defaults (plus env overrides) apply.
func Load(path string, optional bool) (*Config, error) {
	// .env/.env.local never override the real environment.
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
			}
			break
		}
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if !optional {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Expand ${VAR} references in the YAML before unmarshal.
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SourceDir == "" {
		c.SourceDir = "./notebooks"
	}
	if c.ScriptDir == "" {
		c.ScriptDir = "./julia"
	}
	if c.MarkdownDir == "" {
		c.MarkdownDir = "./markdown"
	}
	if c.SnippetsDir == "" {
		c.SnippetsDir = "./codesnippets"
	}
	if c.DocsDest == "" {
		c.DocsDest = "../QuantumOptics.jl-documentation/src/examples"
	}
	if c.WebsiteDest == "" {
		c.WebsiteDest = "../QuantumOptics.jl-website/src/_codesnippets/src"
	}
	if c.Kernel == "" {
		c.Kernel = "julia-1.11"
	}
	if c.CellTimeout == 0 {
		c.CellTimeout = 200
	}
	if c.Jobs == 0 {
		c.Jobs = runtime.NumCPU()
		if c.Jobs > 4 {
			c.Jobs = 4
		}
	}
	if c.ConverterBin == "" {
		c.ConverterBin = "jupyter-nbconvert"
	}
	if c.Template == "" {
		c.Template = "markdown_custom"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = string(LogLevelInfo)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = string(LogFormatText)
	}
	if c.State.Path == "" {
		c.State.Path = ".nbpublish/state.db"
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = ":9180"
	}
	if c.Daemon.Debounce == "" {
		c.Daemon.Debounce = "2s"
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "nbpublish.builds"
	}
	if c.Events.NATSURL == "" {
		c.Events.NATSURL = "nats://127.0.0.1:4222"
	}
	if c.Index.Title == "" {
		c.Index.Title = "Examples"
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvDocsDest); v != "" {
		c.DocsDest = v
	}
	if v := os.Getenv(EnvWebsiteDest); v != "" {
		c.WebsiteDest = v
	}
	if v := os.Getenv(EnvKernel); v != "" {
		c.Kernel = v
	}
}

// Validate rejects values the pipeline cannot work with.
func (c *Config) Validate() error {
	if c.CellTimeout < 0 {
		return fmt.Errorf("cell_timeout must be >= 0, got %d", c.CellTimeout)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be >= 1, got %d", c.Jobs)
	}
	if c.SourceDir == "" {
		return errors.New("source_dir must not be empty")
	}
	if _, err := c.DebounceDuration(); err != nil {
		return fmt.Errorf("invalid daemon.debounce: %w", err)
	}
	if _, err := c.RebuildInterval(); err != nil {
		return fmt.Errorf("invalid daemon.rebuild_interval: %w", err)
	}
	return nil
}
