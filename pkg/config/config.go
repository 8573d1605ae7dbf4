package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/offlinefirst/keytap/pkg/keyboard"
)

const DefaultFileName = "keytap.yaml"

// Config captures the user-adjustable knobs for the keyboard monitor.
type Config struct {
	Keyboard KeyboardConfig `yaml:"keyboard"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// KeyboardConfig controls how the tap resolves characters.
type KeyboardConfig struct {
	DeadKeys           string `yaml:"dead_keys"`
	SubscribeModifiers bool   `yaml:"subscribe_modifiers"`
}

// OutputConfig shapes what the monitor prints.
type OutputConfig struct {
	Format       string `yaml:"format"`
	IncludeKeyUp bool   `yaml:"include_key_up"`
	RuneNames    bool   `yaml:"rune_names"`
	DebounceMS   int    `yaml:"debounce_ms"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Keyboard: KeyboardConfig{
			DeadKeys:           keyboard.DeadKeysDisplay.String(),
			SubscribeModifiers: false,
		},
		Output: OutputConfig{
			Format:       "auto",
			IncludeKeyUp: true,
			RuneNames:    false,
			DebounceMS:   0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./keytap.yaml but tolerates a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	file, err := os.Open(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
	}
	defer file.Close()

	if err := decode(file, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %q: %w", candidate, err)
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// decode overlays the YAML document onto cfg. Unknown keys are rejected and
// an empty document leaves cfg untouched.
func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if _, err := keyboard.ParseDeadKeyMode(c.Keyboard.DeadKeys); err != nil {
		return fmt.Errorf("keyboard.dead_keys: %w", err)
	}
	if _, err := NormalizeOutputFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Output.DebounceMS < 0 {
		return errors.New("output.debounce_ms must not be negative")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	return nil
}

func (c *Config) normalize() {
	defaults := Default()

	c.Keyboard.DeadKeys = strings.ToLower(strings.TrimSpace(c.Keyboard.DeadKeys))
	if c.Keyboard.DeadKeys == "" {
		c.Keyboard.DeadKeys = defaults.Keyboard.DeadKeys
	}
	if format, err := NormalizeOutputFormat(c.Output.Format); err == nil {
		c.Output.Format = format
	}
	if level, err := NormalizeLogLevel(c.Logging.Level); err == nil {
		c.Logging.Level = level
	}
	if format, err := NormalizeFormat(c.Logging.Format); err == nil {
		c.Logging.Format = format
	}
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}

// NormalizeOutputFormat canonicalizes the monitor output format. "auto"
// picks text on a terminal and JSON lines otherwise.
func NormalizeOutputFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "auto":
		return "auto", nil
	case "text", "console":
		return "text", nil
	case "json", "jsonl":
		return "json", nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}
