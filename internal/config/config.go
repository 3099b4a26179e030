// Package config loads the per-workspace graphol configuration from
// .graphol/config.toml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
)

const (
	// Dir is the workspace directory holding the config file and the store.
	Dir = ".graphol"

	// FileName is the config file inside Dir.
	FileName = "config.toml"
)

// Config is the workspace configuration.
type Config struct {
	// StorePath is the Badger directory, relative to the workspace root
	// unless absolute.
	StorePath string `toml:"store_path" validate:"required"`

	LogLevel string `toml:"log_level" validate:"oneof=debug info warn error"`

	// DefaultRestriction is given to new domain and range restriction nodes.
	DefaultRestriction string `toml:"default_restriction" validate:"oneof=exists forall cardinality self"`

	// Profile is the OWL 2 profile edits must stay within.
	Profile string `toml:"profile" validate:"oneof=owl2 owl2ql owl2rl"`

	Watch WatchConfig `toml:"watch"`
}

// WatchConfig configures the edit-script watcher.
type WatchConfig struct {
	// Pattern selects script files, relative to the watched directory.
	Pattern string `toml:"pattern" validate:"required,glob"`

	// Debounce is how long the watcher waits for changes to settle before
	// replaying, as a Go duration string.
	Debounce string `toml:"debounce" validate:"required,duration"`
}

// DebounceDuration returns Debounce parsed. It is only meaningful on a
// validated config.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(w.Debounce)
	return d
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		StorePath:          filepath.Join(Dir, "store"),
		LogLevel:           "info",
		DefaultRestriction: "exists",
		Profile:            "owl2",
		Watch: WatchConfig{
			Pattern:  "**/*.{yaml,yml}",
			Debounce: "2s",
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
		return doublestar.ValidatePattern(fl.Field().String())
	})
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})
	return v
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Path returns the config file location for a workspace root.
func Path(root string) string {
	return filepath.Join(root, Dir, FileName)
}

// Load reads the config of the workspace at root. A missing file yields the
// defaults; keys absent from the file keep their default values. Unknown
// keys are an error.
func Load(root string) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(Path(root), cfg)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write stores cfg as the config of the workspace at root, creating the
// workspace directory if needed.
func Write(root string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(root, Dir), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", Dir, err)
	}
	if err := os.WriteFile(Path(root), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ResolveStorePath returns the store directory for the workspace at root.
func (c *Config) ResolveStorePath(root string) string {
	if filepath.IsAbs(c.StorePath) {
		return c.StorePath
	}
	return filepath.Join(root, c.StorePath)
}
