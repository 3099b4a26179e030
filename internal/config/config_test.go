package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, Dir), 0o755))
	require.NoError(t, os.WriteFile(Path(root), []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("MissingFileGivesDefaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := Load(t.TempDir())

		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Equal(t, 2*time.Second, cfg.Watch.DebounceDuration())
	})

	t.Run("PartialFileKeepsDefaults", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeConfig(t, root, `
log_level = "debug"

[watch]
debounce = "250ms"
`)

		cfg, err := Load(root)

		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "exists", cfg.DefaultRestriction)
		assert.Equal(t, "owl2", cfg.Profile)
		assert.Equal(t, "**/*.{yaml,yml}", cfg.Watch.Pattern)
		assert.Equal(t, 250*time.Millisecond, cfg.Watch.DebounceDuration())
	})

	t.Run("UnknownKey", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeConfig(t, root, `colour = "blue"`)

		_, err := Load(root)

		assert.ErrorContains(t, err, "unknown keys colour")
	})

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeConfig(t, root, `log_level = `)

		_, err := Load(root)

		assert.ErrorContains(t, err, "reading config")
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			content string
			field   string
		}{
			{"LogLevel", `log_level = "loud"`, "LogLevel"},
			{"Restriction", `default_restriction = "some"`, "DefaultRestriction"},
			{"Profile", `profile = "owl2el"`, "Profile"},
			{"EmptyStore", `store_path = ""`, "StorePath"},
			{"Glob", "[watch]\npattern = \"[unclosed\"", "Pattern"},
			{"Debounce", "[watch]\ndebounce = \"soon\"", "Debounce"},
			{"NegativeDebounce", "[watch]\ndebounce = \"-1s\"", "Debounce"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				root := t.TempDir()
				writeConfig(t, root, tt.content)

				_, err := Load(root)

				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid config")
				assert.Contains(t, err.Error(), tt.field)
			})
		}
	})
}

func TestWrite(t *testing.T) {
	t.Parallel()

	t.Run("RoundTrip", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		cfg := Default()
		cfg.LogLevel = "warn"
		cfg.Watch.Pattern = "scripts/*.yaml"

		require.NoError(t, Write(root, cfg))
		loaded, err := Load(root)

		require.NoError(t, err)
		assert.Equal(t, cfg, loaded)
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		cfg := Default()
		cfg.LogLevel = "verbose"

		err := Write(root, cfg)

		assert.Error(t, err)
		assert.NoFileExists(t, Path(root))
	})
}

func TestResolveStorePath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, filepath.Join("/work", Dir, "store"), cfg.ResolveStorePath("/work"))

	cfg.StorePath = "/var/lib/graphol"
	assert.Equal(t, "/var/lib/graphol", cfg.ResolveStorePath("/work"))
}
