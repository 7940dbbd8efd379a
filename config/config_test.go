package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/playground/config"
	"golang.org/x/exp/slog"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "Vulkan Playground", cfg.Window.Title)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.True(t, cfg.Validation)
	require.NoError(t, cfg.Validate())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg := config.Default()
	err := cfg.Decode(strings.NewReader(`
validation = false
log_level = "debug"

[window]
width = 1024

[assets]
model = "models/viking_room.obj"
`))
	require.NoError(t, err)

	assert.False(t, cfg.Validation)
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, "Vulkan Playground", cfg.Window.Title)
	assert.Equal(t, "models/viking_room.obj", cfg.Assets.Model)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	cfg := config.Default()
	assert.Error(t, cfg.Decode(strings.NewReader("fullscreen = true\n")))
}

func TestDecodeRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	assert.Error(t, cfg.Decode(strings.NewReader("[window]\nwidth = 0\n")))

	cfg = config.Default()
	assert.Error(t, cfg.Decode(strings.NewReader("log_level = \"loud\"\n")))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playground.toml")
	require.NoError(t, os.WriteFile(path, []byte("shaders = \"build/shaders\"\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "build/shaders", cfg.Shaders)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestApplyArgs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playground.toml")
	require.NoError(t, os.WriteFile(path, []byte("validation = true\n[window]\nwidth = 300\n"), 0o644))

	cfg := config.Default()
	out := &bytes.Buffer{}
	err := cfg.ApplyArgs([]string{"--no-validation", "--config", path, "--height", "200"}, out)
	require.NoError(t, err)

	// Command line options win over the file wherever they appear.
	assert.False(t, cfg.Validation)
	assert.Equal(t, 300, cfg.Window.Width)
	assert.Equal(t, 200, cfg.Window.Height)
	assert.Empty(t, out.String())
}

func TestApplyArgsErrors(t *testing.T) {
	cases := map[string][]string{
		"unknown":       {"--fullscreen"},
		"missing value": {"--width"},
		"bad number":    {"--width", "wide"},
		"zero size":     {"--height", "0"},
		"missing file":  {"--config"},
	}

	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			assert.Error(t, cfg.ApplyArgs(args, &bytes.Buffer{}))
		})
	}
}

func TestApplyArgsHelp(t *testing.T) {
	cfg := config.Default()
	out := &bytes.Buffer{}
	err := cfg.ApplyArgs([]string{"--help"}, out)
	assert.True(t, errors.Is(err, config.ErrHelp))
	assert.Contains(t, out.String(), "--no-validation")
}
