package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load([]string{"--in", "doc.quire"})
	require.NoError(t, err)
	assert.Equal(t, "doc.quire", cfg.In)
	assert.Equal(t, "output.pdf", cfg.Out)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.DebugLines)
}

func TestLoadPositionalInput(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load([]string{"-o", "out.pdf", "report.quire"})
	require.NoError(t, err)
	assert.Equal(t, "report.quire", cfg.In)
	assert.Equal(t, "out.pdf", cfg.Out)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quire.yaml"), []byte(`
in: from-file.quire
font_dir: fonts
log:
  level: warn
  format: json
`), 0o644))
	t.Setenv("QUIRE_LOG_LEVEL", "debug")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-file.quire", cfg.In)
	assert.Equal(t, "fonts", cfg.FontDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QUIRE_OUT", "env.pdf")

	cfg, err := Load([]string{"--in", "a.quire", "--out", "flag.pdf", "--debug-lines"})
	require.NoError(t, err)
	assert.Equal(t, "flag.pdf", cfg.Out)
	assert.True(t, cfg.DebugLines)
}

func TestLoadExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("in = \"toml.quire\"\n"), 0o644))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "toml.quire", cfg.In)

	_, err = Load([]string{"--config", filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	t.Chdir(t.TempDir())

	cases := map[string][]string{
		"missing input": nil,
		"bad level":     {"--in", "a", "--log-level", "loud"},
		"bad format":    {"--in", "a", "--log-format", "xml"},
		"unknown flag":  {"--in", "a", "--bogus"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(args)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quire.log")
	log, err := NewLogger(LogConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)
	log.Debug("hello")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}
