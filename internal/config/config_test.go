package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(
		"db_path = \"/tmp/x.db\"\nsheet = \"budget\"\n\n[ui]\ncol_width = 20\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, "budget", cfg.Sheet)
	assert.Equal(t, 20, cfg.UI.ColWidth)
	// untouched keys keep defaults
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, Default().UI.Rows, cfg.UI.Rows)
}

func TestLoadMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("db_path = [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
