package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")

	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 2.5, cfg.GraphStep)
	assert.Equal(t, 0.001, cfg.GraphEpsilon)
	assert.Equal(t, "astar", cfg.PathStrategy)
	assert.Equal(t, 500, cfg.RecomputeInterval)
	assert.False(t, cfg.StrictLayout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navigator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "4000"
graph_step: 5
selection_policy: side-preferring
side_axis: y
strict_layout: true
cors_origins: ["https://a.example"]
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "4100")
	t.Setenv("PREFER_PRIORITY", "true")
	t.Setenv("GRAPH_EPSILON", "0.01")
	t.Setenv("CORS_ORIGINS", "https://b.example, https://c.example")

	cfg := Load()
	assert.Equal(t, "4100", cfg.Port)
	assert.Equal(t, 5.0, cfg.GraphStep)
	assert.Equal(t, 0.01, cfg.GraphEpsilon)
	assert.Equal(t, "side-preferring", cfg.SelectionPolicy)
	assert.Equal(t, "y", cfg.SideAxis)
	assert.True(t, cfg.StrictLayout)
	assert.True(t, cfg.PreferPriority)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.CORSOrigins)
}

func TestLoad_BadValuesKeepDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("GRAPH_STEP", "wide")
	t.Setenv("STRICT_LAYOUT", "maybe")
	t.Setenv("READ_TIMEOUT", "x")

	cfg := Load()
	assert.Equal(t, 2.5, cfg.GraphStep)
	assert.False(t, cfg.StrictLayout)
	assert.Equal(t, 10, cfg.ReadTimeout)
}
