package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "localhost:79", cfg.Binds)
	require.Equal(t, "LOCALHOST", cfg.Hostname)
	require.Equal(t, "dummy", cfg.Source)
	require.Empty(t, cfg.Scenario)
	require.False(t, cfg.Watch)
	require.Empty(t, cfg.MetricsAddr)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FINGERD_BINDS", "0.0.0.0:7979")
	t.Setenv("FINGERD_HOSTNAME", "WONDERLAND")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:7979", cfg.Binds)
	require.Equal(t, "WONDERLAND", cfg.Hostname)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerd.toml")
	content := `
binds = "localhost:7979"
hostname = "WONDERLAND"
source = "scenario"
scenario = "/etc/fingerd/story.toml"
watch = true
metrics_addr = "localhost:9100"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "localhost:7979", cfg.Binds)
	require.Equal(t, "WONDERLAND", cfg.Hostname)
	require.Equal(t, "scenario", cfg.Source)
	require.Equal(t, "/etc/fingerd/story.toml", cfg.Scenario)
	require.True(t, cfg.Watch)
	require.Equal(t, "localhost:9100", cfg.MetricsAddr)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
