package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, "processing-actions-dev", cfg.TableName)
	assert.Equal(t, "ObjectKeyIndex", cfg.ObjectKeyIndex)
	assert.Equal(t, "ProcessingIndex", cfg.ProcessingIndex)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.EnableTracing)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TABLE_NAME", "processing-actions-prod")
	t.Setenv("ENVIRONMENT", Production)
	t.Setenv("ENABLE_METRICS", "false")

	cfg := Load()
	assert.Equal(t, "processing-actions-prod", cfg.TableName)
	assert.Equal(t, Production, cfg.Environment)
	assert.False(t, cfg.EnableMetrics)
}

func TestWatcherAppliesOverrides(t *testing.T) {
	file := filepath.Join(t.TempDir(), "override.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"listenAddr": ":9090"}`), 0o644))

	cfg := Load()
	cfg.Environment = Development
	cfg.OverrideFile = file

	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, ":9090", w.Current().ListenAddr)
	assert.True(t, w.Current().EnableMetrics, "untouched fields keep their values")
}

func TestWatcherInertWithoutOverrideFile(t *testing.T) {
	cfg := Load()
	cfg.OverrideFile = ""

	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, cfg.ListenAddr, w.Current().ListenAddr)
}
