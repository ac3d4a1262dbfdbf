package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()

	assert.Equal(t, DefaultParallelThreshold, c.ParallelThreshold)
	assert.Equal(t, 0, c.WorkerPoolSize)
	assert.False(t, c.VerboseLogging)
	assert.NoError(t, c.Validate())
}

func TestConfigValidate(t *testing.T) {
	c := NewConfig()
	c.ParallelThreshold = 0
	assert.Error(t, c.Validate())

	c = NewConfig()
	c.WorkerPoolSize = -1
	assert.Error(t, c.Validate())
}

func TestGlobalConfig(t *testing.T) {
	original := GetGlobalConfig()
	defer func() {
		require.NoError(t, SetGlobalConfig(original))
	}()

	c := NewConfig()
	c.ParallelThreshold = 42
	require.NoError(t, SetGlobalConfig(c))
	assert.Equal(t, 42, GetGlobalConfig().ParallelThreshold)

	bad := NewConfig()
	bad.ParallelThreshold = -1
	assert.Error(t, SetGlobalConfig(bad))
	assert.Equal(t, 42, GetGlobalConfig().ParallelThreshold)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grizzly.yaml")
	content := "parallel_threshold: 250\nworker_pool_size: 4\nverbose_logging: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 250, c.ParallelThreshold)
	assert.Equal(t, 4, c.WorkerPoolSize)
	assert.True(t, c.VerboseLogging)

	_, err = LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GRIZZLY_PARALLEL_THRESHOLD", "77")
	t.Setenv("GRIZZLY_VERBOSE_LOGGING", "true")

	c := LoadFromEnv(NewConfig())
	assert.Equal(t, 77, c.ParallelThreshold)
	assert.True(t, c.VerboseLogging)
}
