package cmd

import (
	"os"
	"path/filepath"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// homedir caches the resolved home; tests vary HOME per case.
	homedir.DisableCache = true
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, int64(123456), cfg.Pipeline.BaseSeed)
	assert.Equal(t, 5, cfg.Pipeline.SampleDigits)
	assert.Equal(t, 64, cfg.Pipeline.Voxel.AxialResolution)
	assert.Equal(t, 0.30, cfg.Pipeline.Voxel.PlugAspect)
	assert.Equal(t, 100, cfg.Pipeline.Voxel.NumCells)
	assert.Equal(t, 1000, cfg.Pipeline.Voxel.MaxAttempts)
	assert.Equal(t, 15, cfg.Pipeline.Surface.SmoothingIterations)
	assert.Equal(t, 10000, cfg.Pipeline.Surface.DecimationTarget)
	assert.Equal(t, 0.10, cfg.Pipeline.Surface.ShrinkageTolerance)
	assert.Equal(t, 0.01, cfg.Pipeline.ClassifyTol)
	assert.Equal(t, 2.0, cfg.Pipeline.Field.InletFactor)
	assert.False(t, cfg.Converter.Enabled())
}

func TestLoadConfigProjectOverrides(t *testing.T) {
	// Point the user layer at an empty home so only the project file acts.
	t.Setenv("HOME", t.TempDir())

	project := filepath.Join(t.TempDir(), "plugmesh.yaml")
	require.NoError(t, os.WriteFile(project, []byte(`
output: /data/runs
pipeline:
  base_seed: 99
  voxel:
    num_cells: 25
`), 0o644))

	cfg, err := LoadConfig(project)
	require.NoError(t, err)
	assert.Equal(t, "/data/runs", cfg.Output)
	assert.Equal(t, int64(99), cfg.Pipeline.BaseSeed)
	assert.Equal(t, 25, cfg.Pipeline.Voxel.NumCells)
	// Untouched keys keep their defaults.
	assert.Equal(t, 64, cfg.Pipeline.Voxel.AxialResolution)
	assert.Equal(t, 0.15, cfg.Pipeline.Voxel.MaxRadius)
}

func TestLoadConfigUserLayer(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".plugmesh"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".plugmesh", "config.yaml"),
		[]byte("workers: 4\n"), 0o644))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)

	// The project layer wins over the user layer.
	project := filepath.Join(t.TempDir(), "plugmesh.yaml")
	require.NoError(t, os.WriteFile(project, []byte("workers: 2\n"), 0o644))
	cfg, err = LoadConfig(project)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadConfigMissingProjectFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
