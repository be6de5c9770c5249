package viz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leafpore/plugmesh/trimesh"
	"github.com/leafpore/plugmesh/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/cmpimg"
)

// imgDelta a normalized parameter to describe how close the matching
// should be performed (imgDelta=0: perfect match, imgDelta=1, loose match)
const imgDelta = 0

func cubeSTL(t *testing.T) string {
	t.Helper()
	g, err := voxel.NewGrid(16, 0.5)
	require.NoError(t, err)
	for i := 4; i < 12; i++ {
		for j := 4; j < 12; j++ {
			for k := 4; k < 12; k++ {
				g.Set(i, j, k)
			}
		}
	}
	m, report := trimesh.Extract(g, trimesh.Options{})
	require.Equal(t, trimesh.StatusSuccess, report.Status)
	path := filepath.Join(t.TempDir(), "cube.stl")
	require.NoError(t, m.SaveSTL(path))
	return path
}

func TestRenderSTLDeterministic(t *testing.T) {
	stl := cubeSTL(t)
	dir := t.TempDir()
	png1 := filepath.Join(dir, "a.png")
	png2 := filepath.Join(dir, "b.png")
	opts := DefaultOptions()
	opts.Width, opts.Height = 320, 240

	require.NoError(t, RenderSTL(stl, png1, opts))
	require.NoError(t, RenderSTL(stl, png2, opts))

	b1, err := os.ReadFile(png1)
	require.NoError(t, err)
	b2, err := os.ReadFile(png2)
	require.NoError(t, err)
	eq, err := cmpimg.EqualApprox("png", b1, b2, imgDelta)
	require.NoError(t, err)
	assert.True(t, eq, "two renders of the same mesh differ")
}

func TestRenderSTLBadInputs(t *testing.T) {
	stl := cubeSTL(t)
	dir := t.TempDir()
	assert.Error(t, RenderSTL(stl, filepath.Join(dir, "out.jpg"), DefaultOptions()))

	bad := DefaultOptions()
	bad.Width = 0
	assert.Error(t, RenderSTL(stl, filepath.Join(dir, "out.png"), bad))

	assert.Error(t, RenderSTL(filepath.Join(dir, "missing.stl"),
		filepath.Join(dir, "out.png"), DefaultOptions()))
}
