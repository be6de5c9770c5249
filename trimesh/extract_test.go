package trimesh

import (
	"bytes"
	"testing"

	"github.com/leafpore/plugmesh/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var testOptions = Options{
	SmoothingIterations: 15,
	DecimationTarget:    10000,
	ShrinkageTolerance:  0.10,
}

// cubeGrid returns a grid with an axis-aligned cube of the given side
// occupied, offset from the grid boundary.
func cubeGrid(t *testing.T, side int) *voxel.Grid {
	t.Helper()
	g, err := voxel.NewGrid(16, 0.5)
	require.NoError(t, err)
	for i := 2; i < 2+side; i++ {
		for j := 2; j < 2+side; j++ {
			for k := 2; k < 2+side; k++ {
				g.Set(i, j, k)
			}
		}
	}
	return g
}

func TestExtractEmptyGrid(t *testing.T) {
	g, err := voxel.NewGrid(16, 0.5)
	require.NoError(t, err)
	m, report := Extract(g, testOptions)
	assert.True(t, m.IsEmpty())
	assert.Equal(t, 0, report.NumVertices)
	assert.Equal(t, 0, report.NumTriangles)
	assert.Equal(t, StatusFailure, report.Status)
}

func TestExtractCubeWatertight(t *testing.T) {
	for _, side := range []int{3, 5, 8} {
		m, report := Extract(cubeGrid(t, side), testOptions)
		require.False(t, m.IsEmpty(), "side %d", side)
		assert.True(t, report.EdgeManifold, "side %d", side)
		assert.True(t, report.VertexManifold, "side %d", side)
		assert.True(t, report.Watertight, "side %d", side)
		assert.Equal(t, StatusSuccess, report.Status, "side %d", side)
	}
}

func TestExtractReportMeasurements(t *testing.T) {
	_, report := Extract(cubeGrid(t, 6), testOptions)
	assert.Greater(t, report.PreArea, 0.0)
	assert.Greater(t, report.PreVolume, 0.0)
	assert.Greater(t, report.PostArea, 0.0)
	assert.Greater(t, report.PostVolume, 0.0)
	assert.GreaterOrEqual(t, report.AreaShrink, 0.0)
	assert.GreaterOrEqual(t, report.VolumeShrink, 0.0)
}

func TestCleanIdempotent(t *testing.T) {
	m := MarchingCubes(gridField{cubeGrid(t, 5)}, 0)
	m.Clean()
	nv, nt := m.NumVertices(), m.NumTriangles()
	m.Clean()
	assert.Equal(t, nv, m.NumVertices())
	assert.Equal(t, nt, m.NumTriangles())
}

func TestCleanRemovesDuplicatesAndDegenerates(t *testing.T) {
	m := &Mesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 0}, // duplicate of vertex 0
			{X: 5, Y: 5, Z: 5}, // referenced by nothing after cleaning
		},
		Triangles: [][3]int{
			{0, 1, 2},
			{3, 1, 2}, // same triangle through the duplicated vertex
			{0, 1, 1}, // degenerate
			{2, 4, 4}, // degenerate, drops vertex 4 with it
		},
	}
	m.Clean()
	assert.Equal(t, 3, m.NumVertices())
	assert.Equal(t, 1, m.NumTriangles())
}

func TestDecimateNoOpBelowTarget(t *testing.T) {
	m, _ := Extract(cubeGrid(t, 4), testOptions)
	before := m.NumTriangles()
	m.Decimate(before + 100)
	assert.Equal(t, before, m.NumTriangles())
}

func TestDecimateReduces(t *testing.T) {
	m := MarchingCubes(gridField{cubeGrid(t, 8)}, 0)
	m.Clean()
	before := m.NumTriangles()
	target := before / 2
	m.Decimate(target)
	assert.Less(t, m.NumTriangles(), before)
}

func TestSmoothPreservesCounts(t *testing.T) {
	m := MarchingCubes(gridField{cubeGrid(t, 5)}, 0)
	m.Clean()
	nv, nt := m.NumVertices(), m.NumTriangles()
	m.SmoothTaubin(15)
	assert.Equal(t, nv, m.NumVertices())
	assert.Equal(t, nt, m.NumTriangles())
}

func TestSmoothShrinkageBounded(t *testing.T) {
	m := MarchingCubes(gridField{cubeGrid(t, 8)}, 0)
	m.Clean()
	pre := m.Volume()
	m.SmoothTaubin(15)
	post := m.Volume()
	assert.InEpsilon(t, pre, post, 0.15)
}

func TestSTLRoundTrip(t *testing.T) {
	m := MarchingCubes(gridField{cubeGrid(t, 4)}, 0)
	m.Clean()

	var buf bytes.Buffer
	require.NoError(t, m.WriteSTL(&buf))

	got, err := ReadSTL(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.NumTriangles(), got.NumTriangles())

	got.Clean()
	assert.Equal(t, m.NumVertices(), got.NumVertices())
	assert.InDelta(t, m.Volume(), got.Volume(), 1e-4)
}

func TestSTLRejectsWrongExtension(t *testing.T) {
	m := MarchingCubes(gridField{cubeGrid(t, 3)}, 0)
	err := m.SaveSTL(t.TempDir() + "/surface.obj")
	require.Error(t, err)
	_, err = LoadSTL("surface.ply")
	require.Error(t, err)
}

func TestComponentsSeparatesCubes(t *testing.T) {
	g, err := voxel.NewGrid(24, 0.5)
	require.NoError(t, err)
	for _, base := range [][3]int{{2, 2, 2}, {12, 12, 12}} {
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				for k := 0; k < 4; k++ {
					g.Set(base[0]+i, base[1]+j, base[2]+k)
				}
			}
		}
	}
	m := MarchingCubes(gridField{g}, 0)
	m.Clean()
	comps := m.Components()
	require.Len(t, comps, 2)
	assert.GreaterOrEqual(t, len(comps[0]), len(comps[1]))
}

func TestSegmentByFeatureAngle(t *testing.T) {
	// Two planar strips meeting at a right-angle crease.
	m := &Mesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0},
			{X: 0, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1},
		},
		Triangles: [][3]int{
			{0, 1, 2}, {1, 3, 2}, // horizontal
			{2, 3, 4}, {3, 5, 4}, // vertical
		},
	}
	patches := m.SegmentByFeatureAngle(40)
	require.Len(t, patches, 2)
	assert.Len(t, patches[0], 2)
	assert.Len(t, patches[1], 2)

	// A permissive angle keeps the strips together.
	patches = m.SegmentByFeatureAngle(120)
	assert.Len(t, patches, 1)
}

func TestSubmeshCompactsVertices(t *testing.T) {
	m := MarchingCubes(gridField{cubeGrid(t, 4)}, 0)
	m.Clean()
	patches := m.SegmentByFeatureAngle(40)
	require.NotEmpty(t, patches)
	sub := m.Submesh(patches[0])
	assert.Equal(t, len(patches[0]), sub.NumTriangles())
	for _, tri := range sub.Triangles {
		for _, v := range tri {
			assert.Less(t, v, sub.NumVertices())
		}
	}
}
