package geom

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/leafpore/plugmesh/trimesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const testResolution = 48

// sphere is a test-only primitive used to punch cavities into solids.
type sphere struct {
	center r3.Vec
	radius float64
}

func (s sphere) Evaluate(p r3.Vec) float64 {
	return r3.Norm(r3.Sub(p, s.center)) - s.radius
}

func (s sphere) Bounds() r3.Box {
	d := r3.Vec{X: s.radius, Y: s.radius, Z: s.radius}
	return r3.Box{Min: r3.Sub(s.center, d), Max: r3.Add(s.center, d)}
}

// discretize renders an implicit solid to a cleaned boundary mesh.
func discretize(t *testing.T, s SDF3) *trimesh.Mesh {
	t.Helper()
	m := trimesh.MarchingCubes(newSDFField(s, testResolution), 0)
	m.Clean()
	require.False(t, m.IsEmpty())
	require.True(t, m.IsWatertight())
	return m
}

// plugSolid is a cylindrical tissue plug, optionally with an internal
// spherical cavity.
func plugSolid(t *testing.T, withCavity bool) *trimesh.Mesh {
	t.Helper()
	cyl, err := newCylinder(0.3, -0.5, 0.5)
	require.NoError(t, err)
	var s SDF3 = cyl
	if withCavity {
		s = difference3(cyl, sphere{radius: 0.1})
	}
	return discretize(t, s)
}

func importPlug(t *testing.T, s *Session, withCavity bool) Entity {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solid.stl")
	require.NoError(t, plugSolid(t, withCavity).SaveSTL(path))
	ent, err := ImportSolid(s, path)
	require.NoError(t, err)
	return ent
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(testResolution, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

var carveOpts = CarveOptions{BoundaryMargin: 0.2, CavityMargin: 0.1}

func TestImportSolidRejectsWrongExtension(t *testing.T) {
	s := newTestSession(t)
	_, err := ImportSolid(s, "solid.step")
	require.Error(t, err)
}

func TestImportSolidMissingFile(t *testing.T) {
	s := newTestSession(t)
	_, err := ImportSolid(s, filepath.Join(t.TempDir(), "absent.stl"))
	require.Error(t, err)
}

func TestBuildAirspaceAnnulus(t *testing.T) {
	s := newTestSession(t)
	solid := importPlug(t, s, false)

	a, err := BuildAirspace(s, solid, carveOpts)
	require.NoError(t, err)
	require.NotNil(t, a.Boundary)
	assert.True(t, a.Boundary.IsWatertight())
	assert.True(t, a.Converged, "normalization residual %g after %d iterations", a.Residual, a.Iterations)
	assert.LessOrEqual(t, a.Iterations, normalizeMaxIterations)

	// Canonical frame: footprint centered, height spanning [0,1].
	bb := a.Boundary.Bounds()
	assert.InDelta(t, 1.0, bb.Size().Z, 1e-6)
	assert.InDelta(t, 0.0, bb.Min.Z, 1e-6)
	assert.InDelta(t, 0.0, bb.Center().X, 1e-6)
	assert.InDelta(t, 0.0, bb.Center().Y, 1e-6)
}

func TestCarveExtents(t *testing.T) {
	for _, tc := range []struct {
		name        string
		bbH         float64
		opts        CarveOptions
		bottom, top float64
	}{
		{"no margins", 2, CarveOptions{}, -1, 1},
		{"cavity below only", 1, CarveOptions{CavityMargin: 0.3}, -0.8, 0.5},
		{"boundary above only", 1, CarveOptions{BoundaryMargin: 0.2}, -0.5, 0.7},
		{"both", 1, CarveOptions{BoundaryMargin: 0.05, CavityMargin: 0.15}, -0.65, 0.55},
	} {
		t.Run(tc.name, func(t *testing.T) {
			zBottom, zTop := carveExtents(tc.bbH, tc.opts)
			assert.InDelta(t, tc.bottom, zBottom, 1e-12)
			assert.InDelta(t, tc.top, zTop, 1e-12)
		})
	}
}

func TestBuildAirspaceAsymmetricPlenums(t *testing.T) {
	s := newTestSession(t)
	solid := importPlug(t, s, false)

	a, err := BuildAirspace(s, solid, CarveOptions{BoundaryMargin: 0.05, CavityMargin: 0.3})
	require.NoError(t, err)

	c, err := ClassifySurfaces(s, a, 0.05)
	require.NoError(t, err)
	require.NotEmpty(t, c.Mesophyll)

	// The cavity margin deepens the carve below the plug only, so after
	// normalization the tissue walls sit above mid-height: the plug spans
	// [0.3, 1.3]/1.35 of the cylinder, centered near 0.593.
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, surf := range c.Mesophyll {
		bb := surf.Mesh.Bounds()
		lo = math.Min(lo, bb.Min.Z)
		hi = math.Max(hi, bb.Max.Z)
	}
	center := (lo + hi) / 2
	assert.InDelta(t, 0.593, center, 0.03)
	assert.Greater(t, center, 0.55)
}

func TestBuildAirspaceKeepsLargestVolume(t *testing.T) {
	s := newTestSession(t)
	solid := importPlug(t, s, true)

	a, err := BuildAirspace(s, solid, carveOpts)
	require.NoError(t, err)

	// The spherical cavity forms a second disconnected volume which must
	// have been discarded: the kept boundary is one shell.
	assert.Len(t, a.Boundary.Components(), 1)
	for _, e := range s.Entities() {
		if e.Dim == DimSolid && e != solid {
			assert.Equal(t, a.Volume, e, "discarded volume still registered")
		}
	}
}

func TestClassifySurfacesAnnulus(t *testing.T) {
	s := newTestSession(t)
	a, err := BuildAirspace(s, importPlug(t, s, false), carveOpts)
	require.NoError(t, err)

	c, err := ClassifySurfaces(s, a, 0.05)
	require.NoError(t, err)
	require.NotNil(t, c.Top.Mesh)
	require.NotNil(t, c.Bottom.Mesh)
	require.NotNil(t, c.Curved.Mesh)

	assert.InDelta(t, 1.0, c.Top.Mesh.Centroid().Z, 0.05)
	assert.InDelta(t, 0.0, c.Bottom.Mesh.Centroid().Z, 0.05)

	// The inner tissue wall must not be mistaken for the curved boundary.
	assert.NotEmpty(t, c.Mesophyll)
	for _, surf := range c.Mesophyll {
		assert.Equal(t, RoleMesophyll, surf.Role)
	}
}

func TestClassifySurfacesAmbiguousCurved(t *testing.T) {
	s := newTestSession(t)
	a, err := BuildAirspace(s, importPlug(t, s, false), carveOpts)
	require.NoError(t, err)

	// A tolerance too tight for the discretized lateral wall leaves zero
	// curved candidates, which is a hard invariant violation.
	_, err = ClassifySurfaces(s, a, 1e-9)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKernel)
}

func TestMeshSDFSign(t *testing.T) {
	m := plugSolid(t, false)
	sd, err := meshSDF(m)
	require.NoError(t, err)

	assert.Negative(t, sd.Evaluate(r3.Vec{}))
	assert.Positive(t, sd.Evaluate(r3.Vec{X: 1, Y: 1, Z: 1}))
	assert.Positive(t, sd.Evaluate(r3.Vec{Z: 0.8}))

	// Distance magnitude roughly matches the analytic cylinder.
	d := sd.Evaluate(r3.Vec{X: 0.6})
	assert.InDelta(t, 0.3, d, 0.05)
}

func TestCylinderEvaluate(t *testing.T) {
	cyl, err := newCylinder(0.5, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, cyl.Evaluate(r3.Vec{Z: 0.5}), 1e-12)
	assert.InDelta(t, 0.5, cyl.Evaluate(r3.Vec{X: 1, Z: 0.5}), 1e-12)
	assert.InDelta(t, 0.5, cyl.Evaluate(r3.Vec{Z: 1.5}), 1e-12)
	assert.InDelta(t, math.Sqrt2*0.5, cyl.Evaluate(r3.Vec{X: 1, Z: 1.5}), 1e-12)
}
