package voxel

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var referenceParams = Params{
	AxialResolution: 64,
	PlugAspect:      0.30,
	NumCells:        100,
	MinRadius:       0.05,
	MaxRadius:       0.15,
	MinSeparation:   0.01,
	MaxAttempts:     1000,
}

func TestSampleSeed(t *testing.T) {
	seed, err := SampleSeed(123456, "00001")
	require.NoError(t, err)
	assert.Equal(t, int64(123456+17*31*53), seed)

	seed2, err := SampleSeed(123456, "00002")
	require.NoError(t, err)
	assert.NotEqual(t, seed, seed2)

	_, err = SampleSeed(123456, "12ab3")
	assert.Error(t, err)
}

func TestValidateSampleID(t *testing.T) {
	assert.NoError(t, ValidateSampleID("00042", 5))
	assert.Error(t, ValidateSampleID("0042", 5), "too short")
	assert.Error(t, ValidateSampleID("000042", 5), "too long")
	assert.Error(t, ValidateSampleID("00x42", 5), "not numeric")
}

func TestSynthesizeReferenceShape(t *testing.T) {
	seed, err := SampleSeed(123456, "00001")
	require.NoError(t, err)
	g, meta, err := Synthesize(seed, referenceParams)
	require.NoError(t, err)

	nx, ny, nz := g.Dims()
	assert.Equal(t, 38, nx, "planar resolution = round(2*0.30*64)")
	assert.Equal(t, 38, ny)
	assert.Equal(t, 64, nz)
	assert.Equal(t, nx*ny*nz, g.Len())
	assert.Greater(t, meta.CellsPlaced, 0)
	assert.Greater(t, g.Occupied(), 0)
	for _, v := range g.Raw() {
		if v > 1 {
			t.Fatalf("occupancy value %d outside {0,1}", v)
		}
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	const seed = 987654
	g1, m1, err := Synthesize(seed, referenceParams)
	require.NoError(t, err)
	g2, m2, err := Synthesize(seed, referenceParams)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(g1.Raw(), g2.Raw()), "grids must be bit-identical")
	assert.Equal(t, m1, m2)

	g3, _, err := Synthesize(seed+1, referenceParams)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(g1.Raw(), g3.Raw()), "different seeds should differ")
}

func TestSynthesizeInfeasible(t *testing.T) {
	p := referenceParams
	p.MaxRadius = 0.30 // aspect - maxRadius - separation <= 0
	_, _, err := Synthesize(1, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestPlacementNoOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cells := placeCells(rng, referenceParams)
	require.NotEmpty(t, cells)
	for i := range cells {
		for j := i + 1; j < len(cells); j++ {
			dist := r3.Norm(r3.Sub(cells[i].center, cells[j].center))
			lower := cells[i].radius + cells[j].radius + referenceParams.MinSeparation
			assert.Greater(t, dist, lower, "cells %d and %d overlap", i, j)
		}
	}
}

func TestPlacementInsideSafetyCylinder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cells := placeCells(rng, referenceParams)
	maxR := referenceParams.PlugAspect - referenceParams.MaxRadius - referenceParams.MinSeparation
	minZ := referenceParams.MaxRadius + referenceParams.MinSeparation
	for i, c := range cells {
		planar := r3.Norm(r3.Vec{X: c.center.X, Y: c.center.Y})
		assert.LessOrEqual(t, planar, maxR, "cell %d radially outside safety margin", i)
		assert.GreaterOrEqual(t, c.center.Z, minZ, "cell %d below axial margin", i)
		assert.LessOrEqual(t, c.center.Z, 1-minZ, "cell %d above axial margin", i)
		assert.GreaterOrEqual(t, c.radius, referenceParams.MinRadius)
		assert.LessOrEqual(t, c.radius, referenceParams.MaxRadius)
	}
}

func TestRasterizeMonotone(t *testing.T) {
	g, err := NewGrid(32, 0.5)
	require.NoError(t, err)
	prev := 0
	spheres := []cell{
		{center: r3.Vec{X: 0, Y: 0, Z: 0.3}, radius: 0.15},
		{center: r3.Vec{X: 0.2, Y: 0, Z: 0.5}, radius: 0.1},
		{center: r3.Vec{X: 0, Y: 0, Z: 0.3}, radius: 0.15}, // repeat: idempotent
	}
	counts := make([]int, 0, len(spheres))
	for _, c := range spheres {
		g.rasterize(c)
		occ := g.Occupied()
		assert.GreaterOrEqual(t, occ, prev, "logical OR must never clear a voxel")
		prev = occ
		counts = append(counts, occ)
	}
	assert.Equal(t, counts[1], counts[2], "re-rasterizing a sphere adds nothing")
}

func TestPlacementDigest(t *testing.T) {
	g, meta, err := Synthesize(2024, referenceParams)
	require.NoError(t, err)
	assert.InDelta(t, 1-float64(g.Occupied())/float64(g.Len()), meta.MeanPorosity, 1e-12)
	assert.GreaterOrEqual(t, meta.MinRadius, referenceParams.MinRadius)
	assert.LessOrEqual(t, meta.MaxRadius, referenceParams.MaxRadius)
	assert.GreaterOrEqual(t, meta.MeanRadius, meta.MinRadius)
	assert.LessOrEqual(t, meta.MeanRadius, meta.MaxRadius)
	assert.Greater(t, meta.MeanCellVolume, 0.0)
	assert.GreaterOrEqual(t, meta.StdPorosity, 0.0)
}

func TestNPYRoundTrip(t *testing.T) {
	g, _, err := Synthesize(555, referenceParams)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, g.WriteNPY(&buf))

	// Spot-check the fixed header prefix numpy emits for this dtype.
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x93NUMPY\x01\x00")))
	assert.Contains(t, buf.String()[:128], "'descr': '|u1'")

	got, err := ReadNPY(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	nx, ny, nz := got.Dims()
	wx, wy, wz := g.Dims()
	assert.Equal(t, [3]int{wx, wy, wz}, [3]int{nx, ny, nz})
	assert.True(t, bytes.Equal(g.Raw(), got.Raw()))
}

func TestLoadRejectsWrongExtension(t *testing.T) {
	_, err := Load("voxels.bin")
	assert.Error(t, err)
}
