// Package voxel synthesizes binary occupancy grids of porous cylindrical
// plugs by constrained random sphere packing.
package voxel

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Grid is a dense 3D binary occupancy lattice. The X and Y axes span the
// planar extent [-aspect, aspect] of the plug and Z spans [0, 1]. A value of
// 1 marks tissue, 0 marks airspace. The grid is never mutated after
// synthesis completes.
type Grid struct {
	data   []uint8
	nx, ny int
	nz     int
	aspect float64
}

// NewGrid returns a zeroed grid for a plug of the given aspect ratio.
// The planar resolution is derived from the axial resolution as
// round(2*aspect*axial).
func NewGrid(axialResolution int, aspect float64) (*Grid, error) {
	if axialResolution < 2 {
		return nil, fmt.Errorf("axial resolution %d too small", axialResolution)
	}
	if aspect <= 0 {
		return nil, fmt.Errorf("plug aspect %g must be positive", aspect)
	}
	planar := planarResolution(axialResolution, aspect)
	return &Grid{
		data:   make([]uint8, planar*planar*axialResolution),
		nx:     planar,
		ny:     planar,
		nz:     axialResolution,
		aspect: aspect,
	}, nil
}

func planarResolution(axial int, aspect float64) int {
	return int(2*aspect*float64(axial) + 0.5)
}

// Dims returns the grid dimensions (planar, planar, axial).
func (g *Grid) Dims() (nx, ny, nz int) { return g.nx, g.ny, g.nz }

// Aspect returns the plug radius in normalized units (height 1).
func (g *Grid) Aspect() float64 { return g.aspect }

// At returns the occupancy value at lattice index (i, j, k).
func (g *Grid) At(i, j, k int) uint8 {
	return g.data[g.index(i, j, k)]
}

// Set marks the voxel at lattice index (i, j, k) occupied. Rasterization
// only ever sets voxels, never clears them.
func (g *Grid) Set(i, j, k int) {
	g.data[g.index(i, j, k)] = 1
}

func (g *Grid) index(i, j, k int) int {
	if i < 0 || j < 0 || k < 0 || i >= g.nx || j >= g.ny || k >= g.nz {
		panic("voxel: lattice index out of range")
	}
	return (i*g.ny+j)*g.nz + k
}

// Pos returns the physical lattice position of index (i, j, k).
// X and Y are linearly spaced over [-aspect, aspect] and Z over [0, 1],
// endpoints included.
func (g *Grid) Pos(i, j, k int) r3.Vec {
	return r3.Vec{
		X: -g.aspect + 2*g.aspect*float64(i)/float64(g.nx-1),
		Y: -g.aspect + 2*g.aspect*float64(j)/float64(g.ny-1),
		Z: float64(k) / float64(g.nz-1),
	}
}

// Occupied returns the number of voxels set to 1.
func (g *Grid) Occupied() int {
	n := 0
	for _, v := range g.data {
		n += int(v)
	}
	return n
}

// Len returns the total voxel count.
func (g *Grid) Len() int { return len(g.data) }

// Raw exposes the underlying occupancy bytes in (X, Y, Z) C order.
// The caller must treat the slice as read-only.
func (g *Grid) Raw() []uint8 { return g.data }

// sliceOccupied counts set voxels in the Z=k slice.
func (g *Grid) sliceOccupied(k int) int {
	n := 0
	for i := 0; i < g.nx; i++ {
		row := (i*g.ny)*g.nz + k
		for j := 0; j < g.ny; j++ {
			n += int(g.data[row])
			row += g.nz
		}
	}
	return n
}
