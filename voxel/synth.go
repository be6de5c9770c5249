package voxel

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// ErrInfeasible reports parameter combinations that cannot geometrically
// admit a single sphere. It is returned before any sampling happens.
var ErrInfeasible = errors.New("voxel: cell size and separation too large for plug aspect")

// Params are the synthesis knobs. Every knob is explicit; the package holds
// no defaults of its own.
type Params struct {
	// AxialResolution is the number of voxels along the plug axis (Z).
	AxialResolution int `json:"axial_resolution"`
	// PlugAspect is the ratio of plug radius to plug height.
	PlugAspect float64 `json:"plug_aspect"`
	// NumCells is the number of spheres to attempt to place.
	NumCells int `json:"num_cells"`
	// MinRadius and MaxRadius bound the uniform radius draw.
	MinRadius float64 `json:"min_radius"`
	MaxRadius float64 `json:"max_radius"`
	// MinSeparation is the minimum surface-to-surface distance between
	// accepted spheres.
	MinSeparation float64 `json:"min_separation"`
	// MaxAttempts bounds the rejection sampling per sphere. Exhausting it
	// stops placement of all further spheres.
	MaxAttempts int `json:"max_attempts"`
}

// Placement is the diagnostic digest of a synthesis run. The individual
// sphere records do not survive synthesis; only these statistics do.
type Placement struct {
	Seed           int64   `json:"random_seed"`
	CellsPlaced    int     `json:"num_cells_placed"`
	MinRadius      float64 `json:"min_radius"`
	MeanRadius     float64 `json:"mean_radius"`
	MaxRadius      float64 `json:"max_radius"`
	MeanCellVolume float64 `json:"mean_cell_volume"`
	MeanPorosity   float64 `json:"mean_porosity"`
	StdPorosity    float64 `json:"std_porosity"`
}

// cell is an ephemeral placement record. It exists only while packing runs.
type cell struct {
	center r3.Vec
	radius float64
}

// Synthesize packs up to p.NumCells non-overlapping spheres into a cylinder
// of radius p.PlugAspect and height 1 and rasterizes them onto a fresh
// occupancy grid. Two calls with the same seed and parameters produce
// bit-identical grids.
func Synthesize(seed int64, p Params) (*Grid, Placement, error) {
	if p.PlugAspect-p.MaxRadius-p.MinSeparation <= 0 {
		return nil, Placement{}, fmt.Errorf("%w: max radius %g, separation %g, aspect %g",
			ErrInfeasible, p.MaxRadius, p.MinSeparation, p.PlugAspect)
	}
	g, err := NewGrid(p.AxialResolution, p.PlugAspect)
	if err != nil {
		return nil, Placement{}, err
	}
	rng := rand.New(rand.NewSource(seed))
	cells := placeCells(rng, p)
	for _, c := range cells {
		g.rasterize(c)
	}
	return g, placementDigest(seed, cells, g), nil
}

// placeCells runs the rejection sampler. A candidate center is drawn
// uniformly inside the reduced safety cylinder, then a radius, and the
// candidate is accepted only if it clears every previously accepted sphere
// by more than the sum of radii plus the minimum separation. The first
// sphere to exhaust its attempt budget terminates the whole batch; spheres
// already placed are kept.
func placeCells(rng *rand.Rand, p Params) []cell {
	var (
		cells = make([]cell, 0, p.NumCells)
		maxR  = p.PlugAspect - p.MaxRadius - p.MinSeparation
		minZ  = p.MaxRadius + p.MinSeparation
		maxZ  = 1 - p.MaxRadius - p.MinSeparation
	)
placement:
	for i := 0; i < p.NumCells; i++ {
		for attempts := 0; attempts < p.MaxAttempts; attempts++ {
			center := r3.Vec{
				X: uniform(rng, -maxR, maxR),
				Y: uniform(rng, -maxR, maxR),
				Z: uniform(rng, minZ, maxZ),
			}
			if math.Hypot(center.X, center.Y) > maxR {
				continue
			}
			radius := uniform(rng, p.MinRadius, p.MaxRadius)
			if overlapsAny(cells, center, radius, p.MinSeparation) {
				continue
			}
			cells = append(cells, cell{center: center, radius: radius})
			continue placement
		}
		// Attempt budget exhausted for this sphere: the packing is too
		// tight to continue, so stop placing entirely.
		break
	}
	return cells
}

func overlapsAny(cells []cell, center r3.Vec, radius, separation float64) bool {
	for _, c := range cells {
		if r3.Norm(r3.Sub(c.center, center)) <= c.radius+radius+separation {
			return true
		}
	}
	return false
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// rasterize sets every voxel whose lattice position lies inside the sphere.
// The operation is a logical OR: cumulative, idempotent and independent of
// sphere order.
func (g *Grid) rasterize(c cell) {
	dx := 2 * g.aspect / float64(g.nx-1)
	dz := 1 / float64(g.nz-1)
	i0, i1 := indexRange(c.center.X-c.radius, c.center.X+c.radius, -g.aspect, dx, g.nx)
	j0, j1 := indexRange(c.center.Y-c.radius, c.center.Y+c.radius, -g.aspect, dx, g.ny)
	k0, k1 := indexRange(c.center.Z-c.radius, c.center.Z+c.radius, 0, dz, g.nz)
	r2 := c.radius * c.radius
	for i := i0; i <= i1; i++ {
		for j := j0; j <= j1; j++ {
			for k := k0; k <= k1; k++ {
				d := r3.Sub(g.Pos(i, j, k), c.center)
				if r3.Norm2(d) <= r2 {
					g.Set(i, j, k)
				}
			}
		}
	}
}

// indexRange clips the lattice index window covering [lo, hi] on an axis
// with origin and spacing.
func indexRange(lo, hi, origin, spacing float64, n int) (int, int) {
	i0 := int(math.Floor((lo - origin) / spacing))
	i1 := int(math.Ceil((hi - origin) / spacing))
	if i0 < 0 {
		i0 = 0
	}
	if i1 > n-1 {
		i1 = n - 1
	}
	return i0, i1
}

func placementDigest(seed int64, cells []cell, g *Grid) Placement {
	d := Placement{Seed: seed, CellsPlaced: len(cells)}
	if len(cells) > 0 {
		radii := make([]float64, len(cells))
		volumes := make([]float64, len(cells))
		for i, c := range cells {
			radii[i] = c.radius
			volumes[i] = 4.0 / 3.0 * math.Pi * c.radius * c.radius * c.radius
		}
		d.MinRadius = floats.Min(radii)
		d.MaxRadius = floats.Max(radii)
		d.MeanRadius = stat.Mean(radii, nil)
		d.MeanCellVolume = stat.Mean(volumes, nil)
	}
	d.MeanPorosity = 1 - float64(g.Occupied())/float64(g.Len())
	sliceArea := float64(g.nx * g.ny)
	porosities := make([]float64, g.nz)
	for k := 0; k < g.nz; k++ {
		porosities[k] = 1 - float64(g.sliceOccupied(k))/sliceArea
	}
	d.StdPorosity = stat.PopStdDev(porosities, nil)
	return d
}
