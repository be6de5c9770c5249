// Package tetmesh builds the adaptive sizing field over a classified
// airspace and generates the volumetric tetrahedral mesh consumed by
// downstream simulation.
package tetmesh

import (
	"fmt"

	"github.com/leafpore/plugmesh/geom"
	"github.com/leafpore/plugmesh/trimesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// FieldOptions parameterize the distance-to-size threshold ramps.
type FieldOptions struct {
	// LcMin and LcMax bound the element size.
	LcMin float64 `json:"lc_min"`
	LcMax float64 `json:"lc_max"`
	// DistMin and DistMax bound the ramp: at or below DistMin the size is
	// the ramp floor, at or beyond DistMax it is LcMax.
	DistMin float64 `json:"dist_min"`
	DistMax float64 `json:"dist_max"`
	// InletFactor coarsens the floor of the inlet (top/bottom) ramp to
	// LcMin·InletFactor.
	InletFactor float64 `json:"inlet_factor"`
}

func (o FieldOptions) validate() error {
	if o.LcMin <= 0 || o.LcMax < o.LcMin {
		return fmt.Errorf("element size bounds [%g,%g] invalid", o.LcMin, o.LcMax)
	}
	if o.DistMin < 0 || o.DistMax <= o.DistMin {
		return fmt.Errorf("distance ramp bounds [%g,%g] invalid", o.DistMin, o.DistMax)
	}
	if o.InletFactor < 1 {
		return fmt.Errorf("inlet factor %g must be at least 1", o.InletFactor)
	}
	return nil
}

// SizingField is the background element-size field: the pointwise minimum
// of the tissue ramp (distance to mesophyll surfaces) and the inlet ramp
// (distance to the top and bottom caps), so the tighter constraint governs
// everywhere. Write-once configuration handed to Generate.
type SizingField struct {
	tissue *geom.SurfaceDistance
	inlet  *geom.SurfaceDistance
	opts   FieldOptions
}

// Configure builds the two distance fields from the classified surfaces.
func Configure(c *geom.Classification, opts FieldOptions) (*SizingField, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("configure sizing field: %w", err)
	}
	tissueMeshes := make([]*trimesh.Mesh, 0, len(c.Mesophyll))
	for _, surf := range c.Mesophyll {
		tissueMeshes = append(tissueMeshes, surf.Mesh)
	}
	// The curved wall stands in for tissue when no cavity surface exists.
	if len(tissueMeshes) == 0 {
		tissueMeshes = append(tissueMeshes, c.Curved.Mesh)
	}
	tissue, err := geom.NewSurfaceDistance(tissueMeshes...)
	if err != nil {
		return nil, fmt.Errorf("configure sizing field: tissue distance: %w", err)
	}
	inlet, err := geom.NewSurfaceDistance(c.Top.Mesh, c.Bottom.Mesh)
	if err != nil {
		return nil, fmt.Errorf("configure sizing field: inlet distance: %w", err)
	}
	return &SizingField{tissue: tissue, inlet: inlet, opts: opts}, nil
}

// Lc returns the target element size at p.
func (f *SizingField) Lc(p r3.Vec) float64 {
	o := f.opts
	tissue := ramp(f.tissue.Distance(p), o.DistMin, o.DistMax, o.LcMin, o.LcMax)
	inlet := ramp(f.inlet.Distance(p), o.DistMin, o.DistMax, o.LcMin*o.InletFactor, o.LcMax)
	if tissue < inlet {
		return tissue
	}
	return inlet
}

// ramp maps a surface distance to an element size: floor at or below
// distMin, lcMax at or beyond distMax, linear between.
func ramp(d, distMin, distMax, floor, lcMax float64) float64 {
	if floor > lcMax {
		floor = lcMax
	}
	switch {
	case d <= distMin:
		return floor
	case d >= distMax:
		return lcMax
	}
	t := (d - distMin) / (distMax - distMin)
	return floor + t*(lcMax-floor)
}
