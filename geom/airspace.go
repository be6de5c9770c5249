package geom

import (
	"fmt"
	"math"

	"github.com/leafpore/plugmesh/trimesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Affine normalization bounds. The fit loop re-measures after every
// transform because the carved solid is not perfectly axis aligned, so the
// target frame is approached as a fixed point.
const (
	normalizeMaxIterations = 5
	normalizeHeightTol     = 1e-6
)

// CarveOptions parameterize BuildAirspace.
type CarveOptions struct {
	// BoundaryMargin inflates the containing cylinder radius relative to
	// the widest planar extent of the solid and extends it above the top
	// cap by the same fraction of the solid height.
	BoundaryMargin float64 `json:"boundary_margin"`
	// CavityMargin extends the cylinder below the bottom cap so
	// substomatal cavities opening through it stay inside the carved
	// volume.
	CavityMargin float64 `json:"cavity_margin"`
}

// Airspace is the carved volume between the containing cylinder and the
// imported solid, normalized to the canonical frame: X/Y footprint
// centered at the origin, height spanning [0,1].
type Airspace struct {
	Volume   Entity
	Boundary *trimesh.Mesh

	// Normalization convergence, surfaced rather than silently assumed.
	Iterations int
	Residual   float64
	Converged  bool
}

// ImportSolid reads a binary STL file into the session as a solid entity.
// The extension must be .stl; a missing or malformed file fails before any
// geometry is touched.
func ImportSolid(s *Session, path string) (Entity, error) {
	if s.closed {
		return Entity{}, ErrClosed
	}
	m, err := trimesh.LoadSTL(path)
	if err != nil {
		return Entity{}, fmt.Errorf("import solid: %w", err)
	}
	m.Clean()
	if m.IsEmpty() {
		return Entity{}, fmt.Errorf("import solid %s: no valid triangles", path)
	}
	sd, err := meshSDF(m)
	if err != nil {
		return Entity{}, fmt.Errorf("import solid %s: %w", path, err)
	}
	e := s.register(DimSolid, &record{mesh: m, sdf: sd})
	s.logger.Printf("geom: imported solid %v from %s (%d triangles)", e, path, m.NumTriangles())
	return e, nil
}

// BuildAirspace recenters the solid, subtracts it from a containing
// cylinder, keeps the largest-mass resulting volume and normalizes it to
// the canonical frame. Superseded entities, including the discarded
// disconnected volumes, are removed from the session before returning.
func BuildAirspace(s *Session, solidEnt Entity, opts CarveOptions) (*Airspace, error) {
	rec, err := s.lookup(solidEnt)
	if err != nil {
		return nil, err
	}
	if solidEnt.Dim != DimSolid {
		return nil, fmt.Errorf("build airspace: entity %v is not a solid", solidEnt)
	}

	// Recenter the solid at the origin via its bounding box.
	solid := rec.mesh.Clone()
	bb := solid.Bounds()
	center := bb.Center()
	solid.Transform(func(p r3.Vec) r3.Vec { return r3.Sub(p, center) })
	sd, err := meshSDF(solid)
	if err != nil {
		return nil, fmt.Errorf("build airspace: %w", err)
	}

	// Containing cylinder from the widest planar node distance, extended
	// below the bottom cap by the cavity margin and above the top cap by
	// the boundary margin.
	maxPlanar := 0.0
	for _, v := range solid.Vertices {
		maxPlanar = math.Max(maxPlanar, math.Hypot(v.X, v.Y))
	}
	if maxPlanar == 0 {
		return nil, fmt.Errorf("build airspace: %w: solid has no planar extent", ErrKernel)
	}
	radius := (1 + opts.BoundaryMargin) * maxPlanar
	zBottom, zTop := carveExtents(solid.Bounds().Size().Z, opts)
	cyl, err := newCylinder(radius, zBottom, zTop)
	if err != nil {
		return nil, fmt.Errorf("build airspace: %w", err)
	}

	// Boolean difference, then discretize the cut at session resolution.
	cut := difference3(cyl, sd)
	boundary := trimesh.MarchingCubes(newSDFField(cut, s.resolution), 0)
	boundary.Clean()
	if boundary.IsEmpty() {
		return nil, fmt.Errorf("build airspace: %w: boolean difference produced no surface", ErrKernel)
	}

	// The cut may split into disconnected volumes (isolated cavities).
	// Register every volume, keep the one of largest mass and remove the
	// rest from the live scene.
	kept, err := keepLargestVolume(s, boundary)
	if err != nil {
		return nil, err
	}

	a := &Airspace{Volume: kept}
	mesh, _ := s.Mesh(kept)
	a.Boundary = mesh
	normalize(a, s)
	if !a.Converged {
		s.logger.Printf("geom: normalization did not converge after %d iterations (residual %.3g)",
			a.Iterations, a.Residual)
	}
	return a, nil
}

// carveExtents returns the Z span of the containing cylinder for a solid
// of height bbH centered at the origin. The two margins act on opposite
// caps, so the span is asymmetric whenever they differ.
func carveExtents(bbH float64, opts CarveOptions) (zBottom, zTop float64) {
	zBottom = -bbH * (0.5 + opts.CavityMargin)
	zTop = bbH * (0.5 + opts.BoundaryMargin)
	return zBottom, zTop
}

// keepLargestVolume registers each closed shell of the cut boundary as a
// candidate volume, removes all but the one enclosing the most mass and
// returns the survivor.
func keepLargestVolume(s *Session, boundary *trimesh.Mesh) (Entity, error) {
	comps := boundary.Components()
	if len(comps) == 0 {
		return Entity{}, fmt.Errorf("keep largest volume: %w: empty cut boundary", ErrKernel)
	}
	best := Entity{}
	bestVol := -1.0
	for _, comp := range comps {
		shell := boundary.Submesh(comp)
		e := s.register(DimSolid, &record{mesh: shell})
		vol := shell.Volume()
		s.logger.Printf("geom: cut volume %v: %d triangles, volume %.6g", e, shell.NumTriangles(), vol)
		if vol > bestVol {
			if best != (Entity{}) {
				if err := s.Remove(best); err != nil {
					return Entity{}, err
				}
			}
			best, bestVol = e, vol
		} else if err := s.Remove(e); err != nil {
			return Entity{}, err
		}
	}
	return best, nil
}

// normalize iterates the affine fit toward the canonical frame, recording
// iterations used and the final relative height residual.
func normalize(a *Airspace, s *Session) {
	for a.Iterations = 0; a.Iterations < normalizeMaxIterations; a.Iterations++ {
		bb := a.Boundary.Bounds()
		size := bb.Size()
		h := size.Z
		a.Residual = math.Abs(h - 1)
		if a.Residual < normalizeHeightTol {
			a.Converged = true
			return
		}
		center := bb.Center()
		scale := 1 / h
		zMin := bb.Min.Z
		a.Boundary.Transform(func(p r3.Vec) r3.Vec {
			return r3.Vec{
				X: (p.X - center.X) * scale,
				Y: (p.Y - center.Y) * scale,
				Z: (p.Z - zMin) * scale,
			}
		})
	}
	// Bounded loop exhausted; measure the residual one last time.
	a.Residual = math.Abs(a.Boundary.Bounds().Size().Z - 1)
	a.Converged = a.Residual < normalizeHeightTol
	s.logger.Printf("geom: normalization used all %d iterations", normalizeMaxIterations)
}
