package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SDF3 is the interface to a 3d signed distance function object. The
// distance is negative inside the solid.
type SDF3 interface {
	Evaluate(p r3.Vec) float64
	Bounds() r3.Box
}

// cylinder is a capped cylinder centered on the Z axis.
type cylinder struct {
	radius  float64
	zBottom float64
	zTop    float64
	bb      r3.Box
}

// newCylinder returns a capped cylinder of the given radius spanning
// [zBottom, zTop] on the Z axis.
func newCylinder(radius, zBottom, zTop float64) (*cylinder, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("cylinder radius %g must be positive", radius)
	}
	if zTop <= zBottom {
		return nil, fmt.Errorf("cylinder z range [%g,%g] is empty", zBottom, zTop)
	}
	return &cylinder{
		radius:  radius,
		zBottom: zBottom,
		zTop:    zTop,
		bb: r3.Box{
			Min: r3.Vec{X: -radius, Y: -radius, Z: zBottom},
			Max: r3.Vec{X: radius, Y: radius, Z: zTop},
		},
	}, nil
}

// Evaluate returns the minimum distance to the cylinder.
func (s *cylinder) Evaluate(p r3.Vec) float64 {
	halfH := (s.zTop - s.zBottom) / 2
	zc := (s.zTop + s.zBottom) / 2
	dr := math.Hypot(p.X, p.Y) - s.radius
	dz := math.Abs(p.Z-zc) - halfH
	if dr > 0 && dz > 0 {
		return math.Hypot(dr, dz)
	}
	return math.Max(dr, dz)
}

// Bounds returns the bounding box of the cylinder.
func (s *cylinder) Bounds() r3.Box { return s.bb }

// diff3 is the boolean difference of two SDF3s.
type diff3 struct {
	s0, s1 SDF3
	bb     r3.Box
}

// difference3 returns the SDF3 removing s1 from s0.
func difference3(s0, s1 SDF3) *diff3 {
	if s0 == nil || s1 == nil {
		panic("nil argument to difference3")
	}
	return &diff3{s0: s0, s1: s1, bb: s0.Bounds()}
}

// Evaluate returns the minimum distance to the difference.
func (s *diff3) Evaluate(p r3.Vec) float64 {
	return math.Max(s.s0.Evaluate(p), -s.s1.Evaluate(p))
}

// Bounds returns the bounding box of the difference.
func (s *diff3) Bounds() r3.Box { return s.bb }

// sdfField samples an SDF3 on a regular lattice spanning a padded bounding
// box, for surface discretization by marching cubes. The padding guarantees
// the zero level set never touches the lattice boundary.
type sdfField struct {
	sdf        SDF3
	origin     r3.Vec
	step       float64
	nx, ny, nz int
}

// newSDFField builds a lattice with n samples along the longest box axis.
func newSDFField(s SDF3, n int) *sdfField {
	bb := s.Bounds()
	size := r3.Sub(bb.Max, bb.Min)
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	step := maxDim / float64(n-1)
	// Two cells of padding on each side.
	pad := 2 * step
	origin := r3.Sub(bb.Min, r3.Vec{X: pad, Y: pad, Z: pad})
	dims := func(span float64) int { return int(span/step) + 5 }
	return &sdfField{
		sdf:    s,
		origin: origin,
		step:   step,
		nx:     dims(size.X),
		ny:     dims(size.Y),
		nz:     dims(size.Z),
	}
}

func (f *sdfField) Dims() (int, int, int) { return f.nx, f.ny, f.nz }

func (f *sdfField) Pos(i, j, k int) r3.Vec {
	return r3.Add(f.origin, r3.Vec{
		X: float64(i) * f.step,
		Y: float64(j) * f.step,
		Z: float64(k) * f.step,
	})
}

func (f *sdfField) Value(i, j, k int) float64 {
	return f.sdf.Evaluate(f.Pos(i, j, k))
}
