package geom

import (
	"fmt"
	"math"

	"github.com/leafpore/plugmesh/trimesh"
)

// Feature angle separating the airspace boundary into candidate surfaces.
// The cylinder caps meet the lateral wall at right angles, well above this
// threshold, while cavity walls vary smoothly below it.
const segmentFeatureAngle = 40.0

// Role is the semantic classification of a boundary surface.
type Role string

const (
	RoleTop       Role = "top"
	RoleBottom    Role = "bottom"
	RoleCurved    Role = "curved"
	RoleMesophyll Role = "mesophyll"
)

// Surface is one classified boundary patch of the airspace.
type Surface struct {
	Entity Entity
	Role   Role
	Mesh   *trimesh.Mesh
	Area   float64
}

// Classification maps semantic roles to the airspace boundary surfaces.
// Exactly one top, one bottom and one curved surface exist; everything
// else is mesophyll interface.
type Classification struct {
	Top       Surface
	Bottom    Surface
	Curved    Surface
	Mesophyll []Surface
}

// Surfaces returns all classified surfaces, caps and curved wall first.
func (c *Classification) Surfaces() []Surface {
	out := []Surface{c.Top, c.Bottom, c.Curved}
	return append(out, c.Mesophyll...)
}

// ClassifySurfaces segments the normalized airspace boundary and assigns
// roles: center of mass at Z ≈ 1 is the top cap, Z ≈ 0 the bottom cap, a
// patch whose area matches the lateral area of the elliptic cylinder
// circumscribing the airspace is the curved wall, and every remaining
// patch is mesophyll interface. Zero or multiple curved candidates, or a
// missing cap, violate a hard invariant and abort the sample.
func ClassifySurfaces(s *Session, a *Airspace, tol float64) (*Classification, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if a.Boundary == nil || a.Boundary.IsEmpty() {
		return nil, fmt.Errorf("classify surfaces: %w: airspace has no boundary", ErrKernel)
	}
	lateral := lateralEllipseArea(a.Boundary)

	patches := a.Boundary.SegmentByFeatureAngle(segmentFeatureAngle)
	var (
		c      Classification
		curves int
	)
	for _, patch := range patches {
		sub := a.Boundary.Submesh(patch)
		surf := Surface{
			Entity: s.register(DimSurface, &record{mesh: sub}),
			Mesh:   sub,
			Area:   sub.Area(),
		}
		com := sub.Centroid()
		switch {
		case math.Abs(com.Z-1) <= tol:
			surf.Role = RoleTop
			c.Top = takeLargest(&c, c.Top, surf)
		case math.Abs(com.Z) <= tol:
			surf.Role = RoleBottom
			c.Bottom = takeLargest(&c, c.Bottom, surf)
		case relErr(surf.Area, lateral) <= tol:
			surf.Role = RoleCurved
			c.Curved = surf
			curves++
		default:
			surf.Role = RoleMesophyll
			c.Mesophyll = append(c.Mesophyll, surf)
		}
	}
	if c.Top.Mesh == nil || c.Bottom.Mesh == nil {
		return nil, fmt.Errorf("classify surfaces: %w: missing cap surface (top found=%t bottom found=%t)",
			ErrKernel, c.Top.Mesh != nil, c.Bottom.Mesh != nil)
	}
	if curves != 1 {
		return nil, fmt.Errorf("classify surfaces: %w: %d surfaces match the curved lateral area, need exactly one",
			ErrKernel, curves)
	}
	s.logger.Printf("geom: classified %d surfaces (%d mesophyll)", 3+len(c.Mesophyll), len(c.Mesophyll))
	return &c, nil
}

// takeLargest resolves competing cap candidates: discretization can chip
// small rim patches off a cap, so the largest candidate wins the role and
// the rest join the mesophyll set.
func takeLargest(c *Classification, have, candidate Surface) Surface {
	if have.Mesh == nil {
		return candidate
	}
	if candidate.Area > have.Area {
		have.Role = RoleMesophyll
		c.Mesophyll = append(c.Mesophyll, have)
		return candidate
	}
	candidate.Role = RoleMesophyll
	c.Mesophyll = append(c.Mesophyll, candidate)
	return have
}

// lateralEllipseArea is the lateral surface area of the elliptic cylinder
// bounding the airspace: Ramanujan's circumference approximation of the
// footprint ellipse times the height.
func lateralEllipseArea(boundary *trimesh.Mesh) float64 {
	bb := boundary.Bounds()
	size := bb.Size()
	ra := size.X / 2
	rb := size.Y / 2
	perimeter := math.Pi * (3*(ra+rb) - math.Sqrt((3*ra+rb)*(ra+3*rb)))
	return perimeter * size.Z
}

func relErr(got, want float64) float64 {
	if want == 0 {
		return math.Inf(1)
	}
	return math.Abs(got-want) / want
}
