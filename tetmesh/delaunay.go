package tetmesh

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Incremental Bowyer-Watson tetrahedralization. Points are inserted one at
// a time: tetrahedra whose circumsphere contains the new point are removed
// and the star of the cavity boundary is re-tetrahedralized around it.

type delTet struct {
	v      [4]int
	center r3.Vec
	r2     float64 // squared circumradius
	dead   bool
}

type faceKey [3]int

func newFaceKey(a, b, c int) faceKey {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return faceKey{a, b, c}
}

// tetrahedralize computes the Delaunay tetrahedra of the given points.
// Indices into the returned tetra refer to the input slice.
func tetrahedralize(points []r3.Vec) ([][4]int, error) {
	if len(points) < 4 {
		return nil, errors.New("tetrahedralization needs at least 4 points")
	}
	// Enclosing super-tetrahedron, appended after the real points.
	var bbMin, bbMax r3.Vec = points[0], points[0]
	for _, p := range points[1:] {
		bbMin = r3.Vec{X: math.Min(bbMin.X, p.X), Y: math.Min(bbMin.Y, p.Y), Z: math.Min(bbMin.Z, p.Z)}
		bbMax = r3.Vec{X: math.Max(bbMax.X, p.X), Y: math.Max(bbMax.Y, p.Y), Z: math.Max(bbMax.Z, p.Z)}
	}
	center := r3.Scale(0.5, r3.Add(bbMin, bbMax))
	size := r3.Norm(r3.Sub(bbMax, bbMin))
	if size == 0 {
		return nil, errors.New("tetrahedralization of coincident points")
	}
	s := 20 * size
	n := len(points)
	verts := append(append([]r3.Vec{}, points...),
		r3.Add(center, r3.Vec{X: 0, Y: 0, Z: s}),
		r3.Add(center, r3.Vec{X: s, Y: 0, Z: -s}),
		r3.Add(center, r3.Vec{X: -s, Y: s, Z: -s}),
		r3.Add(center, r3.Vec{X: -s, Y: -s, Z: -s}),
	)
	super, ok := makeTet(verts, [4]int{n, n + 1, n + 2, n + 3})
	if !ok {
		return nil, errors.New("degenerate super-tetrahedron")
	}
	tets := []delTet{super}

	for pi := 0; pi < n; pi++ {
		p := verts[pi]
		// Faces of the cavity: faces of dead tets seen exactly once.
		cavity := make(map[faceKey][3]int)
		anyBad := false
		for ti := range tets {
			t := &tets[ti]
			if t.dead {
				continue
			}
			if r3.Norm2(r3.Sub(p, t.center)) >= t.r2 {
				continue
			}
			t.dead = true
			anyBad = true
			for _, f := range tetFaces(t.v) {
				k := newFaceKey(f[0], f[1], f[2])
				if _, seen := cavity[k]; seen {
					delete(cavity, k)
				} else {
					cavity[k] = f
				}
			}
		}
		if !anyBad {
			return nil, errors.New("point outside all circumspheres, triangulation lost containment")
		}
		for _, f := range cavity {
			nt, ok := makeTet(verts, [4]int{f[0], f[1], f[2], pi})
			if !ok {
				// Nearly coplanar sliver against the cavity wall; the
				// neighboring cavity faces still close the star.
				continue
			}
			tets = append(tets, nt)
		}
	}

	var out [][4]int
	for _, t := range tets {
		if t.dead || t.v[0] >= n || t.v[1] >= n || t.v[2] >= n || t.v[3] >= n {
			continue
		}
		out = append(out, t.v)
	}
	if len(out) == 0 {
		return nil, errors.New("tetrahedralization produced no interior tetrahedra")
	}
	return out, nil
}

// tetFaces lists the four faces of a tetrahedron.
func tetFaces(v [4]int) [4][3]int {
	return [4][3]int{
		{v[0], v[1], v[2]},
		{v[0], v[1], v[3]},
		{v[0], v[2], v[3]},
		{v[1], v[2], v[3]},
	}
}

// makeTet computes the circumsphere of the tetrahedron. ok is false when
// the four points are nearly coplanar.
func makeTet(verts []r3.Vec, v [4]int) (delTet, bool) {
	a, b, c, d := verts[v[0]], verts[v[1]], verts[v[2]], verts[v[3]]
	// Solve 2(x-a)·(b-a) = |b|²-|a|² style system via Cramer's rule.
	ab := r3.Sub(b, a)
	ac := r3.Sub(c, a)
	ad := r3.Sub(d, a)
	det := r3.Dot(ab, r3.Cross(ac, ad))
	vol6 := math.Abs(det)
	scale := math.Max(r3.Norm(ab), math.Max(r3.Norm(ac), r3.Norm(ad)))
	if scale == 0 || vol6 < 1e-12*scale*scale*scale {
		return delTet{}, false
	}
	k1 := 0.5 * r3.Norm2(ab)
	k2 := 0.5 * r3.Norm2(ac)
	k3 := 0.5 * r3.Norm2(ad)
	// Cramer's rule on the 3x3 system M·x = k with rows ab, ac, ad.
	cxd := r3.Cross(ac, ad)
	dxb := r3.Cross(ad, ab)
	bxc := r3.Cross(ab, ac)
	rel := r3.Scale(1/det, r3.Add(
		r3.Scale(k1, cxd), r3.Add(r3.Scale(k2, dxb), r3.Scale(k3, bxc))))
	centerP := r3.Add(a, rel)
	return delTet{
		v:      v,
		center: centerP,
		r2:     r3.Norm2(rel),
	}, true
}
