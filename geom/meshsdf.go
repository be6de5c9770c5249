package geom

import (
	"errors"
	"math"

	"github.com/leafpore/plugmesh/internal/d3"
	"github.com/leafpore/plugmesh/trimesh"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Signed distance field of a watertight triangle mesh. The sign is decided
// with angle-weighted pseudo-normals at vertices and edges so queries near
// creases classify correctly; nearest triangles are found through a k-d
// tree over triangle centroids.

// meshSDF turns a cleaned, watertight mesh into an SDF3. The mesh must
// already share vertices between triangles.
func meshSDF(m *trimesh.Mesh) (SDF3, error) {
	if m.IsEmpty() {
		return nil, errors.New("cannot build distance field of empty mesh")
	}
	solid, err := newSolid(m)
	if err != nil {
		return nil, err
	}
	tree := kdtree.New(solid, true)
	return &meshField{tree: *tree, solid: solid}, nil
}

type meshField struct {
	tree  kdtree.Tree
	solid *solid
}

func (s *meshField) Evaluate(q r3.Vec) float64 {
	nearest, dist2 := s.tree.Nearest(&solidTriangle{C: q})
	tri := nearest.(*solidTriangle)
	return tri.copySign(q, math.Sqrt(dist2))
}

func (s *meshField) Bounds() r3.Box {
	bb := s.solid.bb
	return r3.Box{Min: bb.Min, Max: bb.Max}
}

// solid stores the triangle adjacency and pseudo-normal data backing a
// mesh distance field.
type solid struct {
	bb        r3.Box
	vertices  []pseudoVertex
	triangles []solidTriangle
	// edge pseudo normals keyed by vertex index pair, lower index first.
	pseudoEdgeN map[[2]int]r3.Vec
}

type pseudoVertex struct {
	V r3.Vec
	// N is the pseudo normal weighted by the opening angle each incident
	// triangle forms at the vertex.
	N r3.Vec
}

func newSolid(m *trimesh.Mesh) (*solid, error) {
	bb := m.Bounds()
	s := &solid{
		bb:          r3.Box{Min: bb.Min, Max: bb.Max},
		triangles:   make([]solidTriangle, m.NumTriangles()),
		vertices:    make([]pseudoVertex, m.NumVertices()),
		pseudoEdgeN: make(map[[2]int]r3.Vec),
	}
	for i, v := range m.Vertices {
		s.vertices[i].V = v
	}
	for i, idx := range m.Triangles {
		tri := m.Triangle(i)
		e1, e2 := r3.Sub(tri[1], tri[0]), r3.Sub(tri[2], tri[0])
		n := r3.Cross(e1, e2)
		if r3.Norm(n) == 0 {
			return nil, errors.New("degenerate triangle in solid mesh")
		}
		norm := r3.Unit(n)
		Tform := flatteningTransform(tri)
		s.triangles[i] = solidTriangle{
			N:        r3.Scale(2*math.Pi, norm),
			C:        centroid(tri),
			T:        Tform,
			InvT:     Tform.Inv(),
			Vertices: idx,
			solid:    s,
		}
		for j, vi := range idx {
			// Angle-weighted vertex pseudo normal contribution.
			s1 := r3.Sub(tri[j], tri[(j+1)%3])
			s2 := r3.Sub(tri[j], tri[(j+2)%3])
			alpha := math.Acos(r3.Cos(s1, s2))
			s.vertices[vi].N = r3.Add(s.vertices[vi].N, r3.Scale(alpha, norm))

			edge := [2]int{vi, idx[(j+1)%3]}
			if edge[0] > edge[1] {
				edge[0], edge[1] = edge[1], edge[0]
			}
			s.pseudoEdgeN[edge] = r3.Add(s.pseudoEdgeN[edge], r3.Scale(math.Pi, norm))
		}
	}
	return s, nil
}

// solidTriangle is a kdtree.Comparable triangle carrying the scratch state
// of its last distance query, used afterwards to sign the distance.
type solidTriangle struct {
	C           r3.Vec // centroid, the k-d tree key
	lastFeature triangleFeature
	lastClosest r3.Vec
	Vertices    [3]int
	solid       *solid
	N           r3.Vec    // face pseudo normal, scaled by 2π
	T           d3.Transform // flattens the triangle into the XY plane
	InvT        d3.Transform
}

func (t *solidTriangle) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*solidTriangle)
	switch d {
	case 0:
		return t.C.X - q.C.X
	case 1:
		return t.C.Y - q.C.Y
	case 2:
		return t.C.Z - q.C.Z
	}
	panic("unreachable")
}

func (t *solidTriangle) Dims() int { return 3 }

func (t *solidTriangle) Distance(c kdtree.Comparable) float64 {
	point := c.(*solidTriangle)
	if t.isPoint() {
		if point.isPoint() {
			return r3.Norm2(r3.Sub(t.C, point.C))
		}
		point, t = t, point // make sure `t` is the triangle.
	}
	pxy := t.T.Transform(point.C)
	txy := t.triangle()
	for i := range txy {
		txy[i] = t.T.Transform(txy[i])
	}
	// Closest point on the flattened triangle in 2D, lifted back to 3D.
	onTriangle, feat := closestOnTriangle2(lowerVec(pxy),
		[3]r2.Vec{lowerVec(txy[0]), lowerVec(txy[1]), lowerVec(txy[2])})
	t.lastFeature = feat
	t.lastClosest = t.InvT.Transform(r3.Vec{X: onTriangle.X, Y: onTriangle.Y})
	return r3.Norm2(r3.Sub(point.C, t.lastClosest))
}

// copySign returns dist with the sign of the query point relative to the
// solid, using the pseudo normal of the feature nearest in the last
// Distance call.
func (t *solidTriangle) copySign(p r3.Vec, dist float64) float64 {
	var signed float64
	switch {
	case t.lastFeature <= featureV2:
		vertex := t.solid.vertices[t.Vertices[t.lastFeature]]
		signed = r3.Dot(vertex.N, r3.Sub(p, vertex.V))
	case t.lastFeature <= featureE2:
		v1 := int(t.lastFeature - featureE0)
		edge := [2]int{t.Vertices[v1], t.Vertices[(v1+1)%3]}
		if edge[0] > edge[1] {
			edge[0], edge[1] = edge[1], edge[0]
		}
		signed = r3.Dot(t.solid.pseudoEdgeN[edge], r3.Sub(p, t.lastClosest))
	default:
		signed = r3.Dot(t.N, r3.Sub(p, t.lastClosest))
	}
	return math.Copysign(dist, signed)
}

func (t *solidTriangle) triangle() [3]r3.Vec {
	return [3]r3.Vec{
		t.solid.vertices[t.Vertices[0]].V,
		t.solid.vertices[t.Vertices[1]].V,
		t.solid.vertices[t.Vertices[2]].V,
	}
}

func (t *solidTriangle) isPoint() bool {
	return t.N == (r3.Vec{}) // query points leave N unset.
}

// flatteningTransform maps a triangle so its first edge lies on the X
// axis, its first vertex at the origin and its plane on XY.
func flatteningTransform(t [3]r3.Vec) d3.Transform {
	u2 := r3.Sub(t[1], t[0])
	u3 := r3.Sub(t[2], t[0])

	xc := r3.Unit(u2)
	yc := r3.Sub(u3, r3.Scale(r3.Dot(xc, u3), xc))
	yc = r3.Unit(yc)
	zc := r3.Cross(xc, yc)

	T := d3.NewRotation(xc, yc, zc)
	t0T := T.Transform(t[0])
	return T.Translate(r3.Scale(-1, t0T))
}

func centroid(t [3]r3.Vec) r3.Vec {
	return r3.Scale(1./3., r3.Add(r3.Add(t[0], t[1]), t[2]))
}

func lowerVec(v r3.Vec) r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}

// kdtree.Interface implementation over the triangle list.

func (s *solid) Index(i int) kdtree.Comparable { return &s.triangles[i] }

func (s *solid) Len() int { return len(s.triangles) }

func (s *solid) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: int(d), triangles: s.triangles}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (s *solid) Slice(start, end int) kdtree.Interface {
	sub := *s
	sub.triangles = sub.triangles[start:end]
	return &sub
}

func (s *solid) Bounds() *kdtree.Bounding {
	min := solidTriangle{C: r3.Vec{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64}}
	max := solidTriangle{C: r3.Vec{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64}}
	for _, t := range s.triangles {
		min.C = d3.MinElem(min.C, t.C)
		max.C = d3.MaxElem(max.C, t.C)
	}
	return &kdtree.Bounding{Min: &min, Max: &max}
}

type kdPlane struct {
	dim       int
	triangles []solidTriangle
}

func (p kdPlane) Less(i, j int) bool {
	return p.triangles[i].Compare(&p.triangles[j], kdtree.Dim(p.dim)) < 0
}
func (p kdPlane) Swap(i, j int) {
	p.triangles[i], p.triangles[j] = p.triangles[j], p.triangles[i]
}
func (p kdPlane) Len() int { return len(p.triangles) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.triangles = p.triangles[start:end]
	return p
}
