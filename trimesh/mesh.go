// Package trimesh provides triangle surface meshes: extraction from
// occupancy grids by marching cubes, cleaning, smoothing, decimation,
// manifoldness validation and STL interchange.
package trimesh

import (
	"math"

	"github.com/leafpore/plugmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle mesh. Triangles index into Vertices.
// Normals, when present, are per-vertex and parallel to Vertices.
type Mesh struct {
	Vertices  []r3.Vec
	Triangles [][3]int
	Normals   []r3.Vec
}

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int { return len(m.Vertices) }

// NumTriangles returns the triangle count.
func (m *Mesh) NumTriangles() int { return len(m.Triangles) }

// IsEmpty reports whether the mesh has no triangles.
func (m *Mesh) IsEmpty() bool { return len(m.Triangles) == 0 }

// Triangle returns the resolved vertex positions of triangle i.
func (m *Mesh) Triangle(i int) [3]r3.Vec {
	t := m.Triangles[i]
	return [3]r3.Vec{m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]}
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	var area float64
	for i := range m.Triangles {
		area += triangleArea(m.Triangle(i))
	}
	return area
}

// Volume returns the enclosed volume computed by the divergence theorem.
// The result is meaningful for closed meshes only; the absolute value is
// returned so triangle winding does not flip the sign.
func (m *Mesh) Volume() float64 {
	var vol float64
	for i := range m.Triangles {
		t := m.Triangle(i)
		vol += r3.Dot(t[0], r3.Cross(t[1], t[2])) / 6
	}
	return math.Abs(vol)
}

// Bounds returns the axis-aligned bounding box of the mesh vertices.
func (m *Mesh) Bounds() d3.Box {
	if len(m.Vertices) == 0 {
		return d3.Box{}
	}
	bb := d3.Box{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		bb = bb.Include(v)
	}
	return bb
}

// Centroid returns the area-weighted surface centroid.
func (m *Mesh) Centroid() r3.Vec {
	var (
		sum  r3.Vec
		area float64
	)
	for i := range m.Triangles {
		t := m.Triangle(i)
		a := triangleArea(t)
		c := r3.Scale(1.0/3.0, r3.Add(t[0], r3.Add(t[1], t[2])))
		sum = r3.Add(sum, r3.Scale(a, c))
		area += a
	}
	if area == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/area, sum)
}

// Transform applies f to every vertex in place and invalidates normals.
func (m *Mesh) Transform(f func(r3.Vec) r3.Vec) {
	for i, v := range m.Vertices {
		m.Vertices[i] = f(v)
	}
	m.Normals = nil
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices:  append([]r3.Vec(nil), m.Vertices...),
		Triangles: append([][3]int(nil), m.Triangles...),
	}
	if m.Normals != nil {
		c.Normals = append([]r3.Vec(nil), m.Normals...)
	}
	return c
}

// ComputeNormals recomputes per-vertex normals as the area-weighted mean
// of incident face normals.
func (m *Mesh) ComputeNormals() {
	normals := make([]r3.Vec, len(m.Vertices))
	for i, t := range m.Triangles {
		tri := m.Triangle(i)
		fn := r3.Cross(r3.Sub(tri[1], tri[0]), r3.Sub(tri[2], tri[0]))
		for _, v := range t {
			normals[v] = r3.Add(normals[v], fn)
		}
	}
	for i, n := range normals {
		if r3.Norm(n) > 0 {
			normals[i] = r3.Unit(n)
		}
	}
	m.Normals = normals
}

func triangleArea(t [3]r3.Vec) float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}

func triangleNormal(t [3]r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	if r3.Norm(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

// edgeKey is an undirected edge identifier with the lower vertex first.
type edgeKey [2]int

func newEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// edgeTriangles maps every undirected edge to its incident triangle indices.
func (m *Mesh) edgeTriangles() map[edgeKey][]int {
	edges := make(map[edgeKey][]int, 3*len(m.Triangles)/2)
	for i, t := range m.Triangles {
		for j := 0; j < 3; j++ {
			k := newEdgeKey(t[j], t[(j+1)%3])
			edges[k] = append(edges[k], i)
		}
	}
	return edges
}

// vertexTriangles maps every vertex to its incident triangle indices.
func (m *Mesh) vertexTriangles() [][]int {
	vt := make([][]int, len(m.Vertices))
	for i, t := range m.Triangles {
		for _, v := range t {
			vt[v] = append(vt[v], i)
		}
	}
	return vt
}
