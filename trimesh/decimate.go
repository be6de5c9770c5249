package trimesh

import (
	"github.com/fogleman/simplify"
	"gonum.org/v1/gonum/spatial/r3"
)

// Decimate reduces the mesh to at most target triangles using quadric
// error metric edge collapse. Meshes already at or below the target are
// returned unchanged; a non-positive target is a no-op. Normals are
// recomputed on the decimated result.
func (m *Mesh) Decimate(target int) {
	if target <= 0 || m.NumTriangles() <= target {
		return
	}
	sm := make([]*simplify.Triangle, m.NumTriangles())
	for i := range m.Triangles {
		t := m.Triangle(i)
		sm[i] = simplify.NewTriangle(
			simplify.Vector(t[0]), simplify.Vector(t[1]), simplify.Vector(t[2]))
	}
	factor := float64(target) / float64(m.NumTriangles())
	out := simplify.NewMesh(sm).Simplify(factor)

	m.Vertices = m.Vertices[:0]
	m.Triangles = m.Triangles[:0]
	for _, t := range out.Triangles {
		base := len(m.Vertices)
		m.Vertices = append(m.Vertices,
			r3.Vec(t.V1), r3.Vec(t.V2), r3.Vec(t.V3))
		m.Triangles = append(m.Triangles, [3]int{base, base + 1, base + 2})
	}
	m.dedupVertices()
	m.ComputeNormals()
}
