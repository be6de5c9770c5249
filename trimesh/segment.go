package trimesh

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Components partitions the triangles into edge-connected components and
// returns one triangle index set per component, largest first.
func (m *Mesh) Components() [][]int {
	et := m.edgeTriangles()
	adj := make([][]int, len(m.Triangles))
	for _, tris := range et {
		for _, a := range tris {
			for _, b := range tris {
				if a != b {
					adj[a] = append(adj[a], b)
				}
			}
		}
	}
	comp := make([]int, len(m.Triangles))
	for i := range comp {
		comp[i] = -1
	}
	var components [][]int
	for seed := range m.Triangles {
		if comp[seed] >= 0 {
			continue
		}
		id := len(components)
		var member []int
		stack := []int{seed}
		comp[seed] = id
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			member = append(member, cur)
			for _, nb := range adj[cur] {
				if comp[nb] < 0 {
					comp[nb] = id
					stack = append(stack, nb)
				}
			}
		}
		components = append(components, member)
	}
	sortBySizeDesc(components)
	return components
}

// SegmentByFeatureAngle splits the mesh into patches of triangles whose
// face normals vary smoothly: growth across an edge stops when the
// dihedral angle between the two faces exceeds angleDeg. Patches never
// span disconnected components. Returned largest first.
func (m *Mesh) SegmentByFeatureAngle(angleDeg float64) [][]int {
	cosLimit := math.Cos(angleDeg * math.Pi / 180)
	normals := make([]r3.Vec, len(m.Triangles))
	for i := range m.Triangles {
		normals[i] = triangleNormal(m.Triangle(i))
	}
	et := m.edgeTriangles()
	assigned := make([]int, len(m.Triangles))
	for i := range assigned {
		assigned[i] = -1
	}
	adj := make([][]int, len(m.Triangles))
	for _, tris := range et {
		if len(tris) != 2 {
			continue
		}
		a, b := tris[0], tris[1]
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	var patches [][]int
	for seed := range m.Triangles {
		if assigned[seed] >= 0 {
			continue
		}
		id := len(patches)
		var member []int
		stack := []int{seed}
		assigned[seed] = id
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			member = append(member, cur)
			for _, nb := range adj[cur] {
				if assigned[nb] >= 0 {
					continue
				}
				if r3.Dot(normals[cur], normals[nb]) < cosLimit {
					continue
				}
				assigned[nb] = id
				stack = append(stack, nb)
			}
		}
		patches = append(patches, member)
	}
	sortBySizeDesc(patches)
	return patches
}

// Submesh extracts the triangles named by indices into a standalone mesh
// with compacted vertices.
func (m *Mesh) Submesh(indices []int) *Mesh {
	remap := make(map[int]int)
	sub := &Mesh{}
	for _, ti := range indices {
		t := m.Triangles[ti]
		var nt [3]int
		for j, v := range t {
			nv, ok := remap[v]
			if !ok {
				nv = len(sub.Vertices)
				remap[v] = nv
				sub.Vertices = append(sub.Vertices, m.Vertices[v])
			}
			nt[j] = nv
		}
		sub.Triangles = append(sub.Triangles, nt)
	}
	return sub
}

func sortBySizeDesc(groups [][]int) {
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i]) > len(groups[j])
	})
}
