package trimesh

// IsEdgeManifold reports whether every edge belongs to at most two
// triangles.
func (m *Mesh) IsEdgeManifold() bool {
	for _, tris := range m.edgeTriangles() {
		if len(tris) > 2 {
			return false
		}
	}
	return true
}

// IsWatertight reports whether every edge belongs to exactly two
// triangles. An empty mesh is not watertight.
func (m *Mesh) IsWatertight() bool {
	if m.IsEmpty() {
		return false
	}
	for _, tris := range m.edgeTriangles() {
		if len(tris) != 2 {
			return false
		}
	}
	return true
}

// IsVertexManifold reports whether the triangles around every vertex form
// a single edge-connected fan. Requires edge manifoldness to be
// meaningful; an edge non-manifold mesh is reported non-manifold here too.
func (m *Mesh) IsVertexManifold() bool {
	if !m.IsEdgeManifold() {
		return false
	}
	vt := m.vertexTriangles()
	for v, tris := range vt {
		if len(tris) <= 1 {
			continue
		}
		if !singleFan(m, v, tris) {
			return false
		}
	}
	return true
}

// spoke holds the two non-center vertices of a triangle around a fan
// center.
type spoke struct{ a, b int }

func (s spoke) shares(o spoke) bool {
	return s.a == o.a || s.a == o.b || s.b == o.a || s.b == o.b
}

// singleFan checks that the triangles incident to vertex v form one
// connected component under shared-edge adjacency restricted to edges
// through v.
func singleFan(m *Mesh, v int, tris []int) bool {
	others := make([]spoke, len(tris))
	for i, ti := range tris {
		t := m.Triangles[ti]
		var o []int
		for _, w := range t {
			if w != v {
				o = append(o, w)
			}
		}
		if len(o) != 2 {
			return false
		}
		others[i] = spoke{o[0], o[1]}
	}
	// Flood from the first triangle over shared spoke vertices.
	visited := make([]bool, len(tris))
	stack := []int{0}
	visited[0] = true
	count := 1
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := range tris {
			if visited[i] {
				continue
			}
			if others[cur].shares(others[i]) {
				visited[i] = true
				count++
				stack = append(stack, i)
			}
		}
	}
	return count == len(tris)
}
