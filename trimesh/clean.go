package trimesh

import "sort"

// Clean removes duplicated vertices, duplicated and degenerate triangles,
// unreferenced vertices and triangles incident to over-shared edges, then
// recomputes vertex normals. Running Clean on an already clean mesh leaves
// it unchanged.
func (m *Mesh) Clean() {
	m.dedupVertices()
	m.dedupTriangles()
	m.dropNonManifoldEdges()
	m.dropUnreferencedVertices()
	m.ComputeNormals()
}

// dedupVertices merges vertices at identical positions and rewrites
// triangle indices, dropping triangles that collapse onto a repeated index.
func (m *Mesh) dedupVertices() {
	seen := make(map[[3]float64]int, len(m.Vertices))
	remap := make([]int, len(m.Vertices))
	kept := m.Vertices[:0]
	n := 0
	for i, v := range m.Vertices {
		key := [3]float64{v.X, v.Y, v.Z}
		if j, ok := seen[key]; ok {
			remap[i] = j
			continue
		}
		seen[key] = n
		remap[i] = n
		kept = append(kept, v)
		n++
	}
	m.Vertices = kept

	tris := m.Triangles[:0]
	for _, t := range m.Triangles {
		a, b, c := remap[t[0]], remap[t[1]], remap[t[2]]
		if a == b || b == c || a == c {
			continue
		}
		tris = append(tris, [3]int{a, b, c})
	}
	m.Triangles = tris
}

// dedupTriangles drops triangles sharing the same vertex set regardless of
// winding, keeping the first occurrence.
func (m *Mesh) dedupTriangles() {
	seen := make(map[[3]int]struct{}, len(m.Triangles))
	tris := m.Triangles[:0]
	for _, t := range m.Triangles {
		key := t
		sort.Ints(key[:])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tris = append(tris, t)
	}
	m.Triangles = tris
}

// dropNonManifoldEdges removes triangles incident to edges shared by more
// than two triangles. Removal is greedy from the most over-shared edge so a
// single bad triangle does not take its well-formed neighbors with it.
func (m *Mesh) dropNonManifoldEdges() {
	for {
		et := m.edgeTriangles()
		bad := make(map[int]struct{})
		for _, tris := range et {
			if len(tris) <= 2 {
				continue
			}
			// Keep the two triangles seen first, discard the rest.
			for _, ti := range tris[2:] {
				bad[ti] = struct{}{}
			}
		}
		if len(bad) == 0 {
			return
		}
		tris := m.Triangles[:0]
		for i, t := range m.Triangles {
			if _, ok := bad[i]; ok {
				continue
			}
			tris = append(tris, t)
		}
		m.Triangles = tris
	}
}

// dropUnreferencedVertices compacts the vertex array to vertices used by at
// least one triangle.
func (m *Mesh) dropUnreferencedVertices() {
	used := make([]bool, len(m.Vertices))
	for _, t := range m.Triangles {
		used[t[0]], used[t[1]], used[t[2]] = true, true, true
	}
	remap := make([]int, len(m.Vertices))
	kept := m.Vertices[:0]
	n := 0
	for i, v := range m.Vertices {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = n
		kept = append(kept, v)
		n++
	}
	m.Vertices = kept
	for i, t := range m.Triangles {
		m.Triangles[i] = [3]int{remap[t[0]], remap[t[1]], remap[t[2]]}
	}
}
