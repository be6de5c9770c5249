package trimesh

import "gonum.org/v1/gonum/spatial/r3"

// Taubin smoothing factors. The negative shrink-compensation step uses a
// slightly larger magnitude than the positive step so volume loss stays
// small over many iterations.
const (
	taubinLambda = 0.5
	taubinMu     = -0.53
)

// SmoothTaubin runs iterations of λ|µ Taubin smoothing in place using the
// uniform graph Laplacian. Zero or negative iterations leave the mesh
// untouched. Normals are invalidated.
func (m *Mesh) SmoothTaubin(iterations int) {
	if iterations <= 0 || len(m.Vertices) == 0 {
		return
	}
	adj := m.vertexNeighbors()
	next := make([]r3.Vec, len(m.Vertices))
	for it := 0; it < iterations; it++ {
		laplacianStep(m.Vertices, next, adj, taubinLambda)
		m.Vertices, next = next, m.Vertices
		laplacianStep(m.Vertices, next, adj, taubinMu)
		m.Vertices, next = next, m.Vertices
	}
	m.Normals = nil
}

// laplacianStep writes src displaced by factor times the uniform Laplacian
// into dst. Isolated vertices pass through unchanged.
func laplacianStep(src, dst []r3.Vec, adj [][]int, factor float64) {
	for i, v := range src {
		nb := adj[i]
		if len(nb) == 0 {
			dst[i] = v
			continue
		}
		var mean r3.Vec
		for _, j := range nb {
			mean = r3.Add(mean, src[j])
		}
		mean = r3.Scale(1/float64(len(nb)), mean)
		dst[i] = r3.Add(v, r3.Scale(factor, r3.Sub(mean, v)))
	}
}

// vertexNeighbors returns, per vertex, the vertices sharing an edge with it.
func (m *Mesh) vertexNeighbors() [][]int {
	adj := make([][]int, len(m.Vertices))
	seen := make(map[edgeKey]struct{}, 3*len(m.Triangles)/2)
	for _, t := range m.Triangles {
		for j := 0; j < 3; j++ {
			a, b := t[j], t[(j+1)%3]
			k := newEdgeKey(a, b)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			adj[a] = append(adj[a], b)
			adj[b] = append(adj[b], a)
		}
	}
	return adj
}
