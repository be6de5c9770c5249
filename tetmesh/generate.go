package tetmesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/leafpore/plugmesh/geom"
	"github.com/leafpore/plugmesh/trimesh"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	maxOctreeDepth  = 7
	smoothingRounds = 6
)

// TetMesh is the generated volumetric mesh: tetrahedra filling the
// airspace plus its classified boundary triangles.
type TetMesh struct {
	Nodes []r3.Vec
	Tets  [][4]int
	Faces []BoundaryFace
}

// BoundaryFace is a surface triangle of the tetrahedral mesh tagged with
// the role of the classified surface it lies on.
type BoundaryFace struct {
	V    [3]int
	Role geom.Role
}

// NumNodes returns the node count.
func (m *TetMesh) NumNodes() int { return len(m.Nodes) }

// NumTets returns the tetrahedron count.
func (m *TetMesh) NumTets() int { return len(m.Tets) }

// Generate meshes the airspace volume against the sizing field: seed
// points from an adaptive octree refined to the field, tetrahedralize,
// keep tetrahedra inside the airspace, then compress and smooth the
// boundary onto the carve surface. Boundary faces inherit the role of the
// nearest classified surface. Any failure is fatal for the sample; no
// partial mesh is returned.
func Generate(s *geom.Session, a *geom.Airspace, c *geom.Classification, field *SizingField) (*TetMesh, error) {
	if a.Boundary == nil || a.Boundary.IsEmpty() {
		return nil, fmt.Errorf("generate mesh: %w: airspace has no boundary", geom.ErrKernel)
	}
	if c == nil {
		return nil, fmt.Errorf("generate mesh: %w: airspace surfaces not classified", geom.ErrKernel)
	}
	sdf, err := geom.MeshSolid(a.Boundary)
	if err != nil {
		return nil, fmt.Errorf("generate mesh: %w", err)
	}

	points := seedPoints(sdf, field)
	points = append(points, a.Boundary.Vertices...)
	tets, err := tetrahedralize(points)
	if err != nil {
		return nil, fmt.Errorf("generate mesh: %w: %s", geom.ErrKernel, err)
	}

	// Keep tetrahedra whose centroid lies inside the airspace.
	kept := tets[:0]
	for _, tet := range tets {
		ctr := r3.Scale(0.25, r3.Add(r3.Add(points[tet[0]], points[tet[1]]),
			r3.Add(points[tet[2]], points[tet[3]])))
		if sdf.Evaluate(ctr) < 0 {
			kept = append(kept, tet)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("generate mesh: %w: no tetrahedra inside airspace", geom.ErrKernel)
	}

	om := newOmesh(points, kept)
	for iter := 1; iter <= smoothingRounds; iter++ {
		om.compressAndSmooth(float64(iter)/smoothingRounds, sdf)
	}
	mesh := om.mesh()
	mesh.dropUnusedNodes()
	if err := mesh.classifyBoundary(c); err != nil {
		return nil, err
	}
	s.Logf("tetmesh: generated %d nodes, %d tetrahedra, %d boundary faces",
		mesh.NumNodes(), mesh.NumTets(), len(mesh.Faces))
	return mesh, nil
}

// seedPoints refines an octree over the solid bounds until cells are
// smaller than the sizing field demands, emitting interior cell centers.
func seedPoints(sdf geom.SDF3, field *SizingField) []r3.Vec {
	bb := sdf.Bounds()
	size := r3.Sub(bb.Max, bb.Min)
	span := math.Max(size.X, math.Max(size.Y, size.Z))
	var points []r3.Vec
	var recurse func(center r3.Vec, half float64, depth int)
	recurse = func(center r3.Vec, half float64, depth int) {
		cell := 2 * half
		if depth < maxOctreeDepth && cell > field.Lc(center) {
			q := half / 2
			for _, dx := range [2]float64{-q, q} {
				for _, dy := range [2]float64{-q, q} {
					for _, dz := range [2]float64{-q, q} {
						recurse(r3.Add(center, r3.Vec{X: dx, Y: dy, Z: dz}), q, depth+1)
					}
				}
			}
			return
		}
		// Seed only cells comfortably inside the airspace; the boundary
		// itself is seeded from the carve surface vertices.
		if sdf.Evaluate(center) < -0.25*cell {
			points = append(points, jitter(center, 0.05*cell))
		}
	}
	recurse(r3.Add(bb.Min, r3.Scale(0.5, size)), span/2, 0)
	return points
}

// jitter displaces p deterministically to break the cospherical
// degeneracies a regular lattice feeds the Delaunay kernel.
func jitter(p r3.Vec, amp float64) r3.Vec {
	h := func(x float64) float64 {
		u := math.Sin(x*12.9898+78.233) * 43758.5453
		return u - math.Floor(u) - 0.5
	}
	return r3.Add(p, r3.Scale(amp, r3.Vec{
		X: h(p.X + 3*p.Y + 7*p.Z),
		Y: h(5*p.X + p.Y + 11*p.Z),
		Z: h(9*p.X + 13*p.Y + p.Z),
	}))
}

// dropUnusedNodes compacts Nodes to those referenced by a tetrahedron.
func (m *TetMesh) dropUnusedNodes() {
	used := make([]bool, len(m.Nodes))
	for _, t := range m.Tets {
		for _, v := range t {
			used[v] = true
		}
	}
	remap := make([]int, len(m.Nodes))
	kept := m.Nodes[:0]
	n := 0
	for i, p := range m.Nodes {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = n
		kept = append(kept, p)
		n++
	}
	m.Nodes = kept
	for i, t := range m.Tets {
		m.Tets[i] = [4]int{remap[t[0]], remap[t[1]], remap[t[2]], remap[t[3]]}
	}
}

// roleField pairs a surface role with its distance field.
type roleField struct {
	role geom.Role
	dist *geom.SurfaceDistance
}

// classifyBoundary finds faces incident to exactly one tetrahedron and
// tags each with the role of the nearest classified surface.
func (m *TetMesh) classifyBoundary(c *geom.Classification) error {
	if c == nil {
		return fmt.Errorf("classify boundary: %w: airspace surfaces not classified", geom.ErrKernel)
	}
	var fields []roleField
	for _, group := range []struct {
		role     geom.Role
		surfaces []geom.Surface
	}{
		{geom.RoleTop, []geom.Surface{c.Top}},
		{geom.RoleBottom, []geom.Surface{c.Bottom}},
		{geom.RoleCurved, []geom.Surface{c.Curved}},
		{geom.RoleMesophyll, c.Mesophyll},
	} {
		meshes := make([]*trimesh.Mesh, 0, len(group.surfaces))
		for _, srf := range group.surfaces {
			if srf.Mesh != nil && !srf.Mesh.IsEmpty() {
				meshes = append(meshes, srf.Mesh)
			}
		}
		if len(meshes) == 0 {
			continue
		}
		dist, err := geom.NewSurfaceDistance(meshes...)
		if err != nil {
			return fmt.Errorf("classify boundary: %w: %s", geom.ErrKernel, err)
		}
		fields = append(fields, roleField{role: group.role, dist: dist})
	}
	if len(fields) == 0 {
		return fmt.Errorf("classify boundary: %w: classification holds no surfaces", geom.ErrKernel)
	}

	seen := make(map[faceKey][3]int)
	count := make(map[faceKey]int)
	for _, tet := range m.Tets {
		for _, f := range tetFaces(tet) {
			k := newFaceKey(f[0], f[1], f[2])
			count[k]++
			seen[k] = f
		}
	}
	m.Faces = m.Faces[:0]
	for k, n := range count {
		if n != 1 {
			continue
		}
		f := seen[k]
		ctr := r3.Scale(1.0/3.0, r3.Add(r3.Add(m.Nodes[f[0]], m.Nodes[f[1]]), m.Nodes[f[2]]))
		best := fields[0]
		bestDist := best.dist.Distance(ctr)
		for _, rf := range fields[1:] {
			if d := rf.dist.Distance(ctr); d < bestDist {
				best, bestDist = rf, d
			}
		}
		m.Faces = append(m.Faces, BoundaryFace{V: f, Role: best.role})
	}
	sort.Slice(m.Faces, func(i, j int) bool {
		a, b := m.Faces[i].V, m.Faces[j].V
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	return nil
}
