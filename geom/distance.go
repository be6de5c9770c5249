package geom

import (
	"errors"
	"math"

	"github.com/leafpore/plugmesh/trimesh"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// MeshSolid exposes the signed distance field of a watertight boundary
// mesh for consumers outside the carve step, such as volumetric meshing.
func MeshSolid(m *trimesh.Mesh) (SDF3, error) {
	return meshSDF(m)
}

// SurfaceDistance answers unsigned distance queries against a set of
// surface patches through one k-d tree over their triangles.
type SurfaceDistance struct {
	tree kdtree.Tree
}

// NewSurfaceDistance merges the given patches and indexes their triangles.
// The patches need not be closed; only distance magnitude is meaningful.
func NewSurfaceDistance(meshes ...*trimesh.Mesh) (*SurfaceDistance, error) {
	merged := &trimesh.Mesh{}
	for _, m := range meshes {
		base := len(merged.Vertices)
		merged.Vertices = append(merged.Vertices, m.Vertices...)
		for _, t := range m.Triangles {
			merged.Triangles = append(merged.Triangles,
				[3]int{t[0] + base, t[1] + base, t[2] + base})
		}
	}
	if merged.IsEmpty() {
		return nil, errors.New("no triangles to index for distance queries")
	}
	solid, err := newSolid(merged)
	if err != nil {
		return nil, err
	}
	tree := kdtree.New(solid, true)
	return &SurfaceDistance{tree: *tree}, nil
}

// Distance returns the distance from p to the nearest indexed triangle.
func (d *SurfaceDistance) Distance(p r3.Vec) float64 {
	_, dist2 := d.tree.Nearest(&solidTriangle{C: p})
	return math.Sqrt(dist2)
}
