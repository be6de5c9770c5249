package trimesh

import (
	"math"

	"github.com/leafpore/plugmesh/voxel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Extraction status values reported to the manifest.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Options configure surface extraction post-processing.
type Options struct {
	// SmoothingIterations is the exact number of Taubin iterations.
	SmoothingIterations int `json:"smoothing_iterations"`
	// DecimationTarget is the triangle count decimation reduces toward.
	// Meshes at or below the target skip decimation.
	DecimationTarget int `json:"decimation_target"`
	// ShrinkageTolerance bounds the acceptable relative area and volume
	// change between the first cleaned mesh and the final mesh.
	ShrinkageTolerance float64 `json:"shrinkage_tolerance"`
}

// Report summarizes an extraction run. Status depends only on the
// manifold and watertightness checks; excessive shrinkage is recorded
// separately and does not flip Status.
type Report struct {
	NumVertices  int     `json:"num_vertices"`
	NumTriangles int     `json:"num_faces"`
	PreArea      float64 `json:"pre_area"`
	PreVolume    float64 `json:"pre_volume"`
	PostArea     float64 `json:"post_area"`
	PostVolume   float64 `json:"post_volume"`
	AreaShrink   float64 `json:"area_shrinkage"`
	VolumeShrink float64 `json:"volume_shrinkage"`

	EdgeManifold        bool   `json:"edge_manifold"`
	VertexManifold      bool   `json:"vertex_manifold"`
	Watertight          bool   `json:"watertight"`
	ShrinkageAcceptable bool   `json:"shrinkage_acceptable"`
	Status              string `json:"status"`
}

// gridField presents a voxel occupancy grid as a signed scalar field with
// unit lattice spacing. Occupied voxels map to −0.5 and empty ones to
// +0.5 so the zero crossing sits exactly at the 0.5 occupancy threshold.
type gridField struct {
	g *voxel.Grid
}

func (f gridField) Dims() (int, int, int) { return f.g.Dims() }

func (f gridField) Value(i, j, k int) float64 {
	return 0.5 - float64(f.g.At(i, j, k))
}

func (f gridField) Pos(i, j, k int) r3.Vec {
	return r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)}
}

// Extract runs marching cubes over the occupancy grid at the 0.5
// occupancy threshold and post-processes the result: clean, smooth,
// re-clean, decimate, re-clean, then validate. A fully empty grid yields
// an empty mesh and a zeroed failure report without error.
func Extract(g *voxel.Grid, opts Options) (*Mesh, Report) {
	m := MarchingCubes(gridField{g}, 0)
	if m.IsEmpty() {
		return m, Report{Status: StatusFailure}
	}
	m.Clean()

	var r Report
	r.PreArea = m.Area()
	r.PreVolume = m.Volume()

	m.SmoothTaubin(opts.SmoothingIterations)
	m.Clean()

	m.Decimate(opts.DecimationTarget)
	m.Clean()

	r.PostArea = m.Area()
	r.PostVolume = m.Volume()
	r.AreaShrink = shrinkRatio(r.PreArea, r.PostArea)
	r.VolumeShrink = shrinkRatio(r.PreVolume, r.PostVolume)
	r.ShrinkageAcceptable = r.AreaShrink <= opts.ShrinkageTolerance &&
		r.VolumeShrink <= opts.ShrinkageTolerance

	r.NumVertices = m.NumVertices()
	r.NumTriangles = m.NumTriangles()
	r.EdgeManifold = m.IsEdgeManifold()
	r.VertexManifold = m.IsVertexManifold()
	r.Watertight = m.IsWatertight()
	if r.EdgeManifold && r.VertexManifold && r.Watertight {
		r.Status = StatusSuccess
	} else {
		r.Status = StatusFailure
	}
	return m, r
}

func shrinkRatio(pre, post float64) float64 {
	if pre == 0 {
		return 0
	}
	return math.Abs(pre-post) / pre
}
