package tetmesh

import (
	"github.com/leafpore/plugmesh/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

type onode struct {
	// position of node
	pos r3.Vec
	// elements joined to node.
	tetras []otetra
	// connectivity contains unique incident node indices.
	connectivity []int
}

type otetra struct {
	tetidx int
	hint   int
}

type omesh struct {
	nodes  []onode
	tetras [][4]int
}

func newOmesh(nodes []r3.Vec, tetras [][4]int) *omesh {
	onodes := make([]onode, len(nodes))
	for tetidx, tetra := range tetras {
		for i := range tetra {
			n := tetra[i]
			on := &onodes[n]
			if on.tetras == nil {
				*on = onode{pos: nodes[n], tetras: make([]otetra, 0, 8), connectivity: make([]int, 0, 16)}
			}
			on.tetras = append(on.tetras, otetra{tetidx: tetidx, hint: i})
			for j := 1; j < 4; j++ {
				c := tetra[(i+j)%4]
				known := false
				for _, existing := range on.connectivity {
					if c == existing {
						known = true
						break
					}
				}
				if !known {
					on.connectivity = append(on.connectivity, c)
				}
			}
		}
	}
	return &omesh{
		nodes:  onodes,
		tetras: tetras,
	}
}

// compressAndSmooth projects stray boundary nodes onto the airspace
// surface along the distance gradient, then applies one pass of laplacian
// smoothing to the interior nodes. compress ramps from 0 to 1 over the
// smoothing rounds.
func (om *omesh) compressAndSmooth(compress float64, s geom.SDF3) {
	if compress > 1 || compress < 0 {
		panic("compress must be positive and less equal to 1")
	}
	boundary := make(map[int]struct{})
	for i, nod := range om.nodes {
		d := s.Evaluate(nod.pos)
		if d > 0 {
			boundary[i] = struct{}{}
			n := r3.Scale(compress*d, r3.Unit(gradient(nod.pos, 1e-6, s.Evaluate)))
			om.nodes[i].pos = r3.Sub(nod.pos, n)
		}
	}
	for i, nod := range om.nodes {
		if _, ok := boundary[i]; ok {
			continue // don't smooth boundary nodes.
		}
		if len(nod.connectivity) == 0 {
			continue
		}
		var sum r3.Vec
		for _, conn := range nod.connectivity {
			sum = r3.Add(sum, om.nodes[conn].pos)
		}
		om.nodes[i].pos = r3.Scale(1/float64(len(nod.connectivity)), sum)
	}
}

func (om *omesh) mesh() *TetMesh {
	nodes := make([]r3.Vec, len(om.nodes))
	for i := range om.nodes {
		nodes[i] = om.nodes[i].pos
	}
	tets := make([][4]int, len(om.tetras))
	copy(tets, om.tetras)
	return &TetMesh{Nodes: nodes, Tets: tets}
}

// gradient estimates the gradient of f at p by central differences.
func gradient(p r3.Vec, h float64, f func(r3.Vec) float64) r3.Vec {
	return r3.Vec{
		X: f(r3.Add(p, r3.Vec{X: h})) - f(r3.Sub(p, r3.Vec{X: h})),
		Y: f(r3.Add(p, r3.Vec{Y: h})) - f(r3.Sub(p, r3.Vec{Y: h})),
		Z: f(r3.Add(p, r3.Vec{Z: h})) - f(r3.Sub(p, r3.Vec{Z: h})),
	}
}
