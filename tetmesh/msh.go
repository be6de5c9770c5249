package tetmesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leafpore/plugmesh/geom"
)

// Physical group tags in the written MSH file. Solvers address the
// airspace volume and its surfaces through these.
const (
	PhysicalAirspace  = 1
	PhysicalTop       = 2
	PhysicalBottom    = 3
	PhysicalCurved    = 4
	PhysicalMesophyll = 5
)

func physicalTag(role geom.Role) int {
	switch role {
	case geom.RoleTop:
		return PhysicalTop
	case geom.RoleBottom:
		return PhysicalBottom
	case geom.RoleCurved:
		return PhysicalCurved
	default:
		return PhysicalMesophyll
	}
}

// WriteMSH writes the mesh in Gmsh MSH 2.2 ASCII format. Boundary
// triangles are written before tetrahedra, each element tagged with its
// physical group and a matching elementary tag. Node and element ids are
// 1-based.
func (m *TetMesh) WriteMSH(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n")
	fmt.Fprintf(bw, "$PhysicalNames\n5\n")
	fmt.Fprintf(bw, "2 %d \"top_surface\"\n", PhysicalTop)
	fmt.Fprintf(bw, "2 %d \"bottom_surface\"\n", PhysicalBottom)
	fmt.Fprintf(bw, "2 %d \"curved_surface\"\n", PhysicalCurved)
	fmt.Fprintf(bw, "2 %d \"mesophyll_surfaces\"\n", PhysicalMesophyll)
	fmt.Fprintf(bw, "3 %d \"airspace\"\n$EndPhysicalNames\n", PhysicalAirspace)

	fmt.Fprintf(bw, "$Nodes\n%d\n", len(m.Nodes))
	for i, p := range m.Nodes {
		fmt.Fprintf(bw, "%d %g %g %g\n", i+1, p.X, p.Y, p.Z)
	}
	fmt.Fprintf(bw, "$EndNodes\n")

	fmt.Fprintf(bw, "$Elements\n%d\n", len(m.Faces)+len(m.Tets))
	id := 1
	for _, f := range m.Faces {
		tag := physicalTag(f.Role)
		fmt.Fprintf(bw, "%d 2 2 %d %d %d %d %d\n", id, tag, tag,
			f.V[0]+1, f.V[1]+1, f.V[2]+1)
		id++
	}
	for _, t := range m.Tets {
		fmt.Fprintf(bw, "%d 4 2 %d %d %d %d %d %d\n", id,
			PhysicalAirspace, PhysicalAirspace,
			t[0]+1, t[1]+1, t[2]+1, t[3]+1)
		id++
	}
	fmt.Fprintf(bw, "$EndElements\n")
	return bw.Flush()
}

// SaveMSH writes the mesh to a Gmsh MSH 2.2 file. Filename must have
// .msh extension.
func (m *TetMesh) SaveMSH(filename string) error {
	if filepath.Ext(filename) != ".msh" {
		return fmt.Errorf("save %q: expected .msh file extension", filename)
	}
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	return m.WriteMSH(fp)
}
