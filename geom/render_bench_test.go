package geom

import (
	"os"
	"testing"

	sdfxrender "github.com/deadsy/sdfx/render"
	sdfxsdf "github.com/deadsy/sdfx/sdf"
	"github.com/leafpore/plugmesh/trimesh"
	"gonum.org/v1/gonum/spatial/r3"
)

const benchResolution = 64

// Cross-check of the carve discretization against the sdfx marching-cubes
// renderer on an equivalent cylinder-minus-sphere solid.

func BenchmarkCarveDiscretize(b *testing.B) {
	cyl, err := newCylinder(0.36, 0, 1)
	if err != nil {
		b.Fatal(err)
	}
	cut := difference3(cyl, sphere{center: r3.Vec{Z: 0.5}, radius: 0.15})
	for i := 0; i < b.N; i++ {
		m := trimesh.MarchingCubes(newSDFField(cut, benchResolution), 0)
		m.Clean()
		if m.IsEmpty() {
			b.Fatal("empty carve surface")
		}
	}
}

func BenchmarkSDFXCarveDiscretize(b *testing.B) {
	stdout := os.Stdout
	defer func() {
		os.Stdout = stdout // pesky sdfx prints out stuff
	}()
	os.Stdout, _ = os.Open(os.DevNull)
	const output = "sdfx_carve.stl"
	defer os.Remove(output)

	cyl, err := sdfxsdf.Cylinder3D(1.0, 0.36, 0)
	if err != nil {
		b.Fatal(err)
	}
	sph, err := sdfxsdf.Sphere3D(0.15)
	if err != nil {
		b.Fatal(err)
	}
	cut := sdfxsdf.Difference3D(cyl, sph)
	for i := 0; i < b.N; i++ {
		sdfxrender.ToSTL(cut, benchResolution, output, &sdfxrender.MarchingCubesOctree{})
	}
}
