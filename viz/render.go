// Package viz renders quality-control snapshots of pipeline surface
// meshes to PNG images.
package viz

import (
	"fmt"
	"path/filepath"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/spatial/r3"
)

// View places the camera for a snapshot.
type View struct {
	// what position (point) to look at
	LookAt r3.Vec
	// which way is up (direction)
	Up r3.Vec
	// where the camera/eye located at (point)
	EyePos r3.Vec
	Far    float64
	Near   float64
}

// DefaultView looks down at the plug from an oblique angle, Z up.
func DefaultView() View {
	return View{
		Up:     r3.Vec{Z: 1},
		EyePos: r3.Vec{X: 3, Y: 3, Z: 3},
		Near:   1,
		Far:    10,
	}
}

// Options bound the rendered image.
type Options struct {
	Width  int
	Height int
	// Supersample renders at a multiple of the output size and
	// downsamples for antialiasing.
	Supersample int
	View        View
}

// DefaultOptions renders a 1280x960 frame with 2x supersampling.
func DefaultOptions() Options {
	return Options{Width: 1280, Height: 960, Supersample: 2, View: DefaultView()}
}

// RenderSTL rasterizes an STL file to a shaded PNG snapshot. The mesh is
// fit to a bi-unit cube so plugs of any scale frame identically.
func RenderSTL(stlPath, pngPath string, opts Options) error {
	if filepath.Ext(pngPath) != ".png" {
		return fmt.Errorf("render %q: expected .png file extension", pngPath)
	}
	if opts.Width <= 0 || opts.Height <= 0 || opts.Supersample <= 0 {
		return fmt.Errorf("render %q: invalid image dimensions", pngPath)
	}
	mesh, err := fauxgl.LoadSTL(stlPath)
	if err != nil {
		return fmt.Errorf("render %q: %w", stlPath, err)
	}
	const fovy = 30 // vertical field of view in degrees

	var (
		view   = opts.View
		scale  = opts.Supersample
		eye    = fauxgl.V(view.EyePos.X, view.EyePos.Y, view.EyePos.Z)
		center = fauxgl.V(view.LookAt.X, view.LookAt.Y, view.LookAt.Z)
		up     = fauxgl.V(view.Up.X, view.Up.Y, view.Up.Z)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)

	// fit mesh in a bi-unit cube centered at the origin
	mesh.BiUnitCube()
	context := fauxgl.NewContext(opts.Width*scale, opts.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(opts.Width) / float64(opts.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(mesh)
	// downsample image for antialiasing
	img := context.Image()
	img = resize.Resize(uint(opts.Width), uint(opts.Height), img, resize.Bilinear)
	if err := fauxgl.SavePNG(pngPath, img); err != nil {
		return fmt.Errorf("render %q: %w", pngPath, err)
	}
	return nil
}
