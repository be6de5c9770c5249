package d3

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestBox(t *testing.T) {
	b := Box{Min: r3.Vec{X: -1, Y: 0, Z: 2}, Max: r3.Vec{X: 3, Y: 2, Z: 4}}
	if got := b.Size(); got != (r3.Vec{X: 4, Y: 2, Z: 2}) {
		t.Errorf("size %v", got)
	}
	if got := b.Center(); got != (r3.Vec{X: 1, Y: 1, Z: 3}) {
		t.Errorf("center %v", got)
	}
	b = b.Include(r3.Vec{X: 5, Y: -1, Z: 3})
	if b.Max.X != 5 || b.Min.Y != -1 {
		t.Errorf("include %v", b)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	s := math.Sqrt2 / 2
	// Rotation by 45 degrees about Z, then a translation.
	T := NewRotation(
		r3.Vec{X: s, Y: -s},
		r3.Vec{X: s, Y: s},
		r3.Vec{Z: 1},
	).Translate(r3.Vec{X: 1, Y: 2, Z: 3})

	for _, v := range []r3.Vec{{}, {X: 1}, {X: 0.2, Y: -0.7, Z: 1.4}} {
		got := T.Inv().Transform(T.Transform(v))
		if r3.Norm(r3.Sub(got, v)) > 1e-12 {
			t.Errorf("round trip %v -> %v", v, got)
		}
	}
	// Identity zero value.
	var id Transform
	if got := id.Transform(r3.Vec{X: 1, Y: 2, Z: 3}); got != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("identity %v", got)
	}
}
