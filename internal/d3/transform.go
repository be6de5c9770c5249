package d3

import "gonum.org/v1/gonum/spatial/r3"

// Transform is a rigid spatial transform: a rotation followed by a
// translation. The zero value is the identity rotation with no offset.
type Transform struct {
	rx, ry, rz r3.Vec // rotation rows, zero value meaning identity
	off        r3.Vec
}

// NewRotation builds a Transform from rotation rows. The rows must be
// orthonormal.
func NewRotation(rx, ry, rz r3.Vec) Transform {
	return Transform{
		rx: r3.Sub(rx, r3.Vec{X: 1}),
		ry: r3.Sub(ry, r3.Vec{Y: 1}),
		rz: r3.Sub(rz, r3.Vec{Z: 1}),
	}
}

func (t Transform) rows() (rx, ry, rz r3.Vec) {
	return r3.Add(t.rx, r3.Vec{X: 1}), r3.Add(t.ry, r3.Vec{Y: 1}), r3.Add(t.rz, r3.Vec{Z: 1})
}

// Transform applies the transform to v.
func (t Transform) Transform(v r3.Vec) r3.Vec {
	rx, ry, rz := t.rows()
	return r3.Add(t.off, r3.Vec{X: r3.Dot(rx, v), Y: r3.Dot(ry, v), Z: r3.Dot(rz, v)})
}

// Translate adds v to the transform offset.
func (t Transform) Translate(v r3.Vec) Transform {
	t.off = r3.Add(t.off, v)
	return t
}

// Inv returns the inverse transform. The rotation inverse is its
// transpose since the rows are orthonormal.
func (t Transform) Inv() Transform {
	rx, ry, rz := t.rows()
	inv := NewRotation(
		r3.Vec{X: rx.X, Y: ry.X, Z: rz.X},
		r3.Vec{X: rx.Y, Y: ry.Y, Z: rz.Y},
		r3.Vec{X: rx.Z, Y: ry.Z, Z: rz.Z},
	)
	// inv.off is still zero here, so this is a pure rotation.
	inv.off = r3.Scale(-1, inv.Transform(t.off))
	return inv
}
