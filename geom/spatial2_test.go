package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestClosestOnTriangle2Features(t *testing.T) {
	tri := [3]r2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 2}}
	for _, tc := range []struct {
		name    string
		p       r2.Vec
		closest r2.Vec
		feature triangleFeature
	}{
		{"inside", r2.Vec{X: 0.5, Y: 0.5}, r2.Vec{X: 0.5, Y: 0.5}, featureFace},
		{"below edge 0", r2.Vec{X: 1, Y: -1}, r2.Vec{X: 1, Y: 0}, featureE0},
		{"past hypotenuse", r2.Vec{X: 2, Y: 2}, r2.Vec{X: 1, Y: 1}, featureE1},
		{"left of edge 2", r2.Vec{X: -1, Y: 1}, r2.Vec{X: 0, Y: 1}, featureE2},
		{"beyond v0", r2.Vec{X: -1, Y: -1}, r2.Vec{X: 0, Y: 0}, featureV0},
		{"beyond v1", r2.Vec{X: 3, Y: -0.5}, r2.Vec{X: 2, Y: 0}, featureV1},
		{"beyond v2", r2.Vec{X: -0.5, Y: 3}, r2.Vec{X: 0, Y: 2}, featureV2},
		// Projection onto edge 0 lands past its far endpoint, so the
		// nearest feature is the vertex shared with edge 1.
		{"edge 0 clamped to v1", r2.Vec{X: 2.5, Y: -1}, r2.Vec{X: 2, Y: 0}, featureV1},
		{"edge 2 clamped to v0", r2.Vec{X: -1, Y: -0.5}, r2.Vec{X: 0, Y: 0}, featureV0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, feature := closestOnTriangle2(tc.p, tri)
			assert.Equal(t, tc.feature, feature)
			assert.InDelta(t, tc.closest.X, got.X, 1e-12)
			assert.InDelta(t, tc.closest.Y, got.Y, 1e-12)
		})
	}
}

func TestClosestOnSegmentClamps(t *testing.T) {
	a := r2.Vec{X: 0, Y: 0}
	b := r2.Vec{X: 2, Y: 0}
	q, end := closestOnSegment(r2.Vec{X: -1, Y: 1}, a, b)
	assert.Equal(t, 0, end)
	assert.Equal(t, a, q)
	q, end = closestOnSegment(r2.Vec{X: 5, Y: -2}, a, b)
	assert.Equal(t, 1, end)
	assert.Equal(t, b, q)
	q, end = closestOnSegment(r2.Vec{X: 1, Y: 3}, a, b)
	assert.Equal(t, 2, end)
	assert.InDelta(t, 1, q.X, 1e-12)
	assert.InDelta(t, 0, q.Y, 1e-12)
}
