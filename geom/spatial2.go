package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Planar closest-point queries against a flattened triangle. The feature
// identifies which part of the triangle was nearest so the caller can pick
// the matching pseudo normal when signing a distance.

type triangleFeature int

const (
	featureV0 triangleFeature = iota
	featureV1
	featureV2
	featureE0
	featureE1
	featureE2
	featureFace
)

// closestOnTriangle2 returns the point of tri nearest to p and the feature
// (vertex, edge or face) it lies on. Edge j spans tri[j] and tri[(j+1)%3].
func closestOnTriangle2(p r2.Vec, tri [3]r2.Vec) (pointOnTriangle r2.Vec, feature triangleFeature) {
	if inTriangle(p, tri) {
		return p, featureFace
	}
	minDist := math.MaxFloat64
	for j := range tri {
		q, end := closestOnSegment(p, tri[j], tri[(j+1)%3])
		d2 := r2.Norm2(r2.Sub(p, q))
		if d2 < minDist {
			minDist = d2
			pointOnTriangle = q
			switch end {
			case 0:
				feature = triangleFeature(j)
			case 1:
				feature = triangleFeature((j + 1) % 3)
			default:
				feature = featureE0 + triangleFeature(j)
			}
		}
	}
	return pointOnTriangle, feature
}

// closestOnSegment projects p onto the segment from a to b, clamping to
// the endpoints. The integer is 0 when the result is a, 1 when it is b
// and 2 when it lies in the segment interior.
func closestOnSegment(p, a, b r2.Vec) (r2.Vec, int) {
	ab := r2.Sub(b, a)
	len2 := r2.Norm2(ab)
	if len2 == 0 {
		return a, 0
	}
	t := r2.Dot(r2.Sub(p, a), ab) / len2
	switch {
	case t <= 0:
		return a, 0
	case t >= 1:
		return b, 1
	}
	return r2.Add(a, r2.Scale(t, ab)), 2
}

// inTriangle returns true if pt lies within the triangle tri.
func inTriangle(pt r2.Vec, tri [3]r2.Vec) bool {
	d1 := halfPlaneSign(pt, tri[0], tri[1])
	d2 := halfPlaneSign(pt, tri[1], tri[2])
	d3 := halfPlaneSign(pt, tri[2], tri[0])
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func halfPlaneSign(p1, p2, p3 r2.Vec) float64 {
	return (p1.X-p3.X)*(p2.Y-p3.Y) - (p2.X-p3.X)*(p1.Y-p3.Y)
}
