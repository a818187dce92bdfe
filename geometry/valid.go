package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// validRing checks that a closed ring has finite coordinates, at least three
// distinct vertices, a non zero area in both float and clipping grid space,
// and no self intersections or touching edges.  Repeated consecutive
// vertices are tolerated.
func validRing(ring orb.Ring) bool {

	verts := ringVertices(ring)

	if len(verts) < 3 {
		return false
	}

	for _, pt := range verts {
		if !finite(pt[0], pt[1]) {
			return false
		}
	}

	if planar.Area(closeRing(verts)) == 0 {
		return false
	}

	// the ring must also keep its area once snapped to the clipping grid
	if pathArea(toPath(ring)) == 0 {
		return false
	}

	n := len(verts)

	for i := 0; i < n; i++ {
		a1, a2 := verts[i], verts[(i+1)%n]

		for j := i + 1; j < n; j++ {
			b1, b2 := verts[j], verts[(j+1)%n]

			switch {
			case j == i+1:
				// neighbours share a2 == b1, they must not fold back
				if foldsBack(a1, a2, b2) {
					return false
				}

			case i == 0 && j == n-1:
				// closing edge shares a1 == b2
				if foldsBack(b1, b2, a2) {
					return false
				}

			default:
				if segmentsIntersect(a1, a2, b1, b2) {
					return false
				}
			}
		}
	}

	return true
}

// ringVertices returns the open vertex list of a ring with consecutive
// duplicates and the closing vertex removed
func ringVertices(ring orb.Ring) orb.Ring {

	verts := make(orb.Ring, 0, len(ring))

	for _, pt := range ring {
		if len(verts) > 0 && verts[len(verts)-1].Equal(pt) {
			continue
		}
		verts = append(verts, pt)
	}

	for len(verts) > 1 && verts[0].Equal(verts[len(verts)-1]) {
		verts = verts[:len(verts)-1]
	}

	return verts
}

// foldsBack reports whether the edge b->c doubles back over the edge a->b
func foldsBack(a, b, c orb.Point) bool {

	if cross(a, b, c) != 0 {
		return false
	}

	// collinear, the edges overlap when c lies back towards a
	return (a[0]-b[0])*(c[0]-b[0])+(a[1]-b[1])*(c[1]-b[1]) > 0
}

// segmentsIntersect reports whether segments p1-p2 and q1-q2 share any point
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {

	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

// cross returns the z component of (b-a) x (c-a)
func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// onSegment reports whether collinear point p lies within the extent of a-b
func onSegment(a, b, p orb.Point) bool {
	return p[0] >= math.Min(a[0], b[0]) && p[0] <= math.Max(a[0], b[0]) &&
		p[1] >= math.Min(a[1], b[1]) && p[1] <= math.Max(a[1], b[1])
}

func finite(vals ...float64) bool {

	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}
