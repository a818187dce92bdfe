package geometry

import (
	"fmt"
	"math"

	clipper "github.com/ctessum/go.clipper"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// clipScale is the factor applied to coordinates before converting them
	// to Clipper's integer space, giving a resolution of 1/1000th of a pixel
	clipScale = 1000
)

// Similarity returns the consensus score between two shapes.  Areal shapes
// score their Intersection over Union in [0, 1], points score the negative
// Euclidean distance between them in (-inf, 0].
func Similarity(a, b Geometry) (float64, error) {

	switch ga := a.(type) {
	case Point:
		if gb, ok := b.(Point); ok {
			return pointSimilarity(ga, gb), nil
		}

	case Box:
		switch gb := b.(type) {
		case Box:
			return boxIoU(ga, gb)
		case Polygon:
			return polygonIoU(ga.Ring(), gb.Ring)
		}

	case Polygon:
		switch gb := b.(type) {
		case Box:
			return polygonIoU(ga.Ring, gb.Ring())
		case Polygon:
			return polygonIoU(ga.Ring, gb.Ring)
		}
	}

	return 0, fmt.Errorf("%w: %s and %s", ErrUnsupportedPair, kindOf(a), kindOf(b))
}

// IoU returns the Intersection over Union of two areal shapes
func IoU(a, b Geometry) (float64, error) {

	if !kindOf(a).Areal() || !kindOf(b).Areal() {
		return 0, fmt.Errorf("%w: %s and %s", ErrUnsupportedPair, kindOf(a), kindOf(b))
	}

	return Similarity(a, b)
}

func pointSimilarity(a, b Point) float64 {

	d := planar.Distance(orb.Point{a.X, a.Y}, orb.Point{b.X, b.Y})

	if d == 0 {
		return 0
	}

	return -d
}

// boxIoU calculates the Intersection over Union of two axis aligned boxes
func boxIoU(a, b Box) (float64, error) {

	iw := math.Min(a.X2, b.X2) - math.Max(a.X1, b.X1)
	ih := math.Min(a.Y2, b.Y2) - math.Max(a.Y1, b.Y1)

	inter := 0.0

	if iw > 0 && ih > 0 {
		inter = iw * ih
	}

	union := a.Area() + b.Area() - inter

	if union <= 0 {
		return 0, fmt.Errorf("%w: boxes have zero union area", ErrDegenerateGeometry)
	}

	return inter / union, nil
}

// polygonIoU calculates the Intersection over Union of two rings using
// Clipper.  All areas are measured in Clipper's integer space so that a ring
// compared with itself scores exactly 1.
func polygonIoU(a, b orb.Ring) (float64, error) {

	pathA := toPath(a)
	pathB := toPath(b)

	areaA := math.Abs(pathArea(pathA))
	areaB := math.Abs(pathArea(pathB))

	if areaA == 0 && areaB == 0 {
		return 0, fmt.Errorf("%w: polygons have zero area", ErrDegenerateGeometry)
	}

	inter := 0.0

	if areaA > 0 && areaB > 0 && a.Bound().Intersects(b.Bound()) {
		c := clipper.NewClipper(clipper.IoNone)
		c.AddPath(pathA, clipper.PtSubject, true)
		c.AddPath(pathB, clipper.PtClip, true)

		solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)

		if !ok {
			return 0, fmt.Errorf("clipper intersection failed")
		}

		// the intersection of two simple polygons has no holes, so every
		// output path is an outer boundary
		for _, path := range solution {
			inter += math.Abs(pathArea(path))
		}
	}

	union := areaA + areaB - inter

	if union <= 0 {
		return 0, fmt.Errorf("%w: polygons have zero union area", ErrDegenerateGeometry)
	}

	return math.Min(inter/union, 1), nil
}

// toPath converts an orb ring into an open Clipper path in scaled integer
// coordinates
func toPath(ring orb.Ring) clipper.Path {

	verts := ringVertices(ring)
	path := make(clipper.Path, 0, len(verts))

	for _, pt := range verts {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(pt[0] * clipScale)),
			Y: clipper.CInt(math.Round(pt[1] * clipScale)),
		})
	}

	return path
}

// pathArea returns the signed area of a Clipper path converted back to
// unscaled units.  The shoelace sum is accumulated in integers so that equal
// paths always produce equal areas.
func pathArea(path clipper.Path) float64 {

	if len(path) < 3 {
		return 0
	}

	var sum int64
	prev := path[len(path)-1]

	for _, pt := range path {
		sum += int64(prev.X)*int64(pt.Y) - int64(pt.X)*int64(prev.Y)
		prev = pt
	}

	return float64(sum) / (2 * clipScale * clipScale)
}

func kindOf(g Geometry) Kind {

	if g == nil {
		return Kind(-1)
	}

	return g.Kind()
}
