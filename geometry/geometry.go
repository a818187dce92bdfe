/*
Package geometry provides the annotation shapes compared during consensus
scoring and the similarity measure between them.

Areal shapes (Polygon and Box) are compared by Intersection over Union,
Points by negative Euclidean distance.  The two measures live in different
numeric ranges and must not be mixed when aggregating.
*/
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var (
	// ErrUnsupportedPair is returned when an areal shape is compared against
	// a point
	ErrUnsupportedPair = errors.New("unsupported geometry pair")
	// ErrDegenerateGeometry is returned when the union of two areal shapes
	// has no area
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// Kind identifies the variant of a Geometry
type Kind int

const (
	KindPolygon Kind = iota
	KindBox
	KindPoint
)

// String returns the annotation type name of the kind
func (k Kind) String() string {
	switch k {
	case KindPolygon:
		return "polygon"
	case KindBox:
		return "bbox"
	case KindPoint:
		return "point"
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Areal reports whether shapes of this kind have an area
func (k Kind) Areal() bool {
	return k == KindPolygon || k == KindBox
}

// Geometry is the closed set of annotation shapes: Polygon, Box and Point.
type Geometry interface {
	// Kind returns the variant of the shape
	Kind() Kind
	// Area returns the area of the shape, zero for points
	Area() float64
	// Bound returns the axis aligned bounding box of the shape
	Bound() orb.Bound
	// Valid reports whether the shape is well formed
	Valid() bool

	sealed()
}

// Polygon is a simple ring of at least three vertices.  The ring is stored
// closed, with the first vertex repeated at the end.
type Polygon struct {
	Ring orb.Ring
}

// NewPolygon creates a Polygon from a flat x,y alternating coordinate list
func NewPolygon(coords []float64) (Polygon, error) {

	if len(coords)%2 != 0 {
		return Polygon{}, fmt.Errorf("polygon has odd number of coordinates: %d", len(coords))
	}

	if len(coords) < 6 {
		return Polygon{}, fmt.Errorf("polygon needs at least 3 points, got %d", len(coords)/2)
	}

	ring := make(orb.Ring, 0, len(coords)/2+1)

	for i := 0; i < len(coords); i += 2 {
		ring = append(ring, orb.Point{coords[i], coords[i+1]})
	}

	return Polygon{Ring: closeRing(ring)}, nil
}

// NewPolygonFromRing creates a Polygon from a ring, closing it if required
func NewPolygonFromRing(ring orb.Ring) Polygon {
	return Polygon{Ring: closeRing(ring.Clone())}
}

func (p Polygon) Kind() Kind { return KindPolygon }

// Area returns the absolute area of the ring whatever its winding order
func (p Polygon) Area() float64 {
	return math.Abs(planar.Area(p.Ring))
}

func (p Polygon) Bound() orb.Bound {
	return p.Ring.Bound()
}

// Valid reports whether the ring is simple and encloses area
func (p Polygon) Valid() bool {
	return validRing(p.Ring)
}

func (p Polygon) sealed() {}

// Box is an axis aligned rectangle with X1 <= X2 and Y1 <= Y2
type Box struct {
	X1, Y1, X2, Y2 float64
}

// NewBox creates a Box from two opposite corners in any order
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{
		X1: min(x1, x2),
		Y1: min(y1, y2),
		X2: max(x1, x2),
		Y2: max(y1, y2),
	}
}

func (b Box) Kind() Kind { return KindBox }

// Width of the box
func (b Box) Width() float64 {
	return b.X2 - b.X1
}

// Height of the box
func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

func (b Box) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.X1, b.Y1}, Max: orb.Point{b.X2, b.Y2}}
}

// Valid reports whether the box has finite coordinates and non zero extent
// on both axes
func (b Box) Valid() bool {
	return finite(b.X1, b.Y1, b.X2, b.Y2) && b.X1 < b.X2 && b.Y1 < b.Y2
}

// Ring returns the closed counter clockwise ring of the box corners
func (b Box) Ring() orb.Ring {
	return orb.Ring{
		{b.X1, b.Y1},
		{b.X2, b.Y1},
		{b.X2, b.Y2},
		{b.X1, b.Y2},
		{b.X1, b.Y1},
	}
}

func (b Box) sealed() {}

// Point is a single keypoint
type Point struct {
	X, Y float64
}

func (p Point) Kind() Kind { return KindPoint }

// Area of a point is always zero
func (p Point) Area() float64 { return 0 }

func (p Point) Bound() orb.Bound {
	return orb.Point{p.X, p.Y}.Bound()
}

func (p Point) Valid() bool {
	return finite(p.X, p.Y)
}

func (p Point) sealed() {}

// closeRing appends the first vertex to the end of the ring if it is not
// already closed
func closeRing(ring orb.Ring) orb.Ring {

	if len(ring) == 0 {
		return ring
	}

	if !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}

	return ring
}
