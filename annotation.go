package consensus

import (
	"errors"
	"fmt"

	"github.com/swdee/go-consensus/geometry"
)

// AnnotationType is the instance type consensus is computed for
type AnnotationType string

const (
	TypeBox     AnnotationType = "bbox"
	TypePolygon AnnotationType = "polygon"
	TypePoint   AnnotationType = "point"
)

// ErrUnknownAnnotationType is returned for annotation types other than
// bbox, polygon and point
var ErrUnknownAnnotationType = errors.New("unknown annotation type")

// ParseAnnotationType validates an annotation type name
func ParseAnnotationType(s string) (AnnotationType, error) {

	t := AnnotationType(s)

	switch t {
	case TypeBox, TypePolygon, TypePoint:
		return t, nil
	}

	return "", fmt.Errorf("%w: %q, available types are bbox, polygon and point",
		ErrUnknownAnnotationType, s)
}

// Row is one annotation instance as supplied by a dataset loader
type Row struct {
	// Project the instance was annotated in
	Project string
	// ImageName the instance belongs to
	ImageName string
	// Type is the instance type, rows not matching the annotation type
	// being scored are ignored
	Type               AnnotationType
	ClassName          string
	CreatorEmail       string
	AttributeGroupName string
	AttributeName      string
	// Points holds the geometry payload.  For bbox it is x1,y1,x2,y2, for
	// polygon a flat alternating x,y list and for point a single x,y pair.
	Points []float64
}

// Decode interprets a geometry payload according to the annotation type
func (t AnnotationType) Decode(points []float64) (geometry.Geometry, error) {

	switch t {
	case TypeBox:
		if len(points) != 4 {
			return nil, fmt.Errorf("bbox needs 4 coordinates, got %d", len(points))
		}
		return geometry.NewBox(points[0], points[1], points[2], points[3]), nil

	case TypePolygon:
		return geometry.NewPolygon(points)

	case TypePoint:
		if len(points) != 2 {
			return nil, fmt.Errorf("point needs 2 coordinates, got %d", len(points))
		}
		return geometry.Point{X: points[0], Y: points[1]}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownAnnotationType, string(t))
}

// BuildPool creates the instance pool for a single image from its rows.
// Rows of a different type are skipped, rows with malformed or invalid
// geometry are logged and dropped.  Projects only contributing dropped rows
// are still registered in the pool.
func BuildPool(rows []Row, annotType AnnotationType) (*ImagePool, error) {

	if _, err := ParseAnnotationType(string(annotType)); err != nil {
		return nil, err
	}

	pool := NewImagePool()

	for _, row := range rows {
		if row.Type != annotType {
			continue
		}

		pool.AddProject(row.Project)

		geom, err := annotType.Decode(row.Points)

		if err != nil || !geom.Valid() {
			Logf("invalid %s instance occurred on image %q in project %q, skipping",
				annotType, row.ImageName, row.Project)
			continue
		}

		pool.Add(Instance{
			Geometry:           geom,
			ClassName:          row.ClassName,
			CreatorEmail:       row.CreatorEmail,
			AttributeGroupName: row.AttributeGroupName,
			AttributeName:      row.AttributeName,
			ProjectID:          row.Project,
		})
	}

	return pool, nil
}
