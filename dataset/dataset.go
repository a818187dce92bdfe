// Package dataset loads exported vector annotations of several projects into
// consensus rows.
//
// Each project is a directory holding one <image>___objects.json file per
// image, as produced by a vector project export.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	consensus "github.com/swdee/go-consensus"
)

// ObjectsSuffix is the file name suffix of per image annotation files
const ObjectsSuffix = "___objects.json"

// Dataset is the combined annotation table of several projects
type Dataset struct {
	// Projects lists the loaded projects in load order
	Projects []string
	// Rows holds the instances of all projects
	Rows []consensus.Row
}

// instance is the exported JSON form of an annotation instance
type instance struct {
	Type       string          `json:"type"`
	ClassID    *int            `json:"classId"`
	ClassName  string          `json:"className"`
	Points     json.RawMessage `json:"points"`
	X          *float64        `json:"x"`
	Y          *float64        `json:"y"`
	Attributes []attribute     `json:"attributes"`
	CreatedBy  *creator        `json:"createdBy"`
}

type attribute struct {
	Name      string `json:"name"`
	GroupName string `json:"groupName"`
}

type creator struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type boxPoints struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Load reads the named projects from subdirectories of root.  When projects
// is empty every subdirectory of root is loaded in name order.
func Load(root string, projects []string) (*Dataset, error) {

	if len(projects) == 0 {
		entries, err := os.ReadDir(root)

		if err != nil {
			return nil, fmt.Errorf("error reading dataset root: %w", err)
		}

		for _, e := range entries {
			if e.IsDir() {
				projects = append(projects, e.Name())
			}
		}
	}

	ds := &Dataset{}

	for _, project := range projects {
		rows, err := LoadProject(project, filepath.Join(root, project))

		if err != nil {
			return nil, err
		}

		ds.Projects = append(ds.Projects, project)
		ds.Rows = append(ds.Rows, rows...)
	}

	return ds, nil
}

// LoadProject reads every annotation file in dir and returns its instances
// as rows of the given project.  Files are read in name order.
func LoadProject(project, dir string) ([]consensus.Row, error) {

	entries, err := os.ReadDir(dir)

	if err != nil {
		return nil, fmt.Errorf("error reading project %q: %w", project, err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ObjectsSuffix) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	var rows []consensus.Row

	for _, name := range names {
		image := strings.TrimSuffix(name, ObjectsSuffix)

		data, err := os.ReadFile(filepath.Join(dir, name))

		if err != nil {
			return nil, fmt.Errorf("error reading annotations of %q: %w", image, err)
		}

		imgRows, err := ParseObjects(project, image, data)

		if err != nil {
			return nil, err
		}

		rows = append(rows, imgRows...)
	}

	return rows, nil
}

// ParseObjects decodes the JSON annotation list of one image.  Instances of
// types other than bbox, polygon and point, and instances without a class,
// are skipped.
func ParseObjects(project, image string, data []byte) ([]consensus.Row, error) {

	var instances []instance

	if err := json.Unmarshal(data, &instances); err != nil {
		return nil, fmt.Errorf("error parsing annotations of %q in project %q: %w",
			image, project, err)
	}

	rows := make([]consensus.Row, 0, len(instances))

	for i, inst := range instances {

		annotType, err := consensus.ParseAnnotationType(inst.Type)

		if err != nil {
			continue
		}

		if inst.ClassID != nil && *inst.ClassID < 0 {
			continue
		}

		points, err := inst.coordinates(annotType)

		if err != nil {
			consensus.Logf("skipping instance %d of %q in project %q: %v", i, image,
				project, err)
			continue
		}

		row := consensus.Row{
			Project:   project,
			ImageName: image,
			Type:      annotType,
			ClassName: inst.ClassName,
			Points:    points,
		}

		if inst.CreatedBy != nil {
			row.CreatorEmail = inst.CreatedBy.Email
		}

		// only the first attribute is carried as rows describe one instance
		if len(inst.Attributes) > 0 {
			row.AttributeGroupName = inst.Attributes[0].GroupName
			row.AttributeName = inst.Attributes[0].Name
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// coordinates returns the flat coordinate payload of the instance
func (inst instance) coordinates(annotType consensus.AnnotationType) ([]float64, error) {

	switch annotType {
	case consensus.TypeBox:
		var b boxPoints

		if err := json.Unmarshal(inst.Points, &b); err != nil {
			return nil, fmt.Errorf("invalid bbox points: %w", err)
		}

		return []float64{b.X1, b.Y1, b.X2, b.Y2}, nil

	case consensus.TypePolygon:
		var coords []float64

		if err := json.Unmarshal(inst.Points, &coords); err != nil {
			return nil, fmt.Errorf("invalid polygon points: %w", err)
		}

		return coords, nil

	case consensus.TypePoint:
		if inst.X == nil || inst.Y == nil {
			return nil, fmt.Errorf("point is missing x or y")
		}

		return []float64{*inst.X, *inst.Y}, nil
	}

	return nil, fmt.Errorf("%w: %q", consensus.ErrUnknownAnnotationType, annotType)
}
