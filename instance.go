package consensus

import (
	"github.com/swdee/go-consensus/geometry"
)

// Instance is a single annotated object on an image
type Instance struct {
	// Geometry is the shape of the instance
	Geometry geometry.Geometry
	// ClassName is the class label, instances are only matched within the
	// same class
	ClassName string
	// CreatorEmail identifies the annotator
	CreatorEmail       string
	AttributeGroupName string
	AttributeName      string
	// ProjectID is the project the instance belongs to
	ProjectID string
}

// ImagePool holds the instances of every project for a single image.
// Projects and their instances keep the order they were added in, which
// determines seeding order and tie breaking during matching.
type ImagePool struct {
	projects  []string
	index     map[string]int
	instances [][]Instance
}

// NewImagePool returns an empty pool
func NewImagePool() *ImagePool {
	return &ImagePool{
		index: make(map[string]int),
	}
}

// AddProject registers a project in the pool without adding any instance
func (p *ImagePool) AddProject(project string) {
	p.projectIndex(project)
}

// Add appends an instance to its project's list
func (p *ImagePool) Add(inst Instance) {
	i := p.projectIndex(inst.ProjectID)
	p.instances[i] = append(p.instances[i], inst)
}

// Projects returns the projects in the pool in first seen order
func (p *ImagePool) Projects() []string {
	return append([]string(nil), p.projects...)
}

// Instances returns the instances of a project in insertion order
func (p *ImagePool) Instances(project string) []Instance {

	i, ok := p.index[project]

	if !ok {
		return nil
	}

	return p.instances[i]
}

// Len returns the total number of instances in the pool
func (p *ImagePool) Len() int {

	n := 0

	for _, insts := range p.instances {
		n += len(insts)
	}

	return n
}

func (p *ImagePool) projectIndex(project string) int {

	if i, ok := p.index[project]; ok {
		return i
	}

	p.index[project] = len(p.projects)
	p.projects = append(p.projects, project)
	p.instances = append(p.instances, nil)

	return len(p.projects) - 1
}
