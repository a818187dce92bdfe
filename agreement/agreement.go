// Package agreement measures how well pairs of projects agree on an image by
// optimal one to one matching of their instances.
//
// Unlike the greedy consensus clustering, every project pair is solved as a
// linear assignment problem so each instance is matched to at most one
// instance of the other project and the total matching cost is minimal.
package agreement

import (
	"context"
	"errors"
	"fmt"
	"math"

	consensus "github.com/swdee/go-consensus"
	"github.com/swdee/go-consensus/geometry"
)

// ErrInvalidParams is returned when Params fail validation
var ErrInvalidParams = errors.New("invalid agreement params")

// Params configures pairwise matching
type Params struct {
	// MinIoU is the overlap areal instances must exceed to be matched
	MinIoU float64 `json:"min_iou"`
	// MaxPointDistance is the distance points must stay below to be matched
	MaxPointDistance float64 `json:"max_point_distance"`
}

// DefaultParams returns the default matching parameters
func DefaultParams() Params {
	return Params{
		MinIoU:           0.5,
		MaxPointDistance: 10,
	}
}

// Validate checks the parameters are usable as cost limits
func (p Params) Validate() error {

	if !(p.MinIoU >= 0 && p.MinIoU < 1) {
		return fmt.Errorf("%w: min_iou %v must be in [0, 1)", ErrInvalidParams, p.MinIoU)
	}

	if !(p.MaxPointDistance > 0 && p.MaxPointDistance < large/2) {
		return fmt.Errorf("%w: max_point_distance %v out of range", ErrInvalidParams,
			p.MaxPointDistance)
	}

	return nil
}

// costLimit returns the assignment cost at which pairs of the given kind
// stop being matched
func (p Params) costLimit(kind geometry.Kind) float64 {

	if kind == geometry.KindPoint {
		return p.MaxPointDistance
	}

	return 1 - p.MinIoU
}

// Match is a pair of matched instances of two projects on an image.  Index
// fields refer to positions in each project's instance list of the pool.
type Match struct {
	ProjectA string
	IndexA   int
	ProjectB string
	IndexB   int
	// Similarity is the IoU of areal pairs or the negated distance of points
	Similarity float64
}

// Pairwise matches the instances of every project pair in pool, pairs are
// visited in pool project order with ProjectA preceding ProjectB
func Pairwise(pool *consensus.ImagePool, params Params) ([]Match, error) {

	if err := params.Validate(); err != nil {
		return nil, err
	}

	projects := pool.Projects()

	var matches []Match

	for a := 0; a < len(projects); a++ {
		for b := a + 1; b < len(projects); b++ {
			m, err := matchPair(projects[a], pool.Instances(projects[a]),
				projects[b], pool.Instances(projects[b]), params)

			if err != nil {
				return nil, err
			}

			matches = append(matches, m...)
		}
	}

	return matches, nil
}

// matchPair solves the assignment between the instances of two projects
func matchPair(projectA string, as []consensus.Instance, projectB string,
	bs []consensus.Instance, params Params) ([]Match, error) {

	if len(as) == 0 || len(bs) == 0 {
		return nil, nil
	}

	limit := params.costLimit(as[0].Geometry.Kind())
	cost := make([][]float64, len(as))
	sims := make([][]float64, len(as))

	for i, a := range as {
		cost[i] = make([]float64, len(bs))
		sims[i] = make([]float64, len(bs))

		for j, b := range bs {
			cost[i][j] = limit

			if a.ClassName != b.ClassName {
				continue
			}

			s, err := geometry.Similarity(a.Geometry, b.Geometry)

			if err != nil {
				return nil, fmt.Errorf("error comparing %q instance %d with %q instance %d: %w",
					projectA, i, projectB, j, err)
			}

			sims[i][j] = s

			if a.Geometry.Kind() == geometry.KindPoint {
				cost[i][j] = math.Min(-s, limit)
			} else {
				cost[i][j] = 1 - s
			}
		}
	}

	rowsol, _, err := Assign(cost, limit)

	if err != nil {
		return nil, fmt.Errorf("error matching %q with %q: %w", projectA, projectB, err)
	}

	var matches []Match

	for i, j := range rowsol {
		if j < 0 {
			continue
		}

		matches = append(matches, Match{
			ProjectA:   projectA,
			IndexA:     i,
			ProjectB:   projectB,
			IndexB:     j,
			Similarity: sims[i][j],
		})
	}

	return matches, nil
}

// PairStats accumulates the agreement of two projects over many images
type PairStats struct {
	ProjectA string
	ProjectB string
	// Images counts the images the pair was compared on
	Images int
	// InstancesA and InstancesB count the instances each project contributed
	InstancesA int
	InstancesB int
	// Matched counts matched instance pairs
	Matched       int
	sumSimilarity float64
}

// MeanSimilarity returns the mean similarity of matched pairs
func (s PairStats) MeanSimilarity() float64 {

	if s.Matched == 0 {
		return 0
	}

	return s.sumSimilarity / float64(s.Matched)
}

// F1 returns the share of instances that found a match in the other project
func (s PairStats) F1() float64 {

	total := s.InstancesA + s.InstancesB

	if total == 0 {
		return 0
	}

	return 2 * float64(s.Matched) / float64(total)
}

// swap returns the stats with the A and B sides exchanged
func (s PairStats) swap() PairStats {
	s.ProjectA, s.ProjectB = s.ProjectB, s.ProjectA
	s.InstancesA, s.InstancesB = s.InstancesB, s.InstancesA
	return s
}

// Matrix holds the agreement of every pair of a fixed project list
type Matrix struct {
	projects []string
	index    map[string]int
	// stats holds pair a < b at stats[a][b-a-1]
	stats [][]PairStats
}

// NewMatrix returns an empty matrix over projects
func NewMatrix(projects []string) *Matrix {

	m := &Matrix{
		projects: append([]string(nil), projects...),
		index:    make(map[string]int, len(projects)),
		stats:    make([][]PairStats, len(projects)),
	}

	for a, p := range projects {
		m.index[p] = a

		for b := a + 1; b < len(projects); b++ {
			m.stats[a] = append(m.stats[a], PairStats{
				ProjectA: projects[a],
				ProjectB: projects[b],
			})
		}
	}

	return m
}

// Projects returns the matrix projects in order
func (m *Matrix) Projects() []string {
	return append([]string(nil), m.projects...)
}

// Add matches the instances of pool pairwise and accumulates the result.
// Every project pair of the matrix counts the image, including projects
// without any instance on it.
func (m *Matrix) Add(pool *consensus.ImagePool, params Params) error {

	for _, p := range pool.Projects() {
		if _, ok := m.index[p]; !ok {
			return fmt.Errorf("%w: %q", consensus.ErrUnknownProject, p)
		}
	}

	matches, err := Pairwise(pool, params)

	if err != nil {
		return err
	}

	for a := range m.projects {
		for b := a + 1; b < len(m.projects); b++ {
			s := &m.stats[a][b-a-1]
			s.Images++
			s.InstancesA += len(pool.Instances(m.projects[a]))
			s.InstancesB += len(pool.Instances(m.projects[b]))
		}
	}

	for _, match := range matches {
		s := m.pair(m.index[match.ProjectA], m.index[match.ProjectB])
		s.Matched++
		s.sumSimilarity += match.Similarity
	}

	return nil
}

// Pair returns the stats of two projects, oriented so ProjectA is a
func (m *Matrix) Pair(a, b string) (PairStats, bool) {

	ia, okA := m.index[a]
	ib, okB := m.index[b]

	if !okA || !okB || ia == ib {
		return PairStats{}, false
	}

	s := *m.pair(ia, ib)

	if ia > ib {
		s = s.swap()
	}

	return s, true
}

// Pairs returns the stats of every project pair in project order
func (m *Matrix) Pairs() []PairStats {

	var out []PairStats

	for _, row := range m.stats {
		out = append(out, row...)
	}

	return out
}

// pair returns the stored stats of two distinct project indexes
func (m *Matrix) pair(a, b int) *PairStats {

	if a > b {
		a, b = b, a
	}

	return &m.stats[a][b-a-1]
}

// Compute builds the agreement matrix of annotType instances over the images
// in rows.  Projects lists the matrix projects, when empty the projects are
// taken from rows in first seen order.
func Compute(ctx context.Context, rows []consensus.Row, annotType consensus.AnnotationType,
	projects []string, params Params) (*Matrix, error) {

	if _, err := consensus.ParseAnnotationType(string(annotType)); err != nil {
		return nil, err
	}

	var images []string
	byImage := make(map[string][]consensus.Row)
	seen := make(map[string]bool)
	var rowProjects []string

	for _, r := range rows {
		if _, ok := byImage[r.ImageName]; !ok {
			images = append(images, r.ImageName)
		}

		byImage[r.ImageName] = append(byImage[r.ImageName], r)

		if !seen[r.Project] {
			seen[r.Project] = true
			rowProjects = append(rowProjects, r.Project)
		}
	}

	if len(projects) == 0 {
		projects = rowProjects
	}

	m := NewMatrix(projects)

	for _, image := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pool, err := consensus.BuildPool(byImage[image], annotType)

		if err != nil {
			return nil, fmt.Errorf("error building pool of %q: %w", image, err)
		}

		if err := m.Add(pool, params); err != nil {
			return nil, fmt.Errorf("error matching image %q: %w", image, err)
		}
	}

	return m, nil
}
