package consensus

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/swdee/go-consensus/geometry"
)

// ErrInvalidProjectCount is returned when the dataset project count cannot
// cover the projects present on an image
var ErrInvalidProjectCount = errors.New("invalid project count")

// Matcher clusters the instances of a single image across projects and
// scores every clustered instance.  A Matcher keeps scratch state between
// calls and must not be used by more than one goroutine at a time.
type Matcher struct {
	matchDisjoint bool
	// arenas holds the remaining instances of each project in pool order
	arenas []arena
	// cluster is the member list of the cluster currently being built
	cluster []member
}

// arena is a project's instance list where instances are removed by
// flagging, so indexes stay stable during a matching round
type arena struct {
	project   string
	instances []Instance
	bounds    []orb.Bound
	alive     []bool
	// head is the lowest index that may still be alive
	head      int
	remaining int
}

// member references an instance within an arena
type member struct {
	arena int
	index int
}

// NewMatcher returns a Matcher configured from params
func NewMatcher(params Params) *Matcher {
	return &Matcher{
		matchDisjoint: params.MatchDisjoint,
	}
}

// MatchAndScore groups the instances in pool into clusters and returns one
// Record per clustered instance.  totalProjects is the number of distinct
// projects in the whole dataset and is used as the scoring denominator.  The
// pool is not modified.
func (m *Matcher) MatchAndScore(imageName string, pool *ImagePool, totalProjects int) ([]Record, error) {

	if pool == nil || pool.Len() == 0 {
		return nil, nil
	}

	if totalProjects < 1 || totalProjects < len(pool.projects) {
		return nil, fmt.Errorf("%w: %d projects in dataset but %d on image %q",
			ErrInvalidProjectCount, totalProjects, len(pool.projects), imageName)
	}

	m.reset(pool)

	records := make([]Record, 0, pool.Len())
	var ids idGenerator

	for {
		seedArena := m.nextSeedArena()

		if seedArena < 0 {
			break
		}

		sa := &m.arenas[seedArena]
		seedIdx := sa.head
		seed := sa.instances[seedIdx]

		m.cluster = m.cluster[:0]

		for ai := range m.arenas {

			if ai == seedArena {
				m.cluster = append(m.cluster, member{arena: ai, index: seedIdx})
				continue
			}

			best, err := m.bestMatch(&m.arenas[ai], seed, sa.bounds[seedIdx])

			if err != nil {
				return nil, fmt.Errorf("error matching image %q project %q: %w",
					imageName, m.arenas[ai].project, err)
			}

			if best >= 0 {
				m.cluster = append(m.cluster, member{arena: ai, index: best})
			}
		}

		// remove the cluster members only once selection for the round is
		// complete
		for _, mem := range m.cluster {
			m.arenas[mem.arena].remove(mem.index)
		}

		var err error
		records, err = m.scoreCluster(records, imageName, ids.next(), totalProjects)

		if err != nil {
			return nil, fmt.Errorf("error scoring image %q: %w", imageName, err)
		}
	}

	return records, nil
}

// release drops the scratch state so the pooled instances can be collected
func (m *Matcher) release() {
	m.arenas = nil
	m.cluster = nil
}

// reset loads the arenas from the pool, reusing previously allocated slices
func (m *Matcher) reset(pool *ImagePool) {

	if cap(m.arenas) < len(pool.projects) {
		m.arenas = make([]arena, len(pool.projects))
	}

	m.arenas = m.arenas[:len(pool.projects)]

	for i, project := range pool.projects {
		a := &m.arenas[i]
		insts := pool.instances[i]

		a.project = project
		a.instances = insts
		a.head = 0
		a.remaining = len(insts)
		a.alive = resize(a.alive, len(insts))
		a.bounds = a.bounds[:0]

		for j, inst := range insts {
			a.alive[j] = true
			a.bounds = append(a.bounds, inst.Geometry.Bound())
		}
	}
}

// nextSeedArena returns the first arena with instances remaining, or -1
func (m *Matcher) nextSeedArena() int {

	for i := range m.arenas {
		if m.arenas[i].remaining > 0 {
			return i
		}
	}

	return -1
}

// bestMatch returns the index of the remaining instance in a that best
// matches the seed, or -1 when no instance qualifies.  Ties are resolved in
// favour of the earliest instance.
func (m *Matcher) bestMatch(a *arena, seed Instance, seedBound orb.Bound) (int, error) {

	best := -1
	bestScore := math.Inf(-1)
	needOverlap := seed.Geometry.Kind().Areal() && !m.matchDisjoint

	for i := a.head; i < len(a.instances); i++ {

		if !a.alive[i] {
			continue
		}

		cand := &a.instances[i]

		if cand.ClassName != seed.ClassName {
			continue
		}

		// shapes whose bounds do not meet cannot overlap
		if needOverlap && !seedBound.Intersects(a.bounds[i]) {
			continue
		}

		score, err := geometry.Similarity(seed.Geometry, cand.Geometry)

		if err != nil {
			return -1, err
		}

		if needOverlap && score <= 0 {
			continue
		}

		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	return best, nil
}

// scoreCluster appends a Record for every member of the current cluster
func (m *Matcher) scoreCluster(records []Record, imageName string, id int,
	totalProjects int) ([]Record, error) {

	for i, cur := range m.cluster {

		inst := m.arenas[cur.arena].instances[cur.index]
		score := 0.0

		if len(m.cluster) > 1 {
			var sum float64

			for j, other := range m.cluster {
				if i == j {
					continue
				}

				otherInst := m.arenas[other.arena].instances[other.index]
				s, err := geometry.Similarity(inst.Geometry, otherInst.Geometry)

				if err != nil {
					return nil, err
				}

				sum += contribution(inst.Geometry.Kind(), s)
			}

			score = sum / float64(totalProjects-1)
		}

		records = append(records, Record{
			InstanceID:         id,
			ImageName:          imageName,
			ClassName:          inst.ClassName,
			CreatorEmail:       inst.CreatorEmail,
			AttributeGroupName: inst.AttributeGroupName,
			AttributeName:      inst.AttributeName,
			Area:               inst.Geometry.Area(),
			ProjectID:          m.arenas[cur.arena].project,
			Score:              score,
		})
	}

	return records, nil
}

// contribution maps a pairwise similarity into the [0, 1] range.  Point pairs
// that were clustered together always count as full agreement, areal pairs
// contribute their IoU.
func contribution(kind geometry.Kind, s float64) float64 {

	if kind == geometry.KindPoint || s < 0 {
		return 1
	}

	return s
}

// remove flags the instance at index i as consumed
func (a *arena) remove(i int) {

	if !a.alive[i] {
		return
	}

	a.alive[i] = false
	a.remaining--

	for a.head < len(a.alive) && !a.alive[a.head] {
		a.head++
	}
}

func resize(b []bool, n int) []bool {

	if cap(b) < n {
		return make([]bool, n)
	}

	return b[:n]
}
