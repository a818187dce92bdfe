package agreement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	consensus "github.com/swdee/go-consensus"
	"github.com/swdee/go-consensus/geometry"
)

func boxInst(project, class string, x1, y1, x2, y2 float64) consensus.Instance {
	return consensus.Instance{
		Geometry:  geometry.NewBox(x1, y1, x2, y2),
		ClassName: class,
		ProjectID: project,
	}
}

func pointInst(project, class string, x, y float64) consensus.Instance {
	return consensus.Instance{
		Geometry:  geometry.Point{X: x, Y: y},
		ClassName: class,
		ProjectID: project,
	}
}

func newPool(projects []string, insts ...consensus.Instance) *consensus.ImagePool {

	pool := consensus.NewImagePool()

	for _, p := range projects {
		pool.AddProject(p)
	}

	for _, inst := range insts {
		pool.Add(inst)
	}

	return pool
}

func TestParamsValidate(t *testing.T) {

	assert.NoError(t, DefaultParams().Validate())
	assert.NoError(t, Params{MinIoU: 0, MaxPointDistance: 1}.Validate())

	for _, p := range []Params{
		{MinIoU: 1, MaxPointDistance: 1},
		{MinIoU: -0.1, MaxPointDistance: 1},
		{MinIoU: 0.5, MaxPointDistance: 0},
		{MinIoU: 0.5, MaxPointDistance: large},
	} {
		assert.ErrorIs(t, p.Validate(), ErrInvalidParams, "%+v", p)
	}
}

func TestPairwiseBoxes(t *testing.T) {

	pool := newPool([]string{"p1", "p2", "p3"},
		boxInst("p1", "car", 0, 0, 10, 10),
		boxInst("p1", "car", 20, 20, 30, 30),
		boxInst("p2", "car", 21, 20, 31, 30),
		boxInst("p2", "car", 0, 0, 10, 9),
		boxInst("p3", "bus", 0, 0, 10, 10),
		boxInst("p3", "car", 100, 100, 110, 110),
	)

	matches, err := Pairwise(pool, DefaultParams())
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "p1", matches[0].ProjectA)
	assert.Equal(t, "p2", matches[0].ProjectB)
	assert.Equal(t, 0, matches[0].IndexA)
	assert.Equal(t, 1, matches[0].IndexB)
	assert.InDelta(t, 0.9, matches[0].Similarity, 1e-9)

	assert.Equal(t, 1, matches[1].IndexA)
	assert.Equal(t, 0, matches[1].IndexB)
	assert.InDelta(t, 90.0/110.0, matches[1].Similarity, 1e-9)
}

func TestPairwiseMinIoU(t *testing.T) {

	pool := newPool(nil,
		boxInst("p1", "car", 0, 0, 10, 10),
		boxInst("p2", "car", 5, 0, 15, 10),
	)

	// IoU of the pair is 1/3
	matches, err := Pairwise(pool, Params{MinIoU: 0.3, MaxPointDistance: 1})
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = Pairwise(pool, Params{MinIoU: 0.4, MaxPointDistance: 1})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPairwisePoints(t *testing.T) {

	pool := newPool(nil,
		pointInst("p1", "eye", 0, 0),
		pointInst("p2", "eye", 3, 4),
		pointInst("p2", "eye", 1, 0),
		pointInst("p2", "eye", 50, 50),
	)

	matches, err := Pairwise(pool, DefaultParams())
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.Equal(t, 1, matches[0].IndexB)
	assert.InDelta(t, -1.0, matches[0].Similarity, 1e-9)
}

func TestPairwiseInvalidParams(t *testing.T) {
	_, err := Pairwise(newPool([]string{"p1"}), Params{MinIoU: 2})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestMatrix(t *testing.T) {

	m := NewMatrix([]string{"p1", "p2", "p3"})

	require.NoError(t, m.Add(newPool(nil,
		boxInst("p1", "car", 0, 0, 10, 10),
		boxInst("p2", "car", 0, 0, 10, 10),
		boxInst("p2", "car", 50, 50, 60, 60),
	), DefaultParams()))

	require.NoError(t, m.Add(newPool(nil,
		boxInst("p1", "car", 0, 0, 10, 10),
		boxInst("p2", "car", 0, 0, 10, 8),
		boxInst("p3", "car", 0, 0, 10, 10),
	), DefaultParams()))

	s, ok := m.Pair("p1", "p2")
	require.True(t, ok)
	assert.Equal(t, 2, s.Images)
	assert.Equal(t, 2, s.InstancesA)
	assert.Equal(t, 3, s.InstancesB)
	assert.Equal(t, 2, s.Matched)
	assert.InDelta(t, 0.9, s.MeanSimilarity(), 1e-9)
	assert.InDelta(t, 0.8, s.F1(), 1e-9)

	rev, ok := m.Pair("p2", "p1")
	require.True(t, ok)
	assert.Equal(t, "p2", rev.ProjectA)
	assert.Equal(t, 3, rev.InstancesA)
	assert.Equal(t, 2, rev.InstancesB)
	assert.InDelta(t, s.MeanSimilarity(), rev.MeanSimilarity(), 1e-12)

	s, ok = m.Pair("p1", "p3")
	require.True(t, ok)
	assert.Equal(t, 1, s.Matched)
	assert.Equal(t, 1, s.InstancesB)

	_, ok = m.Pair("p1", "p1")
	assert.False(t, ok)
	_, ok = m.Pair("p1", "p9")
	assert.False(t, ok)

	pairs := m.Pairs()
	require.Len(t, pairs, 3)
	assert.Equal(t, "p2", pairs[2].ProjectA)
	assert.Equal(t, "p3", pairs[2].ProjectB)
	assert.Equal(t, 1, pairs[2].Matched)
	assert.InDelta(t, 0.8, pairs[2].MeanSimilarity(), 1e-9)

	empty := NewMatrix([]string{"p1", "p2"}).Pairs()
	require.Len(t, empty, 1)
	assert.Equal(t, 0.0, empty[0].MeanSimilarity())
	assert.Equal(t, 0.0, empty[0].F1())

	err := m.Add(newPool(nil, boxInst("p9", "car", 0, 0, 1, 1)), DefaultParams())
	assert.ErrorIs(t, err, consensus.ErrUnknownProject)
}

func TestCompute(t *testing.T) {

	prev := consensus.Logf
	consensus.SetLogger(nil)
	t.Cleanup(func() { consensus.Logf = prev })

	rows := []consensus.Row{
		{Project: "p1", ImageName: "a.jpg", Type: consensus.TypeBox, ClassName: "car",
			Points: []float64{0, 0, 10, 10}},
		{Project: "p2", ImageName: "a.jpg", Type: consensus.TypeBox, ClassName: "car",
			Points: []float64{0, 0, 10, 10}},
		{Project: "p2", ImageName: "b.jpg", Type: consensus.TypeBox, ClassName: "car",
			Points: []float64{0, 0, 10, 10}},
		{Project: "p1", ImageName: "b.jpg", Type: consensus.TypePoint, ClassName: "eye",
			Points: []float64{1, 1}},
	}

	m, err := Compute(context.Background(), rows, consensus.TypeBox, nil, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, m.Projects())

	s, ok := m.Pair("p1", "p2")
	require.True(t, ok)
	assert.Equal(t, 2, s.Images)
	assert.Equal(t, 1, s.Matched)
	assert.Equal(t, 1, s.InstancesA)
	assert.Equal(t, 2, s.InstancesB)

	_, err = Compute(context.Background(), rows, consensus.TypeBox, []string{"p1"}, DefaultParams())
	assert.ErrorIs(t, err, consensus.ErrUnknownProject)

	_, err = Compute(context.Background(), rows, "mask", nil, DefaultParams())
	assert.ErrorIs(t, err, consensus.ErrUnknownAnnotationType)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Compute(ctx, rows, consensus.TypeBox, nil, DefaultParams())
	assert.ErrorIs(t, err, context.Canceled)
}
