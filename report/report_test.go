package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	consensus "github.com/swdee/go-consensus"
)

func sampleTable() *consensus.Table {
	return &consensus.Table{
		Projects: []string{"p1", "p2"},
		Records: []consensus.Record{
			{InstanceID: 0, ImageName: "a.jpg", ClassName: "car", CreatorEmail: "ann@example.com",
				AttributeGroupName: "color", AttributeName: "red", Area: 100, ProjectID: "p1", Score: 0.5},
			{InstanceID: 0, ImageName: "a.jpg", ClassName: "car", CreatorEmail: "bob@example.com",
				Area: 64, ProjectID: "p2", Score: 0.5},
			{InstanceID: 1, ImageName: "a.jpg", ClassName: "bus", CreatorEmail: "bob@example.com",
				Area: 12.25, ProjectID: "p2", Score: 0},
		},
	}
}

func TestWriteCSV(t *testing.T) {

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable()))

	want := "creatorEmail,imageName,instanceId,area,className,attributeGroupName,attributeName,p1,p2\n" +
		"ann@example.com,a.jpg,0,100,car,color,red,0.5,\n" +
		"bob@example.com,a.jpg,0,64,car,,,,0.5\n" +
		"bob@example.com,a.jpg,1,12.25,bus,,,,0\n"

	assert.Equal(t, want, buf.String())
}

func TestWriteCSVEmpty(t *testing.T) {

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, &consensus.Table{Projects: []string{"p1"}}))

	assert.Equal(t,
		"creatorEmail,imageName,instanceId,area,className,attributeGroupName,attributeName,p1\n",
		buf.String())
}

func TestStore(t *testing.T) {

	ctx := context.Background()

	store, err := OpenStore(filepath.Join(t.TempDir(), "consensus.db"))
	require.NoError(t, err)
	defer store.Close()

	table := sampleTable()

	runID, err := store.SaveRun(ctx, consensus.TypeBox, table)
	require.NoError(t, err)
	assert.Len(t, runID, 36)

	got, err := store.LoadRun(ctx, runID)
	require.NoError(t, err)

	if diff := cmp.Diff(table, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, consensus.TypeBox, runs[0].AnnotationType)
	assert.Equal(t, []string{"p1", "p2"}, runs[0].Projects)
	assert.Equal(t, 3, runs[0].Records)

	require.NoError(t, store.DeleteRun(ctx, runID))

	_, err = store.LoadRun(ctx, runID)
	assert.Error(t, err)
	assert.Error(t, store.DeleteRun(ctx, runID))

	runs, err = store.Runs(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreReopen(t *testing.T) {

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "consensus.db")

	store, err := OpenStore(path)
	require.NoError(t, err)

	runID, err := store.SaveRun(ctx, consensus.TypePoint, sampleTable())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.LoadRun(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, got.Records, 3)
}

func TestSummaries(t *testing.T) {

	approx := cmpopts.EquateApprox(0, 1e-9)

	byProject := ByProject(sampleTable())
	want := []Summary{
		{Key: "p1", Count: 1, Mean: 0.5, Min: 0.5, Q1: 0.5, Median: 0.5, Q3: 0.5, Max: 0.5},
		{Key: "p2", Count: 2, Mean: 0.25, Min: 0, Q1: 0, Median: 0, Q3: 0.5, Max: 0.5},
	}

	if diff := cmp.Diff(want, byProject, approx); diff != "" {
		t.Errorf("project summary mismatch (-want +got):\n%s", diff)
	}

	byAnnotator := ByAnnotator(sampleTable())
	require.Len(t, byAnnotator, 2)
	assert.Equal(t, "ann@example.com", byAnnotator[0].Key)
	assert.Equal(t, 2, byAnnotator[1].Count)

	byClass := ByClass(sampleTable())
	require.Len(t, byClass, 2)
	assert.Equal(t, "bus", byClass[0].Key)
	assert.Equal(t, "car", byClass[1].Key)
	assert.InDelta(t, 0.5, byClass[1].Mean, 1e-9)
}

func TestSummarize(t *testing.T) {

	s := Summarize("k", []float64{4, 1, 3, 2})

	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 1.0, s.Q1)
	assert.Equal(t, 2.0, s.Median)
	assert.Equal(t, 3.0, s.Q3)

	assert.Equal(t, Summary{Key: "empty"}, Summarize("empty", nil))
}

func TestAreaHistograms(t *testing.T) {

	table := &consensus.Table{
		Records: []consensus.Record{
			{ClassName: "car", Area: 0},
			{ClassName: "car", Area: 5},
			{ClassName: "car", Area: 10},
			{ClassName: "car", Area: 9},
			{ClassName: "bus", Area: 7},
			{ClassName: "bus", Area: 7},
		},
	}

	hists := AreaHistograms(table, 2)
	require.Len(t, hists, 2)

	assert.Equal(t, "bus", hists[0].Key)
	assert.Equal(t, []float64{2, 0}, hists[0].Counts)

	assert.Equal(t, "car", hists[1].Key)
	require.Len(t, hists[1].Dividers, 3)
	assert.Equal(t, 0.0, hists[1].Dividers[0])
	assert.Equal(t, 5.0, hists[1].Dividers[1])
	assert.Equal(t, []float64{1, 3}, hists[1].Counts)
}
