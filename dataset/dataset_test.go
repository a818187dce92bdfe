package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	consensus "github.com/swdee/go-consensus"
)

const catObjects = `[
  {"type": "bbox", "classId": 1, "className": "cat",
   "points": {"x1": 10, "y1": 20, "x2": 30, "y2": 40},
   "attributes": [{"name": "young", "groupName": "age"}, {"name": "tabby", "groupName": "fur"}],
   "createdBy": {"email": "ann@example.com", "role": "Annotator"}},
  {"type": "polygon", "classId": 2, "className": "dog",
   "points": [0, 0, 5, 0, 5, 5], "attributes": []},
  {"type": "point", "classId": 3, "className": "eye", "x": 3.5, "y": 4.5},
  {"type": "bbox", "classId": -1, "points": {"x1": 0, "y1": 0, "x2": 1, "y2": 1}},
  {"type": "meta", "name": "lastAction"},
  {"type": "point", "classId": 3, "className": "eye", "x": 1}
]`

func writeFile(t *testing.T, path, data string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func muteLog(t *testing.T) {
	prev := consensus.Logf
	consensus.SetLogger(nil)
	t.Cleanup(func() { consensus.Logf = prev })
}

func TestParseObjects(t *testing.T) {

	muteLog(t)

	rows, err := ParseObjects("proj", "cat.jpg", []byte(catObjects))
	require.NoError(t, err)

	want := []consensus.Row{
		{Project: "proj", ImageName: "cat.jpg", Type: consensus.TypeBox, ClassName: "cat",
			CreatorEmail: "ann@example.com", AttributeGroupName: "age", AttributeName: "young",
			Points: []float64{10, 20, 30, 40}},
		{Project: "proj", ImageName: "cat.jpg", Type: consensus.TypePolygon, ClassName: "dog",
			Points: []float64{0, 0, 5, 0, 5, 5}},
		{Project: "proj", ImageName: "cat.jpg", Type: consensus.TypePoint, ClassName: "eye",
			Points: []float64{3.5, 4.5}},
	}

	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParseObjectsInvalidJSON(t *testing.T) {
	_, err := ParseObjects("proj", "cat.jpg", []byte(`{"type": "bbox"}`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {

	muteLog(t)

	root := t.TempDir()

	writeFile(t, filepath.Join(root, "alpha", "b.jpg"+ObjectsSuffix),
		`[{"type": "bbox", "className": "car", "points": {"x1": 0, "y1": 0, "x2": 1, "y2": 1}}]`)
	writeFile(t, filepath.Join(root, "alpha", "a.jpg"+ObjectsSuffix),
		`[{"type": "bbox", "className": "car", "points": {"x1": 2, "y1": 2, "x2": 3, "y2": 3}}]`)
	writeFile(t, filepath.Join(root, "alpha", "classes.json"), `[]`)
	writeFile(t, filepath.Join(root, "beta", "a.jpg"+ObjectsSuffix), `[]`)

	ds, err := Load(root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, ds.Projects)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "a.jpg", ds.Rows[0].ImageName)
	assert.Equal(t, "b.jpg", ds.Rows[1].ImageName)

	ds, err = Load(root, []string{"beta"})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, ds.Projects)
	assert.Empty(t, ds.Rows)

	_, err = Load(root, []string{"gamma"})
	assert.Error(t, err)
}

func TestLoadList(t *testing.T) {

	path := filepath.Join(t.TempDir(), "projects.txt")
	writeFile(t, path, "alpha\n\n# disabled\n  beta  \n")

	names, err := LoadList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	_, err = LoadList(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
