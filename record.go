package consensus

// Record is one row of the consensus table, describing a single instance
// that took part in a cluster
type Record struct {
	// InstanceID identifies the cluster on its image.  It counts from zero
	// per image and is shared by all members of a cluster.
	InstanceID         int
	ImageName          string
	ClassName          string
	CreatorEmail       string
	AttributeGroupName string
	AttributeName      string
	// Area is the area of the instance geometry, zero for points
	Area float64
	// ProjectID is the project the instance belongs to
	ProjectID string
	// Score is the consensus score of the instance within its cluster
	Score float64
}

// ScoreFor returns the value of the record's score column for the given
// project.  Only the record's own project has a value, every other column
// is null.
func (r Record) ScoreFor(project string) (float64, bool) {

	if project != r.ProjectID {
		return 0, false
	}

	return r.Score, true
}

// Table is the consensus result for a whole dataset
type Table struct {
	// Projects lists the score columns in order
	Projects []string
	// Records holds the rows ordered by image and instance id
	Records []Record
}

// Images returns the distinct image names in record order
func (t *Table) Images() []string {

	seen := make(map[string]bool)
	var images []string

	for _, r := range t.Records {
		if !seen[r.ImageName] {
			seen[r.ImageName] = true
			images = append(images, r.ImageName)
		}
	}

	return images
}
