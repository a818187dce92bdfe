// Package report writes, stores and summarises consensus tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	consensus "github.com/swdee/go-consensus"
)

// baseColumns are the leading CSV columns, one score column per project
// follows them
var baseColumns = []string{
	"creatorEmail", "imageName", "instanceId", "area", "className",
	"attributeGroupName", "attributeName",
}

// Header returns the CSV header for a table
func Header(t *consensus.Table) []string {
	header := append([]string(nil), baseColumns...)
	return append(header, t.Projects...)
}

// WriteCSV writes the table with one row per record.  Score columns of
// projects that are not the record's own project are left empty.
func WriteCSV(w io.Writer, t *consensus.Table) error {

	cw := csv.NewWriter(w)

	if err := cw.Write(Header(t)); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	line := make([]string, len(baseColumns)+len(t.Projects))

	for _, r := range t.Records {
		line[0] = r.CreatorEmail
		line[1] = r.ImageName
		line[2] = strconv.Itoa(r.InstanceID)
		line[3] = formatFloat(r.Area)
		line[4] = r.ClassName
		line[5] = r.AttributeGroupName
		line[6] = r.AttributeName

		for i, project := range t.Projects {
			line[len(baseColumns)+i] = ""

			if score, ok := r.ScoreFor(project); ok {
				line[len(baseColumns)+i] = formatFloat(score)
			}
		}

		if err := cw.Write(line); err != nil {
			return fmt.Errorf("error writing csv record: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
