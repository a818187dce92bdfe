package consensus

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrUnknownProject is returned when a row belongs to a project missing from
// an explicit project list
var ErrUnknownProject = errors.New("unknown project")

// ErrDuplicateProject is returned when an explicit project list names a
// project more than once
var ErrDuplicateProject = errors.New("duplicate project")

// Run computes consensus for every image in rows and returns the merged
// table.  Only rows of annotType are used.  Images are matched concurrently
// on params.Workers goroutines, the resulting records are ordered by the
// first appearance of each image in rows.
func Run(ctx context.Context, rows []Row, annotType AnnotationType, params Params) (*Table, error) {

	if _, err := ParseAnnotationType(string(annotType)); err != nil {
		return nil, err
	}

	workers := params.Workers

	if workers < 1 {
		workers = 1
	}

	images, byImage, projects := groupRows(rows, annotType, params.Images)

	if len(params.Projects) > 0 {
		known := make(map[string]bool, len(params.Projects))

		for _, p := range params.Projects {
			if known[p] {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateProject, p)
			}

			known[p] = true
		}

		for _, p := range projects {
			if !known[p] {
				return nil, fmt.Errorf("%w: %q", ErrUnknownProject, p)
			}
		}

		projects = append([]string(nil), params.Projects...)
	}

	table := &Table{Projects: projects}

	if len(images) == 0 {
		return table, nil
	}

	Logf("computing %s consensus for %d images across %d projects", annotType,
		len(images), len(projects))

	results := make([][]Record, len(images))
	matchers := NewMatcherPool(workers, params)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range images {
		g.Go(func() error {

			if err := gctx.Err(); err != nil {
				return err
			}

			pool, err := BuildPool(byImage[name], annotType)

			if err != nil {
				return err
			}

			m := matchers.Get()
			defer matchers.Return(m)

			records, err := m.MatchAndScore(name, pool, len(projects))

			if err != nil {
				return err
			}

			results[i] = records
			return nil
		})
	}

	err := g.Wait()
	matchers.Close()

	if err != nil {
		return nil, err
	}

	for _, records := range results {
		table.Records = append(table.Records, records...)
	}

	return table, nil
}

// groupRows buckets the rows of a type by image.  It returns the image names
// and the project names in first seen order.
func groupRows(rows []Row, annotType AnnotationType, only []string) ([]string, map[string][]Row, []string) {

	var allowed map[string]bool

	if len(only) > 0 {
		allowed = make(map[string]bool, len(only))

		for _, name := range only {
			allowed[name] = true
		}
	}

	var images, projects []string
	byImage := make(map[string][]Row)
	seenProject := make(map[string]bool)

	for _, row := range rows {

		if row.Type != annotType {
			continue
		}

		if allowed != nil && !allowed[row.ImageName] {
			continue
		}

		if _, ok := byImage[row.ImageName]; !ok {
			images = append(images, row.ImageName)
		}

		byImage[row.ImageName] = append(byImage[row.ImageName], row)

		if !seenProject[row.Project] {
			seenProject[row.Project] = true
			projects = append(projects, row.Project)
		}
	}

	return images, byImage, projects
}
