package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	consensus "github.com/swdee/go-consensus"
	_ "modernc.org/sqlite"
)

// Store persists consensus tables in a SQLite database.  Every saved table
// is a run identified by a UUID.
type Store struct {
	*sql.DB
}

// Run describes a saved consensus table
type Run struct {
	ID             string
	AnnotationType consensus.AnnotationType
	Projects       []string
	Records        int
	CreatedAt      time.Time
}

// OpenStore opens or creates the database at path
func OpenStore(path string) (*Store, error) {

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			annotation_type   TEXT NOT NULL,
			created_at        BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS run_projects (
			run_id            TEXT NOT NULL,
			position          BIGINT NOT NULL,
			project           TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		);
		CREATE TABLE IF NOT EXISTS records (
			run_id               TEXT NOT NULL,
			seq                  BIGINT NOT NULL,
			image_name           TEXT NOT NULL,
			instance_id          BIGINT NOT NULL,
			class_name           TEXT,
			creator_email        TEXT,
			attribute_group_name TEXT,
			attribute_name       TEXT,
			area                 DOUBLE,
			project              TEXT NOT NULL,
			score                DOUBLE,
			PRIMARY KEY (run_id, seq)
		);
	`)

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}

	return &Store{db}, nil
}

// SaveRun stores the table in a single transaction and returns the new run id
func (s *Store) SaveRun(ctx context.Context, annotType consensus.AnnotationType,
	t *consensus.Table) (string, error) {

	runID := uuid.New().String()

	tx, err := s.BeginTx(ctx, nil)

	if err != nil {
		return "", err
	}

	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, annotation_type, created_at) VALUES (?, ?, ?)`,
		runID, string(annotType), time.Now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("error inserting run: %w", err)
	}

	for i, project := range t.Projects {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_projects (run_id, position, project) VALUES (?, ?, ?)`,
			runID, i, project,
		); err != nil {
			return "", fmt.Errorf("error inserting run project: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (
			run_id, seq, image_name, instance_id, class_name, creator_email,
			attribute_group_name, attribute_name, area, project, score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	if err != nil {
		return "", err
	}

	defer stmt.Close()

	for i, r := range t.Records {
		if _, err := stmt.ExecContext(ctx,
			runID, i, r.ImageName, r.InstanceID, r.ClassName, r.CreatorEmail,
			r.AttributeGroupName, r.AttributeName, r.Area, r.ProjectID, r.Score,
		); err != nil {
			return "", fmt.Errorf("error inserting record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return runID, nil
}

// LoadRun reads back the table of a saved run
func (s *Store) LoadRun(ctx context.Context, runID string) (*consensus.Table, error) {

	projects, err := s.runProjects(ctx, runID)

	if err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, `SELECT image_name, instance_id, class_name,
			creator_email, attribute_group_name, attribute_name, area, project, score
		FROM records WHERE run_id = ? ORDER BY seq`, runID)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	t := &consensus.Table{Projects: projects}

	for rows.Next() {
		var r consensus.Record

		if err := rows.Scan(&r.ImageName, &r.InstanceID, &r.ClassName, &r.CreatorEmail,
			&r.AttributeGroupName, &r.AttributeName, &r.Area, &r.ProjectID, &r.Score,
		); err != nil {
			return nil, fmt.Errorf("error scanning record: %w", err)
		}

		t.Records = append(t.Records, r)
	}

	return t, rows.Err()
}

// Runs lists the saved runs, newest first
func (s *Store) Runs(ctx context.Context) ([]Run, error) {

	rows, err := s.QueryContext(ctx, `SELECT r.run_id, r.annotation_type, r.created_at,
			(SELECT COUNT(*) FROM records WHERE records.run_id = r.run_id)
		FROM runs r ORDER BY r.created_at DESC, r.run_id`)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var run Run
		var annotType string
		var created int64

		if err := rows.Scan(&run.ID, &annotType, &created, &run.Records); err != nil {
			return nil, fmt.Errorf("error scanning run: %w", err)
		}

		run.AnnotationType = consensus.AnnotationType(annotType)
		run.CreatedAt = time.Unix(0, created)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if runs[i].Projects, err = s.runProjects(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

// DeleteRun removes a run and its records
func (s *Store) DeleteRun(ctx context.Context, runID string) error {

	tx, err := s.BeginTx(ctx, nil)

	if err != nil {
		return err
	}

	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)

	if err != nil {
		return err
	}

	n, err := res.RowsAffected()

	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("run %q not found", runID)
	}

	for _, table := range []string{"run_projects", "records"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("error deleting %s: %w", table, err)
		}
	}

	return tx.Commit()
}

func (s *Store) runProjects(ctx context.Context, runID string) ([]string, error) {

	var exists int

	err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists)

	if err != nil {
		return nil, err
	}

	if exists == 0 {
		return nil, fmt.Errorf("run %q not found", runID)
	}

	rows, err := s.QueryContext(ctx,
		`SELECT project FROM run_projects WHERE run_id = ? ORDER BY position`, runID)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var projects []string

	for rows.Next() {
		var p string

		if err := rows.Scan(&p); err != nil {
			return nil, err
		}

		projects = append(projects, p)
	}

	return projects, rows.Err()
}
