package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO jobs (id, title, description, requirements, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	reqs, err := json.Marshal(nonNil(job.Requirements))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, job.ID, job.Title, job.Description, reqs, job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Job, error) {
	const query = `
SELECT id, title, description, requirements, created_at, updated_at
FROM jobs
WHERE id = $1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// List returns jobs ordered newest-first.
func (r *PGRepo) List(ctx context.Context) ([]Job, error) {
	const query = `
SELECT id, title, description, requirements, created_at, updated_at
FROM jobs
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, job Job) error {
	const query = `
UPDATE jobs
SET title = $1, description = $2, requirements = $3, updated_at = $4
WHERE id = $5`
	reqs, err := json.Marshal(nonNil(job.Requirements))
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, job.Title, job.Description, reqs, job.UpdatedAt, job.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var reqs []byte
	if err := row.Scan(&job.ID, &job.Title, &job.Description, &reqs, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return Job{}, err
	}
	job.Requirements = []string{}
	if len(reqs) > 0 {
		if err := json.Unmarshal(reqs, &job.Requirements); err != nil {
			return Job{}, err
		}
	}
	return job, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
