package applications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"recruit-backend/internal/scoring"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, job_id, cv_url, extracted_text, match_percentage, matched_skills, ai_summary, status, bookmarked, scoring, revision, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, app Application) error {
	const query = `
INSERT INTO applications (` + selectColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	skills, summary, report, err := encodeJSONColumns(app)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(
		ctx,
		query,
		app.ID,
		app.JobID,
		app.CVURL,
		app.ExtractedText,
		nullInt(app.MatchPercentage),
		skills,
		summary,
		app.Status,
		app.Bookmarked,
		report,
		app.Revision,
		app.CreatedAt,
		app.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Application, error) {
	query := `SELECT ` + selectColumns + ` FROM applications WHERE id = $1`
	app, err := scanApplication(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	return app, nil
}

func (r *PGRepo) List(ctx context.Context, f ListFilter) ([]Application, error) {
	query, args := buildListQuery(f)
	return r.query(ctx, query, args...)
}

func (r *PGRepo) ListNeedingScore(ctx context.Context) ([]Application, error) {
	query := `SELECT ` + selectColumns + `
FROM applications
WHERE match_percentage IS NULL OR match_percentage = 0
ORDER BY created_at ASC`
	return r.query(ctx, query)
}

func (r *PGRepo) Replace(ctx context.Context, app Application, expected int64) (Application, error) {
	query := `
UPDATE applications
SET match_percentage = $1,
    matched_skills = $2,
    ai_summary = $3,
    status = $4,
    bookmarked = $5,
    scoring = $6,
    updated_at = $7,
    revision = revision + 1
WHERE id = $8 AND revision = $9
RETURNING ` + selectColumns

	skills, summary, report, err := encodeJSONColumns(app)
	if err != nil {
		return Application{}, err
	}
	updated, err := scanApplication(r.DB.QueryRowContext(
		ctx,
		query,
		nullInt(app.MatchPercentage),
		skills,
		summary,
		app.Status,
		app.Bookmarked,
		report,
		app.UpdatedAt,
		app.ID,
		expected,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Application{}, err
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, app.ID).Scan(&exists); err != nil {
		return Application{}, err
	}
	if !exists {
		return Application{}, ErrNotFound
	}
	return Application{}, ErrRevisionConflict
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Application, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// buildListQuery renders the filtered, ordered, paged SELECT for List.
func buildListQuery(f ListFilter) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" && f.Status != StatusFilterAll {
		add("status = $%d", f.Status)
	}
	if f.BookmarkedOnly {
		where = append(where, "bookmarked = TRUE")
	}
	if f.JobID != "" {
		add("job_id = $%d", f.JobID)
	}

	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + "\nFROM applications")
	if len(where) > 0 {
		b.WriteString("\nWHERE " + strings.Join(where, " AND "))
	}
	b.WriteString("\nORDER BY " + orderClause(f.Sort))

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)
	fmt.Fprintf(&b, "\nLIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

func orderClause(order string) string {
	switch order {
	case SortOldest:
		return "created_at ASC"
	case SortMatchHigh:
		return "match_percentage DESC NULLS LAST, created_at DESC"
	case SortMatchLow:
		return "match_percentage ASC NULLS FIRST, created_at DESC"
	default:
		return "created_at DESC"
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (Application, error) {
	var app Application
	var pct sql.NullInt64
	var skills, summary, report []byte
	if err := row.Scan(
		&app.ID,
		&app.JobID,
		&app.CVURL,
		&app.ExtractedText,
		&pct,
		&skills,
		&summary,
		&app.Status,
		&app.Bookmarked,
		&report,
		&app.Revision,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return Application{}, err
	}
	if pct.Valid {
		v := int(pct.Int64)
		app.MatchPercentage = &v
	}
	app.MatchedSkills = []string{}
	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &app.MatchedSkills); err != nil {
			return Application{}, fmt.Errorf("decode matched_skills: %w", err)
		}
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &app.AISummary); err != nil {
			return Application{}, fmt.Errorf("decode ai_summary: %w", err)
		}
	}
	if app.AISummary.Skills == nil {
		app.AISummary.Skills = []string{}
	}
	if len(report) > 0 {
		var rep scoring.Report
		if err := json.Unmarshal(report, &rep); err != nil {
			return Application{}, fmt.Errorf("decode scoring: %w", err)
		}
		app.Scoring = &rep
	}
	return app, nil
}

func encodeJSONColumns(app Application) (skills, summary, report []byte, err error) {
	matched := app.MatchedSkills
	if matched == nil {
		matched = []string{}
	}
	if skills, err = json.Marshal(matched); err != nil {
		return nil, nil, nil, err
	}
	if summary, err = json.Marshal(app.AISummary); err != nil {
		return nil, nil, nil, err
	}
	if app.Scoring != nil {
		if report, err = json.Marshal(app.Scoring); err != nil {
			return nil, nil, nil, err
		}
	}
	return skills, summary, report, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

var _ Repo = (*PGRepo)(nil)
