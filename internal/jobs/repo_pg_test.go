package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateEncodesRequirements(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	job := Job{ID: "job-1", Title: "Dev", Description: "d", Requirements: []string{"React", "Node"}, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(job.ID, job.Title, job.Description, []byte(`["React","Node"]`), now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetDecodesRequirements(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "requirements", "created_at", "updated_at"}).
		AddRow("job-1", "Dev", "d", []byte(`["Go"]`), now, now)
	mock.ExpectQuery("SELECT id, title, description, requirements").WithArgs("job-1").WillReturnRows(rows)

	job, err := (&PGRepo{DB: db}).Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(job.Requirements) != 1 || job.Requirements[0] != "Go" {
		t.Fatalf("unexpected requirements: %v", job.Requirements)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT id, title").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "requirements", "created_at", "updated_at"}))

	_, err = (&PGRepo{DB: db}).Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoDeleteMissingIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("DELETE FROM jobs").WithArgs("job-9").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := (&PGRepo{DB: db}).Delete(context.Background(), "job-9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
