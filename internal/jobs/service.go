package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Input is the writable part of a Job.
type Input struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
}

// Service contains business logic for jobs.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create validates in and stores a new job.
func (s *Service) Create(ctx context.Context, in Input) (Job, error) {
	in, err := validate(in)
	if err != nil {
		return Job{}, err
	}
	now := s.now()
	job := Job{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		Requirements: in.Requirements,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Update replaces the writable fields of an existing job.
func (s *Service) Update(ctx context.Context, id string, in Input) (Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Job{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	in, err := validate(in)
	if err != nil {
		return Job{}, err
	}
	job, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	job.Title = in.Title
	job.Description = in.Description
	job.Requirements = in.Requirements
	job.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Job{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

// List returns all jobs, newest first.
func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.Repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	return s.Repo.Delete(ctx, id)
}

func validate(in Input) (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return Input{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Description == "" {
		return Input{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if in.Requirements == nil {
		return Input{}, fmt.Errorf("%w: requirements must be an array", ErrInvalidInput)
	}
	reqs := make([]string, 0, len(in.Requirements))
	for _, r := range in.Requirements {
		if r = strings.TrimSpace(r); r != "" {
			reqs = append(reqs, r)
		}
	}
	if len(reqs) == 0 {
		return Input{}, fmt.Errorf("%w: at least one requirement is required", ErrInvalidInput)
	}
	in.Requirements = reqs
	return in, nil
}
