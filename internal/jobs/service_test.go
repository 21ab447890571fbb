package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceCreateValidation(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	tests := []struct {
		name string
		in   Input
	}{
		{name: "blank title", in: Input{Title: "  ", Description: "d", Requirements: []string{"Go"}}},
		{name: "blank description", in: Input{Title: "t", Requirements: []string{"Go"}}},
		{name: "missing requirements", in: Input{Title: "t", Description: "d"}},
		{name: "only blank requirements", in: Input{Title: "t", Description: "d", Requirements: []string{" ", ""}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestServiceCreateTrimsRequirements(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	job, err := svc.Create(context.Background(), Input{Title: " Dev ", Description: "d", Requirements: []string{" React ", "", "Node"}})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "Dev", job.Title)
	assert.Equal(t, []string{"React", "Node"}, job.Requirements)
}

func TestServiceListNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc := &Service{Repo: NewMemoryRepo(), Now: func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	}}
	ctx := context.Background()
	first, err := svc.Create(ctx, Input{Title: "a", Description: "d", Requirements: []string{"x"}})
	require.NoError(t, err)
	second, err := svc.Create(ctx, Input{Title: "b", Description: "d", Requirements: []string{"x"}})
	require.NoError(t, err)

	out, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, second.ID, out[0].ID)
	assert.Equal(t, first.ID, out[1].ID)
}

func TestServiceUpdateKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	svc := &Service{Repo: NewMemoryRepo()}
	job, err := svc.Create(ctx, Input{Title: "a", Description: "d", Requirements: []string{"x"}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, job.ID, Input{Title: "b", Description: "d2", Requirements: []string{"y"}})
	require.NoError(t, err)
	assert.Equal(t, job.CreatedAt, updated.CreatedAt)
	assert.Equal(t, []string{"y"}, updated.Requirements)

	_, err = svc.Update(ctx, "missing", Input{Title: "b", Description: "d2", Requirements: []string{"y"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	svc := &Service{Repo: NewMemoryRepo()}
	job, err := svc.Create(ctx, Input{Title: "a", Description: "d", Requirements: []string{"x"}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, job.ID))
	_, err = svc.Get(ctx, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, job.ID), ErrNotFound)
}
