package applications

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Application
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Application)}
}

func (r *MemoryRepo) Create(ctx context.Context, app Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[app.ID] = clone(app)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.data[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	return clone(app), nil
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Application, 0, len(r.data))
	for _, app := range r.data {
		if matches(app, f) {
			out = append(out, clone(app))
		}
	}
	r.mu.RUnlock()

	sortApplications(out, f.Sort)
	return page(out, f.Limit, f.Offset), nil
}

// ListNeedingScore returns records with a missing or zero score, oldest first.
func (r *MemoryRepo) ListNeedingScore(ctx context.Context) ([]Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []Application{}
	for _, app := range r.data {
		if app.NeedsScore() {
			out = append(out, clone(app))
		}
	}
	r.mu.RUnlock()
	sortApplications(out, SortOldest)
	return out, nil
}

func (r *MemoryRepo) Replace(ctx context.Context, app Application, expected int64) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.data[app.ID]
	if !ok {
		return Application{}, ErrNotFound
	}
	if current.Revision != expected {
		return Application{}, ErrRevisionConflict
	}
	current.MatchPercentage = app.MatchPercentage
	current.MatchedSkills = app.MatchedSkills
	current.AISummary = app.AISummary
	current.Status = app.Status
	current.Bookmarked = app.Bookmarked
	current.Scoring = app.Scoring
	current.UpdatedAt = app.UpdatedAt
	current.Revision = expected + 1
	current = clone(current)
	r.data[app.ID] = current
	return clone(current), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func matches(app Application, f ListFilter) bool {
	if f.Status != "" && f.Status != StatusFilterAll && app.Status != f.Status {
		return false
	}
	if f.BookmarkedOnly && !app.Bookmarked {
		return false
	}
	if f.JobID != "" && app.JobID != f.JobID {
		return false
	}
	return true
}

// sortApplications orders in place. Missing scores sort below every real score.
func sortApplications(apps []Application, order string) {
	score := func(a Application) int {
		if a.MatchPercentage == nil {
			return -1
		}
		return *a.MatchPercentage
	}
	sort.SliceStable(apps, func(i, j int) bool {
		a, b := apps[i], apps[j]
		switch order {
		case SortOldest:
			return a.CreatedAt.Before(b.CreatedAt)
		case SortMatchHigh:
			if score(a) != score(b) {
				return score(a) > score(b)
			}
		case SortMatchLow:
			if score(a) != score(b) {
				return score(a) < score(b)
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func page(apps []Application, limit, offset int) []Application {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(apps) {
		return []Application{}
	}
	end := len(apps)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return apps[offset:end]
}

var _ Repo = (*MemoryRepo)(nil)
