package jobs

import (
	"context"
	"time"

	"recruit-backend/internal/shared/cache"
	"recruit-backend/internal/shared/telemetry"
)

// DefaultCacheTTL is used when CachedRepo.TTL is unset.
const DefaultCacheTTL = 5 * time.Minute

// CachedRepo is a read-through cache for Get in front of another Repo.
// Cache failures are logged and fall through to the backing repo.
type CachedRepo struct {
	Next  Repo
	Cache cache.JSONCache
	TTL   time.Duration
}

func cacheKey(id string) string { return "job:" + id }

func (r *CachedRepo) Create(ctx context.Context, job Job) error {
	return r.Next.Create(ctx, job)
}

func (r *CachedRepo) Get(ctx context.Context, id string) (Job, error) {
	var job Job
	hit, err := r.Cache.GetJSON(ctx, cacheKey(id), &job)
	if err != nil {
		telemetry.Warn("jobs.cache_get_failed", map[string]any{"job_id": id, "error": err.Error()})
	}
	if hit {
		return job, nil
	}

	job, err = r.Next.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := r.Cache.SetJSON(ctx, cacheKey(id), job, ttl); err != nil {
		telemetry.Warn("jobs.cache_set_failed", map[string]any{"job_id": id, "error": err.Error()})
	}
	return job, nil
}

func (r *CachedRepo) List(ctx context.Context) ([]Job, error) {
	return r.Next.List(ctx)
}

func (r *CachedRepo) Update(ctx context.Context, job Job) error {
	if err := r.Next.Update(ctx, job); err != nil {
		return err
	}
	r.invalidate(ctx, job.ID)
	return nil
}

func (r *CachedRepo) Delete(ctx context.Context, id string) error {
	if err := r.Next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedRepo) invalidate(ctx context.Context, id string) {
	if err := r.Cache.Del(ctx, cacheKey(id)); err != nil {
		telemetry.Warn("jobs.cache_del_failed", map[string]any{"job_id": id, "error": err.Error()})
	}
}

var _ Repo = (*CachedRepo)(nil)
