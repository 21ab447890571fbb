package applications

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"recruit-backend/internal/extract"
	"recruit-backend/internal/jobs"
	"recruit-backend/internal/queue"
	"recruit-backend/internal/scoring"
	"recruit-backend/internal/shared/metrics"
	"recruit-backend/internal/shared/telemetry"
)

// DefaultSubmissionDeadline bounds one Submit call end to end.
const DefaultSubmissionDeadline = 5 * time.Minute

// maxMutationAttempts bounds read-modify-write retries when the caller did
// not pin a revision.
const maxMutationAttempts = 3

// JobLookup resolves the posting a CV is scored against.
type JobLookup interface {
	Get(ctx context.Context, id string) (jobs.Job, error)
}

// DocumentFetcher loads the bytes behind a cv URL.
type DocumentFetcher interface {
	Fetch(ctx context.Context, cvURL string) ([]byte, string, error)
}

// TextExtractor turns document bytes into normalized text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType, fileName string) (extract.Result, error)
}

// Scorer runs chunk, score and aggregate over a text.
type Scorer interface {
	Score(ctx context.Context, text string, target scoring.Target) (scoring.Verdict, error)
}

// Service runs the matching pipeline and the administrator operations.
type Service struct {
	Repo      Repo
	Jobs      JobLookup
	Fetcher   DocumentFetcher
	Extractor TextExtractor
	Scorer    Scorer
	// Recomputer scores recompute passes; nil uses Scorer.
	Recomputer Scorer
	Classifier scoring.Classifier
	Deadline   time.Duration
	Queue      queue.Client
	Now        func() time.Time
}

// SubmitInput is one CV submission. CVText, when non-blank, replaces fetch
// and extraction.
type SubmitInput struct {
	JobID  string
	CVURL  string
	CVText string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) classify(pct int) string {
	if s.Classifier.Threshold == 0 {
		return scoring.NewClassifier(scoring.DefaultShortlistThreshold).Classify(pct)
	}
	return s.Classifier.Classify(pct)
}

// Submit runs extract, score and classify, then creates the application.
// Nothing is written unless every stage succeeds.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Application, error) {
	in.JobID = strings.TrimSpace(in.JobID)
	in.CVURL = strings.TrimSpace(in.CVURL)
	if in.JobID == "" {
		return Application{}, fmt.Errorf("%w: jobId is required", ErrInvalidInput)
	}
	if in.CVURL == "" {
		return Application{}, fmt.Errorf("%w: cvUrl is required", ErrInvalidInput)
	}
	if s.Scorer == nil {
		return Application{}, ErrPipelineNotConfigured
	}

	start := time.Now()
	metrics.IncSubmissionStarted()
	app, err := s.submit(ctx, in)
	elapsed := time.Since(start)
	metrics.ObserveSubmissionDurationMs(float64(elapsed.Milliseconds()))

	fields := map[string]any{
		"job_id":      in.JobID,
		"request_id":  requestIDFromContext(ctx),
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		metrics.IncSubmissionFailed()
		fields["error"] = err.Error()
		telemetry.Warn("submission.failed", fields)
		return Application{}, err
	}
	metrics.IncSubmissionCompleted()
	fields["application_id"] = app.ID
	fields["match_percentage"] = app.Score()
	fields["status"] = app.Status
	if app.Scoring != nil {
		fields["chunks"] = app.Scoring.Chunks
		fields["degraded"] = app.Scoring.Degraded
		fields["dropped"] = app.Scoring.Dropped
	}
	telemetry.Info("submission.completed", fields)
	return app, nil
}

func (s *Service) submit(parent context.Context, in SubmitInput) (Application, error) {
	deadline := s.Deadline
	if deadline <= 0 {
		deadline = DefaultSubmissionDeadline
	}
	ctx, cancel := context.WithTimeout(parent, deadline)
	defer cancel()

	job, err := s.lookupJob(ctx, in.JobID)
	if err != nil {
		return Application{}, timeoutOr(ctx, err)
	}

	text, err := s.documentText(ctx, in)
	if err != nil {
		return Application{}, timeoutOr(ctx, err)
	}

	verdict, err := s.Scorer.Score(ctx, text, target(job))
	if err != nil {
		return Application{}, timeoutOr(ctx, err)
	}

	now := s.now()
	app := Application{
		ID:            uuid.NewString(),
		JobID:         job.ID,
		CVURL:         in.CVURL,
		ExtractedText: text,
		Bookmarked:    false,
		Revision:      1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	app.applyVerdict(verdict, s.classify(verdict.Aggregate.MatchPercentage))
	if err := s.Repo.Create(ctx, app); err != nil {
		return Application{}, timeoutOr(ctx, err)
	}
	return app, nil
}

func (s *Service) lookupJob(ctx context.Context, jobID string) (jobs.Job, error) {
	job, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return jobs.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return jobs.Job{}, err
	}
	if len(job.Requirements) == 0 {
		return jobs.Job{}, fmt.Errorf("%w: job %s has no requirements", ErrInvalidInput, jobID)
	}
	return job, nil
}

// documentText yields non-empty normalized text or ErrExtractionFailed.
// Empty text is rejected rather than scored.
func (s *Service) documentText(ctx context.Context, in SubmitInput) (string, error) {
	if strings.TrimSpace(in.CVText) != "" {
		text := extract.Normalize(in.CVText)
		if text == "" {
			return "", extract.ErrExtractionFailed
		}
		return text, nil
	}
	if s.Fetcher == nil || s.Extractor == nil {
		return "", ErrPipelineNotConfigured
	}
	data, mimeType, err := s.Fetcher.Fetch(ctx, in.CVURL)
	if err != nil {
		return "", err
	}
	res, err := s.Extractor.Extract(ctx, data, mimeType, path.Base(in.CVURL))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(res.Text) == "" {
		return "", extract.ErrExtractionFailed
	}
	return res.Text, nil
}

func target(job jobs.Job) scoring.Target {
	return scoring.Target{Title: job.Title, Requirements: job.Requirements}
}

// timeoutOr reports err as a timeout when ctx hit its deadline.
func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(err, scoring.ErrTimeout) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", scoring.ErrTimeout, err)
	}
	return err
}

// Recompute re-scores the stored text of one application and overwrites the
// score-derived fields in place.
func (s *Service) Recompute(ctx context.Context, id string) (Application, error) {
	scorer := s.Recomputer
	if scorer == nil {
		scorer = s.Scorer
	}
	if scorer == nil {
		return Application{}, ErrPipelineNotConfigured
	}

	app, err := s.Get(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if strings.TrimSpace(app.ExtractedText) == "" {
		return Application{}, ErrEmptyText
	}
	job, err := s.lookupJob(ctx, app.JobID)
	if err != nil {
		return Application{}, err
	}
	verdict, err := scorer.Score(ctx, app.ExtractedText, target(job))
	if err != nil {
		return Application{}, timeoutOr(ctx, err)
	}

	status := s.classify(verdict.Aggregate.MatchPercentage)
	updated, err := s.mutate(ctx, app.ID, 0, func(a *Application) error {
		a.applyVerdict(verdict, status)
		return nil
	})
	if err != nil {
		return Application{}, err
	}
	telemetry.Info("recompute.record_updated", map[string]any{
		"application_id":   updated.ID,
		"job_id":           updated.JobID,
		"match_percentage": updated.Score(),
		"status":           updated.Status,
		"request_id":       requestIDFromContext(ctx),
	})
	return updated, nil
}

// RecomputeAll repairs every record with a missing or zero score, one at a
// time. Per-record failures are collected and never stop the batch.
func (s *Service) RecomputeAll(ctx context.Context) (RecomputeSummary, error) {
	candidates, err := s.Repo.ListNeedingScore(ctx)
	if err != nil {
		return RecomputeSummary{}, err
	}
	summary := RecomputeSummary{Total: len(candidates), Errors: []RecomputeError{}}
	for _, app := range candidates {
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, RecomputeError{ApplicationID: app.ID, Error: err.Error()})
			continue
		}
		if _, err := s.Recompute(ctx, app.ID); err != nil {
			metrics.IncRecomputeFailed()
			summary.Errors = append(summary.Errors, RecomputeError{ApplicationID: app.ID, Error: err.Error()})
			telemetry.Warn("recompute.record_failed", map[string]any{
				"application_id": app.ID,
				"job_id":         app.JobID,
				"error":          err.Error(),
				"request_id":     requestIDFromContext(ctx),
			})
			continue
		}
		metrics.IncRecomputeUpdated()
		summary.Updated++
	}
	telemetry.Info("recompute.batch_completed", map[string]any{
		"total":      summary.Total,
		"updated":    summary.Updated,
		"failed":     len(summary.Errors),
		"request_id": requestIDFromContext(ctx),
	})
	return summary, nil
}

// EnqueueRecomputeAll sends one queue message per record RecomputeAll would select.
func (s *Service) EnqueueRecomputeAll(ctx context.Context) (EnqueueSummary, error) {
	if s.Queue == nil {
		return EnqueueSummary{}, ErrQueueNotConfigured
	}
	candidates, err := s.Repo.ListNeedingScore(ctx)
	if err != nil {
		return EnqueueSummary{}, err
	}
	summary := EnqueueSummary{Total: len(candidates), Errors: []RecomputeError{}}
	requestID := requestIDFromContext(ctx)
	for _, app := range candidates {
		msg := queue.Message{
			ApplicationID: app.ID,
			RequestID:     requestID,
			EnqueuedAt:    s.now().Format(time.RFC3339),
			Version:       queue.MessageVersion,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			summary.Errors = append(summary.Errors, RecomputeError{ApplicationID: app.ID, Error: err.Error()})
			continue
		}
		summary.Queued++
	}
	telemetry.Info("recompute.batch_enqueued", map[string]any{
		"total":      summary.Total,
		"queued":     summary.Queued,
		"failed":     len(summary.Errors),
		"request_id": requestID,
	})
	return summary, nil
}

// ProcessRecompute is the queue consumer entry point.
func (s *Service) ProcessRecompute(ctx context.Context, id string) error {
	_, err := s.Recompute(ctx, id)
	return err
}

func (s *Service) Get(ctx context.Context, id string) (Application, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Application{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

// Delete permanently removes an application.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	return s.Repo.Delete(ctx, id)
}

// List validates and normalizes f before querying.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Application, error) {
	f, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return s.Repo.List(ctx, f)
}

func normalizeFilter(f ListFilter) (ListFilter, error) {
	f.Status = strings.TrimSpace(f.Status)
	switch f.Status {
	case "", StatusFilterAll:
		f.Status = StatusFilterAll
	case StatusPending, StatusShortlisted:
	default:
		return ListFilter{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	f.Sort = strings.TrimSpace(f.Sort)
	switch f.Sort {
	case "":
		f.Sort = SortNewest
	case SortNewest, SortOldest, SortMatchHigh, SortMatchLow:
	default:
		return ListFilter{}, fmt.Errorf("%w: unknown sort %q", ErrInvalidInput, f.Sort)
	}
	f.JobID = strings.TrimSpace(f.JobID)
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

// SetStatus overrides the classifier. revision 0 means current.
func (s *Service) SetStatus(ctx context.Context, id, status string, revision int64) (Application, error) {
	return s.Update(ctx, id, Patch{Status: &status}, revision)
}

// SetBookmark sets the bookmark flag. revision 0 means current.
func (s *Service) SetBookmark(ctx context.Context, id string, bookmarked bool, revision int64) (Application, error) {
	return s.Update(ctx, id, Patch{Bookmarked: &bookmarked}, revision)
}

// ToggleBookmark flips the bookmark flag on the current revision.
func (s *Service) ToggleBookmark(ctx context.Context, id string) (Application, error) {
	return s.mutate(ctx, id, 0, func(a *Application) error {
		a.Bookmarked = !a.Bookmarked
		return nil
	})
}

// Update applies a partial administrator patch.
func (s *Service) Update(ctx context.Context, id string, p Patch, revision int64) (Application, error) {
	if p.Status == nil && p.Bookmarked == nil {
		return Application{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if p.Status != nil {
		st := strings.TrimSpace(*p.Status)
		if st != StatusPending && st != StatusShortlisted {
			return Application{}, fmt.Errorf("%w: status must be %s or %s", ErrInvalidInput, StatusPending, StatusShortlisted)
		}
		p.Status = &st
	}
	if revision < 0 {
		return Application{}, fmt.Errorf("%w: revision must not be negative", ErrInvalidInput)
	}
	return s.mutate(ctx, id, revision, func(a *Application) error {
		if p.Status != nil {
			a.Status = *p.Status
		}
		if p.Bookmarked != nil {
			a.Bookmarked = *p.Bookmarked
		}
		return nil
	})
}

// mutate is a compare-and-swap read-modify-write. A pinned revision fails
// fast on mismatch; revision 0 retries against the latest record.
func (s *Service) mutate(ctx context.Context, id string, revision int64, fn func(*Application) error) (Application, error) {
	attempts := 1
	if revision == 0 {
		attempts = maxMutationAttempts
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		app, err := s.Get(ctx, id)
		if err != nil {
			return Application{}, err
		}
		if revision != 0 && app.Revision != revision {
			return Application{}, fmt.Errorf("%w: have %d, got %d", ErrRevisionConflict, app.Revision, revision)
		}
		if err := fn(&app); err != nil {
			return Application{}, err
		}
		app.UpdatedAt = s.now()
		updated, err := s.Repo.Replace(ctx, app, app.Revision)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, ErrRevisionConflict) {
			return Application{}, err
		}
		lastErr = err
	}
	return Application{}, lastErr
}
