package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"recruit-backend/internal/shared/metrics"
	"recruit-backend/internal/shared/telemetry"
)

// DefaultConcurrency caps concurrent oracle calls per submission.
const DefaultConcurrency = 4

// Scorer runs chunk, score and aggregate for one CV text.
type Scorer struct {
	Adapter     *Adapter
	ChunkSize   int
	Concurrency int
	Provider    string
	Model       string
}

type chunkOutcome struct {
	done    bool
	result  ScoreResult
	dropErr error
}

// Score fans chunks out to the oracle with bounded concurrency. Results are
// indexed by chunk so aggregation sees them in original order. Chunks whose
// oracle call failed are dropped; if none remain the pass fails.
func (s *Scorer) Score(ctx context.Context, text string, target Target) (Verdict, error) {
	if len(target.Requirements) == 0 {
		return Verdict{}, ErrInvalidTarget
	}
	chunks := Chunk(text, s.ChunkSize)
	report := Report{Chunks: len(chunks), Provider: s.Provider, Model: s.Model}
	if len(chunks) == 0 {
		return Verdict{Report: report}, fmt.Errorf("%w: no text to score", ErrPipelineFailed)
	}

	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	outcomes := make([]chunkOutcome, len(chunks))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					outcomes[i] = chunkOutcome{done: true, dropErr: fmt.Errorf("%w: panic: %v", ErrOracleUnavailable, rec)}
				}
			}()
			res, err := s.Adapter.ScoreChunk(ctx, chunk, target)
			if err != nil {
				outcomes[i] = chunkOutcome{done: true, dropErr: err}
				return nil
			}
			outcomes[i] = chunkOutcome{done: true, result: res}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Verdict{Report: report}, ErrTimeout
		}
		return Verdict{Report: report}, err
	}

	contributing := make([]ChunkResult, 0, len(chunks))
	for i, o := range outcomes {
		switch {
		case !o.done:
			report.Dropped++
			report.Reasons = append(report.Reasons, fmt.Sprintf("chunk %d: not scored", i+1))
		case o.dropErr != nil:
			report.Dropped++
			report.Reasons = append(report.Reasons, fmt.Sprintf("chunk %d: %s", i+1, o.dropErr.Error()))
			telemetry.Warn("scoring.chunk_dropped", map[string]any{
				"chunk":  i + 1,
				"chunks": len(chunks),
				"error":  o.dropErr.Error(),
			})
		case o.result.Kind == Degraded:
			report.Degraded++
			report.Reasons = append(report.Reasons, fmt.Sprintf("chunk %d: %s", i+1, o.result.Reason))
			telemetry.Warn("scoring.chunk_degraded", map[string]any{
				"chunk":  i + 1,
				"chunks": len(chunks),
				"reason": o.result.Reason,
			})
			contributing = append(contributing, o.result.Result)
		default:
			report.Valid++
			contributing = append(contributing, o.result.Result)
		}
	}
	metrics.AddChunks(report.Valid, report.Degraded, report.Dropped)

	agg, err := Aggregate(contributing)
	if err != nil {
		return Verdict{Report: report}, fmt.Errorf("%w: %s", ErrPipelineFailed, strings.Join(report.Reasons, "; "))
	}
	return Verdict{Aggregate: agg, Report: report}, nil
}
