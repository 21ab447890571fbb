package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	submissionsStartedTotal   atomic.Uint64
	submissionsCompletedTotal atomic.Uint64
	submissionsFailedTotal    atomic.Uint64

	chunksValidTotal    atomic.Uint64
	chunksDegradedTotal atomic.Uint64
	chunksDroppedTotal  atomic.Uint64

	ocrFallbackTotal atomic.Uint64

	recomputeUpdatedTotal atomic.Uint64
	recomputeFailedTotal  atomic.Uint64

	recomputeJobsReceivedTotal             atomic.Uint64
	recomputeJobsCompletedTotal            atomic.Uint64
	recomputeJobsFailedTotal               atomic.Uint64
	recomputeJobsDeletedUnrecoverableTotal atomic.Uint64

	submissionDuration = newHistogram([]float64{500, 1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000})
	oracleDuration     = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

func IncSubmissionStarted()   { submissionsStartedTotal.Add(1) }
func IncSubmissionCompleted() { submissionsCompletedTotal.Add(1) }
func IncSubmissionFailed()    { submissionsFailedTotal.Add(1) }

// AddChunks records the outcome of one scoring pass.
func AddChunks(valid, degraded, dropped int) {
	chunksValidTotal.Add(uint64(max(valid, 0)))
	chunksDegradedTotal.Add(uint64(max(degraded, 0)))
	chunksDroppedTotal.Add(uint64(max(dropped, 0)))
}

func IncOCRFallback()      { ocrFallbackTotal.Add(1) }
func IncRecomputeUpdated() { recomputeUpdatedTotal.Add(1) }
func IncRecomputeFailed()  { recomputeFailedTotal.Add(1) }

func IncRecomputeJobsReceived()             { recomputeJobsReceivedTotal.Add(1) }
func IncRecomputeJobsCompleted()            { recomputeJobsCompletedTotal.Add(1) }
func IncRecomputeJobsFailed()               { recomputeJobsFailedTotal.Add(1) }
func IncRecomputeJobsDeletedUnrecoverable() { recomputeJobsDeletedUnrecoverableTotal.Add(1) }

// ObserveSubmissionDurationMs records an end-to-end submission duration in milliseconds.
func ObserveSubmissionDurationMs(value float64) {
	submissionDuration.Observe(clampZero(value))
}

// ObserveOracleDurationMs records a single oracle call duration in milliseconds.
func ObserveOracleDurationMs(value float64) {
	oracleDuration.Observe(clampZero(value))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "submissions_started_total", "Total CV submissions started", submissionsStartedTotal.Load())
	writeCounter(&buf, "submissions_completed_total", "Total CV submissions persisted", submissionsCompletedTotal.Load())
	writeCounter(&buf, "submissions_failed_total", "Total CV submissions failed", submissionsFailedTotal.Load())
	writeCounter(&buf, "scoring_chunks_valid_total", "Chunks scored with a valid oracle response", chunksValidTotal.Load())
	writeCounter(&buf, "scoring_chunks_degraded_total", "Chunks replaced by a degraded result", chunksDegradedTotal.Load())
	writeCounter(&buf, "scoring_chunks_dropped_total", "Chunks dropped because the oracle was unavailable", chunksDroppedTotal.Load())
	writeCounter(&buf, "extract_ocr_fallback_total", "Extractions that fell back to OCR", ocrFallbackTotal.Load())
	writeCounter(&buf, "recompute_updated_total", "Applications rescored by recompute", recomputeUpdatedTotal.Load())
	writeCounter(&buf, "recompute_failed_total", "Applications that failed to recompute", recomputeFailedTotal.Load())
	writeCounter(&buf, "recompute_jobs_received_total", "Recompute queue messages received", recomputeJobsReceivedTotal.Load())
	writeCounter(&buf, "recompute_jobs_completed_total", "Recompute queue messages completed", recomputeJobsCompletedTotal.Load())
	writeCounter(&buf, "recompute_jobs_failed_total", "Recompute queue messages failed", recomputeJobsFailedTotal.Load())
	writeCounter(&buf, "recompute_jobs_deleted_unrecoverable_total", "Recompute queue messages dropped as unrecoverable", recomputeJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "submission_duration_ms", "Submission duration in milliseconds", submissionDuration.Snapshot())
	writeHistogram(&buf, "oracle_call_duration_ms", "Oracle call duration in milliseconds", oracleDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket whose bound is >= value.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
