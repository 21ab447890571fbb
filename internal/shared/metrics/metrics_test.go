package metrics

import (
	"strings"
	"testing"
)

func TestHistogramCumulativeBuckets(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected bucket counts: %v", snap.counts)
	}

	var cumulative uint64
	for i := range snap.buckets {
		cumulative += snap.counts[i]
	}
	if cumulative != 2 {
		t.Fatalf("expected 2 observations inside finite buckets, got %d", cumulative)
	}
}

func TestRenderIncludesPipelineCounters(t *testing.T) {
	AddChunks(2, 1, 1)
	IncOCRFallback()

	out := Render()
	for _, name := range []string{
		"scoring_chunks_valid_total",
		"scoring_chunks_degraded_total",
		"scoring_chunks_dropped_total",
		"extract_ocr_fallback_total",
		"submission_duration_ms_bucket{le=\"+Inf\"}",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("missing %s in metrics output", name)
		}
	}
}
