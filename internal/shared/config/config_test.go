package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PIPELINE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ENV", "")
	t.Setenv("OBJECT_STORE", "")

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	want := DefaultPipeline()
	if !reflect.DeepEqual(cfg.Pipeline, want) {
		t.Fatalf("pipeline = %+v, want %+v", cfg.Pipeline, want)
	}
}

func TestLoadPipelineYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	yaml := "chunk_size: 30000\nshortlist_threshold: 80\nconcurrency: 2\noracle_call_timeout: 45s\nocr_languages: [eng]\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("PIPELINE_CONFIG_FILE", path)
	t.Setenv("SCORING_CONCURRENCY", "6")
	t.Setenv("SUBMISSION_DEADLINE", "90")

	cfg := Load()
	p := cfg.Pipeline
	if p.ChunkSize != 30000 {
		t.Fatalf("expected chunk size 30000, got %d", p.ChunkSize)
	}
	if p.ShortlistThreshold != 80 {
		t.Fatalf("expected threshold 80, got %d", p.ShortlistThreshold)
	}
	if p.Concurrency != 6 {
		t.Fatalf("expected env to win with concurrency 6, got %d", p.Concurrency)
	}
	if p.OracleCallTimeout != 45*time.Second {
		t.Fatalf("expected oracle timeout 45s, got %s", p.OracleCallTimeout)
	}
	if p.SubmissionDeadline != 90*time.Second {
		t.Fatalf("expected deadline 90s, got %s", p.SubmissionDeadline)
	}
	if !reflect.DeepEqual(p.OCRLanguages, []string{"eng"}) {
		t.Fatalf("unexpected ocr languages: %v", p.OCRLanguages)
	}
}

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "store gs", got: normalizeStoreType("GS"), want: "gcs"},
		{name: "store s3", got: normalizeStoreType(" s3 "), want: "s3"},
		{name: "store unknown", got: normalizeStoreType("ftp"), want: "local"},
		{name: "provider google", got: normalizeProvider("Google"), want: "gemini"},
		{name: "provider off", got: normalizeProvider("off"), want: "none"},
		{name: "provider empty", got: normalizeProvider(""), want: ""},
		{name: "provider unknown kept", got: normalizeProvider(" Anthropic "), want: "anthropic"},
		{name: "env prod", got: normalizeEnv("PROD"), want: "production"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestShortlistThresholdRejectsZero(t *testing.T) {
	t.Setenv("PIPELINE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	for _, raw := range []string{"0", "-5", "101"} {
		t.Setenv("SHORTLIST_THRESHOLD", raw)
		if got := Load().Pipeline.ShortlistThreshold; got != 70 {
			t.Fatalf("SHORTLIST_THRESHOLD=%s: got %d, want 70", raw, got)
		}
	}
	t.Setenv("SHORTLIST_THRESHOLD", "1")
	if got := Load().Pipeline.ShortlistThreshold; got != 1 {
		t.Fatalf("SHORTLIST_THRESHOLD=1: got %d", got)
	}
}
