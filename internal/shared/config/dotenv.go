package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// loadEnvFiles loads KEY=VALUE pairs from the given files if they exist.
// Variables already present in the environment are left untouched.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// loadPipelineFile overlays yaml pipeline settings onto p. A missing file is not an error.
func loadPipelineFile(path string, p *Pipeline) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	var overlay Pipeline
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if overlay.ChunkSize > 0 {
		p.ChunkSize = overlay.ChunkSize
	}
	if overlay.ShortlistThreshold > 0 && overlay.ShortlistThreshold <= 100 {
		p.ShortlistThreshold = overlay.ShortlistThreshold
	}
	if overlay.Concurrency > 0 {
		p.Concurrency = overlay.Concurrency
	}
	if overlay.OracleCallTimeout > 0 {
		p.OracleCallTimeout = overlay.OracleCallTimeout
	}
	if overlay.SubmissionDeadline > 0 {
		p.SubmissionDeadline = overlay.SubmissionDeadline
	}
	if overlay.OCRZoom > 0 {
		p.OCRZoom = overlay.OCRZoom
	}
	if len(overlay.OCRLanguages) > 0 {
		p.OCRLanguages = overlay.OCRLanguages
	}
	return nil
}
