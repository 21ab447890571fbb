package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"recruit-backend/internal/llm"
	"recruit-backend/internal/shared/metrics"
)

// DefaultCallTimeout bounds a single oracle call.
const DefaultCallTimeout = 60 * time.Second

// Adapter turns one chunk into one ScoreResult through the oracle.
type Adapter struct {
	Oracle      llm.Completer
	CallTimeout time.Duration
}

// ScoreChunk calls the oracle once. Malformed output yields a Degraded
// result; a failed call returns an error wrapping ErrOracleUnavailable.
func (a *Adapter) ScoreChunk(ctx context.Context, chunk string, target Target) (ScoreResult, error) {
	if a.Oracle == nil {
		return ScoreResult{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, llm.ErrNotConfigured)
	}
	timeout := a.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.Oracle.Complete(callCtx, BuildPrompt(chunk, target))
	metrics.ObserveOracleDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ScoreResult{}, ctxErr
		}
		return ScoreResult{}, fmt.Errorf("%w: %s", ErrOracleUnavailable, llm.SanitizeError(err))
	}
	return ParseResponse(raw), nil
}

// ParseResponse validates a raw oracle response, never failing.
func ParseResponse(raw string) ScoreResult {
	res, err := parseChunkResult(stripFence(raw))
	if err != nil {
		return DegradedResult(llm.SanitizeError(err))
	}
	return ScoreResult{Kind: Valid, Result: res}
}

// stripFence returns the body of a ```json (or bare ```) fence. A reply that
// is already valid JSON is returned as is, so backticks inside strings survive.
func stripFence(content string) string {
	content = strings.TrimSpace(content)
	if content == "" || json.Valid([]byte(content)) {
		return content
	}
	open := strings.Index(content, "```")
	if open < 0 {
		return content
	}
	body := content[open+3:]
	if strings.HasPrefix(strings.ToLower(body), "json") {
		body = body[4:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func parseChunkResult(body string) (ChunkResult, error) {
	if body == "" {
		return ChunkResult{}, errors.New("empty response")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return ChunkResult{}, fmt.Errorf("invalid JSON: %v", err)
	}

	pct, err := parsePercentage(fields["matchPercentage"])
	if err != nil {
		return ChunkResult{}, err
	}
	skills, err := parseSkills(fields["matchedSkills"])
	if err != nil {
		return ChunkResult{}, err
	}
	summary, err := requireString(fields, "summary")
	if err != nil {
		return ChunkResult{}, err
	}
	if strings.TrimSpace(summary) == "" {
		return ChunkResult{}, errors.New("summary is empty")
	}
	first, err := requireString(fields, "firstName")
	if err != nil {
		return ChunkResult{}, err
	}
	last, err := requireString(fields, "lastName")
	if err != nil {
		return ChunkResult{}, err
	}

	return ChunkResult{
		MatchPercentage: pct,
		MatchedSkills:   skills,
		Summary:         strings.TrimSpace(summary),
		FirstName:       strings.TrimSpace(first),
		LastName:        strings.TrimSpace(last),
	}, nil
}

func parsePercentage(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("matchPercentage is missing")
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, errors.New("matchPercentage is not a number")
		}
		parsed, perr := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
		if perr != nil {
			return 0, errors.New("matchPercentage is not a number")
		}
		v = parsed
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("matchPercentage is not a number")
	}
	pct := int(math.Round(v))
	if pct == 0 {
		return 0, errors.New("matchPercentage is zero")
	}
	return min(max(pct, 0), 100), nil
}

func parseSkills(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("matchedSkills is missing")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.New("matchedSkills is not an array")
	}
	skills := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, errors.New("matchedSkills contains a non-string value")
		}
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return skills, nil
}

func requireString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", fmt.Errorf("%s is missing", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s is not a string", key)
	}
	return s, nil
}
