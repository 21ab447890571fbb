package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"recruit-backend/internal/shared/telemetry"
)

const defaultRetryDelay = 300 * time.Millisecond

type retrying struct {
	base     Completer
	attempts int
	delay    time.Duration
}

// WithRetry retries transient failures of base. attempts counts the first
// call, so attempts=2 means one retry.
func WithRetry(base Completer, attempts int, delay time.Duration) Completer {
	if base == nil {
		return nil
	}
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return retrying{base: base, attempts: attempts, delay: delay}
}

func (r retrying) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err := r.base.Complete(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == r.attempts || ctx.Err() != nil || !ShouldRetry(err) {
			break
		}
		telemetry.Warn("llm.retry", map[string]any{
			"attempt": attempt,
			"error":   SanitizeError(err),
		})
		select {
		case <-time.After(r.delay * time.Duration(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// ShouldRetry reports whether err looks transient.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "http status 429") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	for _, s := range []string{"connection reset", "connection refused", "connection closed", "broken pipe", "unexpected eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
