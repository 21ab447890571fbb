package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "5xx", err: errors.New("openai http status 502: bad gateway"), want: true},
		{name: "429", err: errors.New("gemini http status 429: RESOURCE_EXHAUSTED"), want: true},
		{name: "reset", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "auth", err: errors.New("openai http status 401: invalid key"), want: false},
		{name: "not configured", err: ErrNotConfigured, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestWithRetryRetriesOnceOnTransientError(t *testing.T) {
	calls := 0
	base := CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("openai http status 503: overloaded")
		}
		return "ok:" + prompt, nil
	})

	out, err := WithRetry(base, 2, time.Millisecond).Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok:p", out)
	assert.Equal(t, 2, calls)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	base := CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", errors.New("openai http status 400: bad request")
	})

	_, err := WithRetry(base, 3, time.Millisecond).Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSanitizeError(t *testing.T) {
	err := errors.New("line one\nline two\t" + strings.Repeat("x", 600))
	got := SanitizeError(err)
	assert.NotContains(t, got, "\n")
	assert.Len(t, got, 500)
	assert.True(t, strings.HasPrefix(got, "line one line two x"))
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
