package llm

import (
	"context"
	"errors"
	"strings"
)

// Completer is the scoring oracle: one prompt in, raw response text out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned when no oracle provider has been configured.
var ErrNotConfigured = errors.New("llm provider not configured")

// Unconfigured is used in dev when no API key is present.
type Unconfigured struct{}

// Complete always returns ErrNotConfigured.
func (Unconfigured) Complete(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const maxErrorLen = 500

// SanitizeError flattens err to one line of at most 500 characters.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}
