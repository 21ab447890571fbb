package applications

import "errors"

var (
	ErrNotFound              = errors.New("application not found")
	ErrJobNotFound           = errors.New("job not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrRevisionConflict      = errors.New("revision conflict")
	ErrEmptyText             = errors.New("application has no extracted text")
	ErrQueueNotConfigured    = errors.New("recompute queue not configured")
	ErrPipelineNotConfigured = errors.New("pipeline not configured")
)
