package jobs

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidInput = errors.New("invalid job input")
)

// Job is a posting that CVs are scored against.
type Job struct {
	ID           string    `json:"id" bson:"_id"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description" bson:"description"`
	Requirements []string  `json:"requirements" bson:"requirements"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}
