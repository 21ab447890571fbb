package scoring

const (
	StatusPending     = "pending"
	StatusShortlisted = "shortlisted"

	// DefaultShortlistThreshold is the lowest score that is shortlisted.
	DefaultShortlistThreshold = 70
)

// Classifier maps a match percentage to a lifecycle status.
type Classifier struct {
	Threshold int
}

// NewClassifier falls back to DefaultShortlistThreshold for out-of-range values.
func NewClassifier(threshold int) Classifier {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultShortlistThreshold
	}
	return Classifier{Threshold: threshold}
}

func (c Classifier) Classify(matchPercentage int) string {
	if matchPercentage >= c.Threshold {
		return StatusShortlisted
	}
	return StatusPending
}
