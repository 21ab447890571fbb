package scoring

import "errors"

var (
	ErrOracleUnavailable = errors.New("scoring oracle unavailable")
	ErrNoResults         = errors.New("no chunk results to aggregate")
	ErrPipelineFailed    = errors.New("scoring pipeline failed")
	ErrTimeout           = errors.New("scoring timed out")
	ErrInvalidTarget     = errors.New("job has no requirements")
)

// Target is the read-only job snapshot a CV is scored against.
type Target struct {
	Title        string
	Requirements []string
}

// ChunkResult is one oracle verdict, or the merged verdict of a submission.
type ChunkResult struct {
	MatchPercentage int      `json:"matchPercentage"`
	MatchedSkills   []string `json:"matchedSkills"`
	Summary         string   `json:"summary"`
	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
}

// Kind tags a ScoreResult.
type Kind int

const (
	Valid Kind = iota
	Degraded
)

func (k Kind) String() string {
	if k == Degraded {
		return "degraded"
	}
	return "valid"
}

// ScoreResult is Valid(Result) or Degraded(Reason). Degraded results still
// carry a well-formed placeholder in Result.
type ScoreResult struct {
	Kind   Kind
	Result ChunkResult
	Reason string
}

const (
	degradedPrefix = "AI summary could not be read: "
	unknownName    = "Unknown"
)

// DegradedResult builds the placeholder used when an oracle response cannot be validated.
func DegradedResult(reason string) ScoreResult {
	return ScoreResult{
		Kind:   Degraded,
		Reason: reason,
		Result: ChunkResult{
			MatchPercentage: 0,
			MatchedSkills:   []string{},
			Summary:         degradedPrefix + reason,
			FirstName:       unknownName,
			LastName:        unknownName,
		},
	}
}

// Report records how a scoring pass went. It is persisted next to the
// verdict so degraded records can be found later.
type Report struct {
	Chunks   int      `json:"chunks"`
	Valid    int      `json:"valid"`
	Degraded int      `json:"degraded"`
	Dropped  int      `json:"dropped"`
	Reasons  []string `json:"reasons,omitempty"`
	Provider string   `json:"provider,omitempty"`
	Model    string   `json:"model,omitempty"`
}

// Flagged reports whether any chunk was degraded or dropped.
func (r Report) Flagged() bool {
	return r.Degraded > 0 || r.Dropped > 0
}

// Verdict is the aggregate of one scoring pass plus its report.
type Verdict struct {
	Aggregate ChunkResult
	Report    Report
}
