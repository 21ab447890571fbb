package applications

import (
	"time"

	"recruit-backend/internal/scoring"
)

const (
	StatusPending     = scoring.StatusPending
	StatusShortlisted = scoring.StatusShortlisted
)

// AISummary is the candidate digest produced by scoring.
type AISummary struct {
	FirstName string   `json:"firstName" bson:"first_name"`
	LastName  string   `json:"lastName" bson:"last_name"`
	Skills    []string `json:"skills" bson:"skills"`
	Summary   string   `json:"summary" bson:"summary"`
}

// Application is one scored CV for one job.
//
// MatchPercentage is nil only for records written before scoring existed
// or imported without a score; RecomputeAll repairs those.
type Application struct {
	ID              string          `json:"id" bson:"_id"`
	JobID           string          `json:"jobId" bson:"job_id"`
	CVURL           string          `json:"cvUrl" bson:"cv_url"`
	ExtractedText   string          `json:"extractedText" bson:"extracted_text"`
	MatchPercentage *int            `json:"matchPercentage" bson:"match_percentage"`
	MatchedSkills   []string        `json:"matchedSkills" bson:"matched_skills"`
	AISummary       AISummary       `json:"aiSummary" bson:"ai_summary"`
	Status          string          `json:"status" bson:"status"`
	Bookmarked      bool            `json:"bookmarked" bson:"bookmarked"`
	Scoring         *scoring.Report `json:"scoring,omitempty" bson:"scoring,omitempty"`
	Revision        int64           `json:"revision" bson:"revision"`
	CreatedAt       time.Time       `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updated_at"`
}

// Score returns the match percentage, treating a missing score as zero.
func (a Application) Score() int {
	if a.MatchPercentage == nil {
		return 0
	}
	return *a.MatchPercentage
}

// NeedsScore reports whether the record is selected by the batch repair.
func (a Application) NeedsScore() bool {
	return a.MatchPercentage == nil || *a.MatchPercentage == 0
}

// applyVerdict overwrites the score-derived fields.
func (a *Application) applyVerdict(v scoring.Verdict, status string) {
	pct := v.Aggregate.MatchPercentage
	a.MatchPercentage = &pct
	a.MatchedSkills = append([]string{}, v.Aggregate.MatchedSkills...)
	a.AISummary = AISummary{
		FirstName: v.Aggregate.FirstName,
		LastName:  v.Aggregate.LastName,
		Skills:    append([]string{}, v.Aggregate.MatchedSkills...),
		Summary:   v.Aggregate.Summary,
	}
	a.Status = status
	report := v.Report
	a.Scoring = &report
}

func clone(a Application) Application {
	if a.MatchPercentage != nil {
		pct := *a.MatchPercentage
		a.MatchPercentage = &pct
	}
	a.MatchedSkills = append([]string{}, a.MatchedSkills...)
	a.AISummary.Skills = append([]string{}, a.AISummary.Skills...)
	if a.Scoring != nil {
		report := *a.Scoring
		report.Reasons = append([]string(nil), report.Reasons...)
		a.Scoring = &report
	}
	return a
}

// Patch is a partial administrator update.
type Patch struct {
	Status     *string
	Bookmarked *bool
}

// Sort orders for List.
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortMatchHigh = "matchHigh"
	SortMatchLow  = "matchLow"
)

const (
	StatusFilterAll = "all"

	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ListFilter narrows and orders List results.
type ListFilter struct {
	Status         string
	BookmarkedOnly bool
	JobID          string
	Sort           string
	Limit          int
	Offset         int
}

// RecomputeError is one failed record in a batch.
type RecomputeError struct {
	ApplicationID string `json:"applicationId"`
	Error         string `json:"error"`
}

// RecomputeSummary reports a synchronous batch repair.
type RecomputeSummary struct {
	Total   int              `json:"total"`
	Updated int              `json:"updated"`
	Errors  []RecomputeError `json:"errors"`
}

// EnqueueSummary reports an asynchronous batch repair.
type EnqueueSummary struct {
	Total  int              `json:"total"`
	Queued int              `json:"queued"`
	Errors []RecomputeError `json:"errors"`
}
