package models

import (
	"strings"
	"time"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
	"github.com/sparklepop/Code-Project-Review/internal/source"
)

// ReviewStatus is the lifecycle state of a code review.
type ReviewStatus string

const (
	ReviewStatusPending    ReviewStatus = "pending"
	ReviewStatusProcessing ReviewStatus = "processing"
	ReviewStatusCompleted  ReviewStatus = "completed"
	ReviewStatusFailed     ReviewStatus = "failed"
)

// Valid reports whether s is a known status.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusProcessing, ReviewStatusCompleted, ReviewStatusFailed:
		return true
	}
	return false
}

// CodeReview is a candidate submission and, once analyzed, its scored result.
type CodeReview struct {
	ID              string                `json:"id"`
	RepositoryURL   string                `json:"repository_url"`
	CandidateName   string                `json:"candidate_name"`
	ReviewerName    string                `json:"reviewer_name"`
	NonWorking      bool                  `json:"non_working_solution"`
	OverallComments string                `json:"overall_comments,omitempty"`
	Status          ReviewStatus          `json:"status"`
	ErrorMessage    string                `json:"error_message,omitempty"`
	Rubric          string                `json:"rubric"`
	TotalScore      float64               `json:"total_score"`
	AssessmentLevel string                `json:"assessment_level,omitempty"`
	AssessmentTier  string                `json:"assessment_tier,omitempty"`
	Result          *scoring.ReviewResult `json:"result,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	AnalyzedAt      *time.Time            `json:"analyzed_at,omitempty"`
}

// Validate checks the fields required before a review can be fetched.
func (r *CodeReview) Validate() error {
	r.CandidateName = strings.TrimSpace(r.CandidateName)
	r.ReviewerName = strings.TrimSpace(r.ReviewerName)
	r.RepositoryURL = strings.TrimSpace(r.RepositoryURL)

	var missing []string
	if r.CandidateName == "" {
		missing = append(missing, "candidate name")
	}
	if r.ReviewerName == "" {
		missing = append(missing, "reviewer name")
	}
	if r.RepositoryURL == "" {
		missing = append(missing, "repository URL")
	}
	if len(missing) > 0 {
		return apperr.Validation(strings.Join(missing, ", ") + " required")
	}
	if _, err := source.ParseGitHubURL(r.RepositoryURL); err != nil {
		return apperr.New(apperr.KindValidation, err.Error(), err)
	}
	if r.Status != "" && !r.Status.Valid() {
		return apperr.Validation("unknown status " + string(r.Status))
	}
	return nil
}

// ApplyResult copies the result's totals onto the review.
func (r *CodeReview) ApplyResult(res *scoring.ReviewResult) {
	r.Result = res
	if res == nil {
		r.TotalScore = 0
		r.AssessmentLevel = ""
		r.AssessmentTier = ""
		return
	}
	r.NonWorking = res.NonWorking
	r.TotalScore = res.GrandTotal.Float()
	r.AssessmentLevel = string(res.AssessmentLevel)
	r.AssessmentTier = res.AssessmentTier
	r.Rubric = res.Rubric
}
