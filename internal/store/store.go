package store

import (
	"context"

	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
)

// ReviewListFilter specifies filters for listing reviews.
type ReviewListFilter struct {
	Status    models.ReviewStatus
	Candidate string
	Limit     int
}

// Store defines the persistence interface for code reviews.
type Store interface {
	CreateReview(ctx context.Context, r *models.CodeReview) error
	// GetReview accepts a full ID or a unique ID prefix.
	GetReview(ctx context.Context, id string) (*models.CodeReview, error)
	ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.CodeReview, error)
	UpdateReview(ctx context.Context, r *models.CodeReview) error
	UpdateReviewStatus(ctx context.Context, id string, status models.ReviewStatus, errMsg string) error
	// SaveResult stores a completed analysis and marks the review completed.
	// Generated overall comments replace earlier generated ones; comments a
	// reviewer wrote are kept.
	SaveResult(ctx context.Context, id string, res *scoring.ReviewResult) error
	DeleteReview(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
