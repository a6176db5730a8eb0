// Package review runs the persisted review workflow: create a review, fetch
// and analyze its repository, and adjust the stored scores afterwards.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/engine"
	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
	"github.com/sparklepop/Code-Project-Review/internal/source"
	"github.com/sparklepop/Code-Project-Review/internal/store"
)

// Narrator rewrites the overall comments of a scored review.
type Narrator interface {
	Narrate(ctx context.Context, candidate string, res *scoring.ReviewResult) (string, error)
}

// CreateRequest holds the reviewer's input for a new review.
type CreateRequest struct {
	RepositoryURL   string `json:"repository_url"`
	CandidateName   string `json:"candidate_name"`
	ReviewerName    string `json:"reviewer_name"`
	NonWorking      bool   `json:"non_working_solution"`
	OverallComments string `json:"overall_comments"`
}

// Service orchestrates review persistence and analysis.
type Service struct {
	store    store.Store
	engine   *engine.Engine
	fetcher  source.Fetcher
	narrator Narrator
	timeout  time.Duration
	logger   *slog.Logger
	locks    keyedMutex
}

// Option configures a Service.
type Option func(*Service)

func WithNarrator(n Narrator) Option { return func(s *Service) { s.narrator = n } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

// NewService creates a review service over the given store, engine and fetcher.
func NewService(st store.Store, e *engine.Engine, f source.Fetcher, opts ...Option) *Service {
	s := &Service{store: st, engine: e, fetcher: f, timeout: engine.DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() store.Store { return s.store }

// Engine returns the analysis engine.
func (s *Service) Engine() *engine.Engine { return s.engine }

// Create validates req and persists a pending review. Nothing is fetched.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.CodeReview, error) {
	r := &models.CodeReview{
		RepositoryURL:   req.RepositoryURL,
		CandidateName:   req.CandidateName,
		ReviewerName:    req.ReviewerName,
		NonWorking:      req.NonWorking,
		OverallComments: req.OverallComments,
		Status:          models.ReviewStatusPending,
		Rubric:          s.engine.Rubric().Name,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateReview(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("review created", "id", r.ID, "candidate", r.CandidateName, "repository", r.RepositoryURL)
	return r, nil
}

// Get returns the review with the given ID or unique ID prefix.
func (s *Service) Get(ctx context.Context, id string) (*models.CodeReview, error) {
	return s.store.GetReview(ctx, id)
}

// List returns reviews matching filter, newest first.
func (s *Service) List(ctx context.Context, filter store.ReviewListFilter) ([]*models.CodeReview, error) {
	return s.store.ListReviews(ctx, filter)
}

// Delete removes a review unless it is being analyzed.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.withReview(ctx, id, func(r *models.CodeReview) error {
		return s.store.DeleteReview(ctx, r.ID)
	})
}

// Run fetches and analyzes the review's repository. The review ends
// completed with a full result or failed with a user-facing message; a
// failed run stores no partial result.
func (s *Service) Run(ctx context.Context, id string) (*models.CodeReview, error) {
	var out *models.CodeReview
	err := s.withReview(ctx, id, func(r *models.CodeReview) error {
		if err := s.store.UpdateReviewStatus(ctx, r.ID, models.ReviewStatusProcessing, ""); err != nil {
			return err
		}
		start := time.Now()
		s.logger.Info("review started", "id", r.ID, "repository", r.RepositoryURL)

		res, err := s.analyze(ctx, r.RepositoryURL, r.CandidateName, r.NonWorking)
		if err != nil {
			msg := apperr.UserMessage(err)
			if serr := s.store.UpdateReviewStatus(context.WithoutCancel(ctx), r.ID, models.ReviewStatusFailed, msg); serr != nil {
				s.logger.Error("could not mark review failed", "id", r.ID, "error", serr)
			}
			s.logger.Warn("review failed", "id", r.ID, "error", err)
			return err
		}

		if err := s.store.SaveResult(ctx, r.ID, res); err != nil {
			return err
		}
		s.logger.Info("review completed", "id", r.ID,
			"grand_total", res.GrandTotal.Float(), "tier", res.AssessmentTier, "duration", time.Since(start))

		out, err = s.store.GetReview(ctx, r.ID)
		return err
	})
	return out, err
}

// Analyze fetches and scores a repository without persisting anything.
func (s *Service) Analyze(ctx context.Context, rawURL string, nonWorking bool) (*scoring.ReviewResult, error) {
	if _, err := source.ParseGitHubURL(rawURL); err != nil {
		return nil, apperr.New(apperr.KindValidation, err.Error(), err)
	}
	return s.analyze(ctx, rawURL, "", nonWorking)
}

// AnalyzeSnapshot scores an already loaded submission without persisting
// anything.
func (s *Service) AnalyzeSnapshot(ctx context.Context, snap *snapshot.Snapshot, nonWorking bool) (*scoring.ReviewResult, error) {
	return s.score(ctx, snap, "", nonWorking)
}

// analyze fetches and scores rawURL within the configured timeout.
func (s *Service) analyze(ctx context.Context, rawURL, candidate string, nonWorking bool) (*scoring.ReviewResult, error) {
	if s.fetcher == nil {
		return nil, apperr.New(apperr.KindInternal, "no repository fetcher configured", nil)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	snap, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.score(ctx, snap, candidate, nonWorking)
}

// score runs the engine over snap and, when configured, narrates the result.
func (s *Service) score(ctx context.Context, snap *snapshot.Snapshot, candidate string, nonWorking bool) (*scoring.ReviewResult, error) {
	res, err := s.engine.Analyze(ctx, snap, engine.AnalyzeOptions{NonWorking: nonWorking})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.New(apperr.KindInternal, "analysis timed out", err)
		}
		return nil, err
	}

	if s.narrator != nil {
		text, err := s.narrator.Narrate(ctx, candidate, res)
		if err != nil {
			s.logger.Warn("narration failed, keeping generated comments", "error", err)
		} else {
			res.OverallComments = text
		}
	}
	return res, nil
}

// UpdateScore overrides one item score of a completed review and persists
// the recomputed totals.
func (s *Service) UpdateScore(ctx context.Context, id, category, item string, value float64) (*models.CodeReview, scoring.PatchResult, error) {
	var patch scoring.PatchResult
	var out *models.CodeReview
	err := s.withReview(ctx, id, func(r *models.CodeReview) error {
		if r.Result == nil {
			return apperr.Conflict(fmt.Sprintf("review %s has no scores yet; run the analysis first", r.ID))
		}
		res, p, err := scoring.UpdateItemScore(r.Result, category, item, value)
		if err != nil {
			return apperr.New(apperr.KindValidation, err.Error(), err)
		}
		patch = p
		out, err = s.replaceResult(ctx, r, res)
		return err
	})
	return out, patch, err
}

// SetNonWorking toggles the non-working flag and, when the review has
// been scored, reapplies the penalty to its grand total.
func (s *Service) SetNonWorking(ctx context.Context, id string, nonWorking bool) (*models.CodeReview, error) {
	var out *models.CodeReview
	err := s.withReview(ctx, id, func(r *models.CodeReview) error {
		if r.Result == nil {
			r.NonWorking = nonWorking
			if err := s.store.UpdateReview(ctx, r); err != nil {
				return err
			}
			out = r
			return nil
		}
		var err error
		out, err = s.replaceResult(ctx, r, scoring.SetNonWorking(r.Result, nonWorking))
		return err
	})
	return out, err
}

// Rescore reaggregates stored item scores under the current rubric's
// penalty and regenerates feedback. Nothing is refetched.
func (s *Service) Rescore(ctx context.Context, id string) (*models.CodeReview, error) {
	var out *models.CodeReview
	err := s.withReview(ctx, id, func(r *models.CodeReview) error {
		if r.Result == nil {
			return apperr.Conflict(fmt.Sprintf("review %s has no scores yet; run the analysis first", r.ID))
		}
		res := r.Result.Clone()
		res.Penalty = scoring.Points(s.engine.Rubric().Penalty)
		res.NonWorking = r.NonWorking
		scoring.Recompute(res, s.logger)
		var err error
		out, err = s.replaceResult(ctx, r, res)
		return err
	})
	return out, err
}

// replaceResult regenerates feedback for res and stores it on r. Comments
// the reviewer wrote are kept; generated ones follow the new result.
func (s *Service) replaceResult(ctx context.Context, r *models.CodeReview, res *scoring.ReviewResult) (*models.CodeReview, error) {
	generated := r.Result != nil && r.OverallComments == r.Result.OverallComments
	s.engine.Composer().Apply(res)
	if generated || r.OverallComments == "" {
		r.OverallComments = res.OverallComments
	}
	r.ApplyResult(res)
	if err := s.store.UpdateReview(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// withReview loads the review and runs fn while holding its lock.
func (s *Service) withReview(ctx context.Context, id string, fn func(r *models.CodeReview) error) error {
	r, err := s.store.GetReview(ctx, id)
	if err != nil {
		return err
	}
	unlock, ok := s.locks.TryLock(r.ID)
	if !ok {
		return apperr.Conflict(fmt.Sprintf("review %s is being analyzed", r.ID))
	}
	defer unlock()

	// Reload under the lock so fn sees the latest state.
	if r, err = s.store.GetReview(ctx, r.ID); err != nil {
		return err
	}
	return fn(r)
}

// Busy reports whether the review is locked by a running operation.
func (s *Service) Busy(id string) bool {
	return s.locks.Held(id)
}
