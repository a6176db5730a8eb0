package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/assessment"
	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func newReview(candidate string) *models.CodeReview {
	return &models.CodeReview{
		RepositoryURL: "https://github.com/acme/" + candidate,
		CandidateName: candidate,
		ReviewerName:  "Grace",
		Rubric:        "standard",
	}
}

func sampleResult() *scoring.ReviewResult {
	r := &scoring.ReviewResult{
		Rubric:  "standard",
		Penalty: 30,
		Categories: []scoring.CategoryResult{{Key: "clarity", Label: "Code Clarity", Items: []scoring.SubScore{
			{Category: "clarity", Item: "naming_conventions", Score: 8, Max: 10, Details: scoring.Details{Metrics: map[string]float64{"identifiers": 12}}},
		}}},
		OverallComments: "Overall score 8.0/10.0.",
	}
	scoring.Recompute(r, nil)
	return r
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

func TestReviewCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("ada")
	require.NoError(t, s.CreateReview(ctx, r))
	assert.Len(t, r.ID, 26)
	assert.Equal(t, models.ReviewStatusPending, r.Status)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", got.CandidateName)
	assert.Equal(t, "Grace", got.ReviewerName)
	assert.Equal(t, r.RepositoryURL, got.RepositoryURL)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.AnalyzedAt)

	got.NonWorking = true
	got.OverallComments = "Runs only with manual fixes."
	require.NoError(t, s.UpdateReview(ctx, got))

	again, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, again.NonWorking)
	assert.Equal(t, "Runs only with manual fixes.", again.OverallComments)

	require.NoError(t, s.DeleteReview(ctx, r.ID))
	_, err = s.GetReview(ctx, r.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(s.DeleteReview(ctx, r.ID), apperr.KindNotFound))
}

func TestGetReview_Prefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := newReview("ada")
	a.ID = "01HAAAAAAAAAAAAAAAAAAAAAAA"
	b := newReview("bob")
	b.ID = "01HAAAAAAAAAAAAAAAAAAAAAAB"
	c := newReview("cy")
	c.ID = "01HBBBBBBBBBBBBBBBBBBBBBBB"
	for _, r := range []*models.CodeReview{a, b, c} {
		require.NoError(t, s.CreateReview(ctx, r))
	}

	got, err := s.GetReview(ctx, "01hb")
	require.NoError(t, err)
	assert.Equal(t, "cy", got.CandidateName)

	_, err = s.GetReview(ctx, "01HA")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = s.GetReview(ctx, "ZZZ")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSaveResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("ada")
	require.NoError(t, s.CreateReview(ctx, r))
	require.NoError(t, s.UpdateReviewStatus(ctx, r.ID, models.ReviewStatusProcessing, ""))

	res := sampleResult()
	require.NoError(t, s.SaveResult(ctx, r.ID, res))

	got, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusCompleted, got.Status)
	assert.Equal(t, 8.0, got.TotalScore)
	assert.Equal(t, string(assessment.LevelPoor), got.AssessmentLevel)
	assert.Equal(t, "Does not meet requirements", got.AssessmentTier)
	assert.Equal(t, "Overall score 8.0/10.0.", got.OverallComments)
	require.NotNil(t, got.AnalyzedAt)
	require.NotNil(t, got.Result)
	assert.Equal(t, res.GrandTotal, got.Result.GrandTotal)
	assert.Equal(t, scoring.Points(8), got.Result.Category("clarity").Item("naming_conventions").Score)
	assert.Equal(t, 12.0, got.Result.Categories[0].Items[0].Details.Metrics["identifiers"])

	// A reviewer's own comments survive re-analysis.
	got.OverallComments = "Solid fundamentals."
	require.NoError(t, s.UpdateReview(ctx, got))
	require.NoError(t, s.SaveResult(ctx, r.ID, res))
	got, err = s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Solid fundamentals.", got.OverallComments)

	assert.True(t, apperr.Is(s.SaveResult(ctx, "missing", res), apperr.KindNotFound))
}

func TestSaveResult_ReplacesGeneratedComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("ada")
	require.NoError(t, s.CreateReview(ctx, r))
	require.NoError(t, s.SaveResult(ctx, r.ID, sampleResult()))

	next := sampleResult()
	next.OverallComments = "Overall score 9.0/10.0."
	require.NoError(t, s.SaveResult(ctx, r.ID, next))

	got, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Overall score 9.0/10.0.", got.OverallComments)
}

func TestUpdateReviewStatus_Failed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := newReview("ada")
	require.NoError(t, s.CreateReview(ctx, r))
	require.NoError(t, s.UpdateReviewStatus(ctx, r.ID, models.ReviewStatusFailed, "Could not fetch the repository."))

	got, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusFailed, got.Status)
	assert.Equal(t, "Could not fetch the repository.", got.ErrorMessage)
	assert.Nil(t, got.Result)

	assert.True(t, apperr.Is(s.UpdateReviewStatus(ctx, "nope", models.ReviewStatusFailed, ""), apperr.KindNotFound))
}

func TestListReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"ada", "bob", "adam"} {
		require.NoError(t, s.CreateReview(ctx, newReview(name)))
	}
	all, err := s.ListReviews(ctx, ReviewListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "adam", all[0].CandidateName, "newest first")

	first, err := s.GetReview(ctx, all[2].ID)
	require.NoError(t, err)
	require.NoError(t, s.SaveResult(ctx, first.ID, sampleResult()))

	completed, err := s.ListReviews(ctx, ReviewListFilter{Status: models.ReviewStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "ada", completed[0].CandidateName)
	assert.Nil(t, completed[0].Result, "lists omit the stored result")
	assert.Equal(t, 8.0, completed[0].TotalScore)

	byName, err := s.ListReviews(ctx, ReviewListFilter{Candidate: "ad"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	limited, err := s.ListReviews(ctx, ReviewListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
