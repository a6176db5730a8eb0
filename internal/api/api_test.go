package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/engine"
	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/review"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
	"github.com/sparklepop/Code-Project-Review/internal/store"
)

type fetchFunc func(ctx context.Context, rawURL string) (*snapshot.Snapshot, error)

func (f fetchFunc) Fetch(ctx context.Context, rawURL string) (*snapshot.Snapshot, error) {
	return f(ctx, rawURL)
}

type fakeQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *fakeQueue) Enqueue(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

func submission() *snapshot.Snapshot {
	return snapshot.New([]snapshot.File{
		{Path: "app/models/order.rb", Content: "# Order totals\nclass Order\n  def total\n    items.sum(&:price)\n  end\nend\n"},
		{Path: "spec/models/order_spec.rb", Content: "describe Order do\n  it \"totals\" do\n    expect(Order.new.total).to eq(0)\n  end\nend\n"},
		{Path: "README.md", Content: "# Orders\n\n## Setup\n\nbundle install\n"},
	}, []snapshot.Commit{{Hash: "a1", Subject: "Add order totals with line item pricing"}})
}

func setupTestServer(t *testing.T, f fetchFunc, queue Enqueuer) (*Server, store.Store) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	if f == nil {
		f = func(context.Context, string) (*snapshot.Snapshot, error) { return submission(), nil }
	}
	e, err := engine.New(rubric.Standard())
	require.NoError(t, err)
	srv := NewServer(review.NewService(s, e, f), queue, nil)

	return srv, s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func createReview(t *testing.T, h http.Handler) models.CodeReview {
	t.Helper()
	w := do(t, h, "POST", "/api/v1/reviews",
		`{"repository_url":"https://github.com/acme/orders","candidate_name":"Ada","reviewer_name":"Grace"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.CodeReview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	return created
}

func TestListReviews_Empty(t *testing.T) {
	srv, _ := setupTestServer(t, nil, nil)

	w := do(t, srv.Router(), "GET", "/api/v1/reviews", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListReviews_BadQuery(t *testing.T) {
	srv, _ := setupTestServer(t, nil, nil)
	router := srv.Router()

	assert.Equal(t, http.StatusBadRequest, do(t, router, "GET", "/api/v1/reviews?status=archived", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, "GET", "/api/v1/reviews?limit=-1", "").Code)
}

func TestReviewCRUD_API(t *testing.T) {
	srv, _ := setupTestServer(t, nil, nil)
	router := srv.Router()

	created := createReview(t, router)
	assert.Equal(t, "Ada", created.CandidateName)
	assert.Equal(t, models.ReviewStatusPending, created.Status)

	// Get by prefix
	w := do(t, router, "GET", "/api/v1/reviews/"+created.ID[:10], "")
	assert.Equal(t, http.StatusOK, w.Code)

	// List with filter
	w = do(t, router, "GET", "/api/v1/reviews?status=pending&candidate=ad&limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var list []models.CodeReview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	// Delete
	w = do(t, router, "DELETE", "/api/v1/reviews/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, "GET", "/api/v1/reviews/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateReview_Validation(t *testing.T) {
	srv, _ := setupTestServer(t, nil, nil)
	router := srv.Router()

	w := do(t, router, "POST", "/api/v1/reviews", `{"repository_url":"https://github.com/acme/orders"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Candidate name, reviewer name required.", errorOf(t, w))

	w = do(t, router, "POST", "/api/v1/reviews", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "invalid JSON")
}

func TestCreateReview_QueuesAnalysis(t *testing.T) {
	q := &fakeQueue{}
	srv, _ := setupTestServer(t, nil, q)

	w := do(t, srv.Router(), "POST", "/api/v1/reviews",
		`{"repository_url":"https://github.com/acme/orders","candidate_name":"Ada","reviewer_name":"Grace","analyze":true}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.CodeReview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, []string{created.ID}, q.ids)
}

func TestAnalyzeReview_Sync(t *testing.T) {
	srv, _ := setupTestServer(t, nil, nil)
	router := srv.Router()
	created := createReview(t, router)

	w := do(t, router, "POST", "/api/v1/reviews/"+created.ID+"/analyze", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var done models.CodeReview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &done))
	assert.Equal(t, models.ReviewStatusCompleted, done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, scoring.Points(115), done.Result.MaxTotal)
	assert.Contains(t, w.Body.String(), `"max_total":115.0`)
}

func TestAnalyzeReview_Queued(t *testing.T) {
	q := &fakeQueue{}
	srv, _ := setupTestServer(t, nil, q)
	router := srv.Router()
	created := createReview(t, router)

	w := do(t, router, "POST", "/api/v1/reviews/"+created.ID+"/analyze", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"id":"`+created.ID+`","status":"queued"}`, w.Body.String())
	assert.Equal(t, []string{created.ID}, q.ids)

	q.err = review.ErrQueueFull
	w = do(t, router, "POST", "/api/v1/reviews/"+created.ID+"/analyze", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, router, "POST", "/api/v1/reviews/"+created.ID+"/analyze?wait=true", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyzeReview_FetchFailure(t *testing.T) {
	srv, st := setupTestServer(t, func(context.Context, string) (*snapshot.Snapshot, error) {
		return nil, apperr.Fetch("could not clone repository", errors.New("repository not found"))
	}, nil)
	router := srv.Router()
	created := createReview(t, router)

	w := do(t, router, "POST", "/api/v1/reviews/"+created.ID+"/analyze", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Could not fetch the repository: repository not found.", errorOf(t, w))

	got, err := st.GetReview(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusFailed, got.Status)
}

func TestUpdateScore_API(t *testing.T) {
	srv, _ := setupTestServer(t, nil, nil)
	router := srv.Router()
	created := createReview(t, router)
	path := "/api/v1/reviews/" + created.ID + "/scores"

	// Not analyzed yet
	w := do(t, router, "PATCH", path, `{"category":"clarity","item":"naming_conventions","score":8}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusOK, do(t, router, "POST", "/api/v1/reviews/"+created.ID+"/analyze", "").Code)

	w = do(t, router, "PATCH", path, `{"category":"clarity","item":"naming_conventions","score":8}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var patch scoring.PatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patch))
	assert.Equal(t, scoring.Points(8), patch.ItemScore)
	assert.Equal(t, "naming_conventions", patch.Item)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"out of range", `{"category":"clarity","item":"naming_conventions","score":12}`, http.StatusBadRequest},
		{"unknown item", `{"category":"clarity","item":"style","score":1}`, http.StatusBadRequest},
		{"missing score", `{"category":"clarity","item":"naming_conventions"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, do(t, router, "PATCH", path, tt.body).Code)
		})
	}

	w = do(t, router, "PATCH", "/api/v1/reviews/missing/scores", `{"category":"clarity","item":"naming_conventions","score":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetNonWorking_API(t *testing.T) {
	srv, _ := setupTestServer(t, nil, nil)
	router := srv.Router()
	created := createReview(t, router)
	require.Equal(t, http.StatusOK, do(t, router, "POST", "/api/v1/reviews/"+created.ID+"/analyze", "").Code)

	w := do(t, router, "PUT", "/api/v1/reviews/"+created.ID+"/non-working", `{"non_working_solution":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.CodeReview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.NonWorking)
	assert.True(t, got.Result.NonWorking)
	assert.Less(t, got.TotalScore, got.Result.BaseTotal.Float()+0.001)

	w = do(t, router, "PUT", "/api/v1/reviews/"+created.ID+"/non-working", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/v1/reviews/"+created.ID+"/rescore", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyzeSubmission(t *testing.T) {
	srv, _ := setupTestServer(t, nil, nil)
	router := srv.Router()

	body := `{"files":[
		{"path":"app/models/order.rb","content":"class Order\n  def total\n    1\n  end\nend\n"},
		{"path":"README.md","content":"# Orders\n"}
	],"commits":[{"hash":"a1","subject":"Add order totals"}],"non_working_solution":true}`
	w := do(t, router, "POST", "/api/v1/analyze", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res scoring.ReviewResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.NonWorking)
	assert.Len(t, res.Categories, 5)
	assert.Equal(t, 1, res.Files.Commits)

	w = do(t, router, "POST", "/api/v1/analyze", `{"repository_url":"https://github.com/acme/orders"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, "POST", "/api/v1/analyze", `{"repository_url":"https://bitbucket.org/acme/orders"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/v1/analyze", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/v1/analyze", `{"files":[{"path":" ","content":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRubrics_API(t *testing.T) {
	srv, _ := setupTestServer(t, nil, nil)
	router := srv.Router()

	w := do(t, router, "GET", "/api/v1/rubrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"active":"standard","builtins":["advanced","standard"]}`, w.Body.String())

	w = do(t, router, "GET", "/api/v1/rubrics/advanced", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rb rubric.Rubric
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rb))
	assert.Equal(t, "advanced", rb.Name)
	assert.Equal(t, 115.0, rb.Max())

	assert.Equal(t, http.StatusOK, do(t, router, "GET", "/api/v1/rubrics/active", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, "GET", "/api/v1/rubrics/nope", "").Code)
}

func TestCORSAndHealth(t *testing.T) {
	srv, _ := setupTestServer(t, nil, nil)
	router := srv.Router()

	w := do(t, router, "OPTIONS", "/api/v1/reviews", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, router, "GET", "/api/v1/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
