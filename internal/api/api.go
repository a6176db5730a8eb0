package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/review"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
	"github.com/sparklepop/Code-Project-Review/internal/store"
)

// maxBodyBytes bounds request bodies, including inline submissions.
const maxBodyBytes = 20 << 20

// Enqueuer schedules a review for background analysis.
type Enqueuer interface {
	Enqueue(id string) error
}

// Server provides the REST API handlers.
type Server struct {
	svc    *review.Service
	queue  Enqueuer
	logger *slog.Logger
}

// NewServer creates a new API server.
// The queue may be nil, in which case analysis runs within the request.
func NewServer(svc *review.Service, queue Enqueuer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, queue: queue, logger: logger}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/reviews", s.listReviews)
	mux.HandleFunc("POST /api/v1/reviews", s.createReview)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.getReview)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", s.deleteReview)
	mux.HandleFunc("POST /api/v1/reviews/{id}/analyze", s.analyzeReview)
	mux.HandleFunc("PATCH /api/v1/reviews/{id}/scores", s.updateScore)
	mux.HandleFunc("PUT /api/v1/reviews/{id}/non-working", s.setNonWorking)
	mux.HandleFunc("POST /api/v1/reviews/{id}/rescore", s.rescoreReview)

	mux.HandleFunc("POST /api/v1/analyze", s.analyzeSubmission)

	mux.HandleFunc("GET /api/v1/rubrics", s.listRubrics)
	mux.HandleFunc("GET /api/v1/rubrics/{name}", s.getRubric)

	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps err onto an HTTP status and its user-facing message.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindFetch:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeError(w, status, apperr.UserMessage(err))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// --- Reviews ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ReviewListFilter{
		Status:    models.ReviewStatus(q.Get("status")),
		Candidate: q.Get("candidate"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status: "+string(filter.Status))
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	reviews, err := s.svc.List(r.Context(), filter)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	if reviews == nil {
		reviews = []*models.CodeReview{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

type createReviewRequest struct {
	review.CreateRequest
	// Analyze queues the analysis right after creation.
	Analyze bool `json:"analyze"`
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rv, err := s.svc.Create(r.Context(), req.CreateRequest)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	if req.Analyze && s.queue != nil {
		if err := s.queue.Enqueue(rv.ID); err != nil {
			s.logger.Warn("could not queue new review", "id", rv.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	rv, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// analyzeReview queues the analysis, or runs it in the request when there
// is no queue or the caller passes wait=true.
func (s *Server) analyzeReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.queue == nil || r.URL.Query().Get("wait") == "true" {
		rv, err := s.svc.Run(r.Context(), id)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rv)
		return
	}

	rv, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	if s.svc.Busy(rv.ID) {
		writeError(w, http.StatusConflict, "Review "+rv.ID+" is being analyzed.")
		return
	}
	if err := s.queue.Enqueue(rv.ID); err != nil {
		if errors.Is(err, review.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "The analysis queue is full; try again shortly.")
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": rv.ID, "status": "queued"})
}

type scoreRequest struct {
	Category string   `json:"category"`
	Item     string   `json:"item"`
	Score    *float64 `json:"score"`
}

func (s *Server) updateScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Category == "" || req.Item == "" || req.Score == nil {
		writeError(w, http.StatusBadRequest, "category, item and score are required")
		return
	}

	_, patch, err := s.svc.UpdateScore(r.Context(), r.PathValue("id"), req.Category, req.Item, *req.Score)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patch)
}

func (s *Server) setNonWorking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NonWorking *bool `json:"non_working_solution"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.NonWorking == nil {
		writeError(w, http.StatusBadRequest, "non_working_solution is required")
		return
	}

	rv, err := s.svc.SetNonWorking(r.Context(), r.PathValue("id"), *req.NonWorking)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (s *Server) rescoreReview(w http.ResponseWriter, r *http.Request) {
	rv, err := s.svc.Rescore(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

// --- Ad-hoc analysis ---

// submittedFile carries content, which snapshot.File keeps out of JSON.
type submittedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type analyzeRequest struct {
	RepositoryURL string            `json:"repository_url"`
	Files         []submittedFile   `json:"files"`
	Commits       []snapshot.Commit `json:"commits"`
	NonWorking    bool              `json:"non_working_solution"`
}

func (s *Server) analyzeSubmission(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	switch {
	case len(req.Files) > 0:
		files := make([]snapshot.File, 0, len(req.Files))
		for _, f := range req.Files {
			if strings.TrimSpace(f.Path) == "" {
				writeError(w, http.StatusBadRequest, "every file needs a path")
				return
			}
			files = append(files, snapshot.File{Path: f.Path, Content: f.Content})
		}
		res, err := s.svc.AnalyzeSnapshot(r.Context(), snapshot.New(files, req.Commits), req.NonWorking)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case req.RepositoryURL != "":
		res, err := s.svc.Analyze(r.Context(), req.RepositoryURL, req.NonWorking)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	default:
		writeError(w, http.StatusBadRequest, "repository_url or files required")
	}
}

// --- Rubrics ---

func (s *Server) listRubrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":   s.svc.Engine().Rubric().Name,
		"builtins": rubric.Names(),
	})
}

// getRubric returns a built-in rubric, or the active one for "active".
func (s *Server) getRubric(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "active" {
		writeJSON(w, http.StatusOK, s.svc.Engine().Rubric())
		return
	}
	rb, err := rubric.ByName(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rb)
}
