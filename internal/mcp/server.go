package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/review"
	"github.com/sparklepop/Code-Project-Review/internal/store"
)

// Server exposes the review service as MCP tools.
type Server struct {
	svc     *review.Service
	version string
}

// NewServer creates the MCP server wrapper.
func NewServer(svc *review.Service, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{svc: svc, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("cpr", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.analyzeRepositoryTool())
	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.getReviewTool())
	srv.AddTool(s.updateScoreTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// cpr_analyze_repository
func (s *Server) analyzeRepositoryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cpr_analyze_repository",
		mcp.WithDescription("Analyze a candidate's GitHub repository against the review rubric. With candidate_name and reviewer_name the review is saved and its id returned; without them the scored result is returned and nothing is stored."),
		mcp.WithString("repository_url", mcp.Required(), mcp.Description("GitHub repository URL")),
		mcp.WithString("candidate_name", mcp.Description("Candidate name; saves the review when set with reviewer_name")),
		mcp.WithString("reviewer_name", mcp.Description("Reviewer name")),
		mcp.WithBoolean("non_working_solution", mcp.Description("Apply the non-working penalty")),
	)
	return tool, s.handleAnalyzeRepository
}

func (s *Server) handleAnalyzeRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("repository_url")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repository_url"), nil
	}
	candidate := request.GetString("candidate_name", "")
	reviewer := request.GetString("reviewer_name", "")
	nonWorking := request.GetBool("non_working_solution", false)

	if candidate == "" && reviewer == "" {
		res, err := s.svc.Analyze(ctx, url, nonWorking)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(res)
	}

	r, err := s.svc.Create(ctx, review.CreateRequest{
		RepositoryURL: url,
		CandidateName: candidate,
		ReviewerName:  reviewer,
		NonWorking:    nonWorking,
	})
	if err != nil {
		return toolError(err), nil
	}
	done, err := s.svc.Run(ctx, r.ID)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(done)
}

// cpr_list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cpr_list_reviews",
		mcp.WithDescription("List saved code reviews, newest first. Returns id, candidate, repository, status, total score and assessment tier."),
		mcp.WithString("status", mcp.Description("Filter by status"), mcp.Enum("pending", "processing", "completed", "failed")),
		mcp.WithString("candidate", mcp.Description("Filter by candidate name substring")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of reviews to return")),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.ReviewListFilter{
		Status:    models.ReviewStatus(request.GetString("status", "")),
		Candidate: request.GetString("candidate", ""),
		Limit:     request.GetInt("limit", 0),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown status: %s", filter.Status)), nil
	}

	reviews, err := s.svc.List(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}

	type reviewOut struct {
		ID             string  `json:"id"`
		Candidate      string  `json:"candidate_name"`
		Reviewer       string  `json:"reviewer_name"`
		Repository     string  `json:"repository_url"`
		Status         string  `json:"status"`
		TotalScore     float64 `json:"total_score"`
		AssessmentTier string  `json:"assessment_tier,omitempty"`
		NonWorking     bool    `json:"non_working_solution"`
	}

	out := make([]reviewOut, len(reviews))
	for i, r := range reviews {
		out[i] = reviewOut{
			ID:             r.ID,
			Candidate:      r.CandidateName,
			Reviewer:       r.ReviewerName,
			Repository:     r.RepositoryURL,
			Status:         string(r.Status),
			TotalScore:     r.TotalScore,
			AssessmentTier: r.AssessmentTier,
			NonWorking:     r.NonWorking,
		}
	}
	return jsonResult(out)
}

// cpr_get_review
func (s *Server) getReviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cpr_get_review",
		mcp.WithDescription("Get a saved review with its full score breakdown and feedback. Accepts an id or unique id prefix."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review id or prefix")),
	)
	return tool, s.handleGetReview
}

func (s *Server) handleGetReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}
	r, err := s.svc.Get(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(r)
}

// cpr_update_score
func (s *Server) updateScoreTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cpr_update_score",
		mcp.WithDescription("Override one item score of an analyzed review. Totals and the assessment tier are recomputed; other items are unchanged."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review id or prefix")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category key, e.g. clarity")),
		mcp.WithString("item", mcp.Required(), mcp.Description("Item key, e.g. naming_conventions")),
		mcp.WithNumber("score", mcp.Required(), mcp.Description("New score between 0 and the item maximum")),
	)
	return tool, s.handleUpdateScore
}

func (s *Server) handleUpdateScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}
	category, err := request.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: category"), nil
	}
	item, err := request.RequireString("item")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: item"), nil
	}
	score, err := request.RequireFloat("score")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: score"), nil
	}

	_, patch, err := s.svc.UpdateScore(ctx, id, category, item, score)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(patch)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(apperr.UserMessage(err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
