package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/output"
	"github.com/sparklepop/Code-Project-Review/internal/review"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
	"github.com/sparklepop/Code-Project-Review/internal/store"
)

var (
	reviewCandidate  string
	reviewReviewer   string
	reviewComments   string
	reviewNonWorking bool
	reviewRun        bool
	reviewStatus     string
	reviewLimit      int
	reviewFormat     string
	reviewClear      bool
	reviewOutput     string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage saved code reviews",
	Long:  "Create, run, adjust and export code reviews stored in the local database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewListRun()
	},
}

var reviewCreateCmd = &cobra.Command{
	Use:   "create <github-url>",
	Short: "Create a pending review for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewCreateRun(args[0])
	},
}

var reviewListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List reviews",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewListRun()
	},
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <review-id>",
	Short: "Show a review and its scores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewShowRun(args[0])
	},
}

var reviewRunCmd = &cobra.Command{
	Use:   "run <review-id>",
	Short: "Fetch and analyze the review's repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRunRun(args[0])
	},
}

var reviewDeleteCmd = &cobra.Command{
	Use:     "delete <review-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a review",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewDeleteRun(args[0])
	},
}

var reviewScoreCmd = &cobra.Command{
	Use:   "score <review-id> <category> <item> <score>",
	Short: "Override one item score",
	Long: `Override the score of one rubric item. The category subtotal, grand
total and assessment tier are recomputed. Use 'cpr rubric show' for the
category and item keys.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("score must be a number: %q", args[3])
		}
		return reviewScoreRun(args[0], args[1], args[2], value)
	},
}

var reviewNonWorkingCmd = &cobra.Command{
	Use:   "non-working <review-id>",
	Short: "Mark a submission as non-working",
	Long:  "Apply the non-working solution penalty to the grand total. Use --clear to remove it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewNonWorkingRun(args[0], !reviewClear)
	},
}

var reviewRescoreCmd = &cobra.Command{
	Use:   "rescore <review-id>",
	Short: "Recompute totals and feedback from stored item scores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRescoreRun(args[0])
	},
}

var reviewExportCmd = &cobra.Command{
	Use:   "export <review-id>",
	Short: "Export a review as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewExportRun(args[0])
	},
}

func init() {
	reviewCreateCmd.Flags().StringVar(&reviewCandidate, "candidate", "", "Candidate name (required)")
	reviewCreateCmd.Flags().StringVar(&reviewReviewer, "reviewer", "", "Reviewer name (required)")
	reviewCreateCmd.Flags().StringVar(&reviewComments, "comments", "", "Overall comments")
	reviewCreateCmd.Flags().BoolVar(&reviewNonWorking, "non-working", false, "Submission does not run")
	reviewCreateCmd.Flags().BoolVar(&reviewRun, "run", false, "Analyze immediately after creating")
	_ = reviewCreateCmd.MarkFlagRequired("candidate")
	_ = reviewCreateCmd.MarkFlagRequired("reviewer")

	reviewListCmd.Flags().StringVar(&reviewStatus, "status", "", "Filter by status: pending, processing, completed, failed")
	reviewListCmd.Flags().StringVar(&reviewCandidate, "candidate", "", "Filter by candidate name")
	reviewListCmd.Flags().IntVar(&reviewLimit, "limit", 0, "Maximum number of reviews")

	addReportFlags(reviewShowCmd, &reviewFormat)
	addReportFlags(reviewRunCmd, &reviewFormat)

	reviewNonWorkingCmd.Flags().BoolVar(&reviewClear, "clear", false, "Remove the non-working penalty")

	reviewExportCmd.Flags().StringVarP(&reviewFormat, "format", "f", output.FormatMarkdown, "Export format: markdown, json")
	reviewExportCmd.Flags().StringVarP(&reviewOutput, "output", "o", "", "Write to file instead of stdout")

	reviewCmd.AddCommand(reviewCreateCmd)
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewShowCmd)
	reviewCmd.AddCommand(reviewRunCmd)
	reviewCmd.AddCommand(reviewDeleteCmd)
	reviewCmd.AddCommand(reviewScoreCmd)
	reviewCmd.AddCommand(reviewNonWorkingCmd)
	reviewCmd.AddCommand(reviewRescoreCmd)
	reviewCmd.AddCommand(reviewExportCmd)
	rootCmd.AddCommand(reviewCmd)
}

func reviewCreateRun(repoURL string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	req := review.CreateRequest{
		RepositoryURL:   repoURL,
		CandidateName:   reviewCandidate,
		ReviewerName:    reviewReviewer,
		NonWorking:      reviewNonWorking,
		OverallComments: reviewComments,
	}

	if dryRun {
		ui.DryRunMsg("Would create review of %s for %s", repoURL, reviewCandidate)
		return nil
	}

	r, err := svc.Create(ctx, req)
	if err != nil {
		return err
	}
	ui.Success("Created review %s for %s", output.Cyan(shortID(r.ID)), r.CandidateName)

	if !reviewRun {
		return nil
	}
	return runReview(ctx, svc, r.ID)
}

func reviewListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	status := models.ReviewStatus(reviewStatus)
	if status != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q", reviewStatus)
	}

	reviews, err := s.ListReviews(ctx, store.ReviewListFilter{
		Status:    status,
		Candidate: reviewCandidate,
		Limit:     reviewLimit,
	})
	if err != nil {
		return err
	}

	if len(reviews) == 0 {
		ui.Info("No reviews found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Candidate", "Reviewer", "Status", "Score", "Assessment", "Created"})
	for _, r := range reviews {
		score := ""
		if r.Status == models.ReviewStatusCompleted {
			score = output.FormatScore(r.TotalScore, maxTotal(r))
		}
		_ = table.Append([]string{
			shortID(r.ID),
			r.CandidateName,
			r.ReviewerName,
			output.StatusColor(string(r.Status)),
			score,
			r.AssessmentTier,
			timeAgo(r.CreatedAt),
		})
	}
	_ = table.Render()
	return nil
}

func reviewShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := s.GetReview(ctx, id)
	if err != nil {
		return err
	}
	return showReview(r)
}

// showReview prints review details followed by the score report when the
// review has been analyzed.
func showReview(r *models.CodeReview) error {
	if reviewFormat == output.FormatJSON {
		return output.WriteJSON(ui.Out, r)
	}

	if reviewFormat == output.FormatTable || reviewFormat == "" {
		fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(r.ID)), r.CandidateName)
		fmt.Fprintf(ui.Out, "  Repository: %s\n", r.RepositoryURL)
		fmt.Fprintf(ui.Out, "  Reviewer:   %s\n", r.ReviewerName)
		fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(r.Status)))
		if r.NonWorking {
			fmt.Fprintf(ui.Out, "  Working:    %s\n", output.Red("no"))
		}
		if r.ErrorMessage != "" {
			fmt.Fprintf(ui.Out, "  Error:      %s\n", r.ErrorMessage)
		}
		fmt.Fprintf(ui.Out, "  Created:    %s\n", r.CreatedAt.Format(time.RFC3339))
		if r.AnalyzedAt != nil {
			fmt.Fprintf(ui.Out, "  Analyzed:   %s\n", r.AnalyzedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(ui.Out, "  Full ID:    %s\n", r.ID)
	}

	if r.Result == nil {
		if r.Status == models.ReviewStatusPending {
			ui.Info("Not analyzed yet. Run: cpr review run %s", shortID(r.ID))
		}
		return nil
	}
	fmt.Fprintln(ui.Out)

	res := r.Result.Clone()
	res.OverallComments = r.OverallComments
	return ui.Render(reviewFormat, output.HeaderOf(r), res)
}

func reviewRunRun(id string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would analyze review %s", id)
		return nil
	}
	return runReview(context.Background(), svc, id)
}

// runReview analyzes a review in the foreground and prints the result.
func runReview(ctx context.Context, svc *review.Service, id string) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	ui.Info("Analyzing %s...", shortID(id))
	r, err := svc.Run(ctx, id)
	if err != nil {
		return err
	}
	ui.Success("Scored %s: %s (%s)", r.CandidateName,
		output.FormatScore(r.TotalScore, maxTotal(r)), r.AssessmentTier)
	return showReview(r)
}

func reviewDeleteRun(id string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	r, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete review %s (%s)", shortID(r.ID), r.CandidateName)
		return nil
	}
	if err := svc.Delete(ctx, r.ID); err != nil {
		return err
	}
	ui.Success("Deleted review %s", shortID(r.ID))
	return nil
}

func reviewScoreRun(id, category, item string, value float64) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if dryRun {
		ui.DryRunMsg("Would set %s.%s to %g on review %s", category, item, value, id)
		return nil
	}

	r, patch, err := svc.UpdateScore(ctx, id, category, item, value)
	if err != nil {
		return err
	}
	ui.Success("Set %s.%s to %s: category %s, total %s (%s)", category, item,
		patch.ItemScore, patch.CategoryTotal, output.FormatScore(r.TotalScore, maxTotal(r)), patch.AssessmentTier)
	return nil
}

func reviewNonWorkingRun(id string, nonWorking bool) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if dryRun {
		ui.DryRunMsg("Would set non-working=%t on review %s", nonWorking, id)
		return nil
	}

	r, err := svc.SetNonWorking(ctx, id, nonWorking)
	if err != nil {
		return err
	}
	if nonWorking {
		ui.Success("Marked %s as non-working", shortID(r.ID))
	} else {
		ui.Success("Cleared non-working flag on %s", shortID(r.ID))
	}
	if r.Result != nil {
		ui.Info("Grand total: %s (%s)", output.FormatScore(r.TotalScore, maxTotal(r)), r.AssessmentTier)
	}
	return nil
}

func reviewRescoreRun(id string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would rescore review %s", id)
		return nil
	}
	r, err := svc.Rescore(context.Background(), id)
	if err != nil {
		return err
	}
	ui.Success("Rescored %s: %s (%s)", shortID(r.ID), output.FormatScore(r.TotalScore, maxTotal(r)), r.AssessmentTier)
	return nil
}

func reviewExportRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	r, err := s.GetReview(context.Background(), id)
	if err != nil {
		return err
	}
	if r.Result == nil {
		return fmt.Errorf("review %s has not been analyzed", shortID(r.ID))
	}

	var b strings.Builder
	switch reviewFormat {
	case output.FormatJSON:
		err = output.WriteJSON(&b, r)
	case output.FormatMarkdown:
		res := r.Result.Clone()
		res.OverallComments = r.OverallComments
		err = output.WriteMarkdown(&b, output.HeaderOf(r), res)
	default:
		return fmt.Errorf("unknown export format %q (want markdown or json)", reviewFormat)
	}
	if err != nil {
		return err
	}

	if reviewOutput == "" {
		fmt.Fprint(ui.Out, b.String())
		return nil
	}
	if dryRun {
		ui.DryRunMsg("Would write %s", reviewOutput)
		return nil
	}
	if err := os.WriteFile(reviewOutput, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	ui.Success("Exported review %s to %s", shortID(r.ID), reviewOutput)
	return nil
}

// maxTotal is the rubric maximum the review was scored against. Listed
// reviews carry no result, so the built-in rubric of the same name is used.
func maxTotal(r *models.CodeReview) float64 {
	if r.Result != nil {
		return r.Result.MaxTotal.Float()
	}
	if rb, err := rubric.ByName(r.Rubric); err == nil {
		return rb.Max()
	}
	return rubric.Standard().Max()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
