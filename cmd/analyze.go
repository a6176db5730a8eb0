package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sparklepop/Code-Project-Review/internal/engine"
	"github.com/sparklepop/Code-Project-Review/internal/output"
	"github.com/sparklepop/Code-Project-Review/internal/review"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
	"github.com/sparklepop/Code-Project-Review/internal/source"
)

var (
	analyzeFormat     string
	analyzeNonWorking bool
	analyzeRubric     string
	analyzeRubricFile string
	analyzePenalty    float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path|github-url>",
	Short: "Score a repository without saving a review",
	Long: `Analyze a local checkout or a GitHub repository and print the scored
report. Nothing is written to the database; use 'cpr review create' to keep
a review that can be adjusted later.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyzeRun(cmd.Context(), args[0])
	},
}

func init() {
	addReportFlags(analyzeCmd, &analyzeFormat)
	addRubricFlags(analyzeCmd, &analyzeRubric, &analyzeRubricFile, &analyzePenalty)
	analyzeCmd.Flags().BoolVar(&analyzeNonWorking, "non-working", false, "Apply the non-working solution penalty")
	rootCmd.AddCommand(analyzeCmd)
}

// addReportFlags registers the shared --format flag.
func addReportFlags(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "format", "f", output.FormatTable,
		fmt.Sprintf("Report format: %v", output.Formats()))
}

// addRubricFlags registers flags that override the configured rubric.
func addRubricFlags(cmd *cobra.Command, name, file *string, penalty *float64) {
	cmd.Flags().StringVar(name, "rubric", "", "Built-in rubric (standard, advanced)")
	cmd.Flags().StringVar(file, "rubric-file", "", "Rubric YAML file")
	cmd.Flags().Float64Var(penalty, "penalty", -1, "Non-working penalty override")
}

// rubricOverrides returns an engine config hook applying rubric flags.
func rubricOverrides(name, file string, penalty float64) func(*engine.Config) {
	return func(cfg *engine.Config) {
		if name != "" {
			cfg.Rubric = name
			cfg.RubricFile = ""
		}
		if file != "" {
			cfg.RubricFile = file
		}
		if penalty >= 0 {
			cfg.Penalty = penalty
		}
	}
}

func analyzeRun(ctx context.Context, target string) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	e, err := newEngine(rubricOverrides(analyzeRubric, analyzeRubricFile, analyzePenalty))
	if err != nil {
		return err
	}
	cfg := review.DefaultConfig()

	opts := []review.Option{review.WithLogger(appLog), review.WithTimeout(cfg.Timeout)}
	if n := newNarrator(); n != nil {
		opts = append(opts, review.WithNarrator(n))
	}

	var res *scoring.ReviewResult
	if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
		ui.VerboseLog("Reading %s", target)
		snap, err := source.DirFetcher{}.Fetch(ctx, target)
		if err != nil {
			return err
		}
		res, err = review.NewService(nil, e, nil, opts...).AnalyzeSnapshot(ctx, snap, analyzeNonWorking)
		if err != nil {
			return err
		}
	} else {
		f, err := source.New(cfg.Fetch)
		if err != nil {
			return err
		}
		ui.VerboseLog("Fetching %s (%s)", target, fetchMethod(cfg.Fetch))
		res, err = review.NewService(nil, e, f, opts...).Analyze(ctx, target, analyzeNonWorking)
		if err != nil {
			return err
		}
	}

	header := output.Header{Title: "Code review", Repository: target}
	return ui.Render(analyzeFormat, header, res)
}

// signalContext cancels ctx on the platform's shutdown signals.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, shutdownSignals()...)
}

func fetchMethod(cfg source.Config) string {
	if cfg.Method == "" {
		return source.MethodGit
	}
	return cfg.Method
}
