// Package engine runs the analysis pipeline: classify, extract, score,
// aggregate and compose feedback.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/classify"
	"github.com/sparklepop/Code-Project-Review/internal/extract"
	"github.com/sparklepop/Code-Project-Review/internal/feedback"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
)

const (
	DefaultMaxFiles = 20
	DefaultTimeout  = 2 * time.Minute
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	rules       map[string]scoring.Rule
	extractors  []extract.Extractor
	thresholds  extract.Thresholds
	composer    *feedback.Composer
	maxFiles    int
	concurrency int
}

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }
func WithRules(r map[string]scoring.Rule) Option { return func(o *options) { o.rules = r } }
func WithExtractors(e ...extract.Extractor) Option { return func(o *options) { o.extractors = e } }
func WithThresholds(t extract.Thresholds) Option { return func(o *options) { o.thresholds = t } }
func WithComposer(c *feedback.Composer) Option { return func(o *options) { o.composer = c } }
func WithMaxFiles(n int) Option { return func(o *options) { o.maxFiles = n } }
func WithConcurrency(n int) Option { return func(o *options) { o.concurrency = n } }

// Engine scores snapshots against one rubric. It holds no per-run state and
// is safe for concurrent use.
type Engine struct {
	rubric      *rubric.Rubric
	scorer      *scoring.Scorer
	composer    *feedback.Composer
	extractors  []extract.Extractor
	maxFiles    int
	concurrency int
	logger      *slog.Logger
}

// AnalyzeOptions are per-run settings.
type AnalyzeOptions struct {
	NonWorking bool
}

// New builds an Engine for r. Every rubric item must have a scoring rule
// and every rule source a registered extractor; only the extractors the
// rubric needs are run.
func New(r *rubric.Rubric, opts ...Option) (*Engine, error) {
	if r == nil {
		return nil, apperr.Validation("rubric is required")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	o := options{
		thresholds: extract.DefaultThresholds(),
		maxFiles:   DefaultMaxFiles,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.rules == nil {
		o.rules = scoring.DefaultRules()
	}
	if o.extractors == nil {
		o.extractors = extract.All(o.thresholds)
	}
	if o.composer == nil {
		o.composer = feedback.NewComposer()
	}

	registry := extract.Registry(o.extractors)
	needed := map[string]bool{}
	for _, key := range r.RuleKeys() {
		rule, ok := o.rules[key]
		if !ok {
			return nil, fmt.Errorf("%w: no scoring rule %q", rubric.ErrInvalidRubric, key)
		}
		for _, src := range rule.Sources {
			if _, ok := registry[src]; !ok {
				return nil, fmt.Errorf("%w: rule %q reads unknown extractor %q", rubric.ErrInvalidRubric, key, src)
			}
			needed[src] = true
		}
	}

	var run []extract.Extractor
	for _, e := range o.extractors {
		if needed[e.Name()] {
			run = append(run, e)
			delete(needed, e.Name())
		}
	}

	return &Engine{
		rubric:      r,
		scorer:      scoring.NewScorer(o.rules, o.logger),
		composer:    o.composer,
		extractors:  run,
		maxFiles:    o.maxFiles,
		concurrency: o.concurrency,
		logger:      o.logger,
	}, nil
}

// Rubric returns the rubric the engine scores against.
func (e *Engine) Rubric() *rubric.Rubric { return e.rubric }

// Composer returns the feedback composer used for results.
func (e *Engine) Composer() *feedback.Composer { return e.composer }

// Analyze scores snap. Extractor failures degrade the affected items
// instead of failing the run; only cancellation of ctx returns an error,
// in which case no result is produced.
func (e *Engine) Analyze(ctx context.Context, snap *snapshot.Snapshot, opts AnalyzeOptions) (*scoring.ReviewResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	if snap == nil {
		snap = snapshot.New(nil, nil)
	}
	start := time.Now()

	all := classify.Classify(snap)
	buckets := all.Limit(e.maxFiles)
	in := extract.NewInput(buckets, snap.Commits())

	outcomes, err := e.extract(ctx, in)
	if err != nil {
		return nil, err
	}

	res := &scoring.ReviewResult{
		Rubric:     e.rubric.Name,
		NonWorking: opts.NonWorking,
		Penalty:    scoring.Points(e.rubric.Penalty),
		Categories: make([]scoring.CategoryResult, 0, len(e.rubric.Categories)),
		Files:      fileStats(all, buckets, len(in.Commits)),
	}
	for _, c := range e.rubric.Categories {
		cr := scoring.CategoryResult{Key: c.Key, Label: c.Label, Items: make([]scoring.SubScore, 0, len(c.Items))}
		for _, it := range c.Items {
			cr.Items = append(cr.Items, e.scorer.Score(c.Key, it, outcomes))
		}
		res.Categories = append(res.Categories, cr)
	}
	scoring.Recompute(res, e.logger)
	e.composer.Apply(res)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	e.logger.Debug("analysis complete",
		"rubric", res.Rubric,
		"files", buckets.Count(),
		"grand_total", float64(res.GrandTotal),
		"duration", time.Since(start))
	return res, nil
}

// extract runs every extractor concurrently. Results land in a slice
// indexed by extractor so scheduling order cannot affect the output.
func (e *Engine) extract(ctx context.Context, in extract.Input) (map[string]extract.Outcome, error) {
	results := make([]extract.Outcome, len(e.extractors))

	g, gctx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i, ex := range e.extractors {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = extract.Run(ex, in)
			if results[i].Err != nil {
				e.logger.Warn("extractor failed", "extractor", ex.Name(), "error", results[i].Err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	out := make(map[string]extract.Outcome, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	return out, nil
}

func fileStats(all, analyzed classify.Buckets, commits int) scoring.FileStats {
	st := scoring.FileStats{
		Source:   len(analyzed.Source),
		Test:     len(analyzed.Test),
		Docs:     len(analyzed.Docs),
		Config:   len(analyzed.Config),
		Dropped:  len(all.Dropped),
		Excluded: len(all.Excluded),
		Commits:  commits,
	}
	for _, l := range analyzed.Languages() {
		st.Languages = append(st.Languages, string(l))
	}
	return st
}
