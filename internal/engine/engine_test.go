package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklepop/Code-Project-Review/internal/extract"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
)

func longMethod(lines int) string {
	var b strings.Builder
	b.WriteString("class Order\n  def total\n")
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&b, "    sum_%d = price * %d\n", i, i)
	}
	b.WriteString("  end\nend\n")
	return b.String()
}

func submission() *snapshot.Snapshot {
	return snapshot.New([]snapshot.File{
		{Path: "app/models/order.rb", Content: longMethod(25)},
		{Path: "app/models/cart.rb", Content: "# Cart totals line items\nclass Cart\n  def size\n    items.count\n  end\nend\n"},
		{Path: "spec/models/order_spec.rb", Content: "describe Order do\n  it \"totals items\" do\n    expect(Order.new.total).to eq(0)\n  end\nend\n"},
		{Path: "README.md", Content: "# Orders\n\n## Setup\n\nbundle install\n"},
		{Path: "Gemfile", Content: "source 'https://rubygems.org'\ngem 'rails', '~> 7.1'\n"},
		{Path: "logo.png", Content: "binary"},
	}, []snapshot.Commit{
		{Hash: "a1", Subject: "Add order totals with line item pricing"},
		{Hash: "b2", Subject: "fix"},
	})
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(rubric.Standard(), opts...)
	require.NoError(t, err)
	return e
}

func TestAnalyze_Submission(t *testing.T) {
	e := newEngine(t)
	res, err := e.Analyze(context.Background(), submission(), AnalyzeOptions{})
	require.NoError(t, err)

	require.Len(t, res.Categories, 5)
	assert.Equal(t, []string{"clarity", "architecture", "practices", "problem_solving", "bonus"},
		[]string{res.Categories[0].Key, res.Categories[1].Key, res.Categories[2].Key, res.Categories[3].Key, res.Categories[4].Key})
	assert.Equal(t, scoring.Points(115), res.MaxTotal)

	methods := res.Category("clarity").Item("method_simplicity")
	require.NotNil(t, methods)
	assert.Less(t, float64(methods.Score), 10.0)
	assert.NotEmpty(t, methods.Details.Issues)
	assert.Contains(t, methods.Feedback, "app/models/order.rb:2")

	assert.Greater(t, float64(res.Category("bonus").Total), 0.0)

	for _, c := range res.Categories {
		assert.NotEmpty(t, c.Summary, c.Key)
		for _, it := range c.Items {
			assert.GreaterOrEqual(t, float64(it.Score), 0.0, it.Item)
			assert.LessOrEqual(t, float64(it.Score), float64(it.Max), it.Item)
			assert.False(t, it.Degraded, it.Item)
			assert.NotEmpty(t, it.Feedback, it.Item)
		}
	}
	assert.Equal(t, res.BaseTotal, res.GrandTotal)
	assert.NotEmpty(t, res.OverallComments)

	assert.Equal(t, 2, res.Files.Source)
	assert.Equal(t, 1, res.Files.Test)
	assert.Equal(t, 1, res.Files.Docs)
	assert.Equal(t, 1, res.Files.Config)
	assert.Equal(t, 1, res.Files.Excluded)
	assert.Equal(t, 2, res.Files.Commits)
	assert.Equal(t, []string{"ruby"}, res.Files.Languages)
}

func TestAnalyze_Idempotent(t *testing.T) {
	e := newEngine(t)
	first, err := e.Analyze(context.Background(), submission(), AnalyzeOptions{})
	require.NoError(t, err)
	second, err := e.Analyze(context.Background(), submission(), AnalyzeOptions{})
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAnalyze_NonWorking(t *testing.T) {
	e := newEngine(t)
	base, err := e.Analyze(context.Background(), submission(), AnalyzeOptions{})
	require.NoError(t, err)
	penalized, err := e.Analyze(context.Background(), submission(), AnalyzeOptions{NonWorking: true})
	require.NoError(t, err)

	assert.Equal(t, base.BaseTotal, penalized.BaseTotal)
	want := float64(base.BaseTotal) - 30
	if want < 0 {
		want = 0
	}
	assert.InDelta(t, want, float64(penalized.GrandTotal), 1e-9)
	assert.Contains(t, penalized.OverallComments, "penalty")
}

func TestAnalyze_EmptySnapshot(t *testing.T) {
	e := newEngine(t)
	res, err := e.Analyze(context.Background(), snapshot.New(nil, nil), AnalyzeOptions{})
	require.NoError(t, err)

	for _, c := range res.Categories {
		for _, it := range c.Items {
			assert.True(t, it.Neutral, it.Item)
			assert.False(t, it.Degraded, it.Item)
		}
	}
	assert.Equal(t, scoring.Points(5), res.Category("practices").Item("commit_quality").Score)
	assert.Equal(t, scoring.Points(0), res.Category("clarity").Item("method_simplicity").Score)
	assert.Equal(t, "No methods to evaluate.", res.Category("clarity").Item("method_simplicity").Feedback)
	assert.Equal(t, scoring.Points(5), res.GrandTotal)
}

func TestAnalyze_NilSnapshot(t *testing.T) {
	e := newEngine(t)
	_, err := e.Analyze(context.Background(), nil, AnalyzeOptions{})
	assert.NoError(t, err)
}

func TestAnalyze_Cancelled(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Analyze(ctx, submission(), AnalyzeOptions{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

type slowExtractor struct{ name string }

func (s slowExtractor) Name() string { return s.name }

func (s slowExtractor) Extract(extract.Input) (extract.Result, error) {
	time.Sleep(50 * time.Millisecond)
	return extract.Result{}, nil
}

func TestAnalyze_DeadlineExceeded(t *testing.T) {
	rules := map[string]scoring.Rule{"code_reuse": {Sources: []string{"slow"}}}
	r := &rubric.Rubric{Name: "tiny", Categories: []rubric.Category{{Key: "a", Label: "A", Items: []rubric.Item{
		{Key: "code_reuse", Label: "Reuse", Max: 5},
	}}}}
	e, err := New(r, WithRules(rules), WithExtractors(slowExtractor{"slow"}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err = e.Analyze(ctx, submission(), AnalyzeOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type brokenExtractor struct{ name string }

func (b brokenExtractor) Name() string { return b.name }

func (b brokenExtractor) Extract(extract.Input) (extract.Result, error) {
	panic("index out of range")
}

type failingExtractor struct{ name string }

func (f failingExtractor) Name() string { return f.name }

func (f failingExtractor) Extract(extract.Input) (extract.Result, error) {
	return extract.Result{}, errors.New("unreadable manifest")
}

func TestAnalyze_ExtractorFailureDegradesItems(t *testing.T) {
	var list []extract.Extractor
	for _, ex := range extract.All(extract.DefaultThresholds()) {
		switch ex.Name() {
		case extract.NameReuse:
			list = append(list, brokenExtractor{extract.NameReuse})
		case extract.NameManifest:
			list = append(list, failingExtractor{extract.NameManifest})
		default:
			list = append(list, ex)
		}
	}
	e := newEngine(t, WithExtractors(list...))

	res, err := e.Analyze(context.Background(), submission(), AnalyzeOptions{})
	require.NoError(t, err)

	reuse := res.Category("problem_solving").Item("code_reuse")
	assert.True(t, reuse.Degraded)
	assert.Equal(t, scoring.Points(0), reuse.Score)
	assert.Contains(t, reuse.Details.Issues[0].Message, "panic in reuse: index out of range")

	deps := res.Category("architecture").Item("dependency_management")
	assert.True(t, deps.Degraded)
	assert.Equal(t, "analysis degraded: unreadable manifest", deps.Details.Issues[0].Message)

	assert.False(t, res.Category("clarity").Item("naming_conventions").Degraded)
	assert.Contains(t, res.OverallComments, "Automated analysis was incomplete for: Dependency management, Code reuse.")
}

func TestAnalyze_MaxFiles(t *testing.T) {
	var files []snapshot.File
	for i := 0; i < 25; i++ {
		files = append(files, snapshot.File{Path: fmt.Sprintf("lib/f%02d.py", i), Content: "def f():\n    return 1\n"})
	}
	e := newEngine(t, WithMaxFiles(20))
	res, err := e.Analyze(context.Background(), snapshot.New(files, nil), AnalyzeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Files.Source)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(rubric.Standard(), WithRules(map[string]scoring.Rule{}))
	assert.ErrorIs(t, err, rubric.ErrInvalidRubric)

	_, err = New(rubric.Standard(), WithExtractors(&extract.Methods{}))
	assert.ErrorIs(t, err, rubric.ErrInvalidRubric)

	_, err = New(&rubric.Rubric{Name: ""})
	assert.ErrorIs(t, err, rubric.ErrInvalidRubric)
}

func TestNew_RunsOnlyNeededExtractors(t *testing.T) {
	e := newEngine(t)
	names := map[string]bool{}
	for _, ex := range e.extractors {
		names[ex.Name()] = true
	}
	assert.False(t, names[extract.NameSecurity])
	assert.False(t, names[extract.NamePerformance])
	assert.True(t, names[extract.NameMethods])

	adv, err := New(rubric.Advanced())
	require.NoError(t, err)
	names = map[string]bool{}
	for _, ex := range adv.extractors {
		names[ex.Name()] = true
	}
	assert.True(t, names[extract.NameSecurity])
}
