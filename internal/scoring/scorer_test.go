package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklepop/Code-Project-Review/internal/extract"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
)

func outcome(name string, analyzed int, counts map[string]int, metrics map[string]float64, issues ...extract.Finding) extract.Outcome {
	if counts == nil {
		counts = map[string]int{}
	}
	if metrics == nil {
		metrics = map[string]float64{}
	}
	return extract.Outcome{Name: name, Result: extract.Result{
		Analyzed: analyzed,
		Issues:   issues,
		Counts:   counts,
		Metrics:  metrics,
	}}
}

func outcomes(list ...extract.Outcome) map[string]extract.Outcome {
	m := make(map[string]extract.Outcome, len(list))
	for _, o := range list {
		m[o.Name] = o
	}
	return m
}

func item(key string, budget float64) rubric.Item {
	return rubric.Item{Key: key, Label: key, Max: budget}
}

func TestScore_Deductions(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)
	sub := s.Score("clarity", item("method_simplicity", 10), outcomes(
		outcome(extract.NameMethods, 3, map[string]int{"long_method": 2, "complex_method": 1, "deep_nesting": 1}, nil,
			extract.Finding{File: "a.rb", Line: 1, Kind: "long_method", Message: "long", Severity: extract.SeverityIssue},
			extract.Finding{File: "a.rb", Line: 9, Kind: "deep_nesting", Message: "deep", Severity: extract.SeverityIssue},
		),
	))

	assert.Equal(t, 6.0, sub.Quality)
	assert.Equal(t, Points(6), sub.Score)
	assert.Equal(t, Points(10), sub.Max)
	assert.Equal(t, 0.6, sub.Ratio)
	require.Len(t, sub.Details.Issues, 1, "only kinds the rule deducts for are cited")
	assert.Equal(t, "long_method", sub.Details.Issues[0].Kind)
	assert.False(t, sub.Degraded)
	assert.False(t, sub.Neutral)
}

func TestScore_DeductionsAreCapped(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)
	sub := s.Score("clarity", item("naming_conventions", 10), outcomes(
		outcome(extract.NameNaming, 1, map[string]int{"naming_violation": 400}, map[string]float64{"consistency_ratio": 0.1}),
	))
	assert.Equal(t, 5.0, sub.Quality, "one pathological file cannot zero the item")
	assert.Equal(t, Points(5), sub.Score)
	assert.Equal(t, 0.1, sub.Ratio)
}

func TestScore_RescalesToBudget(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)
	sub := s.Score("architecture", item("dependency_management", 5), outcomes(
		outcome(extract.NameManifest, 2, map[string]int{"missing_lockfile": 1}, nil),
	))
	assert.Equal(t, 8.0, sub.Quality)
	assert.Equal(t, Points(4), sub.Score)
}

func TestScore_Neutral(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)

	sub := s.Score("clarity", item("method_simplicity", 10), outcomes(outcome(extract.NameMethods, 0, nil, nil)))
	assert.True(t, sub.Neutral)
	assert.Equal(t, Points(0), sub.Score)

	sub = s.Score("practices", item("commit_quality", 10), outcomes(outcome(extract.NameCommits, 0, nil, nil)))
	assert.True(t, sub.Neutral)
	assert.Equal(t, Points(5), sub.Score)
}

func TestScore_DegradedOnExtractorError(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)
	failed := extract.Outcome{Name: extract.NameCoupling, Err: errors.New("boom\nstack")}
	sub := s.Score("architecture", item("separation_of_concerns", 10), outcomes(
		failed,
		outcome(extract.NameMethods, 4, nil, nil),
	))

	assert.True(t, sub.Degraded)
	assert.Equal(t, Points(0), sub.Score)
	require.Len(t, sub.Details.Issues, 1)
	assert.Equal(t, "analysis degraded: boom", sub.Details.Issues[0].Message)
	assert.Equal(t, KindDegraded, sub.Details.Issues[0].Kind)
}

func TestScore_UnknownRuleDegrades(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)
	sub := s.Score("x", rubric.Item{Key: "x", Max: 5, Rule: "nope"}, outcomes())
	assert.True(t, sub.Degraded)
	assert.Contains(t, sub.Details.Issues[0].Message, `no scoring rule "nope"`)
}

func TestScore_MissingExtractorDegrades(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)
	sub := s.Score("clarity", item("method_simplicity", 10), outcomes())
	assert.True(t, sub.Degraded)
}

func TestScore_MultiSourceMetricsArePrefixed(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)
	sub := s.Score("problem_solving", item("solution_simplicity", 10), outcomes(
		outcome(extract.NameMethods, 1, nil, map[string]float64{"methods": 4}),
		outcome(extract.NameCoupling, 1, nil, map[string]float64{"classes": 2}),
		outcome(extract.NameOrganization, 1, nil, map[string]float64{"files": 1}),
	))
	assert.Equal(t, map[string]float64{"methods.methods": 4, "coupling.classes": 2, "organization.files": 1}, sub.Details.Metrics)
	assert.Equal(t, Points(10), sub.Score)
}

func TestScore_FrameworkUsage(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)

	sub := s.Score("architecture", item("framework_usage", 5), outcomes(
		outcome(extract.NameConventions, 3, nil, map[string]float64{"applicable": 5, "adherence_ratio": 0.6}),
	))
	assert.Equal(t, Points(3), sub.Score)
	assert.Equal(t, 0.6, sub.Ratio)

	sub = s.Score("architecture", item("framework_usage", 5), outcomes(
		outcome(extract.NameConventions, 3, nil, map[string]float64{"applicable": 0}),
	))
	assert.Equal(t, Points(3), sub.Score, "no applicable conventions scores the middle of the scale")
}

func TestScore_BasicTestingGate(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)
	tests := []struct {
		name    string
		metrics map[string]float64
		want    Points
	}{
		{"no tests", map[string]float64{"test_files": 0}, 0},
		{"no assertions", map[string]float64{"test_files": 1, "test_cases": 2, "assertions": 0}, 5},
		{"real tests", map[string]float64{"test_files": 1, "test_cases": 1, "assertions": 1}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := s.Score("practices", item("basic_testing", 10), outcomes(outcome(extract.NameTests, 2, nil, tt.metrics)))
			assert.Equal(t, tt.want, sub.Score)
		})
	}
}

func TestScore_AdvancedTesting(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)
	sub := s.Score("bonus", item("advanced_testing", 5), outcomes(outcome(extract.NameTests, 2, nil, map[string]float64{
		"test_files": 2, "mock_usage": 3, "edge_case_tests": 1,
	})))
	assert.Equal(t, 6.0, sub.Quality)
	assert.Equal(t, Points(3), sub.Score)
}

func TestDefaultRules_CoverBuiltinRubrics(t *testing.T) {
	rules := DefaultRules()
	known := map[string]bool{}
	for _, e := range extract.All(extract.DefaultThresholds()) {
		known[e.Name()] = true
	}
	for _, name := range rubric.Names() {
		r, err := rubric.ByName(name)
		require.NoError(t, err)
		for _, key := range r.RuleKeys() {
			rule, ok := rules[key]
			require.True(t, ok, "rule for %s", key)
			for _, src := range rule.Sources {
				assert.True(t, known[src], "%s reads unknown extractor %s", key, src)
			}
			for _, d := range rule.Deductions {
				assert.Contains(t, rule.Sources, d.Source, "%s deducts from %s", key, d.Source)
			}
		}
	}
}
