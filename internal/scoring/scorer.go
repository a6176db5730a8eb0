// Package scoring turns extractor results into weighted rubric scores and
// aggregates them into a review result.
package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/extract"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
)

// KindDegraded marks the finding attached to an item whose analysis failed.
const KindDegraded = "degraded_analysis"

// Scorer computes sub-scores from extractor outcomes.
type Scorer struct {
	rules  map[string]Rule
	logger *slog.Logger
}

// NewScorer returns a Scorer using rules. A nil logger means slog.Default().
func NewScorer(rules map[string]Rule, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{rules: rules, logger: logger}
}

// Rule returns the rule registered under key.
func (s *Scorer) Rule(key string) (Rule, bool) {
	r, ok := s.rules[key]
	return r, ok
}

// Score evaluates one rubric item. It never fails: a missing rule or a
// failed extractor yields a zero, degraded sub-score with an explanatory
// finding.
func (s *Scorer) Score(category string, item rubric.Item, outcomes map[string]extract.Outcome) SubScore {
	sub := SubScore{
		Category: category,
		Item:     item.Key,
		Label:    item.Label,
		Rule:     item.RuleKey(),
		Max:      Points(item.Max),
		Details:  Details{Issues: []extract.Finding{}, GoodExamples: []extract.Finding{}, Metrics: map[string]float64{}},
	}

	rule, ok := s.rules[item.RuleKey()]
	if !ok {
		return s.degrade(sub, fmt.Errorf("no scoring rule %q", item.RuleKey()))
	}

	results := Results{}
	analyzed := 0
	for _, src := range rule.Sources {
		out, ok := outcomes[src]
		if !ok {
			return s.degrade(sub, fmt.Errorf("extractor %s did not run", src))
		}
		if out.Err != nil {
			return s.degrade(sub, out.Err)
		}
		results[src] = out.Result
		analyzed += out.Result.Analyzed
	}

	for _, src := range rule.Sources {
		for name, v := range results[src].Metrics {
			key := name
			if len(rule.Sources) > 1 {
				key = src + "." + name
			}
			sub.Details.Metrics[key] = v
		}
	}

	if analyzed == 0 {
		sub.Neutral = true
		sub.Quality = rule.Neutral
		sub.Score = rescale(rule.Neutral, item.Max)
		sub.Ratio = rule.Neutral / 10
		return sub
	}

	deducted := 0.0
	for _, d := range rule.Deductions {
		n := results[d.Source].Count(d.Kind)
		deducted += math.Min(d.Cap, d.Per*float64(n))
	}
	quality := 10 - deducted
	if rule.Quality != nil {
		quality = rule.Quality(results, deducted)
	}
	quality = clamp(quality, 0, 10)

	sub.Quality = Round1(quality)
	sub.Score = rescale(quality, item.Max)
	sub.Ratio = quality / 10
	if rule.Ratio != "" {
		src, name, _ := strings.Cut(rule.Ratio, ".")
		if v, ok := results.Metric(src, name); ok {
			sub.Ratio = v
		}
	}
	sub.Ratio = math.Round(sub.Ratio*100) / 100

	issueKinds := rule.issueKinds()
	goodKinds := make(map[string]bool, len(rule.Good))
	for _, k := range rule.Good {
		goodKinds[k] = true
	}
	for _, src := range rule.Sources {
		for _, f := range results[src].Issues {
			if issueKinds[f.Kind] {
				sub.Details.Issues = append(sub.Details.Issues, f)
			}
		}
		for _, f := range results[src].Good {
			if goodKinds[f.Kind] {
				sub.Details.GoodExamples = append(sub.Details.GoodExamples, f)
			}
		}
	}
	extract.SortFindings(sub.Details.Issues)
	extract.SortFindings(sub.Details.GoodExamples)
	sub.Details.Issues = dedupe(sub.Details.Issues)
	sub.Details.GoodExamples = dedupe(sub.Details.GoodExamples)
	return sub
}

func (s *Scorer) degrade(sub SubScore, err error) SubScore {
	msg := firstLine(err.Error())
	s.logger.Warn("analysis degraded", "category", sub.Category, "item", sub.Item, "error", msg)
	sub.Degraded = true
	sub.Score = 0
	sub.Quality = 0
	sub.Details.Issues = []extract.Finding{{
		Message:  "analysis degraded: " + msg,
		Severity: extract.SeverityIssue,
		Kind:     KindDegraded,
	}}
	return sub
}

// rescale maps a 0-10 quality onto an item budget, rounded to one decimal.
func rescale(quality, budget float64) Points {
	return Points(clamp(Round1(quality/10*budget), 0, budget))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// dedupe drops adjacent identical findings, which occur when two sources
// report the same observation.
func dedupe(fs []extract.Finding) []extract.Finding {
	if len(fs) < 2 {
		return fs
	}
	out := fs[:1]
	for _, f := range fs[1:] {
		if f != out[len(out)-1] {
			out = append(out, f)
		}
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
