package scoring

import (
	"log/slog"
	"math"

	"github.com/sparklepop/Code-Project-Review/internal/assessment"
)

// Recompute derives every total of r from its item scores: category totals,
// the base total, the penalized grand total and the assessment tier. Item
// scores outside [0,max] and categories over budget are clamped and logged.
// Sums are exact because scores are kept in tenths.
func Recompute(r *ReviewResult, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	var base, maxTotal int64
	for ci := range r.Categories {
		c := &r.Categories[ci]
		var sum, budget int64
		for ii := range c.Items {
			it := &c.Items[ii]
			score := float64(it.Score)
			if math.IsNaN(score) || score < 0 || score > float64(it.Max) {
				logger.Warn("item score outside budget, clamping",
					"category", c.Key, "item", it.Item, "score", score, "max", float64(it.Max))
				it.Score = Points(clamp(score, 0, float64(it.Max)))
			}
			sum += tenths(float64(it.Score))
			budget += tenths(float64(it.Max))
		}
		if sum > budget {
			logger.Warn("category total over budget, clamping", "category", c.Key,
				"total", float64(fromTenths(sum)), "max", float64(fromTenths(budget)))
			sum = budget
		}
		c.Total = fromTenths(sum)
		c.Max = fromTenths(budget)
		base += sum
		maxTotal += budget
	}

	r.BaseTotal = fromTenths(base)
	r.MaxTotal = fromTenths(maxTotal)
	r.GrandTotal = grandTotal(r.BaseTotal, r.Penalty, r.NonWorking)
	tier := assessment.Classify(float64(r.GrandTotal))
	r.AssessmentTier = tier.Label
	r.AssessmentLevel = tier.Level
}

// grandTotal applies the non-working penalty with a floor of zero.
func grandTotal(base, penalty Points, nonWorking bool) Points {
	if !nonWorking {
		return base
	}
	t := tenths(float64(base)) - tenths(float64(penalty))
	if t < 0 {
		t = 0
	}
	return fromTenths(t)
}

// SetNonWorking returns a copy of r with the non-working flag set to v and
// the totals recomputed. The category breakdown is unchanged.
func SetNonWorking(r *ReviewResult, v bool) *ReviewResult {
	out := r.Clone()
	out.NonWorking = v
	Recompute(out, nil)
	return out
}
