package scoring

import (
	"testing"
	"testing/quick"

	"github.com/sparklepop/Code-Project-Review/internal/extract"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
)

// Scores stay within [0, max] for any mix of findings and any budget.
func TestScore_WithinBudgetProperty(t *testing.T) {
	s := NewScorer(DefaultRules(), nil)
	rules := DefaultRules()

	check := func(counts [8]uint16, budget uint8, analyzed uint8, pick uint8) bool {
		keys := rubric.Standard().RuleKeys()
		keys = append(keys, "security_practices", "performance_considerations", "advanced_testing")
		key := keys[int(pick)%len(keys)]
		rule := rules[key]
		limit := float64(budget%30) + 0.5

		outs := map[string]extract.Outcome{}
		for _, src := range rule.Sources {
			res := extract.Result{Analyzed: int(analyzed % 3), Counts: map[string]int{}, Metrics: map[string]float64{
				"test_files": float64(counts[0] % 3), "test_cases": float64(counts[1] % 4),
				"assertions": float64(counts[2] % 4), "coverage_ratio": float64(counts[3]%11) / 10,
				"applicable": float64(counts[4] % 5), "adherence_ratio": float64(counts[5]%11) / 10,
			}}
			for i, d := range rule.Deductions {
				if d.Source == src {
					res.Counts[d.Kind] = int(counts[i%len(counts)])
				}
			}
			outs[src] = extract.Outcome{Name: src, Result: res}
		}

		sub := s.Score("c", rubric.Item{Key: key, Max: limit}, outs)
		return sub.Score >= 0 && float64(sub.Score) <= limit && sub.Quality >= 0 && sub.Quality <= 10
	}
	if err := quick.Check(check, &quick.Config{MaxCount: 2000}); err != nil {
		t.Error(err)
	}
}

// Category totals equal the sum of their items and never exceed the budget.
func TestRecompute_TotalsProperty(t *testing.T) {
	check := func(scores [6]uint8) bool {
		r := &ReviewResult{Categories: []CategoryResult{{Key: "a"}, {Key: "b"}}}
		for i, v := range scores {
			c := &r.Categories[i%2]
			c.Items = append(c.Items, SubScore{Item: string(rune('a' + i)), Score: Points(float64(v%110) / 10), Max: 10})
		}
		Recompute(r, nil)
		var grand int64
		for _, c := range r.Categories {
			var sum int64
			for _, it := range c.Items {
				sum += tenths(float64(it.Score))
			}
			if tenths(float64(c.Total)) != sum || c.Total > c.Max {
				return false
			}
			grand += sum
		}
		return tenths(float64(r.GrandTotal)) == grand
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}
