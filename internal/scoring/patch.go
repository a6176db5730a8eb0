package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/sparklepop/Code-Project-Review/internal/rubric"
)

var (
	ErrUnknownCategory = rubric.ErrUnknownCategory
	ErrUnknownItem     = rubric.ErrUnknownItem
	ErrScoreOutOfRange = errors.New("score out of range")
)

// PatchResult reports the totals after a manual score override.
type PatchResult struct {
	Category       string `json:"category"`
	Item           string `json:"item"`
	ItemScore      Points `json:"item_score"`
	CategoryTotal  Points `json:"category_total"`
	GrandTotal     Points `json:"grand_total"`
	AssessmentTier string `json:"assessment_tier"`
}

// UpdateItemScore overrides one item score and re-runs aggregation only.
// r is not modified; the updated result is returned.
func UpdateItemScore(r *ReviewResult, category, item string, value float64) (*ReviewResult, PatchResult, error) {
	c := r.Category(category)
	if c == nil {
		return nil, PatchResult{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	it := c.Item(item)
	if it == nil {
		return nil, PatchResult{}, fmt.Errorf("%w: %q in %q", ErrUnknownItem, item, category)
	}
	if math.IsNaN(value) || value < 0 || value > float64(it.Max) {
		return nil, PatchResult{}, fmt.Errorf("%w: %v not in [0, %v] for %s.%s", ErrScoreOutOfRange, value, float64(it.Max), category, item)
	}

	out := r.Clone()
	oc := out.Category(category)
	oi := oc.Item(item)
	oi.Score = Points(Round1(value))
	oi.Quality = Round1(value / float64(oi.Max) * 10)
	// The reviewer's share replaces any extractor ratio behind the overview.
	oi.Ratio = math.Round(value/float64(oi.Max)*100) / 100
	oi.Neutral = false
	oi.Overridden = true
	Recompute(out, nil)

	return out, PatchResult{
		Category:       category,
		Item:           item,
		ItemScore:      oi.Score,
		CategoryTotal:  oc.Total,
		GrandTotal:     out.GrandTotal,
		AssessmentTier: out.AssessmentTier,
	}, nil
}
