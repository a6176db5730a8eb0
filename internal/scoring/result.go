package scoring

import (
	"github.com/sparklepop/Code-Project-Review/internal/assessment"
	"github.com/sparklepop/Code-Project-Review/internal/extract"
)

// Details carries the evidence behind a sub-score.
type Details struct {
	Issues       []extract.Finding  `json:"issues"`
	GoodExamples []extract.Finding  `json:"good_examples"`
	Metrics      map[string]float64 `json:"metrics"`
}

// SubScore is the weighted score of one rubric item. 0 <= Score <= Max.
type SubScore struct {
	Category string `json:"category"`
	Item     string `json:"item"`
	Label    string `json:"label"`
	Rule     string `json:"rule,omitempty"`
	Score    Points `json:"score"`
	Max      Points `json:"max"`

	// Quality is the internal 0-10 value Score was rescaled from.
	Quality  float64 `json:"quality"`
	Ratio    float64 `json:"ratio"`
	Feedback string  `json:"feedback"`
	Details  Details `json:"details"`

	// Degraded is set when an extractor behind the item failed, Neutral
	// when there was nothing to analyze.
	Degraded   bool `json:"degraded,omitempty"`
	Neutral    bool `json:"neutral,omitempty"`
	Overridden bool `json:"overridden,omitempty"`
}

// CategoryResult aggregates the items of one rubric category.
type CategoryResult struct {
	Key     string     `json:"key"`
	Label   string     `json:"label"`
	Items   []SubScore `json:"items"`
	Total   Points     `json:"total_score"`
	Max     Points     `json:"max"`
	Summary string     `json:"summary,omitempty"`
}

// Item returns a pointer to the item with the given key.
func (c *CategoryResult) Item(key string) *SubScore {
	for i := range c.Items {
		if c.Items[i].Item == key {
			return &c.Items[i]
		}
	}
	return nil
}

// FileStats records how the snapshot was partitioned.
type FileStats struct {
	Source    int      `json:"source"`
	Test      int      `json:"test"`
	Docs      int      `json:"docs"`
	Config    int      `json:"config"`
	Dropped   int      `json:"dropped"`
	Excluded  int      `json:"excluded"`
	Commits   int      `json:"commits"`
	Languages []string `json:"languages,omitempty"`
}

// ReviewResult is the full scored review. The category breakdown is never
// penalized; the non-working penalty only affects GrandTotal.
type ReviewResult struct {
	Rubric          string           `json:"rubric"`
	Categories      []CategoryResult `json:"categories"`
	BaseTotal       Points           `json:"base_total"`
	MaxTotal        Points           `json:"max_total"`
	NonWorking      bool             `json:"non_working"`
	Penalty         Points           `json:"penalty"`
	GrandTotal      Points           `json:"grand_total"`
	AssessmentTier  string           `json:"assessment_tier"`
	AssessmentLevel assessment.Level `json:"assessment_level"`
	OverallComments string           `json:"overall_comments,omitempty"`
	Files           FileStats        `json:"files"`
}

// Category returns a pointer to the category with the given key.
func (r *ReviewResult) Category(key string) *CategoryResult {
	for i := range r.Categories {
		if r.Categories[i].Key == key {
			return &r.Categories[i]
		}
	}
	return nil
}

// Clone returns a copy whose categories and items can be modified without
// touching r. Findings are shared since they are never mutated.
func (r *ReviewResult) Clone() *ReviewResult {
	out := *r
	out.Categories = make([]CategoryResult, len(r.Categories))
	for i, c := range r.Categories {
		c.Items = append([]SubScore(nil), c.Items...)
		out.Categories[i] = c
	}
	out.Files.Languages = append([]string(nil), r.Files.Languages...)
	return &out
}
