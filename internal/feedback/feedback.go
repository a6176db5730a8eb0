// Package feedback composes human-readable text from scored review results.
package feedback

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/extract"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
)

// DefaultMaxExamples is the number of findings cited per list.
const DefaultMaxExamples = 3

// Ratio thresholds for the overview sentence.
const (
	StrongRatio   = 0.8
	AdequateRatio = 0.5
)

// Composer builds feedback text. It is stateless after construction and
// safe for concurrent use.
type Composer struct {
	MaxExamples int
	templates   map[string]Template
}

// NewComposer returns a Composer with the built-in templates.
func NewComposer() *Composer {
	return &Composer{MaxExamples: DefaultMaxExamples, templates: DefaultTemplates()}
}

// WithTemplates returns a copy of c that uses t for the given rules and the
// built-in templates for the rest.
func (c *Composer) WithTemplates(t map[string]Template) *Composer {
	out := &Composer{MaxExamples: c.MaxExamples, templates: make(map[string]Template, len(c.templates)+len(t))}
	for k, v := range c.templates {
		out.templates[k] = v
	}
	for k, v := range t {
		out.templates[k] = v
	}
	return out
}

func (c *Composer) template(rule string) Template {
	if t, ok := c.templates[rule]; ok {
		return t
	}
	return fallback
}

// Compose returns the feedback for one sub-score: an overview sentence,
// then up to MaxExamples good examples and issues.
func (c *Composer) Compose(s scoring.SubScore) string {
	t := c.template(ruleOf(s))

	var b strings.Builder
	switch {
	case s.Degraded:
		b.WriteString("Automated analysis failed for this item; review it manually.")
	case s.Neutral:
		b.WriteString(t.Empty)
	default:
		b.WriteString(overview(t, s.Ratio))
	}

	c.cite(&b, "Good examples", s.Details.GoodExamples)
	c.cite(&b, "Issues", s.Details.Issues)
	return b.String()
}

func overview(t Template, ratio float64) string {
	switch {
	case ratio >= StrongRatio:
		return t.Strong
	case ratio >= AdequateRatio:
		return t.Adequate
	default:
		return t.Weak
	}
}

func (c *Composer) cite(b *strings.Builder, title string, fs []extract.Finding) {
	if len(fs) == 0 {
		return
	}
	n := c.MaxExamples
	if n <= 0 {
		n = DefaultMaxExamples
	}
	fmt.Fprintf(b, "\n%s:", title)
	for i, f := range fs {
		if i == n {
			fmt.Fprintf(b, "\n- and %d more", len(fs)-n)
			break
		}
		if f.File == "" {
			fmt.Fprintf(b, "\n- %s", f.Message)
			continue
		}
		fmt.Fprintf(b, "\n- %s: %s", f.Locator(), f.Message)
	}
}

// Summary returns the one-line summary of a category.
func (c *Composer) Summary(cr scoring.CategoryResult) string {
	label := labelOf(cr.Key, cr.Label)
	line := fmt.Sprintf("%s: %s/%s.", label, cr.Total, cr.Max)

	ranked := rank(cr.Items)
	if len(ranked) < 2 {
		return line
	}
	best, worst := ranked[0], ranked[len(ranked)-1]
	if share(best) == share(worst) {
		return line
	}
	return fmt.Sprintf("%s Strongest: %s; weakest: %s.", line, labelOf(best.Item, best.Label), labelOf(worst.Item, worst.Label))
}

// Overall returns the review-level comments: the total and tier, the
// strongest and weakest items, and any penalty or incomplete analysis.
func (c *Composer) Overall(r *scoring.ReviewResult) string {
	var all []scoring.SubScore
	var degraded []string
	for _, cat := range r.Categories {
		for _, it := range cat.Items {
			if it.Degraded {
				degraded = append(degraded, labelOf(it.Item, it.Label))
			}
			all = append(all, it)
		}
	}
	ranked := rank(all)

	var strengths, weaknesses []string
	for _, it := range ranked {
		if len(strengths) == c.limit() {
			break
		}
		if share(it) >= StrongRatio {
			strengths = appendUnique(strengths, labelOf(it.Item, it.Label))
		}
	}
	for i := len(ranked) - 1; i >= 0; i-- {
		if len(weaknesses) == c.limit() {
			break
		}
		if share(ranked[i]) < AdequateRatio {
			weaknesses = appendUnique(weaknesses, labelOf(ranked[i].Item, ranked[i].Label))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Overall score %s/%s (%s).", r.GrandTotal, r.MaxTotal, r.AssessmentTier)
	if len(strengths) > 0 {
		fmt.Fprintf(&b, " Strengths: %s.", strings.Join(strengths, ", "))
	}
	if len(weaknesses) > 0 {
		fmt.Fprintf(&b, " Areas to improve: %s.", strings.Join(weaknesses, ", "))
	}
	if r.NonWorking {
		fmt.Fprintf(&b, " A %s point penalty was applied because the solution does not work.", r.Penalty)
	}
	if len(degraded) > 0 {
		fmt.Fprintf(&b, " Automated analysis was incomplete for: %s.", strings.Join(degraded, ", "))
	}
	return b.String()
}

// Apply fills in item feedback, category summaries and overall comments.
func (c *Composer) Apply(r *scoring.ReviewResult) {
	for ci := range r.Categories {
		cat := &r.Categories[ci]
		for ii := range cat.Items {
			cat.Items[ii].Feedback = c.Compose(cat.Items[ii])
		}
		cat.Summary = c.Summary(*cat)
	}
	r.OverallComments = c.Overall(r)
}

func (c *Composer) limit() int {
	if c.MaxExamples <= 0 {
		return DefaultMaxExamples
	}
	return c.MaxExamples
}

// rank orders the judged items by score share, best first. Neutral and
// degraded items are left out.
func rank(items []scoring.SubScore) []scoring.SubScore {
	var out []scoring.SubScore
	for _, it := range items {
		if it.Neutral || it.Degraded || it.Max <= 0 {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return share(out[i]) > share(out[j])
	})
	return out
}

func share(s scoring.SubScore) float64 {
	if s.Max <= 0 {
		return 0
	}
	return float64(s.Score) / float64(s.Max)
}

func ruleOf(s scoring.SubScore) string {
	if s.Rule != "" {
		return s.Rule
	}
	return s.Item
}

func labelOf(key, label string) string {
	if label != "" && label != key {
		return label
	}
	return strings.ReplaceAll(key, "_", " ")
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
