package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/assessment"
	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
)

// Report formats.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Formats lists the supported report formats.
func Formats() []string { return []string{FormatTable, FormatJSON, FormatMarkdown} }

// Header identifies what a report is about. Empty fields are omitted.
type Header struct {
	Title      string
	Candidate  string
	Reviewer   string
	Repository string
}

// HeaderOf builds a report header from a stored review.
func HeaderOf(r *models.CodeReview) Header {
	return Header{
		Title:      "Code review " + r.ID,
		Candidate:  r.CandidateName,
		Reviewer:   r.ReviewerName,
		Repository: r.RepositoryURL,
	}
}

// Render writes res in the given format.
func (u *UI) Render(format string, h Header, res *scoring.ReviewResult) error {
	switch format {
	case "", FormatTable:
		return u.RenderTable(h, res)
	case FormatJSON:
		return WriteJSON(u.Out, res)
	case FormatMarkdown:
		return WriteMarkdown(u.Out, h, res)
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderTable prints a colored per-item score table followed by totals.
func (u *UI) RenderTable(h Header, res *scoring.ReviewResult) error {
	if h.Title != "" {
		fmt.Fprintf(u.Out, "%s\n", Cyan(h.Title))
	}
	for _, line := range headerLines(h) {
		fmt.Fprintf(u.Out, "  %s\n", line)
	}
	if h.Title != "" || h.Candidate != "" || h.Repository != "" {
		fmt.Fprintln(u.Out)
	}

	table := u.Table([]string{"CATEGORY", "ITEM", "SCORE", "NOTE"})
	for _, c := range res.Categories {
		for i, it := range c.Items {
			cat := ""
			if i == 0 {
				cat = c.Label
			}
			table.Append([]string{cat, it.Label, ScoreColor(it.Score.Float(), it.Max.Float()), itemNote(it)})
		}
		table.Append([]string{"", "subtotal", ScoreColor(c.Total.Float(), c.Max.Float()), ""})
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(u.Out)
	fmt.Fprintf(u.Out, "Base total:  %s\n", FormatScore(res.BaseTotal.Float(), res.MaxTotal.Float()))
	if res.NonWorking {
		fmt.Fprintf(u.Out, "Penalty:     -%s (non-working solution)\n", res.Penalty)
	}
	fmt.Fprintf(u.Out, "Grand total: %s\n", FormatScore(res.GrandTotal.Float(), res.MaxTotal.Float()))
	fmt.Fprintf(u.Out, "Assessment:  %s\n", assessment.Color(res.AssessmentLevel).Sprint(res.AssessmentTier))
	if res.OverallComments != "" {
		fmt.Fprintf(u.Out, "\n%s\n", res.OverallComments)
	}
	return nil
}

func itemNote(it scoring.SubScore) string {
	switch {
	case it.Degraded:
		return Red("analysis failed")
	case it.Overridden:
		return Yellow("manual")
	case it.Neutral:
		return "nothing to analyze"
	default:
		return ""
	}
}

func headerLines(h Header) []string {
	var lines []string
	if h.Candidate != "" {
		lines = append(lines, "Candidate:  "+h.Candidate)
	}
	if h.Reviewer != "" {
		lines = append(lines, "Reviewer:   "+h.Reviewer)
	}
	if h.Repository != "" {
		lines = append(lines, "Repository: "+h.Repository)
	}
	return lines
}

// WriteMarkdown writes a shareable markdown report with the feedback of
// every item.
func WriteMarkdown(w io.Writer, h Header, res *scoring.ReviewResult) error {
	var b strings.Builder

	title := h.Title
	if title == "" {
		title = "Code review"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, line := range headerLines(h) {
		name, value, _ := strings.Cut(line, ":")
		fmt.Fprintf(&b, "- **%s:** %s\n", name, strings.TrimSpace(value))
	}
	fmt.Fprintf(&b, "- **Rubric:** %s\n", res.Rubric)
	fmt.Fprintf(&b, "- **Total:** %s\n", FormatScore(res.GrandTotal.Float(), res.MaxTotal.Float()))
	fmt.Fprintf(&b, "- **Assessment:** %s\n", res.AssessmentTier)
	if res.NonWorking {
		fmt.Fprintf(&b, "- **Penalty:** %s points (non-working solution)\n", res.Penalty)
	}

	if res.OverallComments != "" {
		fmt.Fprintf(&b, "\n## Overall\n\n%s\n", res.OverallComments)
	}

	b.WriteString("\n## Scores\n\n| Category | Score |\n|---|---|\n")
	for _, c := range res.Categories {
		fmt.Fprintf(&b, "| %s | %s |\n", c.Label, FormatScore(c.Total.Float(), c.Max.Float()))
	}

	for _, c := range res.Categories {
		fmt.Fprintf(&b, "\n## %s (%s)\n", c.Label, FormatScore(c.Total.Float(), c.Max.Float()))
		if c.Summary != "" {
			fmt.Fprintf(&b, "\n%s\n", c.Summary)
		}
		for _, it := range c.Items {
			fmt.Fprintf(&b, "\n### %s (%s)\n\n%s\n", it.Label, FormatScore(it.Score.Float(), it.Max.Float()), strings.TrimSpace(it.Feedback))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
