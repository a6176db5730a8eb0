package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklepop/Code-Project-Review/internal/models"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
)

func reportFixture() *scoring.ReviewResult {
	r := &scoring.ReviewResult{
		Rubric:  "standard",
		Penalty: 30,
		Categories: []scoring.CategoryResult{
			{Key: "clarity", Label: "Code Clarity", Summary: "Code Clarity: 12.0/20.0.", Items: []scoring.SubScore{
				{Item: "naming_conventions", Label: "Naming conventions", Score: 8, Max: 10, Feedback: "Names are consistent."},
				{Item: "method_simplicity", Label: "Method simplicity", Score: 4, Max: 10, Feedback: "Several long methods.", Overridden: true},
			}},
			{Key: "problem_solving", Label: "Problem Solving", Items: []scoring.SubScore{
				{Item: "code_reuse", Label: "Code reuse", Score: 0, Max: 5, Degraded: true, Feedback: "Automated analysis failed for this item; review it manually."},
			}},
		},
		OverallComments: "Overall score 12.0/25.0.",
	}
	scoring.Recompute(r, nil)
	return r
}

func TestRender_Table(t *testing.T) {
	u, out, _ := newTestUI()
	h := Header{Title: "Code review 01H", Candidate: "Ada", Repository: "https://github.com/acme/orders"}

	require.NoError(t, u.Render(FormatTable, h, reportFixture()))
	s := out.String()

	assert.Contains(t, s, "Code review 01H")
	assert.Contains(t, s, "Candidate:  Ada")
	assert.Contains(t, s, "Naming conventions")
	assert.Contains(t, s, "8.0 / 10")
	assert.Contains(t, s, "manual")
	assert.Contains(t, s, "analysis failed")
	assert.Contains(t, s, "Grand total: 12.0 / 25")
	assert.Contains(t, s, "Does not meet requirements")
	assert.NotContains(t, s, "Penalty:")
	assert.Contains(t, s, "Overall score 12.0/25.0.")
}

func TestRender_TableNonWorking(t *testing.T) {
	u, out, _ := newTestUI()
	res := scoring.SetNonWorking(reportFixture(), true)

	require.NoError(t, u.RenderTable(Header{}, res))
	assert.Contains(t, out.String(), "Penalty:     -30.0 (non-working solution)")
	assert.Contains(t, out.String(), "Grand total: 0.0 / 25")
}

func TestRender_JSON(t *testing.T) {
	u, out, _ := newTestUI()
	require.NoError(t, u.Render(FormatJSON, Header{}, reportFixture()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 12.0, decoded["grand_total"])
	assert.Contains(t, out.String(), `"grand_total": 12.0`)
}

func TestRender_UnknownFormat(t *testing.T) {
	u, _, _ := newTestUI()
	err := u.Render("pdf", Header{}, reportFixture())
	assert.ErrorContains(t, err, `unknown format "pdf"`)
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	h := HeaderOf(&models.CodeReview{ID: "01H", CandidateName: "Ada", ReviewerName: "Grace", RepositoryURL: "https://github.com/acme/orders"})

	require.NoError(t, WriteMarkdown(&buf, h, reportFixture()))
	s := buf.String()

	assert.Contains(t, s, "# Code review 01H\n")
	assert.Contains(t, s, "- **Candidate:** Ada\n")
	assert.Contains(t, s, "- **Reviewer:** Grace\n")
	assert.Contains(t, s, "- **Total:** 12.0 / 25\n")
	assert.Contains(t, s, "| Code Clarity | 12.0 / 20 |\n")
	assert.Contains(t, s, "## Code Clarity (12.0 / 20)\n\nCode Clarity: 12.0/20.0.\n")
	assert.Contains(t, s, "### Naming conventions (8.0 / 10)\n\nNames are consistent.\n")
	assert.Contains(t, s, "## Overall\n\nOverall score 12.0/25.0.\n")
}
