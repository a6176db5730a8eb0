package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

func TestDocs_CompleteReadme(t *testing.T) {
	d := &Docs{th: DefaultThresholds()}
	res := run(t, d, Input{Docs: []classify.File{
		file("README.md",
			"# Inventory Service",
			"A small API that tracks stock levels for warehouses.",
			"## Setup",
			"```",
			"bundle install",
			"bin/rails server",
			"```",
			"## Design decisions",
			"Stock updates run in a transaction so counts never go negative.",
			"The API is read-heavy, so lists are paginated.",
			"## Testing",
			"Run the suite with bundle exec rspec.",
		),
		file("docs/api.md", "# API"),
		file("LICENSE.md", "MIT"),
	}})

	assert.Empty(t, res.Issues)
	assert.Equal(t, []string{"design_notes", "readme_setup", "docs_present"}, kinds(res.Good))
	assert.Equal(t, 12.0, res.Metric("readme_lines"))
}

func TestDocs_MissingReadme(t *testing.T) {
	d := &Docs{th: DefaultThresholds()}
	res := run(t, d, Input{Source: []classify.File{file("main.go", "package main")}})
	assert.Equal(t, []string{"missing_readme"}, kinds(res.Issues))
}

func TestDocs_ThinReadme(t *testing.T) {
	d := &Docs{th: DefaultThresholds()}
	res := run(t, d, Input{Docs: []classify.File{file("README.md", "# app", "todo")}})
	assert.ElementsMatch(t, []string{"short_readme", "missing_setup_instructions", "missing_design_notes"}, kinds(res.Issues))
}

func TestFindReadme_PrefersRoot(t *testing.T) {
	docs := []classify.File{file("docs/README.md", "nested"), file("README.md", "root")}
	got, ok := findReadme(docs)
	assert.True(t, ok)
	assert.Equal(t, "README.md", got.Path)
}
