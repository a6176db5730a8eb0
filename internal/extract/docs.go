package extract

import (
	"regexp"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

// Docs checks the README for presence, length, setup instructions and
// design notes.
type Docs struct {
	th Thresholds
}

func (d *Docs) Name() string { return NameDocs }

var (
	readmeSetupRe = regexp.MustCompile(`(?i)\b(?:install\w*|setup|set up|getting started|usage|how to run|running|run the|quick ?start|requirements|prerequisites)\b`)
	designNoteRe  = regexp.MustCompile(`(?i)\b(?:decisions?|design|architecture|assumptions?|trade-?offs?|approach|considerations|limitations|future work|improvements)\b`)
	codeFenceRe   = regexp.MustCompile("(?m)^\\s*(?:```|~~~|\\$ )")
)

func (d *Docs) Extract(in Input) (Result, error) {
	res := newResult()
	res.Analyzed = len(in.Docs) + len(in.Source)

	readme, ok := findReadme(in.Docs)
	res.metric("doc_files", float64(len(in.Docs)))
	if !ok {
		if len(in.Source) > 0 {
			res.issue("", 0, "missing_readme", "no README explains how to run or evaluate the project")
		}
		return res, nil
	}

	lines := 0
	for _, l := range readme.Lines() {
		if strings.TrimSpace(l) != "" {
			lines++
		}
	}
	res.metric("readme_lines", float64(lines))

	if lines < d.th.MinReadmeLines {
		res.issue(readme.Path, 0, "short_readme", "README has only %d non-empty lines", lines)
	}
	if readmeSetupRe.MatchString(readme.Content) {
		if codeFenceRe.MatchString(readme.Content) {
			res.good(readme.Path, 0, "readme_setup", "README documents setup with runnable commands")
		} else {
			res.good(readme.Path, 0, "readme_setup", "README documents setup steps")
		}
	} else {
		res.issue(readme.Path, 0, "missing_setup_instructions", "README does not explain how to install or run the project")
	}
	if designNoteRe.MatchString(readme.Content) {
		res.good(readme.Path, 0, "design_notes", "README records design decisions or trade-offs")
	} else {
		res.issue(readme.Path, 0, "missing_design_notes", "README does not discuss design decisions or trade-offs")
	}

	for _, f := range in.Docs {
		if f.Path != readme.Path && !strings.Contains(strings.ToLower(f.Path), "license") {
			res.good(f.Path, 0, "docs_present", "additional documentation in %s", f.Name())
		}
	}
	return res, nil
}

// findReadme prefers a root README over nested ones.
func findReadme(docs []classify.File) (classify.File, bool) {
	var nested *classify.File
	for i, f := range docs {
		if !strings.HasPrefix(strings.ToLower(f.Name()), "readme") {
			continue
		}
		if f.Dir() == "" {
			return f, true
		}
		if nested == nil {
			nested = &docs[i]
		}
	}
	if nested != nil {
		return *nested, true
	}
	return classify.File{}, false
}
