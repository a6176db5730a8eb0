package scoring

import (
	"github.com/sparklepop/Code-Project-Review/internal/extract"
)

// Deduction removes Per points from the 0-10 scale for every occurrence of
// Kind reported by Source, up to Cap points in total.
type Deduction struct {
	Source string
	Kind   string
	Per    float64
	Cap    float64
}

// Results gives rules read access to extractor output by extractor name.
type Results map[string]extract.Result

// Metric returns a metric of one extractor and whether it was reported.
func (r Results) Metric(source, name string) (float64, bool) {
	res, ok := r[source]
	if !ok {
		return 0, false
	}
	v, ok := res.Metrics[name]
	return v, ok
}

// Value returns a metric of one extractor, zero when absent.
func (r Results) Value(source, name string) float64 {
	v, _ := r.Metric(source, name)
	return v
}

// Rule turns extractor results into a 0-10 quality value for one item.
type Rule struct {
	// Sources are the extractors the item reads; results from all of them
	// are available to Quality and cited in feedback.
	Sources    []string
	Deductions []Deduction
	// Issues lists extra issue kinds cited without deducting.
	Issues []string
	// Good lists the good-example kinds cited for the item.
	Good []string
	// Quality replaces the plain 10 - deductions formula.
	Quality func(r Results, deducted float64) float64
	// Ratio names a "source.metric" used as the feedback ratio.
	Ratio string
	// Neutral is the quality given when none of the sources had input.
	Neutral float64
}

// issueKinds returns every issue kind the rule cites.
func (r Rule) issueKinds() map[string]bool {
	kinds := make(map[string]bool, len(r.Deductions)+len(r.Issues))
	for _, d := range r.Deductions {
		kinds[d.Kind] = true
	}
	for _, k := range r.Issues {
		kinds[k] = true
	}
	return kinds
}

func deduct(source, kind string, per, limit float64) Deduction {
	return Deduction{Source: source, Kind: kind, Per: per, Cap: limit}
}

// DefaultRules returns the rule for every built-in rubric item, keyed by
// rule key.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"naming_conventions": {
			Sources: []string{extract.NameNaming},
			Deductions: []Deduction{
				deduct(extract.NameNaming, "naming_violation", 0.5, 5),
				deduct(extract.NameNaming, "unclear_name", 0.5, 3),
			},
			Good:  []string{"consistent_naming"},
			Ratio: extract.NameNaming + ".consistency_ratio",
		},
		"method_simplicity": {
			Sources: []string{extract.NameMethods},
			Deductions: []Deduction{
				deduct(extract.NameMethods, "long_method", 1.5, 6),
				deduct(extract.NameMethods, "complex_method", 1, 4),
				deduct(extract.NameMethods, "mixed_responsibility", 0.5, 2),
			},
			Good: []string{"concise_methods"},
		},
		"code_organization": {
			Sources: []string{extract.NameOrganization},
			Deductions: []Deduction{
				deduct(extract.NameOrganization, "long_file", 1.5, 4.5),
				deduct(extract.NameOrganization, "deep_nesting_file", 1, 3),
				deduct(extract.NameOrganization, "long_lines", 0.5, 2),
			},
			Good: []string{"well_sized_file"},
		},
		"comments_quality": {
			Sources: []string{extract.NameComments},
			Deductions: []Deduction{
				deduct(extract.NameComments, "low_comment_density", 3, 3),
				deduct(extract.NameComments, "over_commented", 1, 1),
				deduct(extract.NameComments, "low_comment_quality", 2, 2),
				deduct(extract.NameComments, "uncommented_file", 0.5, 1.5),
				deduct(extract.NameComments, "todo_marker", 0.5, 2),
			},
			Good: []string{"explanatory_comment"},
		},
		"separation_of_concerns": {
			Sources: []string{extract.NameCoupling, extract.NameMethods},
			Deductions: []Deduction{
				deduct(extract.NameCoupling, "too_many_methods", 1.5, 4.5),
				deduct(extract.NameCoupling, "high_coupling", 1, 4),
				deduct(extract.NameCoupling, "custom_inheritance", 1, 2),
				deduct(extract.NameCoupling, "mixin_heavy", 0.5, 1.5),
				deduct(extract.NameMethods, "mixed_responsibility", 1, 4),
			},
			Good: []string{"focused_class"},
		},
		"file_organization": {
			Sources: []string{extract.NameOrganization},
			Deductions: []Deduction{
				deduct(extract.NameOrganization, "root_clutter", 2, 2),
				deduct(extract.NameOrganization, "deep_path", 0.5, 1.5),
				deduct(extract.NameOrganization, "file_naming", 0.5, 2.5),
			},
			Good: []string{"structured_layout"},
		},
		"dependency_management": {
			Sources: []string{extract.NameManifest},
			Deductions: []Deduction{
				deduct(extract.NameManifest, "missing_manifest", 3, 3),
				deduct(extract.NameManifest, "missing_lockfile", 2, 2),
				deduct(extract.NameManifest, "unpinned_dependency", 0.5, 3),
				deduct(extract.NameManifest, "risky_dependency", 1, 3),
				deduct(extract.NameManifest, "dependency_bloat", 1, 1),
				deduct(extract.NameManifest, "invalid_manifest", 1, 1),
			},
			Good: []string{"lockfile_present", "pinned_dependencies"},
		},
		"framework_usage": {
			Sources: []string{extract.NameConventions},
			Issues:  []string{"convention_violation"},
			Good:    []string{"convention_followed"},
			Quality: func(r Results, _ float64) float64 {
				if r.Value(extract.NameConventions, "applicable") == 0 {
					return 6
				}
				return r.Value(extract.NameConventions, "adherence_ratio") * 10
			},
			Ratio: extract.NameConventions + ".adherence_ratio",
		},
		"commit_quality": {
			Sources: []string{extract.NameCommits},
			Deductions: []Deduction{
				deduct(extract.NameCommits, "short_commit_message", 1, 4),
				deduct(extract.NameCommits, "vague_commit_message", 1, 4),
				deduct(extract.NameCommits, "long_commit_subject", 0.5, 2),
				deduct(extract.NameCommits, "single_commit", 3, 3),
			},
			Good:    []string{"good_commit"},
			Ratio:   extract.NameCommits + ".good_ratio",
			Neutral: 5,
		},
		"basic_testing": {
			Sources: []string{extract.NameTests},
			Issues:  []string{"no_tests", "missing_assertions", "trivial_test_file"},
			Good:    []string{"test_file"},
			Quality: func(r Results, _ float64) float64 {
				switch {
				case r.Value(extract.NameTests, "test_files") == 0:
					return 0
				case r.Value(extract.NameTests, "test_cases") == 0, r.Value(extract.NameTests, "assertions") == 0:
					return 5
				default:
					return 10
				}
			},
		},
		"documentation": {
			Sources: []string{extract.NameDocs},
			Deductions: []Deduction{
				deduct(extract.NameDocs, "missing_readme", 6, 6),
				deduct(extract.NameDocs, "short_readme", 2, 2),
				deduct(extract.NameDocs, "missing_setup_instructions", 2, 2),
				deduct(extract.NameDocs, "missing_design_notes", 1, 1),
			},
			Good: []string{"readme_setup", "design_notes", "docs_present"},
		},
		"solution_simplicity": {
			Sources: []string{extract.NameMethods, extract.NameCoupling, extract.NameOrganization},
			Deductions: []Deduction{
				deduct(extract.NameMethods, "complex_method", 1, 4),
				deduct(extract.NameMethods, "deep_nesting", 1, 3),
				deduct(extract.NameCoupling, "custom_inheritance", 1, 2),
				deduct(extract.NameOrganization, "long_file", 0.5, 1),
			},
			Good: []string{"concise_methods", "focused_class"},
		},
		"code_reuse": {
			Sources: []string{extract.NameReuse},
			Deductions: []Deduction{
				deduct(extract.NameReuse, "duplicate_block", 1, 6),
			},
			Good: []string{"shared_module"},
		},
		"test_coverage": {
			Sources: []string{extract.NameTests},
			Issues:  []string{"untested_source"},
			Good:    []string{"tested_source"},
			Quality: func(r Results, _ float64) float64 {
				if r.Value(extract.NameTests, "test_files") == 0 {
					return 0
				}
				return r.Value(extract.NameTests, "coverage_ratio") * 10
			},
			Ratio: extract.NameTests + ".coverage_ratio",
		},
		"test_organization": {
			Sources: []string{extract.NameTests},
			Deductions: []Deduction{
				deduct(extract.NameTests, "ungrouped_tests", 1.5, 4.5),
				deduct(extract.NameTests, "no_shared_setup", 2, 2),
				deduct(extract.NameTests, "trivial_test_file", 1, 2),
				deduct(extract.NameTests, "missing_assertions", 1, 2),
			},
			Good: []string{"test_file"},
			Quality: func(r Results, deducted float64) float64 {
				if r.Value(extract.NameTests, "test_files") == 0 {
					return 0
				}
				return 10 - deducted
			},
		},
		"advanced_testing": {
			Sources: []string{extract.NameTests},
			Issues:  []string{"no_tests", "missing_assertions"},
			Good:    []string{"mock_usage", "edge_case_test", "test_file"},
			Quality: func(r Results, _ float64) float64 {
				if r.Value(extract.NameTests, "test_files") == 0 {
					return 0
				}
				q := 2.0
				for _, m := range []string{"mock_usage", "edge_case_tests", "setup_files", "grouped_files"} {
					if r.Value(extract.NameTests, m) > 0 {
						q += 2
					}
				}
				return q
			},
		},
		"security_practices": {
			Sources: []string{extract.NameSecurity},
			Deductions: []Deduction{
				deduct(extract.NameSecurity, "hardcoded_secret", 2, 6),
				deduct(extract.NameSecurity, "dangerous_eval", 2, 4),
				deduct(extract.NameSecurity, "sql_interpolation", 2, 4),
				deduct(extract.NameSecurity, "unsafe_html", 1, 3),
				deduct(extract.NameSecurity, "disabled_verification", 2, 4),
			},
			Good: []string{"secure_pattern"},
		},
		"performance_considerations": {
			Sources: []string{extract.NamePerformance},
			Deductions: []Deduction{
				deduct(extract.NamePerformance, "query_in_loop", 2, 6),
				deduct(extract.NamePerformance, "unbounded_query", 1, 3),
			},
			Good: []string{"performance_pattern"},
		},
	}
}
