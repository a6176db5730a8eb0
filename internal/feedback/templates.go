package feedback

// Template holds the overview sentences for one scoring rule.
type Template struct {
	Strong   string `yaml:"strong"`
	Adequate string `yaml:"adequate"`
	Weak     string `yaml:"weak"`
	// Empty is used when there was nothing to analyze.
	Empty string `yaml:"empty"`
}

var fallback = Template{
	Strong:   "Strong work in this area.",
	Adequate: "Acceptable, with some room for improvement.",
	Weak:     "Needs significant improvement.",
	Empty:    "Nothing to evaluate for this item.",
}

// DefaultTemplates returns the overview sentences of the built-in rules.
func DefaultTemplates() map[string]Template {
	return map[string]Template{
		"naming_conventions": {
			Strong:   "Names are descriptive and follow the language's conventions consistently.",
			Adequate: "Naming is mostly clear, with a few inconsistent or unclear identifiers.",
			Weak:     "Naming is inconsistent with the language's conventions and often unclear.",
			Empty:    "No source identifiers to evaluate.",
		},
		"method_simplicity": {
			Strong:   "Methods are short, focused and easy to follow.",
			Adequate: "Most methods are reasonably sized; a few are long or branch heavily.",
			Weak:     "Many methods are long, deeply nested or do too much.",
			Empty:    "No methods to evaluate.",
		},
		"code_organization": {
			Strong:   "Files are well sized and code is laid out cleanly.",
			Adequate: "Code layout is acceptable, with some oversized files or long lines.",
			Weak:     "Files are oversized or deeply nested, which makes the code hard to scan.",
			Empty:    "No source files to evaluate.",
		},
		"comments_quality": {
			Strong:   "Comments explain intent where it is not obvious from the code.",
			Adequate: "Comments are present but uneven in usefulness or coverage.",
			Weak:     "Comments are missing or restate what the code already says.",
			Empty:    "No source files to evaluate comments in.",
		},
		"separation_of_concerns": {
			Strong:   "Classes and modules have clear, focused responsibilities.",
			Adequate: "Responsibilities are mostly separated, with some classes taking on too much.",
			Weak:     "Responsibilities are tangled; classes are large or tightly coupled.",
			Empty:    "No classes or modules to evaluate.",
		},
		"file_organization": {
			Strong:   "The project layout is structured and easy to navigate.",
			Adequate: "The layout is workable but has some clutter or naming drift.",
			Weak:     "Files are scattered without a clear structure.",
			Empty:    "No files to evaluate the layout of.",
		},
		"dependency_management": {
			Strong:   "Dependencies are declared, pinned and locked.",
			Adequate: "Dependencies are declared but not fully pinned or locked.",
			Weak:     "Dependency management is missing or unreliable.",
			Empty:    "No dependency manifest to evaluate.",
		},
		"framework_usage": {
			Strong:   "The code follows the framework's conventions closely.",
			Adequate: "Framework conventions are partly followed.",
			Weak:     "The code works against the framework's conventions.",
			Empty:    "No framework conventions apply to this code.",
		},
		"commit_quality": {
			Strong:   "Commit history is granular with descriptive messages.",
			Adequate: "Commit messages are mixed; some are vague or too short.",
			Weak:     "Commit history is thin or messages do not describe the changes.",
			Empty:    "No commit history was available to evaluate.",
		},
		"basic_testing": {
			Strong:   "The submission includes meaningful tests with real assertions.",
			Adequate: "Tests exist but assert little.",
			Weak:     "No meaningful tests were found.",
			Empty:    "No tests were found.",
		},
		"documentation": {
			Strong:   "The README explains setup and the design decisions behind the solution.",
			Adequate: "Documentation covers the basics but misses setup steps or design notes.",
			Weak:     "Documentation is missing or too thin to get started.",
			Empty:    "No documentation to evaluate.",
		},
		"solution_simplicity": {
			Strong:   "The solution is direct, without unnecessary complexity.",
			Adequate: "The solution is mostly straightforward, with pockets of complexity.",
			Weak:     "The solution is more complex than the problem requires.",
			Empty:    "No source code to evaluate.",
		},
		"code_reuse": {
			Strong:   "Logic is shared rather than duplicated.",
			Adequate: "Some logic is duplicated across files.",
			Weak:     "Significant duplication; shared logic should be extracted.",
			Empty:    "No source code to check for duplication.",
		},
		"test_coverage": {
			Strong:   "Most source files have corresponding tests.",
			Adequate: "Some source files are covered by tests, others are not.",
			Weak:     "Few source files have corresponding tests.",
			Empty:    "No source files to measure test coverage against.",
		},
		"test_organization": {
			Strong:   "Tests are grouped logically and share setup.",
			Adequate: "Tests are organized, with some ungrouped cases or repeated setup.",
			Weak:     "Tests are missing or poorly organized.",
			Empty:    "No tests to evaluate.",
		},
		"advanced_testing": {
			Strong:   "Tests isolate collaborators and cover edge cases.",
			Adequate: "Tests go beyond the happy path in places.",
			Weak:     "Tests cover only the happy path, if any.",
			Empty:    "No tests to evaluate.",
		},
		"security_practices": {
			Strong:   "No insecure patterns were found and secure defaults are used.",
			Adequate: "A few insecure patterns were found.",
			Weak:     "Several insecure patterns need attention.",
			Empty:    "No source code to evaluate.",
		},
		"performance_considerations": {
			Strong:   "Data access avoids obvious performance pitfalls.",
			Adequate: "Some data access patterns may not scale.",
			Weak:     "Queries in loops or unbounded queries will not scale.",
			Empty:    "No source code to evaluate.",
		},
	}
}
