package extract

// Thresholds are the fixed limits the heuristics flag against.
type Thresholds struct {
	MaxMethodLines      int     `yaml:"max_method_lines" json:"max_method_lines"`
	MaxComplexity       int     `yaml:"max_complexity" json:"max_complexity"`
	MaxBranches         int     `yaml:"max_branches" json:"max_branches"`
	MixedSignals        int     `yaml:"mixed_signals" json:"mixed_signals"`
	MaxMethodNesting    int     `yaml:"max_method_nesting" json:"max_method_nesting"`
	MaxFileLines        int     `yaml:"max_file_lines" json:"max_file_lines"`
	MaxLineLength       int     `yaml:"max_line_length" json:"max_line_length"`
	MaxIndentDepth      int     `yaml:"max_indent_depth" json:"max_indent_depth"`
	MaxClassMethods     int     `yaml:"max_class_methods" json:"max_class_methods"`
	MaxDependencies     int     `yaml:"max_dependencies" json:"max_dependencies"`
	MaxInheritanceDepth int     `yaml:"max_inheritance_depth" json:"max_inheritance_depth"`
	MaxMixins           int     `yaml:"max_mixins" json:"max_mixins"`
	MaxRootFiles        int     `yaml:"max_root_files" json:"max_root_files"`
	MaxPathDepth        int     `yaml:"max_path_depth" json:"max_path_depth"`
	MinCommentRatio     float64 `yaml:"min_comment_ratio" json:"min_comment_ratio"`
	MaxCommentRatio     float64 `yaml:"max_comment_ratio" json:"max_comment_ratio"`
	MinMeaningfulRatio  float64 `yaml:"min_meaningful_ratio" json:"min_meaningful_ratio"`
	UncommentedFileMin  int     `yaml:"uncommented_file_min" json:"uncommented_file_min"`
	DuplicateWindow     int     `yaml:"duplicate_window" json:"duplicate_window"`
	MinSubjectLength    int     `yaml:"min_subject_length" json:"min_subject_length"`
	MaxSubjectLength    int     `yaml:"max_subject_length" json:"max_subject_length"`
	MinReadmeLines      int     `yaml:"min_readme_lines" json:"min_readme_lines"`
	MaxDependencyCount  int     `yaml:"max_dependency_count" json:"max_dependency_count"`
}

// DefaultThresholds returns the limits used by the standard rubric.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxMethodLines:      10,
		MaxComplexity:       5,
		MaxBranches:         2,
		MixedSignals:        2,
		MaxMethodNesting:    3,
		MaxFileLines:        300,
		MaxLineLength:       100,
		MaxIndentDepth:      3,
		MaxClassMethods:     15,
		MaxDependencies:     5,
		MaxInheritanceDepth: 0,
		MaxMixins:           3,
		MaxRootFiles:        8,
		MaxPathDepth:        6,
		MinCommentRatio:     0.05,
		MaxCommentRatio:     0.4,
		MinMeaningfulRatio:  0.5,
		UncommentedFileMin:  30,
		DuplicateWindow:     4,
		MinSubjectLength:    10,
		MaxSubjectLength:    72,
		MinReadmeLines:      10,
		MaxDependencyCount:  40,
	}
}
