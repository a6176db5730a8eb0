package rubric

import (
	"fmt"
	"sort"
)

const (
	NameStandard = "standard"
	NameAdvanced = "advanced"
)

func core() []Category {
	return []Category{
		{Key: "clarity", Label: "Code Clarity", Items: []Item{
			{Key: "naming_conventions", Label: "Naming conventions", Max: 10},
			{Key: "method_simplicity", Label: "Method simplicity", Max: 10},
			{Key: "code_organization", Label: "Code organization", Max: 10},
			{Key: "comments_quality", Label: "Comments quality", Max: 5},
		}},
		{Key: "architecture", Label: "Architecture & Design", Items: []Item{
			{Key: "separation_of_concerns", Label: "Separation of concerns", Max: 10},
			{Key: "file_organization", Label: "File organization", Max: 5},
			{Key: "dependency_management", Label: "Dependency management", Max: 5},
			{Key: "framework_usage", Label: "Framework usage", Max: 5},
		}},
		{Key: "practices", Label: "Engineering Practices", Items: []Item{
			{Key: "commit_quality", Label: "Commit quality", Max: 10},
			{Key: "basic_testing", Label: "Basic testing", Max: 10},
			{Key: "documentation", Label: "Documentation", Max: 5},
		}},
		{Key: "problem_solving", Label: "Problem Solving", Items: []Item{
			{Key: "solution_simplicity", Label: "Solution simplicity", Max: 10},
			{Key: "code_reuse", Label: "Code reuse", Max: 5},
		}},
	}
}

// Standard is the default five-category rubric worth 115 points.
func Standard() *Rubric {
	cats := append(core(), Category{Key: "bonus", Label: "Bonus Points", Items: []Item{
		{Key: "basic_testing", Label: "Testing beyond the basics", Max: 8},
		{Key: "test_coverage", Label: "Test coverage", Max: 4},
		{Key: "test_organization", Label: "Test organization", Max: 3},
	}})
	return &Rubric{Name: NameStandard, Penalty: DefaultPenalty, Categories: cats}
}

// Advanced swaps the testing bonus for advanced testing, security and
// performance.
func Advanced() *Rubric {
	cats := append(core(), Category{Key: "bonus", Label: "Bonus Points", Items: []Item{
		{Key: "advanced_testing", Label: "Advanced testing", Max: 5},
		{Key: "security_practices", Label: "Security practices", Max: 5},
		{Key: "performance_considerations", Label: "Performance considerations", Max: 5},
	}})
	return &Rubric{Name: NameAdvanced, Penalty: DefaultPenalty, Categories: cats}
}

var builtins = map[string]func() *Rubric{
	NameStandard: Standard,
	NameAdvanced: Advanced,
}

// Names lists the built-in rubrics.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName returns a fresh copy of a built-in rubric.
func ByName(name string) (*Rubric, error) {
	if name == "" {
		return Standard(), nil
	}
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownRubric, name, Names())
	}
	return fn(), nil
}

// Resolve returns the rubric loaded from file when set, otherwise the
// built-in named name. A non-negative penalty override replaces the
// rubric's own.
func Resolve(name, file string, penalty float64) (*Rubric, error) {
	var (
		r   *Rubric
		err error
	)
	if file != "" {
		r, err = Load(file)
	} else {
		r, err = ByName(name)
	}
	if err != nil {
		return nil, err
	}
	if penalty >= 0 {
		r.Penalty = penalty
	}
	return r, nil
}
