// Package extract implements the heuristic metric extractors. Each extractor
// is a pure function of the classified files: it scans raw text with regular
// expressions, never parses, and degrades gracefully on malformed content.
package extract

import (
	"fmt"
	"math"
	"runtime/debug"
	"sort"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
)

// Severity distinguishes observations from problems.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityIssue Severity = "issue"
)

// Finding is one atomic observation tied to a file.
type Finding struct {
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Kind     string   `json:"kind"`
}

// Locator renders the finding's position as path or path:line. Findings
// about the repository as a whole have no file.
func (f Finding) Locator() string {
	if f.File == "" {
		return "repository"
	}
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return f.File
}

// Result is the raw output of one extractor.
type Result struct {
	// Analyzed is the number of inputs the extractor inspected. Zero means
	// there was nothing to judge.
	Analyzed int                `json:"analyzed"`
	Issues   []Finding          `json:"issues"`
	Good     []Finding          `json:"good_examples"`
	Counts   map[string]int     `json:"counts"`
	Metrics  map[string]float64 `json:"metrics"`
}

func newResult() Result {
	return Result{Counts: map[string]int{}, Metrics: map[string]float64{}}
}

// Count returns the number of occurrences recorded for kind.
func (r Result) Count(kind string) int {
	return r.Counts[kind]
}

// Metric returns a named metric, zero when absent.
func (r Result) Metric(name string) float64 {
	return r.Metrics[name]
}

func (r *Result) issue(file string, line int, kind, format string, a ...any) {
	r.Counts[kind]++
	r.Issues = append(r.Issues, Finding{
		File: file, Line: line, Kind: kind, Severity: SeverityIssue,
		Message: fmt.Sprintf(format, a...),
	})
}

// issueN records n occurrences of kind under a single finding.
func (r *Result) issueN(n int, file string, line int, kind, format string, a ...any) {
	if n <= 0 {
		return
	}
	r.Counts[kind] += n
	r.Issues = append(r.Issues, Finding{
		File: file, Line: line, Kind: kind, Severity: SeverityIssue,
		Message: fmt.Sprintf(format, a...),
	})
}

func (r *Result) good(file string, line int, kind, format string, a ...any) {
	r.Good = append(r.Good, Finding{
		File: file, Line: line, Kind: kind, Severity: SeverityInfo,
		Message: fmt.Sprintf(format, a...),
	})
}

func (r *Result) metric(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	r.Metrics[name] = math.Round(v*100) / 100
}

// normalize sorts findings so output is stable regardless of scan order.
func (r *Result) normalize() {
	SortFindings(r.Issues)
	SortFindings(r.Good)
	if r.Counts == nil {
		r.Counts = map[string]int{}
	}
	if r.Metrics == nil {
		r.Metrics = map[string]float64{}
	}
}

// SortFindings orders findings by file, line, kind and message.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Message < b.Message
	})
}

// Input is the classified view every extractor receives.
type Input struct {
	Source  []classify.File
	Test    []classify.File
	Docs    []classify.File
	Config  []classify.File
	Commits []snapshot.Commit
}

// NewInput builds an Input from classifier output and commit history.
func NewInput(b classify.Buckets, commits []snapshot.Commit) Input {
	return Input{
		Source:  b.Source,
		Test:    b.Test,
		Docs:    b.Docs,
		Config:  b.Config,
		Commits: commits,
	}
}

// Extractor is a named heuristic analyzer. Implementations must not keep
// state between calls.
type Extractor interface {
	Name() string
	Extract(in Input) (Result, error)
}

// Outcome pairs an extractor's result with the failure that replaced it, if any.
type Outcome struct {
	Name   string
	Result Result
	Err    error
}

// Run executes e, converting a panic into an error so one broken heuristic
// cannot abort the rest of the analysis.
func Run(e Extractor, in Input) (out Outcome) {
	out.Name = e.Name()
	defer func() {
		if r := recover(); r != nil {
			out.Result = newResult()
			out.Err = fmt.Errorf("panic in %s: %v\n%s", e.Name(), r, debug.Stack())
		}
	}()

	res, err := e.Extract(in)
	if err != nil {
		out.Result = newResult()
		out.Err = err
		return out
	}
	res.normalize()
	out.Result = res
	return out
}

// Names of the built-in extractors.
const (
	NameMethods      = "methods"
	NameNaming       = "naming"
	NameComments     = "comments"
	NameCoupling     = "coupling"
	NameManifest     = "manifest"
	NameConventions  = "conventions"
	NameOrganization = "organization"
	NameTests        = "tests"
	NameDocs         = "docs"
	NameReuse        = "reuse"
	NameCommits      = "commits"
	NameSecurity     = "security"
	NamePerformance  = "performance"
)

// All returns every built-in extractor configured with th.
func All(th Thresholds) []Extractor {
	return []Extractor{
		&Methods{th: th},
		&Naming{},
		&Comments{th: th},
		&Coupling{th: th},
		&Manifest{th: th},
		&Conventions{},
		&Organization{th: th},
		&Tests{},
		&Docs{th: th},
		&Reuse{th: th},
		&Commits{th: th},
		&Security{},
		&Performance{},
	}
}

// Registry indexes extractors by name.
func Registry(list []Extractor) map[string]Extractor {
	m := make(map[string]Extractor, len(list))
	for _, e := range list {
		m[e.Name()] = e
	}
	return m
}
