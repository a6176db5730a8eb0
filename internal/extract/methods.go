package extract

import (
	"regexp"
)

// Methods measures function length, branching, nesting and mixed concerns.
type Methods struct {
	th Thresholds
}

func (m *Methods) Name() string { return NameMethods }

var (
	persistCallRe = regexp.MustCompile(`\.(?:save!?|create!?|update!?|destroy!?|delete|insert\w*|find_by\w*|query\w*|exec\w*|commit)\b|\bdb\.\w+|\bsession\.(?:add|commit|query)\b`)
	renderCallRe  = regexp.MustCompile(`\b(?:render|redirect_to|redirect|respond_with|send_file)\b|\bres\.(?:send|json|render|redirect)\b|http\.Redirect|\bw\.Write\b`)
	errHandlingRe = regexp.MustCompile(`\b(?:rescue|catch|except|recover)\b`)
)

func (m *Methods) Extract(in Input) (Result, error) {
	res := newResult()
	th := m.th
	var total, lines, complexity, maxLines, long int

	for _, f := range in.Source {
		res.Analyzed++
		fns := findFunctions(f, scanFile(f))
		flagged := 0
		for _, fn := range fns {
			total++
			lines += fn.BodyLines
			complexity += fn.Complexity()
			if fn.BodyLines > maxLines {
				maxLines = fn.BodyLines
			}

			hit := false
			if fn.BodyLines > th.MaxMethodLines {
				long++
				hit = true
				res.issue(f.Path, fn.Line, "long_method", "method %s is %d lines long (limit %d)", fn.Name, fn.BodyLines, th.MaxMethodLines)
			}
			if fn.Complexity() > th.MaxComplexity {
				hit = true
				res.issue(f.Path, fn.Line, "complex_method", "method %s has complexity %d (%d branches, nesting %d)", fn.Name, fn.Complexity(), fn.Branches, fn.MaxNesting)
			}
			if fn.MaxNesting > th.MaxMethodNesting {
				hit = true
				res.issue(f.Path, fn.Line, "deep_nesting", "method %s nests %d levels deep", fn.Name, fn.MaxNesting)
			}
			if concerns := concernsOf(fn, th.MaxBranches); len(concerns) >= th.MixedSignals {
				hit = true
				res.issue(f.Path, fn.Line, "mixed_responsibility", "method %s mixes %d responsibilities: %s", fn.Name, len(concerns), joinWords(concerns))
			}
			if hit {
				flagged++
			}
		}
		if len(fns) > 0 && flagged == 0 {
			res.good(f.Path, 0, "concise_methods", "all %d methods are short and straightforward", len(fns))
		}
	}

	res.metric("methods", float64(total))
	res.metric("max_method_lines", float64(maxLines))
	if total > 0 {
		res.metric("avg_method_lines", float64(lines)/float64(total))
		res.metric("avg_complexity", float64(complexity)/float64(total))
		res.metric("long_ratio", float64(long)/float64(total))
	}
	return res, nil
}

// concernsOf lists the mixed-responsibility signals a body shows: repeated
// persistence calls, repeated render or redirect calls, embedded error
// handling and more than maxBranches branch points.
func concernsOf(fn function, maxBranches int) []string {
	var persist, render int
	var handles bool
	for _, b := range fn.body {
		if b.Kind != lineCode {
			continue
		}
		persist += len(persistCallRe.FindAllStringIndex(b.Code, -1))
		render += len(renderCallRe.FindAllStringIndex(b.Code, -1))
		if errHandlingRe.MatchString(b.Code) {
			handles = true
		}
	}

	var out []string
	if persist >= 2 {
		out = append(out, "persistence")
	}
	if render >= 2 {
		out = append(out, "rendering")
	}
	if handles {
		out = append(out, "error handling")
	}
	if fn.Branches > maxBranches {
		out = append(out, "branching")
	}
	return out
}
