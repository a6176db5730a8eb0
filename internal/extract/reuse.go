package extract

import (
	"regexp"
	"strings"
)

// Reuse finds duplicated blocks across source files by hashing sliding
// windows of normalized lines.
type Reuse struct {
	th Thresholds
}

func (r *Reuse) Name() string { return NameReuse }

var (
	trivialLineRe = regexp.MustCompile(`^(?:[{}()\[\];,]+|end|else|begin|return|break|pass|continue|do|\} else \{|\);?|\]\)?;?|\}\)?;?|<\/\w+>|\/>)$`)
	importLineRe  = regexp.MustCompile(`^(?:import|require|require_relative|include|using|package|from|use|extern crate|#include)\b`)
	spaceRe       = regexp.MustCompile(`\s+`)
	sharedDirRe   = regexp.MustCompile(`(?:^|/)(?:helpers?|concerns|utils?|shared|common|mixins|hooks|lib)/`)
)

type windowLoc struct {
	file  int
	start int
	lines []int
}

func (r *Reuse) Extract(in Input) (Result, error) {
	res := newResult()
	window := r.th.DuplicateWindow
	if window < 2 {
		window = 4
	}

	type normalized struct {
		text []string
		line []int
	}
	files := make([]normalized, len(in.Source))
	total := 0
	for i, f := range in.Source {
		res.Analyzed++
		for j, l := range scanFile(f) {
			if l.Kind != lineCode {
				continue
			}
			n := strings.TrimSpace(spaceRe.ReplaceAllString(l.Raw, " "))
			if len(n) < 4 || trivialLineRe.MatchString(n) || importLineRe.MatchString(n) {
				continue
			}
			files[i].text = append(files[i].text, n)
			files[i].line = append(files[i].line, j+1)
		}
		total += len(files[i].text)
	}

	first := map[string]windowLoc{}
	var order []windowLoc
	keys := []string{}
	for fi, nf := range files {
		for s := 0; s+window <= len(nf.text); s++ {
			key := strings.Join(nf.text[s:s+window], "\n")
			loc := windowLoc{file: fi, start: s, lines: nf.line[s : s+window]}
			if _, seen := first[key]; !seen {
				first[key] = loc
			}
			order = append(order, loc)
			keys = append(keys, key)
		}
	}

	covered := map[int]map[int]bool{}
	mark := func(loc windowLoc) {
		if covered[loc.file] == nil {
			covered[loc.file] = map[int]bool{}
		}
		for _, ln := range loc.lines {
			covered[loc.file][ln] = true
		}
	}
	duplicated := 0
	for i, loc := range order {
		orig := first[keys[i]]
		if orig.file == loc.file && orig.start == loc.start {
			continue
		}
		if orig.file == loc.file && loc.start-orig.start < window {
			continue
		}
		if covered[loc.file][loc.lines[0]] {
			mark(loc)
			continue
		}
		mark(loc)
		res.issue(in.Source[loc.file].Path, loc.lines[0], "duplicate_block",
			"block duplicates %s", Finding{File: in.Source[orig.file].Path, Line: orig.lines[0]}.Locator())
	}
	for _, lines := range covered {
		duplicated += len(lines)
	}

	for _, f := range in.Source {
		if sharedDirRe.MatchString(f.Path) {
			res.good(f.Path, 0, "shared_module", "shared code extracted into %s", f.Dir())
		}
	}

	res.metric("normalized_lines", float64(total))
	res.metric("duplicated_lines", float64(duplicated))
	res.metric("duplication_ratio", ratio(duplicated, total))
	return res, nil
}
