package extract

import (
	"path"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

// Organization measures file size, indentation depth, line length and how
// source files are laid out across directories.
type Organization struct {
	th Thresholds
}

func (o *Organization) Name() string { return NameOrganization }

var (
	snakeFileRe  = regexp.MustCompile(`^[a-z0-9_]+(?:\.[a-z0-9_]+)*$`)
	pascalFileRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*(?:\.[A-Za-z0-9]+)*$`)
	jsFileRe     = regexp.MustCompile(`^[A-Za-z0-9]+(?:[._-][A-Za-z0-9]+)*$`)
)

// conventionalRoots are top-level directories that signal a deliberate layout.
var conventionalRoots = map[string]bool{
	"app": true, "src": true, "lib": true, "internal": true, "cmd": true, "pkg": true,
	"services": true, "components": true, "controllers": true, "models": true,
}

// classWrapped languages indent every member one level inside a type body.
func classWrapped(lang classify.Language) bool {
	switch lang {
	case classify.LangJava, classify.LangCSharp, classify.LangKotlin, classify.LangScala, classify.LangPHP, classify.LangSwift:
		return true
	}
	return false
}

func (o *Organization) Extract(in Input) (Result, error) {
	res := newResult()
	th := o.th
	var totalLines, maxLines, maxDepth, longLines int
	dirs := map[string]int{}
	rootFiles := 0

	for _, f := range in.Source {
		res.Analyzed++
		lines := f.Lines()
		n := len(lines)
		totalLines += n
		if n > maxLines {
			maxLines = n
		}

		depth := indentDepth(f, lines)
		if depth > maxDepth {
			maxDepth = depth
		}

		long, firstLong := 0, 0
		for i, l := range lines {
			if utf8.RuneCountInString(l) > th.MaxLineLength {
				long++
				if firstLong == 0 {
					firstLong = i + 1
				}
			}
		}
		longLines += long

		ok := true
		if n > th.MaxFileLines {
			ok = false
			res.issue(f.Path, 0, "long_file", "file is %d lines long (limit %d)", n, th.MaxFileLines)
		}
		if depth > th.MaxIndentDepth {
			ok = false
			res.issue(f.Path, 0, "deep_nesting_file", "code is indented %d levels deep", depth)
		}
		if long > 0 {
			ok = false
			res.issueN(1, f.Path, firstLong, "long_lines", "%d lines exceed %d characters", long, th.MaxLineLength)
		}
		if ok && n <= th.MaxFileLines*2/3 {
			res.good(f.Path, 0, "well_sized_file", "compact file of %d lines with shallow nesting", n)
		}

		dirs[f.Dir()]++
		if f.Dir() == "" {
			rootFiles++
		}
		if segs := strings.Count(f.Path, "/"); segs > th.MaxPathDepth {
			res.issue(f.Path, 0, "deep_path", "file is nested %d directories deep", segs)
		}
		if !fileNameFollows(f) {
			res.issue(f.Path, 0, "file_naming", "file name %s does not follow %s conventions", f.Name(), f.Language)
		}
	}

	if rootFiles > th.MaxRootFiles {
		res.issue("", 0, "root_clutter", "%d source files sit in the repository root", rootFiles)
	}
	if res.Analyzed > 0 {
		roots := topLevelDirs(in.Source)
		var conventional []string
		for _, r := range roots {
			if conventionalRoots[r] {
				conventional = append(conventional, r+"/")
			}
		}
		if len(dirs) >= 2 && rootFiles <= th.MaxRootFiles {
			res.good("", 0, "structured_layout", "%d source files grouped into %d directories", res.Analyzed, len(dirs))
		}
		if len(conventional) > 0 {
			res.good("", 0, "structured_layout", "uses conventional top-level directories: %s", joinWords(conventional))
		}
		res.metric("avg_file_lines", float64(totalLines)/float64(res.Analyzed))
	}

	res.metric("files", float64(res.Analyzed))
	res.metric("max_file_lines", float64(maxLines))
	res.metric("max_indent_depth", float64(maxDepth))
	res.metric("long_lines", float64(longLines))
	res.metric("directories", float64(len(dirs)))
	res.metric("root_files", float64(rootFiles))
	return res, nil
}

// indentDepth returns the deepest indentation level among code lines. The
// indent unit is inferred from the smallest space indent, tabs count as one
// level each.
func indentDepth(f classify.File, lines []string) int {
	unit := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" || l[0] != ' ' {
			continue
		}
		w := len(l) - len(strings.TrimLeft(l, " "))
		if unit == 0 || w < unit {
			unit = w
		}
	}
	switch {
	case unit == 0:
		unit = 4
	case unit > 4:
		unit = 4
	}

	deepest := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		tabs := len(l) - len(strings.TrimLeft(l, "\t"))
		spaces := len(l[tabs:]) - len(strings.TrimLeft(l[tabs:], " "))
		if d := tabs + spaces/unit; d > deepest {
			deepest = d
		}
	}
	if classWrapped(f.Language) && deepest > 0 {
		deepest--
	}
	return deepest
}

func fileNameFollows(f classify.File) bool {
	name := f.Name()
	base := strings.TrimSuffix(name, path.Ext(name))
	switch f.Language {
	case classify.LangRuby, classify.LangPython, classify.LangRust, classify.LangElixir, classify.LangGo:
		return snakeFileRe.MatchString(base)
	case classify.LangJava, classify.LangCSharp, classify.LangKotlin, classify.LangSwift, classify.LangScala:
		return pascalFileRe.MatchString(base)
	default:
		return jsFileRe.MatchString(base)
	}
}

func topLevelDirs(files []classify.File) []string {
	set := map[string]bool{}
	for _, f := range files {
		if i := strings.IndexByte(f.Path, '/'); i > 0 {
			set[f.Path[:i]] = true
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
