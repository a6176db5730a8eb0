package extract

import (
	"regexp"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

// function is a method or function located by the line heuristics.
type function struct {
	Name       string
	Line       int
	EndLine    int
	BodyLines  int
	Branches   int
	MaxNesting int
	body       []scannedLine
}

// Complexity approximates cyclomatic complexity as branches plus nesting.
func (fn function) Complexity() int {
	return fn.Branches + fn.MaxNesting
}

var (
	rubyDefRe     = regexp.MustCompile(`^\s*defp?\s+(?:self\.)?([A-Za-z_]\w*[?!=]?)`)
	rubyEndlessRe = regexp.MustCompile(`^\s*def\s+(?:self\.)?[\w?!]+(?:\([^)]*\))?\s*=[^=~>]`)
	rubyInlineRe  = regexp.MustCompile(`(?:[;)]\s*end\s*$)|(?:,\s*do:)`)
	rubyOpenerRe  = regexp.MustCompile(`^\s*(?:if|unless|case|while|until|for|begin|class|module|def|defp|defmodule)\b|=\s*(?:if|unless|case|begin)\b|\bdo\s*(?:\|[^|]*\|)?\s*$`)
	rubyEndRe     = regexp.MustCompile(`(?:^|[;\s])end\b`)

	pyDefRe = regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`)

	keywordFuncRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:(?:public|private|protected|internal|static|final|abstract|override|async|suspend|inline|open|pub(?:\([\w:]+\))?|unsafe|const)\s+)*(?:func|function\*?|fn|fun|def)\s+(?:\([^)]*\)\s*)?([A-Za-z_$][\w$]*)`)
	arrowFuncRe   = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=]+)?=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*(?::[^=]+)?=>\s*\{?\s*$`)
	propArrowRe   = regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|readonly)\s+)*([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?\([^)]*\)\s*=>\s*\{\s*$`)
	methodSigRe   = regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|final|abstract|override|virtual|async|synchronized|open|suspend|inline|sealed|extern|unsafe|new)\s+)*(?:([\w<>\[\],.?]+)\s+)?([A-Za-z_$][\w$]*)\s*\([^;]*\)\s*(?::\s*[\w<>\[\],.?| ]+)?\s*(?:throws\s+[\w., ]+)?\s*\{?\s*$`)

	branchRe = regexp.MustCompile(`\b(?:if|elsif|elif|unless|case|switch|while|until|for|foreach|loop)\b|\.each\w*\b|\.forEach\b`)
)

// notFunctionNames are keywords the loose signature patterns can capture.
var notFunctionNames = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true, "return": true,
	"else": true, "function": true, "func": true, "fn": true, "fun": true, "def": true,
	"new": true, "do": true, "try": true, "using": true, "lock": true, "foreach": true,
	"synchronized": true, "when": true, "match": true, "loop": true, "select": true,
	"go": true, "defer": true, "typeof": true, "sizeof": true, "elseif": true, "elif": true,
	"with": true, "await": true, "yield": true, "case": true, "throw": true, "fixed": true,
}

// findFunctions locates functions in a scanned file using the block rules of
// its language family.
func findFunctions(f classify.File, lines []scannedLine) []function {
	switch f.Language.Syntax() {
	case classify.SyntaxRuby:
		return rubyFunctions(lines)
	case classify.SyntaxPython:
		return pythonFunctions(lines)
	default:
		return braceFunctions(lines)
	}
}

func rubyFunctions(lines []scannedLine) []function {
	var out []function
	for i, l := range lines {
		if l.Kind != lineCode {
			continue
		}
		m := rubyDefRe.FindStringSubmatch(l.Code)
		if m == nil {
			continue
		}
		fn := function{Name: m[1], Line: i + 1, EndLine: i + 1}
		if rubyEndlessRe.MatchString(l.Code) || rubyInlineRe.MatchString(l.Code) {
			out = append(out, fn)
			continue
		}

		depth, end := 1, len(lines)-1
		for j := i + 1; j < len(lines); j++ {
			code := lines[j].Code
			if lines[j].Kind != lineCode {
				continue
			}
			if rubyOpenerRe.MatchString(code) {
				depth++
			}
			depth -= len(rubyEndRe.FindAllStringIndex(code, -1))
			if depth <= 0 {
				end = j
				break
			}
			if depth-1 > fn.MaxNesting {
				fn.MaxNesting = depth - 1
			}
		}
		fn.EndLine = end + 1
		if end > i {
			fn.body = lines[i+1 : end]
		}
		out = append(out, finish(fn))
	}
	return out
}

func pythonFunctions(lines []scannedLine) []function {
	var out []function
	for i, l := range lines {
		if l.Kind != lineCode {
			continue
		}
		m := pyDefRe.FindStringSubmatch(l.Code)
		if m == nil {
			continue
		}
		fn := function{Name: m[1], Line: i + 1, EndLine: i + 1}
		defIndent, base, end := l.Indent, -1, i
		for j := i + 1; j < len(lines); j++ {
			if lines[j].Kind == lineBlank {
				continue
			}
			if lines[j].Indent <= defIndent {
				break
			}
			if base < 0 {
				base = lines[j].Indent
			}
			end = j
		}
		fn.EndLine = end + 1
		if end > i {
			fn.body = lines[i+1 : end+1]
			unit := base - defIndent
			if unit <= 0 {
				unit = 4
			}
			for _, b := range fn.body {
				if b.Kind != lineCode || b.Indent < base {
					continue
				}
				if n := (b.Indent - base) / unit; n > fn.MaxNesting {
					fn.MaxNesting = n
				}
			}
		}
		out = append(out, finish(fn))
	}
	return out
}

// braceSignature reports whether code opens a function and returns its name.
func braceSignature(code string) (string, bool) {
	for _, re := range []*regexp.Regexp{keywordFuncRe, arrowFuncRe, propArrowRe} {
		if m := re.FindStringSubmatch(code); m != nil && !notFunctionNames[m[1]] {
			return m[1], true
		}
	}
	if m := methodSigRe.FindStringSubmatch(code); m != nil {
		if notFunctionNames[m[1]] || notFunctionNames[m[2]] {
			return "", false
		}
		return m[2], true
	}
	return "", false
}

func braceFunctions(lines []scannedLine) []function {
	var out []function
	for i, l := range lines {
		if l.Kind != lineCode {
			continue
		}
		name, ok := braceSignature(l.Code)
		if !ok {
			continue
		}

		openLine, openCol := -1, -1
		open := strings.Count(l.Code, "(") > strings.Count(l.Code, ")")
		for k := i; k < len(lines) && k <= i+3; k++ {
			c := lines[k].Code
			if k > i && !open && !strings.HasPrefix(strings.TrimSpace(c), "{") {
				break
			}
			brace := strings.IndexByte(c, '{')
			semi := strings.IndexByte(c, ';')
			if semi >= 0 && (brace < 0 || semi < brace) {
				break
			}
			if brace >= 0 {
				openLine, openCol = k, brace
				break
			}
		}
		if openLine < 0 {
			continue
		}

		fn := function{Name: name, Line: i + 1}
		depth, maxDepth, end := 0, 0, -1
	scan:
		for k := openLine; k < len(lines); k++ {
			c := lines[k].Code
			if k == openLine {
				c = c[openCol:]
			}
			for _, ch := range c {
				switch ch {
				case '{':
					depth++
					if depth > maxDepth {
						maxDepth = depth
					}
				case '}':
					depth--
					if depth == 0 {
						end = k
						break scan
					}
				}
			}
		}
		if end < 0 {
			end = len(lines) - 1
		}
		fn.EndLine = end + 1
		if maxDepth > 1 {
			fn.MaxNesting = maxDepth - 1
		}
		if end > openLine {
			fn.body = lines[openLine+1 : end]
		}
		out = append(out, finish(fn))
	}
	return out
}

func finish(fn function) function {
	fn.BodyLines = countKind(fn.body, lineCode)
	for _, b := range fn.body {
		if b.Kind == lineCode {
			fn.Branches += len(branchRe.FindAllStringIndex(b.Code, -1))
		}
	}
	return fn
}
