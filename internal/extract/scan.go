package extract

import (
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

type lineKind int

const (
	lineBlank lineKind = iota
	lineCode
	lineComment
)

// scannedLine is one source line split into code and comment text. Code has
// string literal contents blanked and comments removed so keyword regexes
// do not fire inside them.
type scannedLine struct {
	Raw     string
	Code    string
	Comment string
	Kind    lineKind
	Indent  int
}

// lineScanner tracks multi-line comment and string state across lines.
type lineScanner struct {
	lang classify.Language
	// block is the terminator of the open multi-line construct, "" when none.
	block        string
	blockComment bool
}

func scanFile(f classify.File) []scannedLine {
	sc := &lineScanner{lang: f.Language}
	lines := f.Lines()
	out := make([]scannedLine, len(lines))
	for i, raw := range lines {
		out[i] = sc.next(raw)
	}
	return out
}

func (sc *lineScanner) next(raw string) scannedLine {
	sl := scannedLine{Raw: raw, Indent: indentWidth(raw)}
	trimmed := strings.TrimSpace(raw)

	if sc.lang == classify.LangRuby {
		if sc.block == "=end" {
			if strings.HasPrefix(raw, "=end") {
				sc.block = ""
			}
			sl.Kind, sl.Comment = lineComment, trimmed
			return sl
		}
		if sc.block == "" && strings.HasPrefix(raw, "=begin") {
			sc.block, sc.blockComment = "=end", true
			sl.Kind = lineComment
			return sl
		}
	}

	var code, comment strings.Builder
	hasCode, hasComment := false, false
	triple := sc.lang == classify.LangPython || sc.lang == classify.LangElixir

	for i := 0; i < len(raw); {
		if sc.block != "" {
			seg := raw[i:]
			j := strings.Index(seg, sc.block)
			if j >= 0 {
				seg = seg[:j]
			}
			if sc.blockComment {
				comment.WriteString(seg)
				hasComment = true
			} else {
				code.WriteString(blank(seg))
				hasCode = hasCode || strings.TrimSpace(seg) != ""
			}
			if j < 0 {
				break
			}
			if !sc.blockComment {
				code.WriteString(sc.block)
				hasCode = true
			}
			i += j + len(sc.block)
			sc.block = ""
			continue
		}

		c := raw[i]
		rest := raw[i:]
		switch {
		case sc.lang.SlashComments() && strings.HasPrefix(rest, "//"):
			comment.WriteString(rest[2:])
			hasComment = true
			i = len(raw)
		case sc.lang.SlashComments() && strings.HasPrefix(rest, "/*"):
			sc.block, sc.blockComment = "*/", true
			hasComment = true
			i += 2
		case sc.lang.HashComments() && c == '#':
			comment.WriteString(rest[1:])
			hasComment = true
			i = len(raw)
		case triple && (strings.HasPrefix(rest, `"""`) || strings.HasPrefix(rest, `'''`)):
			q := rest[:3]
			docstring := strings.TrimSpace(code.String()) == ""
			sc.block, sc.blockComment = q, docstring
			if docstring {
				hasComment = true
			} else {
				code.WriteString(q)
				hasCode = true
			}
			i += 3
		case c == '`' && (sc.lang == classify.LangJavaScript || sc.lang == classify.LangTypeScript || sc.lang == classify.LangGo):
			sc.block, sc.blockComment = "`", false
			code.WriteByte(c)
			hasCode = true
			i++
		case c == '"' || (c == '\'' && sc.lang != classify.LangRust):
			j := closingQuote(raw, i+1, c)
			code.WriteByte(c)
			code.WriteString(strings.Repeat(" ", j-i-1))
			if j < len(raw) {
				code.WriteByte(c)
			}
			hasCode = true
			i = j + 1
		default:
			code.WriteByte(c)
			if c != ' ' && c != '\t' {
				hasCode = true
			}
			i++
		}
	}

	sl.Code = code.String()
	sl.Comment = cleanComment(comment.String())
	switch {
	case hasCode:
		sl.Kind = lineCode
	case hasComment || (sc.block != "" && sc.blockComment):
		sl.Kind = lineComment
	case trimmed == "":
		sl.Kind = lineBlank
	default:
		sl.Kind = lineCode
	}
	return sl
}

// closingQuote returns the index of the quote closing a literal opened just
// before from, or len(s) when the literal runs to end of line.
func closingQuote(s string, from int, q byte) int {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case q:
			return i
		}
	}
	return len(s)
}

func blank(s string) string {
	return strings.Repeat(" ", len(s))
}

func cleanComment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "*/!#-")
	s = strings.TrimRight(s, "*/")
	return strings.TrimSpace(s)
}

// indentWidth measures leading whitespace, counting a tab as four columns.
func indentWidth(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

func countKind(lines []scannedLine, k lineKind) int {
	n := 0
	for _, l := range lines {
		if l.Kind == k {
			n++
		}
	}
	return n
}
