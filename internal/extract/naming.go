package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

// Naming checks identifiers against the casing convention of their language
// and flags names too short to carry meaning.
type Naming struct{}

func (n *Naming) Name() string { return NameNaming }

type caseStyle int

const (
	styleSnake caseStyle = iota
	styleCamel
	stylePascal
	styleMixed
	styleConstant
)

var (
	snakeRe    = regexp.MustCompile(`^_*[a-z][a-z0-9_]*[?!=]?$`)
	camelRe    = regexp.MustCompile(`^[_$]?[a-z][a-zA-Z0-9]*$`)
	pascalRe   = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
	mixedRe    = regexp.MustCompile(`^[A-Za-z][a-zA-Z0-9]*$`)
	constantRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

func (s caseStyle) matches(name string) bool {
	switch s {
	case styleSnake:
		return snakeRe.MatchString(name)
	case styleCamel:
		return camelRe.MatchString(name)
	case stylePascal:
		return pascalRe.MatchString(name)
	case styleMixed:
		return mixedRe.MatchString(name)
	case styleConstant:
		return constantRe.MatchString(name)
	}
	return false
}

func (s caseStyle) String() string {
	switch s {
	case styleSnake:
		return "snake_case"
	case styleCamel:
		return "camelCase"
	case stylePascal:
		return "PascalCase"
	case styleMixed:
		return "MixedCaps"
	case styleConstant:
		return "UPPER_CASE"
	}
	return "unknown"
}

type identRole int

const (
	roleType identRole = iota
	roleFunc
	roleVar
)

// identifier is a declared name with the styles its role accepts.
type identifier struct {
	name   string
	line   int
	role   identRole
	styles []caseStyle
}

var (
	rubyClassRe  = regexp.MustCompile(`^\s*(?:class|module)\s+([A-Za-z_][\w:]*)`)
	rubyAssignRe = regexp.MustCompile(`^\s*@{0,2}([A-Za-z_]\w*)\s*(?:\|\||\+|-)?=\s*[^=~>]`)
	blockParamRe = regexp.MustCompile(`(?:\bdo|\{)\s*\|([^|]+)\|`)
	pyClassRe    = regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`)
	pyAssignRe   = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*(?::\s*[^=]+)?=\s*[^=]`)
	pyForRe      = regexp.MustCompile(`\bfor\s+([A-Za-z_]\w*)\s+in\b`)
	typeDeclRe   = regexp.MustCompile(`\b(?:class|interface|struct|enum|trait|record|object)\s+([A-Za-z_]\w*)`)
	goTypeRe     = regexp.MustCompile(`^\s*type\s+([A-Za-z_]\w*)\s+`)
	jsVarRe      = regexp.MustCompile(`\b(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*[=:;]`)
	goShortRe    = regexp.MustCompile(`^\s*((?:[A-Za-z_]\w*\s*,\s*)*[A-Za-z_]\w*)\s*:=`)
	typedVarRe   = regexp.MustCompile(`\b(?:int|long|short|byte|char|float|double|bool|boolean|string|String|var|val|let)\s+(?:mut\s+)?([A-Za-z_]\w*)\s*[=;:]`)
	phpVarRe     = regexp.MustCompile(`\$([A-Za-z_]\w*)\s*=[^=]`)
)

// allowedShort are single-letter names accepted by convention.
var allowedShort = map[string]bool{"i": true, "j": true, "k": true, "v": true, "p": true, "x": true, "y": true, "n": true, "e": true, "t": true, "_": true}

// goShort adds the receiver-style single letters Go code uses routinely.
var goShort = map[string]bool{"r": true, "w": true, "s": true, "b": true, "c": true, "f": true, "m": true}

func (n *Naming) Extract(in Input) (Result, error) {
	res := newResult()
	var idents, violations, unclear int

	for _, f := range in.Source {
		res.Analyzed++
		found := identifiersOf(f)
		var bad, vague []string
		firstBad, firstVague := 0, 0
		for _, id := range found {
			idents++
			if !anyStyle(id.styles, id.name) {
				violations++
				if firstBad == 0 {
					firstBad = id.line
				}
				bad = append(bad, id.name+" (expected "+id.styles[0].String()+")")
			}
			if isUnclear(id.name, f.Language) {
				unclear++
				if firstVague == 0 {
					firstVague = id.line
				}
				vague = append(vague, id.name)
			}
		}
		res.issueN(len(bad), f.Path, firstBad, "naming_violation", "%d names break %s conventions: %s", len(bad), f.Language, sample(bad, 3))
		res.issueN(len(vague), f.Path, firstVague, "unclear_name", "%d names are too short to convey intent: %s", len(vague), sample(vague, 3))
		if len(found) >= 3 && len(bad) == 0 && len(vague) == 0 {
			res.good(f.Path, 0, "consistent_naming", "%d identifiers follow %s conventions consistently", len(found), f.Language)
		}
	}

	res.metric("identifiers", float64(idents))
	res.metric("violations", float64(violations))
	res.metric("unclear", float64(unclear))
	if idents > 0 {
		res.metric("consistency_ratio", 1-float64(violations+unclear)/float64(idents))
	}
	return res, nil
}

func anyStyle(styles []caseStyle, name string) bool {
	for _, s := range styles {
		if s.matches(name) {
			return true
		}
	}
	return false
}

func isUnclear(name string, lang classify.Language) bool {
	name = strings.TrimLeft(name, "@$")
	if len([]rune(name)) != 1 {
		return false
	}
	if allowedShort[name] {
		return false
	}
	return !(lang == classify.LangGo && goShort[name])
}

// identifiersOf extracts declared names from f, one entry per distinct name.
func identifiersOf(f classify.File) []identifier {
	seen := map[string]bool{}
	var out []identifier
	add := func(name string, line int, role identRole, styles ...caseStyle) {
		name = strings.TrimSpace(name)
		if name == "" || name == "_" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, identifier{name: name, line: line, role: role, styles: styles})
	}

	funcStyles, varStyles := conventions(f.Language)
	for i, l := range scanFile(f) {
		if l.Kind != lineCode {
			continue
		}
		line, code := i+1, l.Code
		switch f.Language.Syntax() {
		case classify.SyntaxRuby:
			if m := rubyClassRe.FindStringSubmatch(code); m != nil {
				for _, part := range strings.Split(m[1], "::") {
					add(part, line, roleType, stylePascal)
				}
				continue
			}
			if m := rubyDefRe.FindStringSubmatch(code); m != nil {
				add(m[1], line, roleFunc, funcStyles...)
				continue
			}
			if m := rubyAssignRe.FindStringSubmatch(code); m != nil {
				add(m[1], line, roleVar, varStyles...)
			}
			if m := blockParamRe.FindStringSubmatch(code); m != nil {
				for _, p := range strings.Split(m[1], ",") {
					add(p, line, roleVar, varStyles...)
				}
			}
		case classify.SyntaxPython:
			if m := pyClassRe.FindStringSubmatch(code); m != nil {
				add(m[1], line, roleType, stylePascal)
				continue
			}
			if m := pyDefRe.FindStringSubmatch(code); m != nil {
				add(m[1], line, roleFunc, funcStyles...)
				continue
			}
			if m := pyAssignRe.FindStringSubmatch(code); m != nil {
				add(m[1], line, roleVar, varStyles...)
			}
			if m := pyForRe.FindStringSubmatch(code); m != nil {
				add(m[1], line, roleVar, varStyles...)
			}
		default:
			if m := goTypeRe.FindStringSubmatch(code); m != nil && f.Language == classify.LangGo {
				add(m[1], line, roleType, styleMixed)
				continue
			}
			if m := typeDeclRe.FindStringSubmatch(code); m != nil {
				add(m[1], line, roleType, stylePascal)
				continue
			}
			if name, ok := braceSignature(code); ok {
				add(name, line, roleFunc, funcStyles...)
				continue
			}
			for _, re := range varPatterns(f.Language) {
				m := re.FindStringSubmatch(code)
				if m == nil {
					continue
				}
				for _, p := range strings.Split(m[1], ",") {
					add(p, line, roleVar, varStyles...)
				}
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].line < out[j].line })
	return out
}

// conventions returns the accepted styles for functions and variables.
// Constructors and components are why several languages accept PascalCase
// function names.
func conventions(lang classify.Language) (funcs, vars []caseStyle) {
	switch lang {
	case classify.LangRuby, classify.LangPython, classify.LangElixir, classify.LangRust:
		return []caseStyle{styleSnake}, []caseStyle{styleSnake, styleConstant, stylePascal}
	case classify.LangGo:
		return []caseStyle{styleMixed}, []caseStyle{styleMixed}
	case classify.LangCSharp:
		return []caseStyle{stylePascal}, []caseStyle{styleCamel, stylePascal}
	case classify.LangPHP:
		return []caseStyle{styleCamel, styleSnake, stylePascal}, []caseStyle{styleCamel, styleSnake}
	case classify.LangJavaScript, classify.LangTypeScript:
		return []caseStyle{styleCamel, stylePascal}, []caseStyle{styleCamel, styleConstant, stylePascal}
	default:
		return []caseStyle{styleCamel, stylePascal}, []caseStyle{styleCamel, styleConstant}
	}
}

func varPatterns(lang classify.Language) []*regexp.Regexp {
	switch lang {
	case classify.LangJavaScript, classify.LangTypeScript:
		return []*regexp.Regexp{jsVarRe}
	case classify.LangGo:
		return []*regexp.Regexp{goShortRe}
	case classify.LangPHP:
		return []*regexp.Regexp{phpVarRe}
	default:
		return []*regexp.Regexp{typedVarRe}
	}
}
