package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

// Coupling counts methods, referenced types, inheritance and mixins per file.
type Coupling struct {
	th Thresholds
}

func (c *Coupling) Name() string { return NameCoupling }

var (
	rubyInheritRe  = regexp.MustCompile(`^\s*class\s+([\w:]+)(?:\s*<\s*([\w:]+))?`)
	pyInheritRe    = regexp.MustCompile(`^\s*class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	braceInheritRe = regexp.MustCompile(`\bclass\s+(\w+)(?:<[^>]*>)?\s*(?:extends\s+([\w.]+)|:\s*([\w.]+))`)
	braceClassRe   = regexp.MustCompile(`\b(?:class|struct|object|record)\s+(\w+)`)
	mixinRe        = regexp.MustCompile(`^\s*(?:include|extend|prepend|use)\s+[A-Z][\w:]*`)
	implementsRe   = regexp.MustCompile(`\bimplements\s+([\w\s,.<>]+?)\s*\{?\s*$`)
	withRe         = regexp.MustCompile(`\bwith\s+[A-Z]\w*`)
	typeRefRe      = regexp.MustCompile(`(?:^|[^\w.$:@])([A-Z][a-z][A-Za-z0-9]*)`)
)

// frameworkBases are parents whose subclassing is the framework's intended
// extension point rather than a custom hierarchy.
var frameworkBases = map[string]bool{
	"ApplicationRecord": true, "ActiveRecord::Base": true, "ApplicationController": true,
	"ActionController::Base": true, "ActionController::API": true, "ApplicationJob": true,
	"ActiveJob::Base": true, "ApplicationMailer": true, "ActionMailer::Base": true,
	"ApplicationHelper": true, "StandardError": true, "Exception": true, "RuntimeError": true,
	"Struct": true, "Object": true, "object": true, "Component": true, "React.Component": true,
	"PureComponent": true, "React.PureComponent": true, "Error": true, "models.Model": true,
	"Model": true, "TestCase": true, "unittest.TestCase": true, "APIView": true, "View": true,
	"Controller": true, "ControllerBase": true, "DbContext": true, "Activity": true, "Fragment": true,
	"ViewModel": true, "BaseModel": true, "Enum": true, "Exception()": true, "ValueError": true,
}

// builtinTypes are capitalized names that never indicate coupling.
var builtinTypes = map[string]bool{
	"String": true, "Integer": true, "Float": true, "Array": true, "Hash": true, "Object": true,
	"Time": true, "Date": true, "DateTime": true, "Math": true, "Rails": true, "Set": true,
	"Symbol": true, "Proc": true, "Kernel": true, "Comparable": true, "Enumerable": true,
	"Exception": true, "StandardError": true, "ArgumentError": true, "RuntimeError": true,
	"True": true, "False": true, "None": true, "Dict": true, "List": true, "Optional": true,
	"Any": true, "Union": true, "Tuple": true, "Promise": true, "Error": true, "Map": true,
	"Number": true, "Boolean": true, "Console": true, "RegExp": true, "Override": true,
	"Int": true, "Long": true, "Double": true, "Char": true, "Byte": true, "Short": true,
	"Self": true, "Bool": true, "Result": true, "Option": true, "Some": true, "Vec": true,
	"Box": true, "Ok": true, "Err": true, "Task": true, "Guid": true, "Dictionary": true,
	"Func": true, "Action": true, "Void": true, "Nil": true, "Json": true, "JSON": true,
	"React": true, "Component": true, "Fragment": true, "Test": true, "Arrays": true,
	"Collections": true, "Optional.of": true, "Objects": true, "Decimal": true, "Path": true,
	"Logger": true, "Response": true, "Request": true, "Params": true, "Rc": true, "Arc": true,
}

type classInfo struct {
	name   string
	parent string
	file   string
	line   int
}

func (c *Coupling) Extract(in Input) (Result, error) {
	res := newResult()
	th := c.th
	var classes []classInfo
	var totalMethods, totalDeps, maxMethods int

	for _, f := range in.Source {
		res.Analyzed++
		lines := scanFile(f)
		methods := len(findFunctions(f, lines))
		own := map[string]bool{}
		mixins := 0
		for i, l := range lines {
			if l.Kind != lineCode {
				continue
			}
			for _, ci := range classesOn(f.Language, l.Code) {
				ci.file, ci.line = f.Path, i+1
				classes = append(classes, ci)
				own[ci.name] = true
				own[lastSegment(ci.parent)] = true
			}
			if m := braceClassRe.FindStringSubmatch(l.Code); m != nil {
				own[m[1]] = true
			}
			if m := goTypeRe.FindStringSubmatch(l.Code); m != nil {
				own[m[1]] = true
			}
			if mixinRe.MatchString(l.Code) && f.Language != classify.LangRust {
				mixins++
			}
			if m := implementsRe.FindStringSubmatch(l.Code); m != nil {
				mixins += len(strings.Split(m[1], ","))
			}
			mixins += len(withRe.FindAllStringIndex(l.Code, -1))
		}
		deps := referencedTypes(lines, own)

		totalMethods += methods
		totalDeps += len(deps)
		if methods > maxMethods {
			maxMethods = methods
		}

		ok := true
		if methods > th.MaxClassMethods {
			ok = false
			res.issue(f.Path, 0, "too_many_methods", "%d methods in one file (limit %d)", methods, th.MaxClassMethods)
		}
		if len(deps) > th.MaxDependencies {
			ok = false
			res.issue(f.Path, 0, "high_coupling", "depends on %d other types: %s", len(deps), sample(deps, 4))
		}
		if mixins > th.MaxMixins {
			ok = false
			res.issue(f.Path, 0, "mixin_heavy", "pulls in %d mixins or interfaces", mixins)
		}
		if ok && methods > 0 && methods <= th.MaxClassMethods/2 && len(deps) <= th.MaxDependencies/2+1 {
			res.good(f.Path, 0, "focused_class", "focused unit with %d methods and %d collaborators", methods, len(deps))
		}
	}

	maxDepth := 0
	for _, ci := range classes {
		d := inheritanceDepth(ci, classes)
		if d > maxDepth {
			maxDepth = d
		}
		if d > th.MaxInheritanceDepth {
			res.issue(ci.file, ci.line, "custom_inheritance", "class %s inherits from custom base %s (depth %d)", ci.name, ci.parent, d)
		}
	}

	res.metric("classes", float64(len(classes)))
	res.metric("max_methods", float64(maxMethods))
	res.metric("max_inheritance_depth", float64(maxDepth))
	if res.Analyzed > 0 {
		res.metric("avg_methods", float64(totalMethods)/float64(res.Analyzed))
		res.metric("avg_dependencies", float64(totalDeps)/float64(res.Analyzed))
	}
	return res, nil
}

// classesOn returns classes declared on one line together with their
// non-framework parent, if any.
func classesOn(lang classify.Language, code string) []classInfo {
	var name, parent string
	switch lang.Syntax() {
	case classify.SyntaxRuby:
		m := rubyInheritRe.FindStringSubmatch(code)
		if m == nil {
			return nil
		}
		name, parent = m[1], m[2]
	case classify.SyntaxPython:
		m := pyInheritRe.FindStringSubmatch(code)
		if m == nil {
			return nil
		}
		name = m[1]
		bases := strings.Split(m[2], ",")
		parent = strings.TrimSpace(bases[0])
	default:
		m := braceInheritRe.FindStringSubmatch(code)
		if m == nil {
			return nil
		}
		name, parent = m[1], m[2]
		if parent == "" {
			parent = m[3]
		}
	}
	name = lastSegment(name)
	if parent == "" || frameworkBases[parent] || frameworkBases[lastSegment(parent)] {
		return []classInfo{{name: name}}
	}
	return []classInfo{{name: name, parent: parent}}
}

// inheritanceDepth counts custom ancestors, following parents defined in
// the repository. Cycles stop the walk.
func inheritanceDepth(ci classInfo, all []classInfo) int {
	byName := make(map[string]classInfo, len(all))
	for _, c := range all {
		byName[c.name] = c
	}
	depth := 0
	seen := map[string]bool{ci.name: true}
	cur := ci
	for cur.parent != "" {
		depth++
		p := lastSegment(cur.parent)
		next, ok := byName[p]
		if !ok || seen[p] {
			break
		}
		seen[p] = true
		cur = next
	}
	return depth
}

func referencedTypes(lines []scannedLine, own map[string]bool) []string {
	set := map[string]bool{}
	for _, l := range lines {
		if l.Kind != lineCode {
			continue
		}
		for _, m := range typeRefRe.FindAllStringSubmatch(l.Code, -1) {
			name := m[1]
			if own[name] || builtinTypes[name] {
				continue
			}
			set[name] = true
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func lastSegment(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, ":."); i >= 0 {
		return name[i+1:]
	}
	return name
}
