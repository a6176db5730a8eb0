package extract

import (
	"path"
	"regexp"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

// Conventions checks framework idioms: which base classes models and
// controllers extend, how parameters are filtered, and similar rules that
// only apply to files in well-known locations.
type Conventions struct{}

func (c *Conventions) Name() string { return NameConventions }

// convention is one framework rule. check reports whether f follows it.
type convention struct {
	name      string
	applies   func(f classify.File) bool
	check     func(f classify.File, code string) bool
	praise    string
	violation string
}

var (
	modelBaseRe      = regexp.MustCompile(`class\s+[\w:]+\s*<\s*(?:ApplicationRecord|ActiveRecord::Base)\b`)
	controllerBaseRe = regexp.MustCompile(`class\s+[\w:]+\s*<\s*[\w:]*Controller(?:::Base|::API)?\b`)
	writeActionRe    = regexp.MustCompile(`(?m)^\s*def\s+(?:create|update)\b`)
	strongParamsRe   = regexp.MustCompile(`params\.(?:require|permit|expect)\(|\.permit\(`)
	rawSQLRe         = regexp.MustCompile(`find_by_sql|\.execute\(|connection\.(?:select|exec)`)
	jobBaseRe        = regexp.MustCompile(`class\s+[\w:]+\s*<\s*(?:ApplicationJob|ActiveJob::Base)\b`)
	performRe        = regexp.MustCompile(`(?m)^\s*def\s+perform\b`)
	entryPointRe     = regexp.MustCompile(`(?m)^\s*def\s+(?:self\.)?(?:call|perform|run|execute)\b`)
	componentRe      = regexp.MustCompile(`export\s+(?:default\s+)?(?:function|class|const)\s+[A-Z]|export\s+default\s+[A-Z]\w*\s*;?\s*$|module\.exports\s*=\s*[A-Z]`)
	jsVarKeywordRe   = regexp.MustCompile(`(?m)^\s*var\s+\w`)
	wildcardImportRe = regexp.MustCompile(`(?m)^\s*from\s+\S+\s+import\s+\*`)
	djangoModelRe    = regexp.MustCompile(`(?m)^\s*class\s+\w+\s*\(\s*models\.Model\s*\)`)
	pyClassLineRe    = regexp.MustCompile(`(?m)^\s*class\s+\w+`)
	goErrAssignRe    = regexp.MustCompile(`\berr\s*:?=`)
	goErrCheckRe     = regexp.MustCompile(`\berr\s*!=\s*nil|errors\.(?:Is|As)\(|return\s+[^\n]*\berr\b`)
	goPackageRe      = regexp.MustCompile(`(?m)^package\s+(\S+)`)
	javaPublicRe     = regexp.MustCompile(`(?m)^public\s+(?:final\s+|abstract\s+)*(?:class|interface|enum|record)\s+(\w+)`)
	expressRouteRe   = regexp.MustCompile(`\b(?:app|router)\.(?:get|post|put|patch|delete)\(`)
	asyncHandlerRe   = regexp.MustCompile(`async\s*\(|\.catch\(|try\s*\{|next\(`)
)

var conventionRules = []convention{
	{
		name:      "rails model base class",
		applies:   func(f classify.File) bool { return inDir(f, "app/models/") && !inDir(f, "app/models/concerns/") && strings.Contains(f.Content, "class ") },
		check:     func(_ classify.File, code string) bool { return modelBaseRe.MatchString(code) },
		praise:    "model inherits from ApplicationRecord",
		violation: "model class does not inherit from ApplicationRecord",
	},
	{
		name:      "rails controller base class",
		applies:   func(f classify.File) bool { return inDir(f, "app/controllers/") && strings.HasSuffix(f.Path, "_controller.rb") },
		check:     func(_ classify.File, code string) bool { return controllerBaseRe.MatchString(code) },
		praise:    "controller inherits from a controller base",
		violation: "controller does not inherit from a controller base",
	},
	{
		name: "rails strong parameters",
		applies: func(f classify.File) bool {
			return inDir(f, "app/controllers/") && writeActionRe.MatchString(f.Content)
		},
		check:     func(_ classify.File, code string) bool { return strongParamsRe.MatchString(code) },
		praise:    "write actions filter input through strong parameters",
		violation: "create/update actions use params without permit",
	},
	{
		name:      "no raw SQL in controllers",
		applies:   func(f classify.File) bool { return inDir(f, "app/controllers/") },
		check:     func(_ classify.File, code string) bool { return !rawSQLRe.MatchString(code) },
		praise:    "controller delegates queries to models",
		violation: "controller runs raw SQL",
	},
	{
		name:    "rails job structure",
		applies: func(f classify.File) bool { return inDir(f, "app/jobs/") && strings.Contains(f.Content, "class ") },
		check: func(_ classify.File, code string) bool {
			return jobBaseRe.MatchString(code) && performRe.MatchString(code)
		},
		praise:    "job extends ApplicationJob and defines perform",
		violation: "job does not extend ApplicationJob with a perform method",
	},
	{
		name:      "service object entry point",
		applies:   func(f classify.File) bool { return inDir(f, "app/services/") && f.Language == classify.LangRuby },
		check:     func(_ classify.File, code string) bool { return entryPointRe.MatchString(code) },
		praise:    "service exposes a single call entry point",
		violation: "service object has no call/perform entry point",
	},
	{
		name: "component export",
		applies: func(f classify.File) bool {
			ext := strings.ToLower(path.Ext(f.Path))
			return (ext == ".jsx" || ext == ".tsx") && inDir(f, "components/")
		},
		check:     func(_ classify.File, code string) bool { return componentRe.MatchString(code) },
		praise:    "component module exports a PascalCase component",
		violation: "component module does not export a PascalCase component",
	},
	{
		name: "modern variable declarations",
		applies: func(f classify.File) bool {
			return f.Language == classify.LangJavaScript || f.Language == classify.LangTypeScript
		},
		check:     func(_ classify.File, code string) bool { return !jsVarKeywordRe.MatchString(code) },
		praise:    "uses const/let instead of var",
		violation: "declares variables with var",
	},
	{
		name:      "express handler error handling",
		applies:   func(f classify.File) bool { return expressRouteRe.MatchString(f.Content) },
		check:     func(_ classify.File, code string) bool { return asyncHandlerRe.MatchString(code) },
		praise:    "route handlers propagate errors",
		violation: "route handlers never handle or forward errors",
	},
	{
		name:      "explicit python imports",
		applies:   func(f classify.File) bool { return f.Language == classify.LangPython },
		check:     func(_ classify.File, code string) bool { return !wildcardImportRe.MatchString(code) },
		praise:    "imports names explicitly",
		violation: "uses wildcard imports",
	},
	{
		name: "django model base class",
		applies: func(f classify.File) bool {
			return f.Language == classify.LangPython && f.Name() == "models.py" && pyClassLineRe.MatchString(f.Content)
		},
		check:     func(_ classify.File, code string) bool { return djangoModelRe.MatchString(code) },
		praise:    "models subclass models.Model",
		violation: "models.py defines classes that are not models.Model",
	},
	{
		name:      "go error checks",
		applies:   func(f classify.File) bool { return f.Language == classify.LangGo && goErrAssignRe.MatchString(f.Content) },
		check:     func(_ classify.File, code string) bool { return goErrCheckRe.MatchString(code) },
		praise:    "errors are checked where they are assigned",
		violation: "assigns errors without checking them",
	},
	{
		name:    "go package naming",
		applies: func(f classify.File) bool { return f.Language == classify.LangGo },
		check: func(_ classify.File, code string) bool {
			m := goPackageRe.FindStringSubmatch(code)
			return m == nil || (strings.ToLower(m[1]) == m[1] && !strings.Contains(m[1], "_"))
		},
		praise:    "package name is short and lowercase",
		violation: "package name is not lowercase without underscores",
	},
	{
		name:    "java public class matches file",
		applies: func(f classify.File) bool { return f.Language == classify.LangJava && javaPublicRe.MatchString(f.Content) },
		check: func(f classify.File, code string) bool {
			m := javaPublicRe.FindStringSubmatch(code)
			return m != nil && m[1]+".java" == f.Name()
		},
		praise:    "public type name matches its file",
		violation: "public type name does not match its file",
	},
}

func (c *Conventions) Extract(in Input) (Result, error) {
	res := newResult()
	followed, violated := 0, 0

	for _, f := range in.Source {
		res.Analyzed++
		code := codeOnly(f)
		for _, rule := range conventionRules {
			if !rule.applies(f) {
				continue
			}
			if rule.check(f, code) {
				followed++
				res.good(f.Path, 0, "convention_followed", "%s", rule.praise)
				continue
			}
			violated++
			res.issue(f.Path, 0, "convention_violation", "%s", rule.violation)
		}
	}

	res.metric("followed", float64(followed))
	res.metric("violated", float64(violated))
	res.metric("applicable", float64(followed+violated))
	res.metric("adherence_ratio", ratio(followed, followed+violated))
	return res, nil
}

// codeOnly returns f's text with comments removed, keeping string contents.
func codeOnly(f classify.File) string {
	lines := scanFile(f)
	var b strings.Builder
	for _, l := range lines {
		if l.Kind == lineCode {
			b.WriteString(l.Raw)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func inDir(f classify.File, dir string) bool {
	return strings.HasPrefix(f.Path, dir) || strings.Contains(f.Path, "/"+dir)
}
