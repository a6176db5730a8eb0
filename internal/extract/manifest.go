package extract

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

// Manifest inspects dependency manifests for lockfiles, pinning and risky
// packages.
type Manifest struct {
	th Thresholds
}

func (m *Manifest) Name() string { return NameManifest }

type dependency struct {
	name    string
	version string
	pinned  bool
}

type manifestKind struct {
	parse func(content string) ([]dependency, error)
	// locks lists lockfiles that pin this manifest's resolved versions.
	locks []string
}

var manifestKinds = map[string]manifestKind{
	"Gemfile":          {parse: parseGemfile, locks: []string{"Gemfile.lock"}},
	"package.json":     {parse: parsePackageJSON, locks: []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml"}},
	"requirements.txt": {parse: parseRequirements},
	"Pipfile":          {parse: parsePipfile, locks: []string{"Pipfile.lock"}},
	"pyproject.toml":   {parse: parsePyproject, locks: []string{"poetry.lock"}},
	"Cargo.toml":       {parse: parseCargo, locks: []string{"Cargo.lock"}},
	"composer.json":    {parse: parseComposer, locks: []string{"composer.lock"}},
	"go.mod":           {parse: parseGoMod, locks: []string{"go.sum"}},
	"pom.xml":          {parse: parsePom},
	"build.gradle":     {parse: parseGradle},
	"mix.exs":          {parse: parseMix, locks: []string{"mix.lock"}},
}

// riskyPackages are deprecated, abandoned or compromised dependencies.
var riskyPackages = map[string]string{
	"request":                       "deprecated HTTP client",
	"node-sass":                     "deprecated in favour of sass",
	"tslint":                        "deprecated in favour of eslint",
	"babel-eslint":                  "deprecated in favour of @babel/eslint-parser",
	"left-pad":                      "unpublished incident package",
	"event-stream":                  "compromised release history",
	"colors":                        "sabotaged release history",
	"faker":                         "sabotaged release history",
	"moment":                        "in maintenance mode",
	"paperclip":                     "deprecated attachment library",
	"therubyracer":                  "unmaintained native extension",
	"protected_attributes":          "unmaintained Rails 3 shim",
	"pycrypto":                      "unmaintained with known vulnerabilities",
	"nose":                          "unmaintained test runner",
	"github.com/dgrijalva/jwt-go":   "unmaintained with a known vulnerability",
	"github.com/satori/go.uuid":     "known randomness bug",
	"github.com/golang/protobuf":    "superseded by google.golang.org/protobuf",
}

func (m *Manifest) Extract(in Input) (Result, error) {
	res := newResult()
	res.Analyzed = len(in.Config) + len(in.Source)

	present := map[string]bool{}
	for _, f := range in.Config {
		present[f.Path] = true
	}

	manifests, deps, unpinned, locked := 0, 0, 0, 0
	for _, f := range in.Config {
		kind, ok := manifestKinds[f.Name()]
		if !ok {
			continue
		}
		manifests++
		list, err := kind.parse(f.Content)
		if err != nil {
			res.issue(f.Path, 0, "invalid_manifest", "could not read %s: %v", f.Name(), err)
			continue
		}
		deps += len(list)

		lock := lockfileFor(f, kind, present)
		if lock != "" {
			locked++
			res.good(f.Path, 0, "lockfile_present", "resolved versions are locked in %s", lock)
		} else if len(kind.locks) > 0 && len(list) > 0 {
			res.issue(f.Path, 0, "missing_lockfile", "no %s committed alongside %s", kind.locks[0], f.Name())
		}

		var loose []string
		for _, d := range list {
			if reason, ok := riskyPackages[d.name]; ok {
				res.issue(f.Path, 0, "risky_dependency", "depends on %s (%s)", d.name, reason)
			}
			if !d.pinned && lock == "" {
				loose = append(loose, d.name)
			}
		}
		unpinned += len(loose)
		res.issueN(len(loose), f.Path, 0, "unpinned_dependency", "%d dependencies have no version constraint: %s", len(loose), sample(loose, 4))
		if len(list) > 0 && len(loose) == 0 && lock == "" {
			res.good(f.Path, 0, "pinned_dependencies", "all %d dependencies declare versions", len(list))
		}
	}

	if manifests == 0 && len(in.Source) > 0 {
		res.issue("", 0, "missing_manifest", "no dependency manifest found for %d source files", len(in.Source))
	}
	if deps > m.th.MaxDependencyCount {
		res.issue("", 0, "dependency_bloat", "%d declared dependencies (more than %d)", deps, m.th.MaxDependencyCount)
	}

	res.metric("manifests", float64(manifests))
	res.metric("dependencies", float64(deps))
	res.metric("unpinned", float64(unpinned))
	res.metric("lockfiles", float64(locked))
	return res, nil
}

func lockfileFor(f classify.File, kind manifestKind, present map[string]bool) string {
	dir := f.Dir()
	for _, l := range kind.locks {
		p := l
		if dir != "" {
			p = path.Join(dir, l)
		}
		if present[p] {
			return l
		}
	}
	return ""
}

var (
	gemRe       = regexp.MustCompile(`^\s*gem\s+['"]([^'"]+)['"](?:\s*,\s*['"]([^'"]+)['"])?`)
	requireRe   = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)(?:\[[^\]]*\])?\s*(==|>=|~=|<=|>|<|!=)?\s*([^\s;#,]*)`)
	goRequireRe = regexp.MustCompile(`^\s*(?:require\s+)?([\w.\-]+/[\w./\-]+)\s+(v\S+)`)
	gradleRe    = regexp.MustCompile(`^\s*(?:implementation|api|compile|testImplementation|runtimeOnly|compileOnly)\s*\(?\s*['"]([^'"]+)['"]`)
	mixDepRe    = regexp.MustCompile(`\{:(\w+),\s*"([^"]*)"`)
)

func parseGemfile(content string) ([]dependency, error) {
	var out []dependency
	for _, line := range strings.Split(content, "\n") {
		if m := gemRe.FindStringSubmatch(line); m != nil {
			out = append(out, dependency{name: m[1], version: m[2], pinned: m[2] != ""})
		}
	}
	return out, nil
}

func parsePackageJSON(content string) ([]dependency, error) {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}
	var out []dependency
	for _, group := range []map[string]string{pkg.Dependencies, pkg.DevDependencies} {
		out = append(out, versionMap(group, func(v string) bool {
			return v != "" && v != "*" && v != "latest" && v != "x"
		})...)
	}
	return sortDeps(out), nil
}

func parseComposer(content string) ([]dependency, error) {
	var pkg struct {
		Require    map[string]string `json:"require"`
		RequireDev map[string]string `json:"require-dev"`
	}
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return nil, fmt.Errorf("parse composer.json: %w", err)
	}
	var out []dependency
	for _, group := range []map[string]string{pkg.Require, pkg.RequireDev} {
		out = append(out, versionMap(group, func(v string) bool {
			return v != "" && v != "*" && !strings.HasPrefix(v, "dev-")
		})...)
	}
	return sortDeps(out), nil
}

func parseRequirements(content string) ([]dependency, error) {
	var out []dependency
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if m := requireRe.FindStringSubmatch(line); m != nil {
			out = append(out, dependency{name: strings.ToLower(m[1]), version: m[2] + m[3], pinned: m[2] == "==" || m[2] == "~="})
		}
	}
	return out, nil
}

func parsePipfile(content string) ([]dependency, error) {
	var pf struct {
		Packages    map[string]any `toml:"packages"`
		DevPackages map[string]any `toml:"dev-packages"`
	}
	if _, err := toml.Decode(content, &pf); err != nil {
		return nil, fmt.Errorf("parse Pipfile: %w", err)
	}
	return sortDeps(append(tomlDeps(pf.Packages), tomlDeps(pf.DevPackages)...)), nil
}

func parsePyproject(content string) ([]dependency, error) {
	var pp struct {
		Project struct {
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Dependencies    map[string]any `toml:"dependencies"`
				DevDependencies map[string]any `toml:"dev-dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if _, err := toml.Decode(content, &pp); err != nil {
		return nil, fmt.Errorf("parse pyproject.toml: %w", err)
	}
	var out []dependency
	for _, req := range pp.Project.Dependencies {
		if m := requireRe.FindStringSubmatch(strings.TrimSpace(req)); m != nil {
			out = append(out, dependency{name: strings.ToLower(m[1]), version: m[2] + m[3], pinned: m[2] != ""})
		}
	}
	poetry := tomlDeps(pp.Tool.Poetry.Dependencies)
	for _, d := range poetry {
		if d.name != "python" {
			out = append(out, d)
		}
	}
	out = append(out, tomlDeps(pp.Tool.Poetry.DevDependencies)...)
	return sortDeps(out), nil
}

func parseCargo(content string) ([]dependency, error) {
	var c struct {
		Dependencies    map[string]any `toml:"dependencies"`
		DevDependencies map[string]any `toml:"dev-dependencies"`
	}
	if _, err := toml.Decode(content, &c); err != nil {
		return nil, fmt.Errorf("parse Cargo.toml: %w", err)
	}
	return sortDeps(append(tomlDeps(c.Dependencies), tomlDeps(c.DevDependencies)...)), nil
}

// tomlDeps reads a TOML dependency table whose values are either a version
// string or an inline table with a version, path or git key.
func tomlDeps(table map[string]any) []dependency {
	var out []dependency
	for name, v := range table {
		d := dependency{name: name}
		switch val := v.(type) {
		case string:
			d.version = val
			d.pinned = val != "" && val != "*"
		case map[string]any:
			if ver, ok := val["version"].(string); ok {
				d.version = ver
				d.pinned = ver != "" && ver != "*"
			}
			if _, ok := val["path"]; ok {
				d.pinned = true
			}
			if _, ok := val["rev"]; ok {
				d.pinned = true
			}
			if _, ok := val["tag"]; ok {
				d.pinned = true
			}
		}
		out = append(out, d)
	}
	return out
}

func parseGoMod(content string) ([]dependency, error) {
	var out []dependency
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "require ("):
			inBlock = true
			continue
		case inBlock && trimmed == ")":
			inBlock = false
			continue
		case !inBlock && !strings.HasPrefix(trimmed, "require "):
			continue
		}
		if m := goRequireRe.FindStringSubmatch(trimmed); m != nil {
			out = append(out, dependency{name: m[1], version: m[2], pinned: true})
		}
	}
	return out, nil
}

func parsePom(content string) ([]dependency, error) {
	var pom struct {
		Dependencies []struct {
			GroupID    string `xml:"groupId"`
			ArtifactID string `xml:"artifactId"`
			Version    string `xml:"version"`
		} `xml:"dependencies>dependency"`
	}
	if err := xml.Unmarshal([]byte(content), &pom); err != nil {
		return nil, fmt.Errorf("parse pom.xml: %w", err)
	}
	out := make([]dependency, 0, len(pom.Dependencies))
	for _, d := range pom.Dependencies {
		v := strings.TrimSpace(d.Version)
		out = append(out, dependency{
			name:    d.GroupID + ":" + d.ArtifactID,
			version: v,
			pinned:  v != "" && v != "LATEST" && v != "RELEASE",
		})
	}
	return out, nil
}

func parseGradle(content string) ([]dependency, error) {
	var out []dependency
	for _, line := range strings.Split(content, "\n") {
		m := gradleRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		parts := strings.Split(m[1], ":")
		d := dependency{name: m[1]}
		if len(parts) >= 3 {
			d.name = parts[0] + ":" + parts[1]
			d.version = parts[2]
			d.pinned = parts[2] != "" && !strings.Contains(parts[2], "+")
		}
		out = append(out, d)
	}
	return out, nil
}

func parseMix(content string) ([]dependency, error) {
	var out []dependency
	for _, m := range mixDepRe.FindAllStringSubmatch(content, -1) {
		out = append(out, dependency{name: m[1], version: m[2], pinned: m[2] != "" && m[2] != ">= 0.0.0"})
	}
	return out, nil
}

func versionMap(group map[string]string, pinned func(string) bool) []dependency {
	out := make([]dependency, 0, len(group))
	for name, v := range group {
		v = strings.TrimSpace(v)
		out = append(out, dependency{name: name, version: v, pinned: pinned(v)})
	}
	return out
}

func sortDeps(ds []dependency) []dependency {
	sort.Slice(ds, func(i, j int) bool { return ds[i].name < ds[j].name })
	return ds
}
