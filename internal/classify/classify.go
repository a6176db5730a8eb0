// Package classify partitions a repository snapshot into analysis buckets
// using path shape alone.
package classify

import (
	"path"
	"sort"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
)

// Bucket is the analysis group a file belongs to.
type Bucket string

const (
	BucketSource Bucket = "source"
	BucketTest   Bucket = "test"
	BucketDocs   Bucket = "docs"
	BucketConfig Bucket = "config"
	BucketOther  Bucket = "other"
)

// MaxFileSize is the size ceiling above which files are dropped.
const MaxFileSize int64 = 500_000

// DefaultMaxFilesPerGroup caps the source and test buckets.
const DefaultMaxFilesPerGroup = 20

var testMarkers = []string{"/spec/", "/test/", "/tests/", "/__tests__/", "/features/"}

var testSuffixes = []string{
	"_spec.rb", "_test.rb", "_test.go", "_test.py", "_test.exs",
	".test.js", ".test.jsx", ".test.ts", ".test.tsx",
	".spec.js", ".spec.jsx", ".spec.ts", ".spec.tsx",
	"Test.java", "Tests.java", "Test.kt", "Tests.cs", "Test.cs", "Test.php", "Tests.swift",
}

var ignoredMarkers = []string{
	"/db/schema.rb", "/config/routes.rb", "/db/migrate/",
	"/bin/", "/vendor/", "/dist/", "/build/", "/coverage/", "/tmp/",
}

var docExtensions = map[string]bool{".md": true, ".rdoc": true, ".txt": true, ".adoc": true, ".rst": true}

var manifestNames = map[string]bool{
	"Gemfile": true, "Gemfile.lock": true,
	"package.json": true, "package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
	"go.mod": true, "go.sum": true,
	"requirements.txt": true, "Pipfile": true, "Pipfile.lock": true, "pyproject.toml": true, "poetry.lock": true,
	"Cargo.toml": true, "Cargo.lock": true,
	"composer.json": true, "composer.lock": true,
	"pom.xml": true, "build.gradle": true,
	"mix.exs": true, "mix.lock": true,
}

// File is a snapshot file tagged with its bucket and language.
type File struct {
	Path     string
	Content  string
	Size     int64
	Bucket   Bucket
	Language Language
}

// Name returns the file's base name.
func (f File) Name() string { return path.Base(f.Path) }

// Dir returns the file's directory, "" for root files.
func (f File) Dir() string {
	d := path.Dir(f.Path)
	if d == "." {
		return ""
	}
	return d
}

// Lines splits the content into lines without trailing newlines.
func (f File) Lines() []string {
	if f.Content == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(f.Content, "\r\n", "\n"), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Buckets is the classifier output. Each list is sorted by path.
type Buckets struct {
	Source []File
	Test   []File
	Docs   []File
	Config []File
	// Dropped holds paths removed by the size ceiling or ignored-path rules.
	Dropped []string
	// Excluded holds paths whose extension is not analyzed.
	Excluded []string
}

// Count returns the number of analyzed files.
func (b Buckets) Count() int {
	return len(b.Source) + len(b.Test) + len(b.Docs) + len(b.Config)
}

// Admit applies the path rules to a single candidate. ok is false when the
// file is dropped or excluded.
func Admit(p string, size int64) (Bucket, Language, bool) {
	if Dropped(p, size) {
		return BucketOther, LangUnknown, false
	}
	b, lang := bucketOf(p)
	return b, lang, b != BucketOther
}

// Dropped reports whether p is removed before classification.
func Dropped(p string, size int64) bool {
	if size > MaxFileSize {
		return true
	}
	rooted := "/" + p
	for _, m := range ignoredMarkers {
		if strings.Contains(rooted, m) || strings.HasPrefix(rooted, m) {
			return true
		}
	}
	return strings.HasSuffix(p, ".min.js")
}

// IsTestPath reports whether p looks like a test file location.
func IsTestPath(p string) bool {
	rooted := "/" + p
	for _, m := range testMarkers {
		if strings.Contains(rooted, m) {
			return true
		}
	}
	name := path.Base(p)
	for _, s := range testSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py")
}

// IsManifest reports whether p names a dependency manifest or lockfile.
func IsManifest(p string) bool {
	return manifestNames[path.Base(p)]
}

// bucketOf applies the path rules in order. Anything under a test location
// is a test file or, when it is not source, excluded; fixture manifests and
// docs never stand in for the project's own.
func bucketOf(p string) (Bucket, Language) {
	lang := LanguageOf(p)
	if IsTestPath(p) {
		if lang == LangUnknown {
			return BucketOther, LangUnknown
		}
		return BucketTest, lang
	}
	if IsManifest(p) {
		return BucketConfig, LangUnknown
	}
	if lang != LangUnknown {
		return BucketSource, lang
	}
	if docExtensions[strings.ToLower(path.Ext(p))] {
		return BucketDocs, LangUnknown
	}
	return BucketOther, LangUnknown
}

// Classify partitions every file in s. It has no side effects and is
// deterministic for identical input.
func Classify(s *snapshot.Snapshot) Buckets {
	var b Buckets
	for _, f := range s.Files() {
		if Dropped(f.Path, f.Size) {
			b.Dropped = append(b.Dropped, f.Path)
			continue
		}
		bucket, lang := bucketOf(f.Path)
		cf := File{Path: f.Path, Content: f.Content, Size: f.Size, Bucket: bucket, Language: lang}
		switch bucket {
		case BucketSource:
			b.Source = append(b.Source, cf)
		case BucketTest:
			b.Test = append(b.Test, cf)
		case BucketDocs:
			b.Docs = append(b.Docs, cf)
		case BucketConfig:
			b.Config = append(b.Config, cf)
		default:
			b.Excluded = append(b.Excluded, f.Path)
		}
	}
	return b
}

// Limit caps the source and test buckets at n files each, keeping the
// first n in path order. n <= 0 means no cap.
func (b Buckets) Limit(n int) Buckets {
	if n <= 0 {
		return b
	}
	out := b
	out.Source = capFiles(b.Source, n)
	out.Test = capFiles(b.Test, n)
	return out
}

func capFiles(files []File, n int) []File {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Languages returns the distinct languages in the source bucket, most files first.
func (b Buckets) Languages() []Language {
	counts := map[Language]int{}
	for _, f := range b.Source {
		counts[f.Language]++
	}
	langs := make([]Language, 0, len(counts))
	for l := range counts {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		if counts[langs[i]] != counts[langs[j]] {
			return counts[langs[i]] > counts[langs[j]]
		}
		return langs[i] < langs[j]
	})
	return langs
}
