package extract

import (
	"regexp"
	"strings"
)

// Tests inspects test files: cases, assertions, grouping, setup, mocking and
// which source files have a matching test.
type Tests struct{}

func (t *Tests) Name() string { return NameTests }

var (
	testCaseRe  = regexp.MustCompile(`^\s*(?:it|test|specify|scenario|example)\s*\(?\s*['"` + "`" + `]|^\s*(?:async\s+)?def\s+test_?\w*|^\s*func\s+Test\w*\(|@Test\b|\[(?:Fact|Test|TestMethod|Theory)\]|#\[test\]|^\s*test\s+"`)
	assertionRe = regexp.MustCompile(`\b(?:expect|assert\w*|should|refute\w*|verify|must_\w+)\b|\brequire\.\w+\(|\bt\.(?:Error|Errorf|Fatal|Fatalf|Fail|FailNow)\b|\bAssert\.\w+|\bXCTAssert\w*|\.to(?:Be|Equal|Have|Throw|Contain|Match)\w*\(`)
	groupingRe  = regexp.MustCompile(`^\s*(?:RSpec\.)?(?:describe|context|suite)\b|\bt\.Run\(|^\s*class\s+\w*Test\w*|@Nested\b|^\s*describe\s*\(`)
	setupRe     = regexp.MustCompile(`\blet!?\(|\bbefore(?:Each|All|\(:each\)|\(:all\))?\b|\bsetUp\b|\bsetup\b|@BeforeEach|@Before\b|\bfixtures?\b|\bFactoryBot\b|\bcreate\(:|\bt\.Helper\(\)|\bt\.Cleanup\(|\bTestMain\b|@pytest\.fixture`)
	mockRe      = regexp.MustCompile(`\b(?:double|instance_double|class_double|allow|stub\w*|spy\w*|mock\w*|Mock\w*|jest\.fn|sinon|patch|httptest|gomock|WebMock|VCR)\b`)
	edgeWordsRe = regexp.MustCompile(`(?i)\b(?:nil|null|none|empty|invalid|error|errors|fails?|raises?|throws?|edge|boundary|zero|negative|missing|blank|unauthori[sz]ed|not found)\b`)
)

// testStemAffixes map test file stems back to the source they exercise.
var testStemAffixes = []string{"_spec", "_test", "tests", "test"}

func (t *Tests) Extract(in Input) (Result, error) {
	res := newResult()
	res.Analyzed = len(in.Test) + len(in.Source)

	var files, cases, assertions, grouped, setup, mocks, edge int
	tested := map[string]bool{}
	for _, f := range in.Test {
		lines := scanFile(f)
		code := countKind(lines, lineCode)
		fileCases, fileAsserts, fileGrouped, fileSetup := 0, 0, false, false
		for _, l := range lines {
			if l.Kind != lineCode {
				continue
			}
			if testCaseRe.MatchString(l.Code) {
				fileCases++
				if edgeWordsRe.MatchString(l.Raw) {
					edge++
				}
			}
			fileAsserts += len(assertionRe.FindAllStringIndex(l.Code, -1))
			if groupingRe.MatchString(l.Code) {
				fileGrouped = true
			}
			if setupRe.MatchString(l.Code) {
				fileSetup = true
			}
			mocks += len(mockRe.FindAllStringIndex(l.Code, -1))
		}

		if code < 3 && fileCases == 0 {
			res.issue(f.Path, 0, "trivial_test_file", "test file has no real content")
			continue
		}
		files++
		cases += fileCases
		assertions += fileAsserts
		tested[testStem(f.Path)] = true
		if fileGrouped {
			grouped++
		}
		if fileSetup {
			setup++
		}

		switch {
		case fileCases > 0 && fileAsserts == 0:
			res.issue(f.Path, 0, "missing_assertions", "%d test cases without a single assertion", fileCases)
		case fileCases > 0:
			res.good(f.Path, 0, "test_file", "%d test cases with %d assertions", fileCases, fileAsserts)
		}
		if fileCases >= 3 && !fileGrouped {
			res.issue(f.Path, 0, "ungrouped_tests", "%d test cases with no describe/context grouping", fileCases)
		}
	}

	covered := 0
	for _, f := range in.Source {
		if tested[stem(f.Path)] {
			covered++
			res.good(f.Path, 0, "tested_source", "has a matching test file")
			continue
		}
		res.issue(f.Path, 0, "untested_source", "no test file targets %s", f.Name())
	}

	if files == 0 && len(in.Source) > 0 {
		res.issue("", 0, "no_tests", "no meaningful tests for %d source files", len(in.Source))
	}
	if cases >= 4 && setup == 0 {
		res.issue("", 0, "no_shared_setup", "%d test cases share no setup, fixtures or factories", cases)
	}
	if mocks > 0 {
		res.good("", 0, "mock_usage", "isolates collaborators with test doubles (%d uses)", mocks)
	}
	if edge > 0 {
		res.good("", 0, "edge_case_test", "%d test cases target edge or failure conditions", edge)
	}

	res.metric("test_files", float64(files))
	res.metric("test_cases", float64(cases))
	res.metric("assertions", float64(assertions))
	res.metric("assertions_per_case", ratio(assertions, cases))
	res.metric("grouped_files", float64(grouped))
	res.metric("setup_files", float64(setup))
	res.metric("mock_usage", float64(mocks))
	res.metric("edge_case_tests", float64(edge))
	res.metric("sources", float64(len(in.Source)))
	res.metric("tested_sources", float64(covered))
	res.metric("coverage_ratio", ratio(covered, len(in.Source)))
	return res, nil
}

// testStem maps a test path to the stem of the source file it targets.
func testStem(p string) string {
	s := stem(p)
	for _, affix := range testStemAffixes {
		switch {
		case strings.HasSuffix(s, affix) && len(s) > len(affix):
			return strings.TrimRight(strings.TrimSuffix(s, affix), "_.")
		case strings.HasPrefix(s, "test_") && len(s) > 5:
			return s[5:]
		}
	}
	return s
}
