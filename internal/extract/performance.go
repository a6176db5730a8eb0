package extract

import (
	"regexp"
)

// Performance looks for queries issued inside loops, unbounded result sets
// and, on the positive side, eager loading, batching and caching.
type Performance struct{}

func (p *Performance) Name() string { return NamePerformance }

// loopLookahead is how many lines after a loop header count as its body.
const loopLookahead = 4

var (
	loopHeaderRe  = regexp.MustCompile(`\.(?:each|each_with_index|map|flat_map|select|forEach|for_each)\b\s*(?:do|\{|\()|^\s*(?:for|while|until|foreach)\b`)
	queryCallRe   = regexp.MustCompile(`\.(?:find\w*|where|pluck|count|exists\?|findOne|findAll|findById|findUnique|findMany|objects\.\w+)\s*[(\s]|\.Query(?:Row)?(?:Context)?\(|\.Exec(?:Context)?\(|\bawait\s+\w+\.(?:get|query|find)\w*\(`)
	unboundedRe   = regexp.MustCompile(`\b[A-Z]\w*\.all\b(?:\.each|\.map|\.to_a)?|\.objects\.all\(\)|\.findAll\(\s*\)|\.find\(\s*\{\s*\}\s*\)`)
	selectStarRe  = regexp.MustCompile(`(?i)select\s+\*\s+from\b`)
	limitRe       = regexp.MustCompile(`(?i)\blimit\b`)
	perfPatternRe = regexp.MustCompile(`\.(?:includes|preload|eager_load|select_related|prefetch_related|find_each|in_batches|find_in_batches|limit|paginate|page)\(|Rails\.cache|@\w+\s*\|\|=|\buseMemo\b|\buseCallback\b|lru_cache|functools\.cache|sync\.Pool|\bmemoiz\w*|\bcache\.(?:get|fetch|set)\b`)
)

func (p *Performance) Extract(in Input) (Result, error) {
	res := newResult()

	for _, f := range in.Source {
		res.Analyzed++
		lines := scanFile(f)
		praised := false
		for i, l := range lines {
			if l.Kind != lineCode {
				continue
			}
			if loopHeaderRe.MatchString(l.Code) {
				for j := i + 1; j < len(lines) && j <= i+loopLookahead; j++ {
					if lines[j].Kind == lineCode && queryCallRe.MatchString(lines[j].Code) {
						res.issue(f.Path, j+1, "query_in_loop", "query issued inside a loop (N+1 pattern)")
						break
					}
				}
			}
			if unboundedRe.MatchString(l.Code) || (selectStarRe.MatchString(l.Raw) && !limitRe.MatchString(l.Raw)) {
				res.issue(f.Path, i+1, "unbounded_query", "loads an unbounded result set")
			}
			if !praised && perfPatternRe.MatchString(l.Code) {
				praised = true
				res.good(f.Path, i+1, "performance_pattern", "uses eager loading or caching: %s", truncate(l.Raw, 60))
			}
		}
	}

	res.metric("query_in_loop", float64(res.Count("query_in_loop")))
	res.metric("unbounded_query", float64(res.Count("unbounded_query")))
	return res, nil
}
