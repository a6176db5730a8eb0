package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Comments measures comment density and how much of it explains anything.
type Comments struct {
	th Thresholds
}

func (c *Comments) Name() string { return NameComments }

var (
	directiveRe   = regexp.MustCompile(`^(?:rubocop:|eslint-|prettier-|frozen_string_literal|noqa|type:\s*ignore|@ts-|nolint|go:build|go:generate|go:embed|!\s*/|-\*-|encoding[:=]|pylint:|istanbul|jshint|region|endregion|#region|pragma)`)
	todoRe        = regexp.MustCompile(`\b(?:TODO|FIXME|XXX|HACK)\b`)
	codeCommentRe = regexp.MustCompile(`(?:[;{}]\s*$)|^(?:def|end|if|else|return|var|let|const|import|require|func|function|puts|print|console\.log)\b|^\w+\s*=\s*\S|^\w+\(.*\)$`)
	explainRe     = regexp.MustCompile(`(?i)\b(?:because|since|when|handles?|prevents?|so that|otherwise|ensures?|avoid|workaround|why|must|assum\w*|invariant|in order to|note|expects?|returns?|required?)\b`)
	restateRe     = regexp.MustCompile(`(?i)^(?:constructor|getter|setter|initialize|init|increment \w+|decrement \w+|loop|end|return \w+|set \w+|get \w+|main|imports?|variables?|methods?|class \w+)\.?$`)
)

// commentQuality buckets one comment line.
type commentQuality int

const (
	commentDirective commentQuality = iota
	commentNoise
	commentMeaningful
)

func judgeComment(text string) commentQuality {
	switch {
	case text == "" || directiveRe.MatchString(text):
		return commentDirective
	case utf8.RuneCountInString(text) <= 10, codeCommentRe.MatchString(text), restateRe.MatchString(text):
		return commentNoise
	default:
		return commentMeaningful
	}
}

func (c *Comments) Extract(in Input) (Result, error) {
	res := newResult()
	th := c.th
	var code, comments, meaningful, todos int

	for _, f := range in.Source {
		res.Analyzed++
		fileCode, fileComments := 0, 0
		praised := false
		for i, l := range scanFile(f) {
			switch l.Kind {
			case lineCode:
				fileCode++
				if l.Comment == "" {
					continue
				}
			case lineComment:
			default:
				continue
			}

			q := judgeComment(l.Comment)
			if q == commentDirective {
				continue
			}
			if todoRe.MatchString(l.Comment) {
				todos++
				res.issue(f.Path, i+1, "todo_marker", "unresolved marker: %s", truncate(l.Comment, 60))
			}
			fileComments++
			if q == commentMeaningful {
				meaningful++
				if !praised && explainRe.MatchString(l.Comment) {
					praised = true
					res.good(f.Path, i+1, "explanatory_comment", "comment explains intent: %q", truncate(l.Comment, 60))
				}
			}
		}
		code += fileCode
		comments += fileComments
		if fileCode >= th.UncommentedFileMin && fileComments == 0 {
			res.issue(f.Path, 0, "uncommented_file", "%d lines of code without a single comment", fileCode)
		}
	}

	density := ratio(comments, code+comments)
	quality := ratio(meaningful, comments)
	if code >= 50 {
		switch {
		case density < th.MinCommentRatio:
			res.issue("", 0, "low_comment_density", "comments make up %.0f%% of source lines (expected at least %.0f%%)", density*100, th.MinCommentRatio*100)
		case density > th.MaxCommentRatio:
			res.issue("", 0, "over_commented", "comments make up %.0f%% of source lines, crowding out the code", density*100)
		}
	}
	if comments >= 5 && quality < th.MinMeaningfulRatio {
		res.issue("", 0, "low_comment_quality", "only %d of %d comments say something the code does not", meaningful, comments)
	}

	res.metric("code_lines", float64(code))
	res.metric("comment_lines", float64(comments))
	res.metric("comment_ratio", density)
	res.metric("meaningful_ratio", quality)
	res.metric("todo_markers", float64(todos))
	return res, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
