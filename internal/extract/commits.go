package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Commits judges commit subjects for length, specificity and form.
type Commits struct {
	th Thresholds
}

func (c *Commits) Name() string { return NameCommits }

var (
	vagueSubjectRe = regexp.MustCompile(`(?i)^(?:fix(?:es|ed)?|update[sd]?|changes?|wip|stuff|misc|minor|tweaks?|cleanup|refactor|test|tests|commit|save|done|final|temp|tmp|asdf|\.+|-+|initial commit|first commit|more changes|small fix(?:es)?|bug ?fix(?:es)?)[.!]*$`)
	conventionalRe = regexp.MustCompile(`^(?:feat|fix|chore|docs|refactor|test|style|perf|build|ci|revert)(?:\([^)]+\))?!?: \S`)
	mergeRe        = regexp.MustCompile(`^Merge (?:branch|pull request|remote-tracking branch)\b`)
)

func (c *Commits) Extract(in Input) (Result, error) {
	res := newResult()
	th := c.th
	var analyzed, good, subjectLen int

	for _, cm := range in.Commits {
		subject := strings.TrimSpace(cm.Subject)
		if mergeRe.MatchString(subject) {
			continue
		}
		analyzed++
		n := utf8.RuneCountInString(subject)
		subjectLen += n
		ref := fmt.Sprintf("commit %s", shortHash(cm.Hash))

		switch {
		case vagueSubjectRe.MatchString(subject):
			res.issue(ref, 0, "vague_commit_message", "vague message %q", subject)
		case n < th.MinSubjectLength:
			res.issue(ref, 0, "short_commit_message", "message %q is too short to describe the change", subject)
		case n > th.MaxSubjectLength:
			res.issue(ref, 0, "long_commit_subject", "subject is %d characters (limit %d)", n, th.MaxSubjectLength)
		default:
			if conventionalRe.MatchString(subject) || startsUpper(subject) {
				good++
				res.good(ref, 0, "good_commit", "%s", subject)
			}
		}
	}
	res.Analyzed = analyzed

	if analyzed == 1 {
		res.issue("", 0, "single_commit", "the whole project landed in a single commit")
	}
	res.metric("commits", float64(analyzed))
	res.metric("good_commits", float64(good))
	res.metric("good_ratio", ratio(good, analyzed))
	if analyzed > 0 {
		res.metric("avg_subject_length", float64(subjectLen)/float64(analyzed))
	}
	return res, nil
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	if h == "" {
		return "unknown"
	}
	return h
}
