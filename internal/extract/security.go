package extract

import (
	"regexp"
)

// Security flags hardcoded secrets, dynamic evaluation, string-built SQL,
// unescaped HTML and disabled verification.
type Security struct{}

func (s *Security) Name() string { return NameSecurity }

type linePattern struct {
	kind    string
	re      *regexp.Regexp
	message string
	// raw patterns match against the unmodified line so string contents count.
	raw bool
}

var securityPatterns = []linePattern{
	{kind: "hardcoded_secret", raw: true, message: "credential assigned from a string literal",
		re: regexp.MustCompile(`(?i)\b(?:password|passwd|secret|api_?key|access_?token|auth_?token|private_?key|client_?secret)\w*['"]?\s*(?:=>|:=|=|:)\s*['"][^'"\s]{6,}['"]`)},
	{kind: "dangerous_eval", message: "evaluates dynamic code",
		re: regexp.MustCompile(`\beval\s*\(|\bexec\s*\(|\binstance_eval\b|\bclass_eval\b|\bsend\(\s*params|\.constantize\b|new Function\(`)},
	{kind: "sql_interpolation", raw: true, message: "builds SQL by string interpolation",
		re: regexp.MustCompile(`(?i)["'` + "`" + `]\s*(?:select\s.+\sfrom|insert\s+into|update\s+\w+\s+set|delete\s+from)\b[^"` + "`" + `]*(?:#\{|\$\{|%s|\{\})|(?:execute|query|raw)\(\s*["'].*["']\s*\+|\bf["'](?:select|insert|update|delete)\b`)},
	{kind: "unsafe_html", message: "renders unescaped HTML",
		re: regexp.MustCompile(`\.html_safe\b|\braw\(|dangerouslySetInnerHTML|\.innerHTML\s*=|v-html|\|\s*safe\b|template\.HTML\(|mark_safe\(`)},
	{kind: "disabled_verification", message: "disables TLS or CSRF verification",
		re: regexp.MustCompile(`VERIFY_NONE|InsecureSkipVerify:\s*true|verify\s*=\s*False|rejectUnauthorized:\s*false|skip_before_action\s+:verify_authenticity_token|protect_from_forgery\s+with:\s*:null_session|csrf_exempt`)},
}

var (
	envLookupRe   = regexp.MustCompile(`ENV\[|ENV\.fetch|os\.(?:Getenv|environ)|process\.env|getenv\(|Environment\.GetEnvironmentVariable|System\.getenv|credentials\.`)
	securePractRe = regexp.MustCompile(`params\.require\(|\.permit\(|has_secure_password|bcrypt|argon2|scrypt|BCrypt|PreparedStatement|\?\s*[,)]\s*\[|\$\d+\b.*Query|sanitize\w*\(|escape\w*\(|helmet\(|csrf|authenticate_user!|before_action\s+:authenticate`)
)

func (s *Security) Extract(in Input) (Result, error) {
	res := newResult()
	found := map[string]int{}

	for _, f := range in.Source {
		res.Analyzed++
		praised := false
		for i, l := range scanFile(f) {
			if l.Kind != lineCode {
				continue
			}
			for _, p := range securityPatterns {
				text := l.Code
				if p.raw {
					text = l.Raw
				}
				if !p.re.MatchString(text) {
					continue
				}
				if p.kind == "hardcoded_secret" && envLookupRe.MatchString(l.Raw) {
					continue
				}
				found[p.kind]++
				res.issue(f.Path, i+1, p.kind, "%s", p.message)
			}
			if !praised && (securePractRe.MatchString(l.Code) || envLookupRe.MatchString(l.Code)) {
				praised = true
				res.good(f.Path, i+1, "secure_pattern", "uses a secure pattern: %s", truncate(l.Raw, 60))
			}
		}
	}

	for kind, n := range found {
		res.metric(kind, float64(n))
	}
	return res, nil
}
