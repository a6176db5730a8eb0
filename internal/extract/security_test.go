package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

func TestSecurity_Findings(t *testing.T) {
	s := &Security{}
	res := run(t, s, Input{Source: []classify.File{file("app/services/payments.rb",
		`API_KEY = "sk_live_abcdef123456"`,
		`secret = ENV["SECRET"]`,
		`User.find_by_sql("SELECT * FROM users WHERE name = '#{name}'")`,
		`eval(params[:code])`,
	)}})

	assert.Equal(t, 1, res.Count("hardcoded_secret"))
	assert.Equal(t, 1, res.Count("sql_interpolation"))
	assert.Equal(t, 1, res.Count("dangerous_eval"))
	assert.Equal(t, 1.0, res.Metric("hardcoded_secret"))
	assert.Equal(t, []string{"secure_pattern"}, kinds(res.Good))
	assert.Equal(t, 2, res.Good[0].Line)
}

func TestSecurity_Patterns(t *testing.T) {
	tests := []struct {
		kind string
		line string
		hit  bool
	}{
		{"disabled_verification", "http.verify_mode = OpenSSL::SSL::VERIFY_NONE", true},
		{"disabled_verification", "tls.Config{InsecureSkipVerify: true}", true},
		{"unsafe_html", "<div dangerouslySetInnerHTML={{ __html: body }} />", true},
		{"unsafe_html", "el.textContent = body", false},
		{"hardcoded_secret", `password = "hunter22"`, true},
		{"hardcoded_secret", `password = ""`, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			for _, p := range securityPatterns {
				if p.kind == tt.kind {
					assert.Equal(t, tt.hit, p.re.MatchString(tt.line))
				}
			}
		})
	}
}
