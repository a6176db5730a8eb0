package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

func TestNaming_RubyViolations(t *testing.T) {
	res := run(t, &Naming{}, Input{Source: []classify.File{file("lib/account.rb",
		"class user_account",
		"  def ProcessOrder",
		"    q = 1",
		"    total_amount = 2",
		"  end",
		"end",
	)}})

	assert.Equal(t, 2, res.Count("naming_violation"))
	assert.Equal(t, 1, res.Count("unclear_name"))
	assert.Equal(t, 4.0, res.Metric("identifiers"))
	assert.InDelta(t, 0.25, res.Metric("consistency_ratio"), 0.001)
}

func TestNaming_ConsistentFileIsPraised(t *testing.T) {
	res := run(t, &Naming{}, Input{Source: []classify.File{file("internal/store/store.go",
		"package store",
		"",
		"type userStore struct {",
		"}",
		"",
		"func (s *userStore) FindByEmail(email string) error {",
		"\tresult, err := s.query(email)",
		"\treturn err",
		"}",
	)}})

	assert.Empty(t, res.Issues)
	assert.Equal(t, []string{"consistent_naming"}, kinds(res.Good))
}

func TestNaming_GoUnderscoreFunction(t *testing.T) {
	res := run(t, &Naming{}, Input{Source: []classify.File{file("util.go",
		"package util",
		"func do_thing() {",
		"}",
	)}})
	assert.Equal(t, 1, res.Count("naming_violation"))
}

func TestIsUnclear(t *testing.T) {
	assert.True(t, isUnclear("q", classify.LangRuby))
	assert.False(t, isUnclear("i", classify.LangRuby))
	assert.False(t, isUnclear("r", classify.LangGo))
	assert.True(t, isUnclear("r", classify.LangPython))
	assert.False(t, isUnclear("user", classify.LangPython))
}
