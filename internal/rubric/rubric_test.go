package rubric

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandard(t *testing.T) {
	r := Standard()
	require.NoError(t, r.Validate())
	assert.Equal(t, 115.0, r.Max())
	assert.Equal(t, 30.0, r.Penalty)

	want := map[string]float64{"clarity": 35, "architecture": 25, "practices": 25, "problem_solving": 15, "bonus": 15}
	for key, max := range want {
		c, err := r.Category(key)
		require.NoError(t, err, key)
		assert.Equal(t, max, c.Max(), key)
	}
}

func TestAdvanced(t *testing.T) {
	r := Advanced()
	require.NoError(t, r.Validate())
	assert.Equal(t, 115.0, r.Max())
	_, err := r.Item("bonus", "security_practices")
	assert.NoError(t, err)
	_, err = r.Item("bonus", "test_coverage")
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestItemLookup(t *testing.T) {
	r := Standard()

	it, err := r.Item("clarity", "naming_conventions")
	require.NoError(t, err)
	assert.Equal(t, 10.0, it.Max)
	assert.Equal(t, "naming_conventions", it.RuleKey())

	_, err = r.Item("style", "naming_conventions")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	_, err = r.Item("clarity", "spelling")
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestByName(t *testing.T) {
	a, err := ByName("standard")
	require.NoError(t, err)
	a.Categories[0].Items[0].Max = 99

	b, err := ByName("standard")
	require.NoError(t, err)
	assert.Equal(t, 10.0, b.Categories[0].Items[0].Max, "built-ins are fresh copies")

	_, err = ByName("lenient")
	assert.ErrorIs(t, err, ErrUnknownRubric)
	assert.Equal(t, []string{"advanced", "standard"}, Names())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		r    Rubric
	}{
		{"no name", Rubric{Categories: Standard().Categories}},
		{"no categories", Rubric{Name: "x"}},
		{"negative penalty", Rubric{Name: "x", Penalty: -1, Categories: Standard().Categories}},
		{"duplicate category", Rubric{Name: "x", Categories: []Category{
			{Key: "a", Items: []Item{{Key: "i", Max: 1}}},
			{Key: "a", Items: []Item{{Key: "j", Max: 1}}},
		}}},
		{"empty category", Rubric{Name: "x", Categories: []Category{{Key: "a"}}}},
		{"zero max", Rubric{Name: "x", Categories: []Category{{Key: "a", Items: []Item{{Key: "i"}}}}}},
		{"duplicate item", Rubric{Name: "x", Categories: []Category{{Key: "a", Items: []Item{{Key: "i", Max: 1}, {Key: "i", Max: 2}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.r.Validate(), ErrInvalidRubric)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rubric.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: lean
categories:
  - key: clarity
    items:
      - key: naming_conventions
        max: 20
      - key: readability
        rule: method_simplicity
        max: 10
`), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "lean", r.Name)
	assert.Equal(t, DefaultPenalty, r.Penalty)
	assert.Equal(t, 30.0, r.Max())
	assert.Equal(t, "clarity", r.Categories[0].Label)

	it, err := r.Item("clarity", "readability")
	require.NoError(t, err)
	assert.Equal(t, "method_simplicity", it.RuleKey())
	assert.Equal(t, []string{"method_simplicity", "naming_conventions"}, r.RuleKeys())
}

func TestLoad_ExplicitZeroPenalty(t *testing.T) {
	r, err := Parse([]byte("name: x\npenalty: 0\ncategories:\n  - key: a\n    items:\n      - key: naming_conventions\n        max: 5\n"))
	require.NoError(t, err)
	assert.Zero(t, r.Penalty)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Parse([]byte("name: x\ncategories: []\n"))
	assert.ErrorIs(t, err, ErrInvalidRubric)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Advanced().Marshal()
	require.NoError(t, err)
	r, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Advanced(), r)
}

func TestResolve(t *testing.T) {
	r, err := Resolve("advanced", "", 10)
	require.NoError(t, err)
	assert.Equal(t, NameAdvanced, r.Name)
	assert.Equal(t, 10.0, r.Penalty)

	r, err = Resolve("", "", -1)
	require.NoError(t, err)
	assert.Equal(t, NameStandard, r.Name)
	assert.Equal(t, DefaultPenalty, r.Penalty)
}

func TestClone(t *testing.T) {
	a := Standard()
	b := a.Clone()
	b.Categories[0].Items[0].Max = 1
	assert.Equal(t, 10.0, a.Categories[0].Items[0].Max)
}
