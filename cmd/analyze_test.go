package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklepop/Code-Project-Review/internal/engine"
	"github.com/sparklepop/Code-Project-Review/internal/output"
	"github.com/sparklepop/Code-Project-Review/internal/rubric"
	"github.com/sparklepop/Code-Project-Review/internal/scoring"
)

func resetAnalyzeFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		analyzeFormat, analyzeRubric, analyzeRubricFile = output.FormatTable, "", ""
		analyzeNonWorking = false
		analyzePenalty = -1
	}
	reset()
	t.Cleanup(reset)
}

func writeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for path, content := range map[string]string{
		"README.md":        "# Shop\n\n## Setup\n\nnpm install && npm start\n",
		"package.json":     `{"name":"shop","dependencies":{"express":"4.18.2"}}`,
		"src/cart.js":      "// Cart keeps line items in insertion order.\nfunction total(items) {\n  return items.reduce((s, i) => s + i.price, 0);\n}\nmodule.exports = { total };\n",
		"test/cart.test.js": "const { total } = require('../src/cart');\ndescribe('total', () => {\n  it('sums prices', () => {\n    expect(total([{ price: 2 }])).toBe(2);\n  });\n});\n",
	} {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func TestAnalyzeRun_LocalDirectory(t *testing.T) {
	testEnv(t)
	resetAnalyzeFlags(t)
	analyzeFormat = output.FormatJSON

	require.NoError(t, analyzeRun(context.Background(), writeRepo(t)))

	var res scoring.ReviewResult
	require.NoError(t, json.Unmarshal([]byte(stdout(t)), &res))
	assert.Equal(t, rubric.NameStandard, res.Rubric)
	assert.Equal(t, 115.0, res.MaxTotal.Float())
	assert.Equal(t, res.BaseTotal, res.GrandTotal)
	assert.NotEmpty(t, res.OverallComments)
}

func TestAnalyzeRun_NonWorkingWithPenalty(t *testing.T) {
	testEnv(t)
	resetAnalyzeFlags(t)
	analyzeFormat = output.FormatJSON
	analyzeNonWorking = true
	analyzePenalty = 5

	require.NoError(t, analyzeRun(context.Background(), writeRepo(t)))

	var res scoring.ReviewResult
	require.NoError(t, json.Unmarshal([]byte(stdout(t)), &res))
	assert.True(t, res.NonWorking)
	assert.Equal(t, 5.0, res.Penalty.Float())
	assert.InDelta(t, res.BaseTotal.Float()-5, res.GrandTotal.Float(), 0.001)
}

func TestAnalyzeRun_Table(t *testing.T) {
	testEnv(t)
	resetAnalyzeFlags(t)

	require.NoError(t, analyzeRun(context.Background(), writeRepo(t)))
	out := stdout(t)
	assert.Contains(t, out, "Code Clarity")
	assert.Contains(t, out, "Grand total:")
}

func TestAnalyzeRun_Errors(t *testing.T) {
	testEnv(t)
	resetAnalyzeFlags(t)

	t.Run("not a github url", func(t *testing.T) {
		err := analyzeRun(context.Background(), "https://gitlab.com/acme/shop")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GitHub")
	})

	t.Run("unknown format", func(t *testing.T) {
		analyzeFormat = "xml"
		t.Cleanup(func() { analyzeFormat = output.FormatTable })
		err := analyzeRun(context.Background(), writeRepo(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format")
	})
}

func TestRubricOverrides(t *testing.T) {
	cfg := engine.Config{Rubric: "standard", RubricFile: "custom.yaml", Penalty: 30}

	rubricOverrides("advanced", "", -1)(&cfg)
	assert.Equal(t, "advanced", cfg.Rubric)
	assert.Empty(t, cfg.RubricFile)
	assert.Equal(t, 30.0, cfg.Penalty)

	rubricOverrides("", "mine.yaml", 0)(&cfg)
	assert.Equal(t, "mine.yaml", cfg.RubricFile)
	assert.Equal(t, 0.0, cfg.Penalty)
}
