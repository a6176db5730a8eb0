package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklepop/Code-Project-Review/internal/rubric"
)

func resetRubricFlags(t *testing.T) {
	t.Helper()
	rubricFile, rubricOutput = "", ""
	t.Cleanup(func() { rubricFile, rubricOutput = "", "" })
}

func TestRubricListRun(t *testing.T) {
	testEnv(t)

	require.NoError(t, rubricListRun())
	out := stdout(t)
	assert.Contains(t, out, rubric.NameStandard)
	assert.Contains(t, out, rubric.NameAdvanced)
	assert.Contains(t, out, "115")
	assert.Contains(t, out, "active")
}

func TestRubricShowRun(t *testing.T) {
	testEnv(t)
	resetRubricFlags(t)

	require.NoError(t, rubricShowRun(""))
	out := stdout(t)
	assert.Contains(t, out, "standard")
	assert.Contains(t, out, "naming_conventions")
	assert.Contains(t, out, "penalty 30")
}

func TestRubricShowRun_Unknown(t *testing.T) {
	testEnv(t)
	resetRubricFlags(t)

	err := rubricShowRun("expert")
	require.ErrorIs(t, err, rubric.ErrUnknownRubric)
}

func TestRubricShowRun_PenaltyFromConfig(t *testing.T) {
	testEnv(t)
	resetRubricFlags(t)
	viper.Set("analysis.penalty", 15)

	require.NoError(t, rubricShowRun(rubric.NameAdvanced))
	assert.Contains(t, stdout(t), "penalty 15")
}

func TestRubricExportRun_RoundTrip(t *testing.T) {
	dir := testEnv(t)
	resetRubricFlags(t)
	rubricOutput = filepath.Join(dir, "rubric.yaml")

	require.NoError(t, rubricExportRun(rubric.NameAdvanced))

	r, err := rubric.Load(rubricOutput)
	require.NoError(t, err)
	assert.Equal(t, rubric.NameAdvanced, r.Name)
	assert.Equal(t, rubric.Advanced().Max(), r.Max())

	// An exported file can be shown through --file.
	rubricOutput = ""
	rubricFile = filepath.Join(dir, "rubric.yaml")
	require.NoError(t, rubricShowRun(""))
	assert.Contains(t, stdout(t), "security_practices")
}

func TestRubricExportRun_DryRun(t *testing.T) {
	dir := testEnv(t)
	resetRubricFlags(t)
	dryRun = true
	ui.DryRun = true
	t.Cleanup(func() { dryRun = false })
	rubricOutput = filepath.Join(dir, "rubric.yaml")

	require.NoError(t, rubricExportRun(""))
	_, err := os.Stat(rubricOutput)
	assert.True(t, os.IsNotExist(err))
}
