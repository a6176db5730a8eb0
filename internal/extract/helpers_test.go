package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparklepop/Code-Project-Review/internal/classify"
)

// file builds a classified file the way the classifier would.
func file(path string, lines ...string) classify.File {
	content := strings.Join(lines, "\n") + "\n"
	b, lang, _ := classify.Admit(path, int64(len(content)))
	return classify.File{Path: path, Content: content, Size: int64(len(content)), Bucket: b, Language: lang}
}

func kinds(fs []Finding) []string {
	var out []string
	for _, f := range fs {
		out = append(out, f.Kind)
	}
	return out
}

func run(t *testing.T, e Extractor, in Input) Result {
	t.Helper()
	out := Run(e, in)
	require.NoError(t, out.Err)
	return out.Result
}
