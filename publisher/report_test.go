package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subjectivity_datagen/dataset"
)

func TestBuildReport(t *testing.T) {
	md := BuildReport("ar", "data/ar_generated.tsv", sampleResult())

	assert.Contains(t, md, "# Dataset report: Arabic")
	assert.Contains(t, md, "`ar_generated.tsv`")
	assert.Contains(t, md, "| total samples | 2 |")
	assert.Contains(t, md, "- OBJ: 1 (50.0%)")
	assert.Contains(t, md, "**short_sentences**")
}

func TestBuildReportWithoutFindings(t *testing.T) {
	md := BuildReport("xx", "out.tsv", dataset.Result{})
	assert.Contains(t, md, "# Dataset report: xx")
	assert.Contains(t, md, "No issues found.")
	assert.Contains(t, md, "- SUBJ: 0 (0.0%)")
}

func TestRenderReportHTML(t *testing.T) {
	html, err := RenderReportHTML("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<td>1</td>")
}
