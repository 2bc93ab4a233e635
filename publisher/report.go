package publisher

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"subjectivity_datagen/dataset"
	"subjectivity_datagen/generator"
)

// ReportPath returns the report location next to a table.
func ReportPath(tablePath string) string {
	return tablePath + ".report.md"
}

// BuildReport 生成 Markdown 格式的运行报告：统计、标签分布和校验提示。
func BuildReport(lang, tablePath string, res dataset.Result) string {
	var b strings.Builder
	name := lang
	if full, err := generator.LanguageName(lang); err == nil {
		name = full
	}
	fmt.Fprintf(&b, "# Dataset report: %s\n\n", name)
	fmt.Fprintf(&b, "Output: `%s`\n\n", filepath.Base(tablePath))

	b.WriteString("## Statistics\n\n")
	b.WriteString("| metric | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| total samples | %d |\n", res.Stats.Total)
	fmt.Fprintf(&b, "| objective samples | %d |\n", res.Stats.Objective)
	fmt.Fprintf(&b, "| subjective samples | %d |\n", res.Stats.Subjective)
	fmt.Fprintf(&b, "| average sentence length | %.1f |\n", res.Stats.AvgLength)

	b.WriteString("\n## Label distribution\n\n")
	for _, l := range generator.Labels() {
		n := res.Stats.Count(l)
		pct := 0.0
		if res.Stats.Total > 0 {
			pct = 100 * float64(n) / float64(res.Stats.Total)
		}
		fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", l, n, pct)
	}

	b.WriteString("\n## Findings\n\n")
	if len(res.Findings) == 0 {
		b.WriteString("No issues found.\n")
	}
	for _, f := range res.Findings {
		fmt.Fprintf(&b, "- **%s** (%d): %s\n", f.Kind, f.Count, f.Message)
	}
	return b.String()
}

// RenderReportHTML converts a markdown report to HTML. Tables need the GFM extension.
func RenderReportHTML(md string) (string, error) {
	var buf bytes.Buffer
	conv := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := conv.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
