// Package report renders a human-readable quality report of a processed
// document, as Markdown or as HTML for embedding in review tooling.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/cliniscan/doctext/classify"
	"github.com/cliniscan/doctext/pipeline"
)

// RenderMarkdown formats the model's quality summary and per-page outcomes
// as GitHub-flavored Markdown.
func RenderMarkdown(model *pipeline.DocumentModel) string {
	s := model.Summarize()
	var b strings.Builder

	b.WriteString("# Document Quality Report\n\n")
	fmt.Fprintf(&b, "Pages: %d, mean completeness %.2f\n\n", s.PageCount, s.MeanCompleteness)

	b.WriteString("## Sources\n\n")
	for _, src := range []classify.Source{classify.SourceNative, classify.SourceOCR, classify.SourceHybrid} {
		if n := s.SourceCounts[src]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", src, n)
		}
	}
	b.WriteString("\n")

	if len(s.BlockedPages) > 0 {
		b.WriteString("## Blocked pages\n\n")
		b.WriteString("These pages need OCR before their text can be trusted:\n\n")
		for _, idx := range s.BlockedPages {
			fmt.Fprintf(&b, "- page %d\n", idx)
		}
		b.WriteString("\n")
	}

	if len(s.FlagCounts) > 0 {
		b.WriteString("## Quality flags\n\n")
		flags := make([]string, 0, len(s.FlagCounts))
		for f := range s.FlagCounts {
			flags = append(flags, string(f))
		}
		sort.Strings(flags)
		for _, f := range flags {
			fmt.Fprintf(&b, "- %s: %d\n", f, s.FlagCounts[classify.QualityFlag(f)])
		}
		b.WriteString("\n")
	}

	if len(s.PageMetrics) > 0 {
		b.WriteString("## OCR metrics\n\n")
		for _, m := range s.PageMetrics {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}

	pages := make([]pipeline.DocumentPage, len(model.Pages))
	copy(pages, model.Pages)
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageIndex < pages[j].PageIndex })

	b.WriteString("## Pages\n\n")
	b.WriteString("| Page | Source | Completeness | Blocked | Reason |\n")
	b.WriteString("|-----:|--------|-------------:|---------|--------|\n")
	for _, p := range pages {
		blocked := ""
		if p.Blocked {
			blocked = "yes"
		}
		fmt.Fprintf(&b, "| %d | %s | %.2f | %s | %s |\n",
			p.PageIndex, p.Source, p.Stats.CompletenessConfidence, blocked,
			p.Classification.Reason)
	}

	return b.String()
}

// RenderHTML converts the Markdown report to HTML.
func RenderHTML(model *pipeline.DocumentModel) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(RenderMarkdown(model)), &buf); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return buf.String(), nil
}
