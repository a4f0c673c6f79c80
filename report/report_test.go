package report

import (
	"strings"
	"testing"

	"github.com/cliniscan/doctext/classify"
	"github.com/cliniscan/doctext/ocr"
	"github.com/cliniscan/doctext/pipeline"
)

func sampleModel() *pipeline.DocumentModel {
	return &pipeline.DocumentModel{Pages: []pipeline.DocumentPage{
		{
			PageIndex: 0,
			Source:    classify.SourceNative,
			Stats:     classify.PageStats{CompletenessConfidence: 0.95},
			Classification: classify.Classification{
				Confidence: 0.95,
				Reason:     "native text acceptable",
			},
		},
		{
			PageIndex: 1,
			Source:    classify.SourceNative,
			Blocked:   true,
			OCRMetrics: &ocr.TextMetrics{
				NumLines: 3, CharCount: 120, MeanLineConf: 72.5,
				LowConfLineFrac: 0.33, AlphaRatio: 0.81,
			},
			Stats: classify.PageStats{CompletenessConfidence: 0.41},
			Classification: classify.Classification{
				NeedsOCR:     true,
				Confidence:   0.41,
				QualityFlags: []classify.QualityFlag{classify.FlagLowCompleteness},
				Reason:       "low completeness",
			},
		},
	}}
}

func TestSummarize(t *testing.T) {
	s := sampleModel().Summarize()
	if s.PageCount != 2 {
		t.Fatalf("PageCount = %d, want 2", s.PageCount)
	}
	if s.SourceCounts[classify.SourceNative] != 2 {
		t.Fatalf("native count = %d, want 2", s.SourceCounts[classify.SourceNative])
	}
	if len(s.BlockedPages) != 1 || s.BlockedPages[0] != 1 {
		t.Fatalf("BlockedPages = %v, want [1]", s.BlockedPages)
	}
	if s.FlagCounts[classify.FlagLowCompleteness] != 1 {
		t.Fatalf("flag count = %d, want 1", s.FlagCounts[classify.FlagLowCompleteness])
	}
	want := (0.95 + 0.41) / 2
	if diff := s.MeanCompleteness - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("MeanCompleteness = %v, want %v", s.MeanCompleteness, want)
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(sampleModel())
	for _, want := range []string{
		"# Document Quality Report",
		"- native: 2",
		"- page 1",
		"LOW_COMPLETENESS: 1",
		"## OCR metrics",
		"page 1: lines=3 chars=120 conf=72.5 low=0.33 alpha=0.81",
		"| 1 | native | 0.41 | yes | low completeness |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderHTMLProducesTable(t *testing.T) {
	html, err := RenderHTML(sampleModel())
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if !strings.Contains(html, "<table>") {
		t.Fatalf("HTML has no table:\n%s", html)
	}
	if !strings.Contains(html, "<h1>Document Quality Report</h1>") {
		t.Fatalf("HTML missing title:\n%s", html)
	}
}
