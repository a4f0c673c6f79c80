// Package pipeline orchestrates the document text recovery flow: per-page
// layout stats, classification, OCR selection, and fusion into a document
// model whose page text is the best recoverable transcript.
package pipeline

import (
	"fmt"
	"sort"

	"github.com/cliniscan/doctext/classify"
	"github.com/cliniscan/doctext/config"
	"github.com/cliniscan/doctext/fuse"
	"github.com/cliniscan/doctext/geo"
	"github.com/cliniscan/doctext/layout"
	"github.com/cliniscan/doctext/metrics"
	"github.com/cliniscan/doctext/observability"
	"github.com/cliniscan/doctext/ocr"
)

// RawPage is the native extraction input for one page, before any analysis.
type RawPage struct {
	PageIndex    int
	Items        []layout.TextItem
	ImageRegions []geo.Region
	// ImageOpCount counts image draw operations on the page, including
	// ones that produced no region (inline or degenerate draws).
	ImageOpCount int
	Width        float64
	Height       float64
	Override     classify.Override
}

// DocumentPage is one page of the assembled document model.
type DocumentPage struct {
	PageIndex      int
	Source         classify.Source
	Text           string
	NativeText     string
	OCRText        string
	Blocked        bool
	Stats          classify.PageStats
	Classification classify.Classification
	Override       classify.Override
	ExcludedItems  int
	// OCRMetrics describes the post-filter OCR lines; nil until a line-level
	// OCR result has been applied.
	OCRMetrics *ocr.TextMetrics

	figures    []geo.Region
	ocrApplied bool
}

// OCRApplied reports whether an OCR result has been merged into this page.
func (p *DocumentPage) OCRApplied() bool { return p.ocrApplied }

// DocumentModel is the ordered set of finalized pages for one document.
type DocumentModel struct {
	Pages       []DocumentPage
	Summary     QualitySummary
	ForceOCRAll bool
}

// QualitySummary aggregates per-page outcomes across the document.
type QualitySummary struct {
	PageCount        int
	SourceCounts     map[classify.Source]int
	BlockedPages     []int
	MeanCompleteness float64
	FlagCounts       map[classify.QualityFlag]int
	ExcludedItems    int
	// PageMetrics holds one compact OCR metric string per OCR'd page, for
	// the diagnostics panel.
	PageMetrics []string
}

// Summarize recomputes the document's quality summary from its pages and
// stores it on the model.
func (m *DocumentModel) Summarize() QualitySummary {
	s := QualitySummary{
		SourceCounts: make(map[classify.Source]int),
		FlagCounts:   make(map[classify.QualityFlag]int),
	}
	total := 0.0
	for _, page := range m.Pages {
		s.PageCount++
		s.SourceCounts[page.Source]++
		s.ExcludedItems += page.ExcludedItems
		total += page.Stats.CompletenessConfidence
		if page.Blocked {
			s.BlockedPages = append(s.BlockedPages, page.PageIndex)
		}
		for _, f := range page.Classification.QualityFlags {
			s.FlagCounts[f]++
		}
		if m := page.OCRMetrics; m != nil {
			s.PageMetrics = append(s.PageMetrics, fmt.Sprintf(
				"page %d: lines=%d chars=%d conf=%.1f low=%.2f alpha=%.2f",
				page.PageIndex, m.NumLines, m.CharCount,
				m.MeanLineConf, m.LowConfLineFrac, m.AlphaRatio))
		}
	}
	if s.PageCount > 0 {
		s.MeanCompleteness = total / float64(s.PageCount)
	}
	sort.Ints(s.BlockedPages)
	m.Summary = s
	return s
}

// Pipeline runs the recovery flow with a fixed configuration.
type Pipeline struct {
	cfg config.Config
	log observability.Logger
	met *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(log observability.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics attaches Prometheus collectors to the pipeline.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.met = m }
}

// New builds a Pipeline with the given configuration.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ComputeStats runs layout analysis on one raw page and returns the derived
// stats, the assembled native text, and the count of excluded noise tokens.
func (p *Pipeline) ComputeStats(raw RawPage) (classify.PageStats, string, int) {
	blocks := layout.BuildBlocks(raw.Items, p.cfg.Layout)
	contamination := layout.MarkContaminated(raw.Items, raw.ImageRegions, p.cfg.Layout)
	text, excluded := layout.AssembleText(blocks, contamination, p.cfg.Layout)

	charCount, singleChar, nonPrintable, totalRunes := itemCharStats(raw.Items)

	textRegions := make([]geo.Region, 0, len(raw.Items))
	for _, it := range raw.Items {
		textRegions = append(textRegions, it.Region())
	}
	overlap := layout.OverlapRatio(textRegions, raw.ImageRegions, p.cfg.Layout.ContaminationMargin)

	excludedRatio := 0.0
	singleCharRatio := 0.0
	if n := len(raw.Items); n > 0 {
		excludedRatio = float64(excluded) / float64(n)
		singleCharRatio = float64(singleChar) / float64(n)
	}
	nonPrintableRatio := 0.0
	if totalRunes > 0 {
		nonPrintableRatio = float64(nonPrintable) / float64(totalRunes)
	}

	contaminationScore := layout.ScoreContamination(layout.ScoreInputs{
		OverlapRatio:           overlap,
		ContaminatedRatio:      contamination.ContaminatedRatio,
		ShortContaminatedRatio: contamination.ShortContaminatedRatio,
		ExcludedTokenRatio:     excludedRatio,
	}, p.cfg.Contamination)

	completeness := layout.EstimateCompleteness(layout.CompletenessInputs{
		CharCount:           charCount,
		SingleCharItemRatio: singleCharRatio,
		NonPrintableRatio:   nonPrintableRatio,
		ImageOpCount:        raw.ImageOpCount,
		BlockCount:          len(blocks),
		ContaminationScore:  contaminationScore,
	}, p.cfg.Completeness)

	area := raw.Width * raw.Height
	density := 0.0
	if area > 0 {
		density = float64(charCount) / area
	}

	return classify.PageStats{
		CharCount:              charCount,
		ItemCount:              len(raw.Items),
		NonPrintableRatio:      nonPrintableRatio,
		SingleCharItemRatio:    singleCharRatio,
		ImageOpCount:           raw.ImageOpCount,
		OverlapRatio:           overlap,
		ContaminationScore:     contaminationScore,
		CompletenessConfidence: completeness,
		NativeTextDensity:      density,
		PageArea:               area,
	}, text, excluded
}

// BuildDocumentModel analyzes and classifies every raw page, then arbitrates
// each with whatever text is available so far. Pages that want OCR are
// finalized again by ApplyOCRResults once replies arrive.
func (p *Pipeline) BuildDocumentModel(raws []RawPage, forceOCRAll bool) *DocumentModel {
	model := &DocumentModel{ForceOCRAll: forceOCRAll}
	for _, raw := range raws {
		stats, nativeText, excluded := p.ComputeStats(raw)
		cl := classify.Classify(stats, nativeText, p.cfg.Classify)

		page := DocumentPage{
			PageIndex:      raw.PageIndex,
			NativeText:     nativeText,
			Stats:          stats,
			Classification: cl,
			Override:       raw.Override,
			ExcludedItems:  excluded,
			figures:        raw.ImageRegions,
		}
		p.finalizePage(&page, forceOCRAll)

		p.log.Debug("page classified",
			observability.Int("page", page.PageIndex),
			observability.String("source", string(page.Source)),
			observability.Float64("confidence", cl.Confidence),
			observability.String("reason", cl.Reason),
		)
		if p.met != nil {
			for _, f := range cl.QualityFlags {
				p.met.QualityFlagsTotal.WithLabelValues(string(f)).Inc()
			}
			if cl.HasFlag(classify.FlagLowCompleteness) {
				p.met.LowConfidencePages.Inc()
			}
			if cl.NeedsOCRBackfill {
				p.met.BackfillTriggersTotal.Inc()
			}
		}
		model.Pages = append(model.Pages, page)
	}
	return model
}

// SelectPagesForOCR returns the sorted page indices that should be submitted
// for recognition: every page under forceOCRAll, otherwise the union of pages
// whose resolved source is OCR, pages failing the arbitration gate, and
// backfill pages.
func (p *Pipeline) SelectPagesForOCR(model *DocumentModel) []int {
	selected := make(map[int]bool)
	for i := range model.Pages {
		page := &model.Pages[i]
		if model.ForceOCRAll {
			selected[page.PageIndex] = true
			continue
		}
		source := classify.ResolveSource(false, page.Override, page.Classification)
		if source == classify.SourceOCR {
			selected[page.PageIndex] = true
			continue
		}
		if page.Override == classify.OverrideForceNative {
			continue
		}
		if page.Classification.NeedsOCRBackfill || p.gateFails(page.Stats) {
			selected[page.PageIndex] = true
		}
	}
	out := make([]int, 0, len(selected))
	for idx := range selected {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// ApplyOCRResults merges recognition results into the model by PageIndex,
// the only page identity that survives out-of-order replies. Results whose
// index matches no page are dropped. Native text is never overwritten; each
// matched page is arbitrated again with the OCR text available.
func (p *Pipeline) ApplyOCRResults(model *DocumentModel, results []ocr.PageResult) {
	byIndex := make(map[int]*DocumentPage, len(model.Pages))
	for i := range model.Pages {
		byIndex[model.Pages[i].PageIndex] = &model.Pages[i]
	}
	for _, res := range results {
		page, ok := byIndex[res.PageIndex]
		if !ok {
			p.log.Warn("dropping OCR result for unknown page",
				observability.Int("page", res.PageIndex),
				observability.String("inputId", res.InputID),
			)
			continue
		}
		// A page whose recognition failed or was cancelled got no OCR;
		// it stays in its native state, blocked state included.
		if res.Meta["error"] != "" {
			p.log.Warn("skipping failed OCR result",
				observability.Int("page", res.PageIndex),
				observability.String("error", res.Meta["error"]),
			)
			continue
		}
		page.OCRText, page.OCRMetrics = p.postprocessOCR(res, page.figures)
		page.ocrApplied = true
		p.finalizePage(page, model.ForceOCRAll)
	}
}

// Finalize re-arbitrates every page and records final per-page metrics. Call
// it once after all OCR results have been applied.
func (p *Pipeline) Finalize(model *DocumentModel) {
	for i := range model.Pages {
		page := &model.Pages[i]
		p.finalizePage(page, model.ForceOCRAll)
		if page.Blocked {
			p.log.Warn("page blocked pending OCR",
				observability.Int("page", page.PageIndex),
				observability.Float64("confidence", page.Stats.CompletenessConfidence),
			)
		}
		if p.met != nil {
			p.met.RecordPage(string(page.Source), page.Blocked)
			if page.Source == classify.SourceHybrid {
				p.met.HybridMergesTotal.Inc()
			}
		}
	}
	model.Summarize()
}

func (p *Pipeline) finalizePage(page *DocumentPage, forceOCRAll bool) {
	requested := classify.ResolveSource(forceOCRAll, page.Override, page.Classification)
	res := fuse.Arbitrate(fuse.Input{
		NativeText:      page.NativeText,
		OCRText:         page.OCRText,
		RequestedSource: requested,
		OCRAvailable:    page.ocrApplied,
		Classification:  page.Classification,
		Stats:           page.Stats,
	}, p.cfg.Fuse)
	page.Source = res.Source
	page.Text = res.Text
	page.Blocked = res.Blocked

	// A page can pass the plain classifier yet still be unsafe to ship
	// native-only, for example fragmented mid-sentence rows.
	if !page.ocrApplied && p.cfg.Gate.HardBlockWhenUnsafeWithoutOCR &&
		classify.IsUnsafeNativePage(page.Stats, page.NativeText, p.cfg.Classify) {
		page.Blocked = true
	}
}

func (p *Pipeline) gateFails(stats classify.PageStats) bool {
	return stats.CompletenessConfidence < p.cfg.Gate.MinCompletenessConfidence ||
		stats.ContaminationScore > p.cfg.Gate.MaxContaminationScore
}

// postprocessOCR turns a raw recognition result into page text: filter noise
// lines, drop immediate duplicates, and apply the clinical corrections.
// The returned metrics describe the kept lines; a text-only result without
// line records yields none.
func (p *Pipeline) postprocessOCR(res ocr.PageResult, figures []geo.Region) (string, *ocr.TextMetrics) {
	lines := res.Lines
	if len(lines) == 0 && res.Text != "" {
		return ocr.ApplyClinicalHeuristics(res.Text), nil
	}
	kept, dropped := ocr.FilterLinesDetailed(lines, figures, p.cfg.Filter)
	if p.met != nil {
		for _, d := range dropped {
			p.met.OCRLinesDroppedTotal.WithLabelValues(string(d.Reason)).Inc()
		}
	}
	kept = ocr.DedupeConsecutiveLines(kept)
	m := ocr.ComputeTextMetrics(kept)
	return ocr.ApplyClinicalHeuristics(ocr.ComposePageText(kept)), &m
}

func itemCharStats(items []layout.TextItem) (charCount, singleChar, nonPrintable, totalRunes int) {
	for _, it := range items {
		runes := 0
		for _, r := range it.Text {
			runes++
			if r != ' ' && r != '\t' {
				charCount++
			}
			if r < 0x20 || r == 0xFFFD {
				nonPrintable++
			}
		}
		totalRunes += runes
		if runes == 1 {
			singleChar++
		}
	}
	return charCount, singleChar, nonPrintable, totalRunes
}
