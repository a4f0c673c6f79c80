// Package classify decides, per page, whether native extraction is good
// enough or OCR (full or backfill) is needed. Every decision is a pure
// function of the current stats and text; nothing is carried between calls.
package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cliniscan/doctext/config"
)

// Source identifies the transcript of record for a page.
type Source string

const (
	SourceNative Source = "native"
	SourceOCR    Source = "ocr"
	SourceHybrid Source = "hybrid"
)

// Override is a per-page user override of the source decision.
type Override string

const (
	OverrideNone        Override = ""
	OverrideForceNative Override = "force_native"
	OverrideForceOCR    Override = "force_ocr"
)

// PageStats are the derived scalars classification reads. Computed once per
// page and treated as read-only afterwards.
type PageStats struct {
	CharCount              int
	ItemCount              int
	NonPrintableRatio      float64
	SingleCharItemRatio    float64
	ImageOpCount           int
	OverlapRatio           float64
	ContaminationScore     float64
	CompletenessConfidence float64
	// NativeTextDensity is characters per unit of page area.
	NativeTextDensity float64
	PageArea          float64
}

// QualityFlag names one observed page-quality condition.
type QualityFlag string

const (
	FlagLowCompleteness        QualityFlag = "LOW_COMPLETENESS"
	FlagContaminationRisk      QualityFlag = "CONTAMINATION_RISK"
	FlagNativeDenseText        QualityFlag = "NATIVE_DENSE_TEXT"
	FlagShortLineRatio         QualityFlag = "SHORT_LINE_RATIO"
	FlagFragmentedNativeLines  QualityFlag = "FRAGMENTED_NATIVE_LINES"
	FlagOrphanTrailingFragment QualityFlag = "ORPHAN_TRAILING_FRAGMENT"
)

// BackfillVote records the weak-signal voting behind a backfill decision.
type BackfillVote struct {
	Votes         int
	StrongVotes   int
	SeverityScore int
}

// Classification is the classifier's verdict for one page.
type Classification struct {
	NeedsOCR         bool
	NeedsOCRBackfill bool
	Confidence       float64
	QualityFlags     []QualityFlag
	Reason           string
	Backfill         BackfillVote
}

// HasFlag reports whether the classification carries the given flag.
func (c Classification) HasFlag(flag QualityFlag) bool {
	for _, f := range c.QualityFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// Classify derives the page's quality flags, runs backfill voting, and
// produces the OCR decision. Dense packed native text is strong evidence of a
// genuine digital source and overrides both primary risk flags.
func Classify(stats PageStats, text string, cfg config.Classify) Classification {
	cl := Classification{Confidence: stats.CompletenessConfidence}

	lowCompleteness := stats.CompletenessConfidence < cfg.MinCompletenessConfidence
	contaminationRisk := stats.ContaminationScore > cfg.MaxContaminationScore
	denseText := stats.NativeTextDensity > cfg.NativeDenseMinDensity

	if lowCompleteness {
		cl.QualityFlags = append(cl.QualityFlags, FlagLowCompleteness)
	}
	if contaminationRisk {
		cl.QualityFlags = append(cl.QualityFlags, FlagContaminationRisk)
	}
	if denseText {
		cl.QualityFlags = append(cl.QualityFlags, FlagNativeDenseText)
	}

	lines := nonEmptyLines(text)

	shortLines := shortLineRatio(lines) > cfg.ShortLineRatioGate
	fragmented := fragmentedRowCount(lines) >= 2
	orphan := hasOrphanTrailingFragment(lines)

	if shortLines {
		cl.QualityFlags = append(cl.QualityFlags, FlagShortLineRatio)
		cl.Backfill.Votes++
		cl.Backfill.SeverityScore++
	}
	if fragmented {
		cl.QualityFlags = append(cl.QualityFlags, FlagFragmentedNativeLines)
		cl.Backfill.Votes++
		cl.Backfill.StrongVotes++
		cl.Backfill.SeverityScore += 2
	}
	if orphan {
		cl.QualityFlags = append(cl.QualityFlags, FlagOrphanTrailingFragment)
		cl.Backfill.Votes++
		cl.Backfill.SeverityScore++
	}

	switch {
	case denseText:
		cl.NeedsOCR = false
		cl.Reason = "dense native text"
	case lowCompleteness && contaminationRisk:
		cl.NeedsOCR = true
		cl.Reason = "low completeness and contamination risk"
	case lowCompleteness:
		cl.NeedsOCR = true
		cl.Reason = "low completeness"
	case contaminationRisk:
		cl.NeedsOCR = true
		cl.Reason = "contamination risk"
	default:
		cl.Reason = "native text acceptable"
	}

	// Backfill is strictly softer than a full OCR decision: it needs both
	// enough severity and agreement between independent signals, and it
	// only adds pages the primary gate already passed.
	if !cl.NeedsOCR &&
		cl.Backfill.SeverityScore >= cfg.BackfillSeverityThreshold &&
		cl.Backfill.Votes >= cfg.BackfillMinSignals {
		cl.NeedsOCRBackfill = true
		if cl.Reason == "native text acceptable" {
			cl.Reason = "fragmented native text"
		}
	}

	return cl
}

// IsUnsafeNativePage is the stricter gate used when OCR is unavailable: a
// page is unsafe below a higher confidence bar, or whenever its rows read as
// mid-sentence fragments, even if the plain OCR decision would pass it.
func IsUnsafeNativePage(stats PageStats, text string, cfg config.Classify) bool {
	if stats.CompletenessConfidence < cfg.UnsafeMinCompleteness {
		return true
	}
	return fragmentedRowCount(nonEmptyLines(text)) >= 2
}

// ResolveSource applies the source-decision precedence: a document-wide force
// wins over the page's user override, which wins over the classification.
func ResolveSource(forceOCRAll bool, override Override, cl Classification) Source {
	if forceOCRAll {
		return SourceOCR
	}
	switch override {
	case OverrideForceNative:
		return SourceNative
	case OverrideForceOCR:
		return SourceOCR
	}
	if cl.NeedsOCR {
		return SourceOCR
	}
	return SourceNative
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		if t := strings.TrimSpace(ln); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func shortLineRatio(lines []string) float64 {
	if len(lines) < 4 {
		return 0
	}
	short := 0
	for _, ln := range lines {
		if utf8.RuneCountInString(ln) < 16 {
			short++
		}
	}
	return float64(short) / float64(len(lines))
}

// fragmentedRowCount counts row breaks that land mid-sentence: a line with no
// terminal punctuation followed by a new capitalized sentence start.
func fragmentedRowCount(lines []string) int {
	count := 0
	for i := 0; i+1 < len(lines); i++ {
		if endsSentence(lines[i]) {
			continue
		}
		next := lines[i+1]
		r, _ := utf8.DecodeRuneInString(next)
		if unicode.IsUpper(r) {
			count++
		}
	}
	return count
}

func endsSentence(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	switch line[len(line)-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}

// hasOrphanTrailingFragment spots a lone lowercase fragment such as "nose."
// at the end of the page, suggesting a label/value partner was lost.
func hasOrphanTrailingFragment(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	last := lines[len(lines)-1]
	if len(strings.Fields(last)) != 1 || utf8.RuneCountInString(last) > 12 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(last)
	return unicode.IsLower(r) && strings.HasSuffix(last, ".")
}
