package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cliniscan/doctext/config"
	"github.com/cliniscan/doctext/geo"
)

// DropReason names why a recognized line was removed.
type DropReason string

const (
	DropFigureOverlap DropReason = "figure_overlap"
	DropFigureCaption DropReason = "figure_caption"
	DropLowConfShort  DropReason = "low_conf_short"
	DropBoilerplate   DropReason = "boilerplate"
)

// DroppedLine pairs a removed line with its reason for diagnostics.
type DroppedLine struct {
	Line   Line
	Reason DropReason
}

// Boilerplate the recognizer keeps re-reading off report footers. The
// patterns tolerate common garbling: "Page 1 of 3" often comes back as
// "Page 10f3".
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^page\s*\d+\s*[o0]f?\s*\d+\s*$`),
	regexp.MustCompile(`(?i)^printed\s+[o0]n\b`),
	regexp.MustCompile(`(?i)\b(olympus|pentax|karl\s*storz|fujifilm|carestream)\b.*\b(medical|systems|endoscopy)\b`),
	regexp.MustCompile(`(?i)^confidential\b.*\bnot\s+for\s+redistribution`),
}

// Short anatomy mentions with no verb are figure callouts, not findings.
var anatomyTerms = map[string]bool{
	"trachea": true, "carina": true, "bronchus": true, "bronchi": true,
	"mainstem": true, "lobe": true, "lingula": true, "larynx": true,
	"epiglottis": true, "cords": true, "vocal": true, "nose": true,
	"nasopharynx": true, "oropharynx": true, "segment": true,
	"left": true, "right": true, "upper": true, "lower": true, "middle": true,
}

var clinicalVerbs = []string{
	"noted", "observed", "visualized", "identified", "performed",
	"suctioned", "biopsied", "obtained", "advanced", "inspected",
	"appears", "appeared", "demonstrates", "demonstrated", "seen",
}

// FilterLinesDetailed removes figure noise, recognition junk, and footer
// boilerplate from raw OCR lines. Each drop reason can be toggled off
// independently; figure-overlap dropping in particular is disabled for
// scanned photo pages where every line overlaps the photograph. Filtering an
// already-clean line set is a no-op.
func FilterLinesDetailed(lines []Line, figureRegions []geo.Region, cfg config.Filter) ([]Line, []DroppedLine) {
	kept := make([]Line, 0, len(lines))
	var dropped []DroppedLine

	for _, ln := range lines {
		text := strings.TrimSpace(ln.Text)
		if text == "" {
			dropped = append(dropped, DroppedLine{Line: ln, Reason: DropLowConfShort})
			continue
		}

		if isBoilerplate(text) {
			dropped = append(dropped, DroppedLine{Line: ln, Reason: DropBoilerplate})
			continue
		}

		if !cfg.DisableFigureOverlap && overlapsFigure(ln.Bounds, figureRegions, cfg.FigureOverlapThreshold) {
			dropped = append(dropped, DroppedLine{Line: ln, Reason: DropFigureOverlap})
			continue
		}

		if utf8.RuneCountInString(text) <= cfg.ShortLowConfMaxRunes && ln.Confidence < cfg.ShortLowConfThreshold {
			dropped = append(dropped, DroppedLine{Line: ln, Reason: DropLowConfShort})
			continue
		}

		// Verb-bearing lines are never dropped for brevity alone.
		if isAnatomyOnly(text) && !hasClinicalVerb(text) {
			dropped = append(dropped, DroppedLine{Line: ln, Reason: DropFigureCaption})
			continue
		}

		kept = append(kept, ln)
	}
	return kept, dropped
}

// FilterLines is FilterLinesDetailed without the drop diagnostics.
func FilterLines(lines []Line, figureRegions []geo.Region, cfg config.Filter) []Line {
	kept, _ := FilterLinesDetailed(lines, figureRegions, cfg)
	return kept
}

// DedupeConsecutiveLines collapses immediately repeated lines, ignoring case.
// Recognizers stutter on letterhead and stamps.
func DedupeConsecutiveLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	prev := ""
	for _, ln := range lines {
		key := strings.ToLower(strings.TrimSpace(ln.Text))
		if key != "" && key == prev {
			continue
		}
		out = append(out, ln)
		prev = key
	}
	return out
}

// ComposePageText joins surviving lines with newlines in their original
// order. An empty result is valid output: no usable OCR text.
func ComposePageText(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, ln := range lines {
		if t := strings.TrimSpace(ln.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func overlapsFigure(bounds geo.Region, figures []geo.Region, threshold float64) bool {
	if bounds.IsEmpty() {
		return false
	}
	for _, fig := range figures {
		if bounds.OverlapFraction(fig) >= threshold {
			return true
		}
	}
	return false
}

// IsBoilerplateLine reports whether the text matches a known vendor or
// footer boilerplate pattern, tolerating recognizer garbling.
func IsBoilerplateLine(text string) bool {
	for _, p := range boilerplatePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func isBoilerplate(text string) bool { return IsBoilerplateLine(text) }

func isAnatomyOnly(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields) > 3 {
		return false
	}
	for _, f := range fields {
		w := strings.ToLower(strings.Trim(f, ".,;:"))
		if !anatomyTerms[w] {
			return false
		}
	}
	return true
}

func hasClinicalVerb(text string) bool {
	lower := strings.ToLower(text)
	for _, v := range clinicalVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}
