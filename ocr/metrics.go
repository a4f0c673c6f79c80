package ocr

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TextMetrics are compact quality aggregates over a page's OCR lines, used
// both for arbitration decisions and the diagnostics panel.
type TextMetrics struct {
	CharCount             int     `json:"charCount"`
	AlphaRatio            float64 `json:"alphaRatio"`
	MeanLineConf          float64 `json:"meanLineConf"`
	LowConfLineFrac       float64 `json:"lowConfLineFrac"`
	NumLines              int     `json:"numLines"`
	MedianTokenLen        float64 `json:"medianTokenLen"`
	FooterBoilerplateHits int     `json:"footerBoilerplateHits"`
}

// lowConfLine is the confidence under which a line counts as low-confidence
// in the aggregate, matching the diagnostics panel's banding.
const lowConfLine = 55.0

// ComputeTextMetrics aggregates line-level quality into one metrics record.
// Boilerplate matching tolerates the same garbling the filter does.
func ComputeTextMetrics(lines []Line) TextMetrics {
	m := TextMetrics{NumLines: len(lines)}
	if len(lines) == 0 {
		return m
	}

	var confSum float64
	lowConf := 0
	alpha, total := 0, 0
	var tokenLens []int

	for _, ln := range lines {
		text := strings.TrimSpace(ln.Text)
		m.CharCount += utf8.RuneCountInString(text)
		confSum += ln.Confidence
		if ln.Confidence < lowConfLine {
			lowConf++
		}
		if isBoilerplate(text) {
			m.FooterBoilerplateHits++
		}
		for _, r := range text {
			total++
			if unicode.IsLetter(r) {
				alpha++
			}
		}
		for _, tok := range strings.Fields(text) {
			tokenLens = append(tokenLens, utf8.RuneCountInString(tok))
		}
	}

	m.MeanLineConf = confSum / float64(len(lines))
	m.LowConfLineFrac = float64(lowConf) / float64(len(lines))
	if total > 0 {
		m.AlphaRatio = float64(alpha) / float64(total)
	}
	m.MedianTokenLen = medianInt(tokenLens)
	return m
}

func medianInt(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Ints(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return float64(values[mid])
	}
	return float64(values[mid-1]+values[mid]) / 2
}
