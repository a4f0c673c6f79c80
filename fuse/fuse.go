// Package fuse is the single decision point that combines native text, OCR
// text, classification, and page stats into the final per-page transcript and
// source of record.
package fuse

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cliniscan/doctext/classify"
	"github.com/cliniscan/doctext/config"
	"github.com/cliniscan/doctext/ocr"
)

// Input carries everything arbitration needs for one page.
type Input struct {
	NativeText      string
	OCRText         string
	RequestedSource classify.Source
	OCRAvailable    bool
	Classification  classify.Classification
	Stats           classify.PageStats
	// NativeNoiseLines are native lines already known to be contamination
	// noise; they are dropped even from hybrid output.
	NativeNoiseLines []string
}

// Result is the arbitration outcome. Blocked means the caller must surface a
// warning: the page wanted OCR that was not available.
type Result struct {
	Source  classify.Source
	Text    string
	Blocked bool
}

// Arbitrate selects the winning transcript for a page. The worst outcome is
// degraded quality, never a blank page: if either input had text, the result
// has text.
func Arbitrate(in Input, cfg config.Fuse) Result {
	native := strings.TrimSpace(in.NativeText)
	ocrText := strings.TrimSpace(in.OCRText)

	if in.RequestedSource == classify.SourceOCR && !in.OCRAvailable {
		return Result{Source: classify.SourceNative, Text: native, Blocked: true}
	}

	// An explicit OCR request with usable output wins outright. An empty
	// OCR result is "no new information" and falls through to native.
	if in.RequestedSource == classify.SourceOCR && ocrText != "" {
		text, source := ocrOutput(ocrText, native)
		return Result{Source: source, Text: text}
	}

	if utf8.RuneCountInString(native) <= cfg.NearEmptyMaxRunes && ocrText != "" {
		text, source := ocrOutput(ocrText, native)
		return Result{Source: source, Text: text}
	}

	if ocrText != "" && pageSuspect(in.Stats, cfg) {
		sanitized := SanitizeOCRText(ocrText, ModeAugment)
		if recoversMaterially(native, sanitized, cfg) {
			merged := MergeNativeAndOCRText(dropNoiseLines(native, in.NativeNoiseLines), sanitized)
			return Result{Source: classify.SourceHybrid, Text: merged}
		}
	}

	return Result{Source: classify.SourceNative, Text: native}
}

// ocrOutput sanitizes OCR-only output while honoring the non-blanking
// invariant: if sanitizing removes everything, prefer native text, then the
// raw OCR text, over returning a blank page. The returned source names what
// actually ended up in the text.
func ocrOutput(ocrText, native string) (string, classify.Source) {
	if s := SanitizeOCRText(ocrText, ModeFull); s != "" {
		return s, classify.SourceOCR
	}
	if native != "" {
		return native, classify.SourceNative
	}
	return ocrText, classify.SourceOCR
}

// pageSuspect reports whether the page is contaminated or low-confidence
// enough that trusted-native-only output would likely be incomplete.
func pageSuspect(stats classify.PageStats, cfg config.Fuse) bool {
	return stats.ContaminationScore >= cfg.HybridMinContamination ||
		stats.CompletenessConfidence <= cfg.HybridMaxCompleteness
}

// recoversMaterially reports whether OCR contributes enough distinct line
// content beyond the native text to justify a hybrid merge.
func recoversMaterially(native, sanitizedOCR string, cfg config.Fuse) bool {
	nativeSet := lineSet(native)
	newLines := 0
	newChars := 0
	for _, ln := range splitLines(sanitizedOCR) {
		if nativeSet[strings.ToLower(ln)] {
			continue
		}
		newLines++
		newChars += utf8.RuneCountInString(ln)
	}
	return newLines >= cfg.HybridMinNewLines && newChars >= cfg.HybridMinNewChars
}

// MergeNativeAndOCRText is an ordered case-insensitive line union, native
// lines first. A native line superseded by a fuller OCR line (one that
// contains it and extends it) is dropped in favor of its replacement.
func MergeNativeAndOCRText(native, ocrText string) string {
	nativeLines := splitLines(native)
	ocrLines := splitLines(ocrText)

	seen := make(map[string]bool)
	var out []string

	for _, ln := range nativeLines {
		key := strings.ToLower(ln)
		if seen[key] {
			continue
		}
		if supersededBy(key, ocrLines) {
			continue
		}
		seen[key] = true
		out = append(out, ln)
	}
	for _, ln := range ocrLines {
		key := strings.ToLower(ln)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}

// supersededBy reports whether some OCR line strictly extends the native
// line, case-insensitively.
func supersededBy(nativeLower string, ocrLines []string) bool {
	for _, ocrLine := range ocrLines {
		lower := strings.ToLower(ocrLine)
		if len(lower) > len(nativeLower) && strings.Contains(lower, nativeLower) {
			return true
		}
	}
	return false
}

// SanitizeMode selects how aggressively OCR text is cleaned.
type SanitizeMode string

const (
	// ModeFull is for OCR-only output, where nothing vouches for the text.
	ModeFull SanitizeMode = "full"
	// ModeAugment is for OCR supplementing trusted native text; it only
	// removes what is clearly noise.
	ModeAugment SanitizeMode = "augment"
)

// SanitizeOCRText drops repetition-noise lines (letter-soup runs, vendor and
// footer garbage) and trims noisy leading prefixes off otherwise-valid
// sentences rather than discarding the whole line.
func SanitizeOCRText(text string, mode SanitizeMode) string {
	var out []string
	for _, ln := range splitLines(text) {
		ln = trimNoisePrefix(ln)
		if ln == "" {
			continue
		}
		if isNoiseLine(ln, mode == ModeFull) {
			continue
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}

// trimNoisePrefix strips a short, symbol-heavy run from the start of a line
// when a capitalized sentence follows it.
func trimNoisePrefix(line string) string {
	idx := strings.IndexFunc(line, unicode.IsUpper)
	if idx <= 0 {
		return line
	}
	prefix := line[:idx]
	if utf8.RuneCountInString(prefix) > 12 {
		return line
	}
	if letterRatio(prefix) >= 0.3 {
		return line
	}
	rest := strings.TrimSpace(line[idx:])
	if len(strings.Fields(rest)) < 3 {
		return line
	}
	return rest
}

func isNoiseLine(line string, strict bool) bool {
	if ocr.IsBoilerplateLine(line) {
		return true
	}
	if longestRun(line) >= 6 {
		return true
	}

	letters, uppers, vowels := 0, 0, 0
	total := 0
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
			switch unicode.ToLower(r) {
			case 'a', 'e', 'i', 'o', 'u', 'y':
				vowels++
			}
		}
	}
	if letters >= 12 {
		upperRatio := float64(uppers) / float64(letters)
		vowelRatio := float64(vowels) / float64(letters)
		// Long all-caps runs with almost no vowels are recognizer soup,
		// not headings.
		if upperRatio > 0.85 && vowelRatio < 0.25 {
			return true
		}
		if strict && upperRatio > 0.7 && vowelRatio < 0.2 {
			return true
		}
	}
	if strict && total > 0 && float64(letters)/float64(total) < 0.35 && total > 6 {
		return true
	}
	return false
}

func longestRun(line string) int {
	run, best := 0, 0
	var prev rune
	for _, r := range line {
		if r == prev && !unicode.IsSpace(r) {
			run++
		} else {
			run = 1
			prev = r
		}
		if run > best {
			best = run
		}
	}
	return best
}

func letterRatio(s string) float64 {
	letters, total := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}

func dropNoiseLines(text string, noise []string) string {
	if len(noise) == 0 {
		return text
	}
	noisy := make(map[string]bool, len(noise))
	for _, n := range noise {
		noisy[strings.ToLower(strings.TrimSpace(n))] = true
	}
	var out []string
	for _, ln := range splitLines(text) {
		if noisy[strings.ToLower(ln)] {
			continue
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		if t := strings.TrimSpace(ln); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func lineSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, ln := range splitLines(text) {
		set[strings.ToLower(ln)] = true
	}
	return set
}
