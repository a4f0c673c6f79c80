package classify

import (
	"strings"
	"testing"

	"github.com/cliniscan/doctext/config"
)

func baseStats() PageStats {
	return PageStats{
		CharCount:              900,
		ItemCount:              120,
		CompletenessConfidence: 0.95,
		ContaminationScore:     0.05,
		NativeTextDensity:      0.002,
		PageArea:               612 * 792,
	}
}

const cleanText = "Flexible bronchoscopy was performed under moderate sedation.\n" +
	"The airways were inspected to the subsegmental level.\n" +
	"No endobronchial lesions were identified anywhere distally.\n" +
	"The patient tolerated the procedure well without complication.\n"

func TestClassifyCleanPageNeedsNothing(t *testing.T) {
	cl := Classify(baseStats(), cleanText, config.Default().Classify)
	if cl.NeedsOCR || cl.NeedsOCRBackfill {
		t.Fatalf("clean page classified for OCR: %+v", cl)
	}
}

func TestClassifyLowCompletenessNeedsOCR(t *testing.T) {
	stats := baseStats()
	stats.CompletenessConfidence = 0.4
	cl := Classify(stats, cleanText, config.Default().Classify)
	if !cl.NeedsOCR {
		t.Fatalf("low completeness did not trigger OCR: %+v", cl)
	}
	if !cl.HasFlag(FlagLowCompleteness) {
		t.Fatalf("missing flag: %+v", cl.QualityFlags)
	}
}

func TestClassifyContaminationRiskNeedsOCR(t *testing.T) {
	stats := baseStats()
	stats.ContaminationScore = 0.6
	cl := Classify(stats, cleanText, config.Default().Classify)
	if !cl.NeedsOCR || !cl.HasFlag(FlagContaminationRisk) {
		t.Fatalf("contamination risk did not trigger OCR: %+v", cl)
	}
}

func TestClassifyDenseTextOverridesRisk(t *testing.T) {
	stats := baseStats()
	stats.ContaminationScore = 0.6
	stats.CompletenessConfidence = 0.5
	stats.NativeTextDensity = 0.01
	cl := Classify(stats, cleanText, config.Default().Classify)
	if cl.NeedsOCR {
		t.Fatalf("dense native text should override risk flags: %+v", cl)
	}
	if !cl.HasFlag(FlagNativeDenseText) {
		t.Fatalf("missing dense-text flag: %+v", cl.QualityFlags)
	}
}

func TestBackfillSingleWeakSignalNeverFires(t *testing.T) {
	// Orphan trailing fragment only: one weak vote.
	text := cleanText + "nose.\n"
	cl := Classify(baseStats(), text, config.Default().Classify)
	if cl.Backfill.Votes != 1 {
		t.Fatalf("expected exactly one vote, got %+v", cl.Backfill)
	}
	if cl.NeedsOCRBackfill {
		t.Fatalf("single weak signal triggered backfill: %+v", cl)
	}
}

func TestBackfillConsensusFires(t *testing.T) {
	// Fragmented rows (strong) plus an orphan fragment (weak).
	text := "The bronchoscope was advanced through the\n" +
		"Left upper lobe appeared patent and free\n" +
		"The remaining segments were then surveyed\n" +
		"nose.\n"
	cl := Classify(baseStats(), text, config.Default().Classify)
	if cl.Backfill.StrongVotes == 0 {
		t.Fatalf("fragmented rows should cast a strong vote: %+v", cl.Backfill)
	}
	if cl.Backfill.Votes < 2 {
		t.Fatalf("expected at least two signals: %+v", cl.Backfill)
	}
	if !cl.NeedsOCRBackfill {
		t.Fatalf("consensus did not trigger backfill: %+v", cl)
	}
	if cl.NeedsOCR {
		t.Fatalf("backfill must stay softer than a full OCR decision")
	}
}

func TestIsUnsafeNativePageStricterThanNeedsOCR(t *testing.T) {
	cfg := config.Default().Classify
	stats := baseStats()
	stats.CompletenessConfidence = 0.78 // passes 0.7 gate, fails 0.85 bar

	cl := Classify(stats, cleanText, cfg)
	if cl.NeedsOCR {
		t.Fatalf("page should pass the plain gate: %+v", cl)
	}
	if !IsUnsafeNativePage(stats, cleanText, cfg) {
		t.Fatalf("page under the unsafe bar should be unsafe")
	}
}

func TestIsUnsafeNativePageFragmentedLines(t *testing.T) {
	cfg := config.Default().Classify
	text := "The scope was advanced into the\n" +
		"Right middle lobe without difficulty and\n" +
		"Secretions were suctioned clear\n"
	if !IsUnsafeNativePage(baseStats(), text, cfg) {
		t.Fatalf("fragmented native lines should be unsafe even at high confidence")
	}
}

func TestResolveSourcePrecedence(t *testing.T) {
	needs := Classification{NeedsOCR: true}
	clean := Classification{}

	if got := ResolveSource(true, OverrideForceNative, clean); got != SourceOCR {
		t.Fatalf("forceOcrAll should win, got %v", got)
	}
	if got := ResolveSource(false, OverrideForceNative, needs); got != SourceNative {
		t.Fatalf("user force_native should beat classification, got %v", got)
	}
	if got := ResolveSource(false, OverrideForceOCR, clean); got != SourceOCR {
		t.Fatalf("user force_ocr should beat classification, got %v", got)
	}
	if got := ResolveSource(false, OverrideNone, needs); got != SourceOCR {
		t.Fatalf("classification should decide without overrides, got %v", got)
	}
	if got := ResolveSource(false, OverrideNone, clean); got != SourceNative {
		t.Fatalf("clean page should stay native, got %v", got)
	}
}

func TestClassifyIsStateless(t *testing.T) {
	stats := baseStats()
	first := Classify(stats, cleanText, config.Default().Classify)
	second := Classify(stats, cleanText, config.Default().Classify)
	if first.NeedsOCR != second.NeedsOCR || first.Reason != second.Reason ||
		strings.Join(flagStrings(first), ",") != strings.Join(flagStrings(second), ",") {
		t.Fatalf("classification differs across identical calls: %+v vs %+v", first, second)
	}
}

func flagStrings(c Classification) []string {
	out := make([]string, len(c.QualityFlags))
	for i, f := range c.QualityFlags {
		out[i] = string(f)
	}
	return out
}
