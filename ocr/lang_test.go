package ocr

import "testing"

func TestLanguageHintsEnglish(t *testing.T) {
	text := "Flexible bronchoscopy was performed under moderate sedation. " +
		"The airways were inspected to the subsegmental level without difficulty."
	hints := LanguageHints(text)
	if len(hints) != 1 || hints[0] != "eng" {
		t.Fatalf("LanguageHints() = %v, want [eng]", hints)
	}
}

func TestLanguageHintsShortTextGivesNoHint(t *testing.T) {
	if hints := LanguageHints("Findings:"); hints != nil {
		t.Fatalf("short text produced hints: %v", hints)
	}
}
