package ocr

import "regexp"

// clinicalCorrections is a fixed list of narrow, high-precision fixes for
// dosage and terminology misreads the recognizer makes on procedure reports.
// Each rule is anchored tightly enough that it cannot touch a legitimate
// value ("Atropine 9.5 mg" is a misread of 0.5; "19.5 mg" is real and must
// survive). This is not, and must never grow into, a general spellchecker.
var clinicalCorrections = []struct {
	pattern *regexp.Regexp
	replace string
}{
	// Percent misreads: the recognizer fuses the digit with the glyph
	// after it. Lidocaine is only ever given topically at 1, 2, or 4%.
	{regexp.MustCompile(`(?i)\b(lidocaine\s+)49%`), "${1}4%"},
	{regexp.MustCompile(`(?i)\b(lidocaine\s+)19%`), "${1}1%"},
	// Dose misreads: a leading 0 read as 9. Word boundary keeps 19.5
	// and other composite values intact.
	{regexp.MustCompile(`(?i)\b(atropine\s+)9\.5(\s*mg)\b`), "${1}0.5${2}"},
	{regexp.MustCompile(`(?i)\b(epinephrine\s+)9\.3(\s*mg)\b`), "${1}0.3${2}"},
	// "rng"/"rnl" are the classic broken-m unit misreads.
	{regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?\s*)rng\b`), "${1}mg"},
	{regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?\s*)rnl\b`), "${1}ml"},
	// Terminology misspellings seen consistently in recognizer output.
	{regexp.MustCompile(`\bIidocaine\b`), "Lidocaine"},
	{regexp.MustCompile(`\bbronch0scop`), "bronchoscop"},
	{regexp.MustCompile(`\bmainstern\b`), "mainstem"},
	{regexp.MustCompile(`\btrachea1\b`), "tracheal"},
}

// ApplyClinicalHeuristics runs the fixed correction list over composed OCR
// text. Text that matches no rule passes through unchanged.
func ApplyClinicalHeuristics(text string) string {
	for _, c := range clinicalCorrections {
		text = c.pattern.ReplaceAllString(text, c.replace)
	}
	return text
}
