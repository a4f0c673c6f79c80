package ocr

import (
	"testing"

	"github.com/cliniscan/doctext/config"
	"github.com/cliniscan/doctext/geo"
)

func TestFilterLinesDropsFigureNoise(t *testing.T) {
	figure := []geo.Region{{X: 100, Y: 100, Width: 300, Height: 200}}
	lines := []Line{
		{Text: "O77 O00", Confidence: 12, Bounds: geo.Region{X: 150, Y: 150, Width: 60, Height: 14}},
		{Text: "Extrinsic compression noted in the left mainstem.", Confidence: 79,
			Bounds: geo.Region{X: 40, Y: 500, Width: 380, Height: 14}},
	}
	kept, dropped := FilterLinesDetailed(lines, figure, config.Default().Filter)
	if len(kept) != 1 {
		t.Fatalf("kept %d lines, want 1", len(kept))
	}
	if got := ComposePageText(kept); got != "Extrinsic compression noted in the left mainstem." {
		t.Fatalf("compose = %q", got)
	}
	if len(dropped) != 1 || dropped[0].Reason != DropFigureOverlap {
		t.Fatalf("unexpected drops: %+v", dropped)
	}
}

func TestFilterLinesIdempotent(t *testing.T) {
	figure := []geo.Region{{X: 100, Y: 100, Width: 300, Height: 200}}
	lines := []Line{
		{Text: "Page 10f3", Confidence: 61, Bounds: geo.Region{X: 250, Y: 760, Width: 70, Height: 10}},
		{Text: "The airways were inspected to the subsegmental level.", Confidence: 88,
			Bounds: geo.Region{X: 40, Y: 400, Width: 400, Height: 14}},
		{Text: "Secretions were suctioned clear bilaterally.", Confidence: 83,
			Bounds: geo.Region{X: 40, Y: 380, Width: 340, Height: 14}},
	}
	cfg := config.Default().Filter
	once, _ := FilterLinesDetailed(lines, figure, cfg)
	twice, dropped := FilterLinesDetailed(once, figure, cfg)
	if len(twice) != len(once) || len(dropped) != 0 {
		t.Fatalf("second pass changed output: %d -> %d, drops %+v", len(once), len(twice), dropped)
	}
}

func TestFilterLinesBoilerplateToleratesGarbling(t *testing.T) {
	cases := []string{"Page 1 of 3", "Page 10f3", "page 2 0f 12"}
	for _, text := range cases {
		kept, dropped := FilterLinesDetailed([]Line{{Text: text, Confidence: 80}}, nil, config.Default().Filter)
		if len(kept) != 0 || dropped[0].Reason != DropBoilerplate {
			t.Fatalf("%q not dropped as boilerplate: kept=%v drops=%+v", text, kept, dropped)
		}
	}
}

func TestFilterLinesAnatomyCaptionRule(t *testing.T) {
	cfg := config.Default().Filter
	caption := Line{Text: "Left upper lobe", Confidence: 90}
	finding := Line{Text: "Left upper lobe appeared patent.", Confidence: 90}

	kept, dropped := FilterLinesDetailed([]Line{caption, finding}, nil, cfg)
	if len(kept) != 1 || kept[0].Text != finding.Text {
		t.Fatalf("verb-bearing line lost or caption kept: %+v", kept)
	}
	if dropped[0].Reason != DropFigureCaption {
		t.Fatalf("caption dropped for the wrong reason: %+v", dropped)
	}
}

func TestFilterLinesDisableFigureOverlap(t *testing.T) {
	cfg := config.Default().Filter
	cfg.DisableFigureOverlap = true
	figure := []geo.Region{{X: 0, Y: 0, Width: 1000, Height: 1000}}
	line := Line{Text: "Scanned photo page with a real finding documented.", Confidence: 75,
		Bounds: geo.Region{X: 100, Y: 100, Width: 400, Height: 14}}
	kept, _ := FilterLinesDetailed([]Line{line}, figure, cfg)
	if len(kept) != 1 {
		t.Fatalf("overlap filtering should be disabled, kept %d", len(kept))
	}
}

func TestFilterLinesEmptyResultIsValid(t *testing.T) {
	lines := []Line{{Text: "O0", Confidence: 8}}
	kept, _ := FilterLinesDetailed(lines, nil, config.Default().Filter)
	if len(kept) != 0 {
		t.Fatalf("noise survived: %+v", kept)
	}
	if got := ComposePageText(kept); got != "" {
		t.Fatalf("compose of empty set = %q", got)
	}
}

func TestDedupeConsecutiveLines(t *testing.T) {
	lines := []Line{
		{Text: "Regional Medical Center"},
		{Text: "REGIONAL MEDICAL CENTER"},
		{Text: "Findings:"},
		{Text: "Regional Medical Center"},
	}
	out := DedupeConsecutiveLines(lines)
	if len(out) != 3 {
		t.Fatalf("dedupe kept %d lines, want 3", len(out))
	}
	if out[0].Text != "Regional Medical Center" || out[1].Text != "Findings:" {
		t.Fatalf("unexpected order: %+v", out)
	}
}
