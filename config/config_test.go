package config

import (
	"math"
	"testing"
)

func TestDefaultContaminationWeightsSumToOne(t *testing.T) {
	w := Default().Contamination
	sum := w.OverlapWeight + w.ContaminatedWeight + w.ShortContaminatedWeight + w.ExcludedTokenWeight
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("contamination weights sum to %v, want 1.0", sum)
	}
}

func TestDefaultBackfillIsStricterThanSingleWeakVote(t *testing.T) {
	c := Default().Classify
	if c.BackfillSeverityThreshold <= 1 {
		t.Fatalf("severity threshold %d allows a single weak vote", c.BackfillSeverityThreshold)
	}
	if c.BackfillMinSignals < 2 {
		t.Fatalf("min signals %d allows a single signal", c.BackfillMinSignals)
	}
}

func TestDefaultUnsafeBarIsHigher(t *testing.T) {
	c := Default().Classify
	if c.UnsafeMinCompleteness <= c.MinCompletenessConfidence {
		t.Fatalf("unsafe bar %v should exceed needs-ocr bar %v",
			c.UnsafeMinCompleteness, c.MinCompletenessConfidence)
	}
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	data := []byte("classify:\n  max_contamination_score: 0.5\n")
	cfg, err := FromYAML(data)
	if err != nil {
		t.Fatalf("FromYAML() error = %v", err)
	}
	if cfg.Classify.MaxContaminationScore != 0.5 {
		t.Fatalf("override not applied: %v", cfg.Classify.MaxContaminationScore)
	}
	if cfg.Classify.MinCompletenessConfidence != Default().Classify.MinCompletenessConfidence {
		t.Fatalf("untouched field lost its default")
	}
}

func TestFromYAMLRejectsGarbage(t *testing.T) {
	if _, err := FromYAML([]byte("{not yaml")); err == nil {
		t.Fatalf("expected parse error")
	}
}
