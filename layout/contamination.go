package layout

import (
	"unicode/utf8"

	"github.com/cliniscan/doctext/config"
	"github.com/cliniscan/doctext/geo"
)

// OverlapRatio returns the fraction of total text-region area that falls
// inside a figure region, with figures expanded by margin so glyphs hugging a
// figure border still count.
func OverlapRatio(textRegions, imageRegions []geo.Region, margin float64) float64 {
	if len(textRegions) == 0 || len(imageRegions) == 0 {
		return 0
	}
	expanded := make([]geo.Region, len(imageRegions))
	for i, r := range imageRegions {
		expanded[i] = r.Expand(margin)
	}
	var total, inside float64
	for _, tr := range textRegions {
		area := tr.Area()
		if area == 0 {
			continue
		}
		total += area
		best := 0.0
		for _, fig := range expanded {
			if f := tr.OverlapFraction(fig); f > best {
				best = f
			}
		}
		inside += area * best
	}
	if total == 0 {
		return 0
	}
	return inside / total
}

// Contamination records which items overlap figure regions and the derived
// ratios the contamination score is built from.
type Contamination struct {
	// Flagged maps an item Index to true when its figure overlap exceeds
	// the configured threshold.
	Flagged map[int]bool
	// ContaminatedRatio is the fraction of items flagged.
	ContaminatedRatio float64
	// ShortContaminatedRatio is the fraction of items that are flagged and
	// at most two runes long, near-certain figure-label noise.
	ShortContaminatedRatio float64

	shortTokenMax int
}

// IsExcluded reports whether an item should be dropped from assembled text:
// flagged as contaminated and short enough to be figure-label noise.
func (c Contamination) IsExcluded(it TextItem) bool {
	return c.Flagged[it.Index] && utf8.RuneCountInString(it.Text) <= c.shortTokenMax
}

// MarkContaminated flags per-item figure overlap above the configured
// threshold and derives the short-contamination ratio.
func MarkContaminated(items []TextItem, imageRegions []geo.Region, cfg config.Layout) Contamination {
	c := Contamination{
		Flagged:       make(map[int]bool, len(items)),
		shortTokenMax: cfg.ShortTokenMaxRunes,
	}
	if len(items) == 0 {
		return c
	}
	expanded := make([]geo.Region, len(imageRegions))
	for i, r := range imageRegions {
		expanded[i] = r.Expand(cfg.ContaminationMargin)
	}

	flagged, short := 0, 0
	for _, it := range items {
		region := it.Region()
		hit := false
		for _, fig := range expanded {
			if region.OverlapFraction(fig) >= cfg.MinItemOverlapRatio {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		c.Flagged[it.Index] = true
		flagged++
		if utf8.RuneCountInString(it.Text) <= cfg.ShortTokenMaxRunes {
			short++
		}
	}
	n := float64(len(items))
	c.ContaminatedRatio = float64(flagged) / n
	c.ShortContaminatedRatio = float64(short) / n
	return c
}

// ScoreInputs are the normalized contamination signals, each in [0,1].
type ScoreInputs struct {
	OverlapRatio           float64
	ContaminatedRatio      float64
	ShortContaminatedRatio float64
	ExcludedTokenRatio     float64
}

// ScoreContamination combines the signals into one scalar in [0,1], monotonic
// in each input. Short contaminated tokens carry the heaviest weight.
func ScoreContamination(in ScoreInputs, w config.Contamination) float64 {
	score := in.OverlapRatio*w.OverlapWeight +
		in.ContaminatedRatio*w.ContaminatedWeight +
		in.ShortContaminatedRatio*w.ShortContaminatedWeight +
		in.ExcludedTokenRatio*w.ExcludedTokenWeight
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
