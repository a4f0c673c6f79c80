// Package config gathers every heuristic threshold used by the text recovery
// pipeline into one named structure. Defaults are tuned against a labeled
// clinical corpus; tests and callers override individual fields rather than
// scattering literals through the code.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout controls block building and contamination scoring.
type Layout struct {
	// RowJitter is the vertical tolerance (page units) that absorbs
	// same-line baseline wobble when clustering items into rows.
	RowJitter float64 `yaml:"row_jitter"`
	// BlockGapGlyphMultiplier splits a row into separate blocks when the
	// horizontal gap exceeds this multiple of the average glyph width.
	BlockGapGlyphMultiplier float64 `yaml:"block_gap_glyph_multiplier"`
	// CellGapGlyphMultiplier is the finer gap used to split label/value
	// table rows into cells during zipping. Smaller than the block gap so
	// cell boundaries inside a block are still found.
	CellGapGlyphMultiplier float64 `yaml:"cell_gap_glyph_multiplier"`
	// ContaminationMargin expands figure regions before overlap tests so
	// glyphs hugging a figure border still count as overlapping.
	ContaminationMargin float64 `yaml:"contamination_margin"`
	// MinItemOverlapRatio is the per-item overlap fraction above which an
	// item is flagged as contaminated.
	MinItemOverlapRatio float64 `yaml:"min_item_overlap_ratio"`
	// ShortTokenMaxRunes caps the length of a "short" token; contaminated
	// short tokens are near-certain figure-label noise.
	ShortTokenMaxRunes int `yaml:"short_token_max_runes"`
}

// Completeness holds the penalty schedule for extraction-completeness
// estimation. Each penalty is subtracted from a starting confidence of 1.0.
type Completeness struct {
	// MinCharCount is the character count below which the low-content
	// penalty applies, scaled by how far below the gate the page falls.
	MinCharCount int `yaml:"min_char_count"`
	// LowCharPenalty is the maximum penalty for a near-empty page.
	LowCharPenalty float64 `yaml:"low_char_penalty"`
	// SingleCharItemGate is the single-character-item ratio above which
	// fragmentation is penalized.
	SingleCharItemGate    float64 `yaml:"single_char_item_gate"`
	SingleCharItemPenalty float64 `yaml:"single_char_item_penalty"`
	// NonPrintableGate is the non-printable glyph ratio above which the
	// encoding penalty applies.
	NonPrintableGate    float64 `yaml:"non_printable_gate"`
	NonPrintablePenalty float64 `yaml:"non_printable_penalty"`
	// ImageOpPerBlockGate penalizes pages whose image-operation count
	// dwarfs the number of text blocks (figure-dominated pages).
	ImageOpPerBlockGate    float64 `yaml:"image_op_per_block_gate"`
	ImageOpPerBlockPenalty float64 `yaml:"image_op_per_block_penalty"`
	// ContaminationWeight scales the contamination score's direct
	// contribution to the completeness penalty.
	ContaminationWeight float64 `yaml:"contamination_weight"`
}

// Contamination holds the weights of the contamination score. Weights sum to
// 1.0 so the score stays in [0,1]; short contaminated tokens carry the most
// weight because they are the strongest figure-noise signal.
type Contamination struct {
	OverlapWeight           float64 `yaml:"overlap_weight"`
	ContaminatedWeight      float64 `yaml:"contaminated_weight"`
	ShortContaminatedWeight float64 `yaml:"short_contaminated_weight"`
	ExcludedTokenWeight     float64 `yaml:"excluded_token_weight"`
}

// Classify gates the page classifier and its backfill voting.
type Classify struct {
	// MinCompletenessConfidence below which LowCompleteness fires.
	MinCompletenessConfidence float64 `yaml:"min_completeness_confidence"`
	// MaxContaminationScore above which ContaminationRisk fires.
	MaxContaminationScore float64 `yaml:"max_contamination_score"`
	// NativeDenseMinDensity (chars per page-area unit) above which the
	// page is treated as genuinely digital and OCR flags are overridden.
	NativeDenseMinDensity float64 `yaml:"native_dense_min_density"`
	// UnsafeMinCompleteness is the stricter bar used when OCR is not
	// available to repair the page.
	UnsafeMinCompleteness float64 `yaml:"unsafe_min_completeness"`
	// ShortLineRatioGate is the fraction of abnormally short lines that
	// casts a weak backfill vote.
	ShortLineRatioGate float64 `yaml:"short_line_ratio_gate"`
	// BackfillSeverityThreshold is the minimum combined vote weight
	// (strong=2, weak=1) before backfill may fire.
	BackfillSeverityThreshold int `yaml:"backfill_severity_threshold"`
	// BackfillMinSignals is the minimum number of independent agreeing
	// signals; a single weak signal must never trigger backfill.
	BackfillMinSignals int `yaml:"backfill_min_signals"`
}

// Filter controls OCR line filtering.
type Filter struct {
	// FigureOverlapThreshold is the line-bbox overlap fraction with a
	// figure region above which the line is dropped as figure noise.
	FigureOverlapThreshold float64 `yaml:"figure_overlap_threshold"`
	// ShortLowConfMaxRunes and ShortLowConfThreshold together drop short
	// low-confidence recognition noise such as "O0".
	ShortLowConfMaxRunes  int     `yaml:"short_low_conf_max_runes"`
	ShortLowConfThreshold float64 `yaml:"short_low_conf_threshold"`
	// DisableFigureOverlap turns off figure-overlap dropping for scanned
	// photo pages where every line overlaps the photograph.
	DisableFigureOverlap bool `yaml:"disable_figure_overlap"`
}

// Fuse gates native/OCR arbitration.
type Fuse struct {
	// NearEmptyMaxRunes treats native text at or below this length as
	// effectively absent.
	NearEmptyMaxRunes int `yaml:"near_empty_max_runes"`
	// HybridMaxCompleteness and HybridMinContamination define "suspect"
	// pages eligible for hybrid merging.
	HybridMaxCompleteness  float64 `yaml:"hybrid_max_completeness"`
	HybridMinContamination float64 `yaml:"hybrid_min_contamination"`
	// HybridMinNewLines and HybridMinNewChars define what counts as OCR
	// recovering materially more distinct line content.
	HybridMinNewLines int `yaml:"hybrid_min_new_lines"`
	HybridMinNewChars int `yaml:"hybrid_min_new_chars"`
}

// Gate holds the orchestrator's arbitration gate.
type Gate struct {
	MinCompletenessConfidence float64 `yaml:"min_completeness_confidence"`
	MaxContaminationScore     float64 `yaml:"max_contamination_score"`
	// HardBlockWhenUnsafeWithoutOCR marks unsafe native pages as blocked
	// when no OCR is available, so callers surface a warning.
	HardBlockWhenUnsafeWithoutOCR bool `yaml:"hard_block_when_unsafe_without_ocr"`
}

// Client tunes the asynchronous OCR client.
type Client struct {
	// PagesPerSecond rate-limits recognition dispatch; zero disables.
	PagesPerSecond float64 `yaml:"pages_per_second"`
	Burst          int     `yaml:"burst"`
	// MaxConcurrentPages bounds per-job recognition parallelism.
	MaxConcurrentPages int `yaml:"max_concurrent_pages"`
}

// Config is the complete threshold set for the pipeline.
type Config struct {
	Layout        Layout        `yaml:"layout"`
	Completeness  Completeness  `yaml:"completeness"`
	Contamination Contamination `yaml:"contamination"`
	Classify      Classify      `yaml:"classify"`
	Filter        Filter        `yaml:"filter"`
	Fuse          Fuse          `yaml:"fuse"`
	Gate          Gate          `yaml:"gate"`
	Client        Client        `yaml:"client"`
}

// Default returns the tuned default configuration.
func Default() Config {
	return Config{
		Layout: Layout{
			RowJitter:               5.0,
			BlockGapGlyphMultiplier: 2.5,
			CellGapGlyphMultiplier:  1.0,
			ContaminationMargin:     2.0,
			MinItemOverlapRatio:     0.5,
			ShortTokenMaxRunes:      2,
		},
		Completeness: Completeness{
			MinCharCount:           120,
			LowCharPenalty:         0.35,
			SingleCharItemGate:     0.3,
			SingleCharItemPenalty:  0.25,
			NonPrintableGate:       0.02,
			NonPrintablePenalty:    0.2,
			ImageOpPerBlockGate:    3.0,
			ImageOpPerBlockPenalty: 0.15,
			ContaminationWeight:    0.4,
		},
		Contamination: Contamination{
			OverlapWeight:           0.25,
			ContaminatedWeight:      0.3,
			ShortContaminatedWeight: 0.35,
			ExcludedTokenWeight:     0.1,
		},
		Classify: Classify{
			MinCompletenessConfidence: 0.7,
			MaxContaminationScore:     0.35,
			NativeDenseMinDensity:     0.004,
			UnsafeMinCompleteness:     0.85,
			ShortLineRatioGate:        0.45,
			BackfillSeverityThreshold: 3,
			BackfillMinSignals:        2,
		},
		Filter: Filter{
			FigureOverlapThreshold: 0.6,
			ShortLowConfMaxRunes:   8,
			ShortLowConfThreshold:  40,
		},
		Fuse: Fuse{
			NearEmptyMaxRunes:      12,
			HybridMaxCompleteness:  0.7,
			HybridMinContamination: 0.2,
			HybridMinNewLines:      1,
			HybridMinNewChars:      24,
		},
		Gate: Gate{
			MinCompletenessConfidence:     0.7,
			MaxContaminationScore:         0.35,
			HardBlockWhenUnsafeWithoutOCR: true,
		},
		Client: Client{
			PagesPerSecond:     4,
			Burst:              2,
			MaxConcurrentPages: 2,
		},
	}
}

// FromYAML overlays YAML data onto the defaults, so a partial file only
// overrides the fields it names.
func FromYAML(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load reads a YAML config file and overlays it onto the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return FromYAML(data)
}
