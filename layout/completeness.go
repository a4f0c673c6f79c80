package layout

import "github.com/cliniscan/doctext/config"

// CompletenessInputs are the page-level signals completeness estimation
// reads. All ratios are in [0,1].
type CompletenessInputs struct {
	CharCount           int
	SingleCharItemRatio float64
	NonPrintableRatio   float64
	ImageOpCount        int
	BlockCount          int
	ContaminationScore  float64
}

// EstimateCompleteness starts at full confidence and subtracts a penalty per
// risk signal, flooring at zero. The result is non-increasing as any single
// risk input rises with the others held fixed.
func EstimateCompleteness(in CompletenessInputs, cfg config.Completeness) float64 {
	confidence := 1.0

	if in.CharCount < cfg.MinCharCount && cfg.MinCharCount > 0 {
		deficit := 1.0 - float64(in.CharCount)/float64(cfg.MinCharCount)
		confidence -= cfg.LowCharPenalty * deficit
	}

	confidence -= scaledPenalty(in.SingleCharItemRatio, cfg.SingleCharItemGate, cfg.SingleCharItemPenalty)
	confidence -= scaledPenalty(in.NonPrintableRatio, cfg.NonPrintableGate, cfg.NonPrintablePenalty)

	blocks := in.BlockCount
	if blocks < 1 {
		blocks = 1
	}
	opsPerBlock := float64(in.ImageOpCount) / float64(blocks)
	confidence -= scaledPenalty(opsPerBlock, cfg.ImageOpPerBlockGate, cfg.ImageOpPerBlockPenalty)

	confidence -= cfg.ContaminationWeight * in.ContaminationScore

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// scaledPenalty ramps from 0 at the gate up to the full penalty at twice the
// gate, so crossing a gate slightly does not cliff the confidence.
func scaledPenalty(value, gate, penalty float64) float64 {
	if gate <= 0 || value <= gate {
		return 0
	}
	frac := (value - gate) / gate
	if frac > 1 {
		frac = 1
	}
	return penalty * frac
}
