package pipeline

import (
	"fmt"

	"github.com/cliniscan/doctext/capture"
	"github.com/cliniscan/doctext/ocr"
)

// OCRInputsFromCapture turns an exported capture queue into the page inputs
// of a worker request. Each page's crop is forwarded verbatim; the export
// already normalized it.
func OCRInputsFromCapture(pages []capture.ExportedPage, opts ...ocr.InputOption) []ocr.Input {
	inputs := make([]ocr.Input, 0, len(pages))
	for _, p := range pages {
		in := ocr.Input{
			ID:        fmt.Sprintf("capture-%d", p.PageIndex),
			PageIndex: p.PageIndex,
			Image:     p.Image,
			Format:    ocr.ImageFormatPNG,
			Width:     p.Width,
			Height:    p.Height,
			Crop:      p.Crop,
		}
		for _, opt := range opts {
			opt(&in)
		}
		inputs = append(inputs, in)
	}
	return inputs
}
