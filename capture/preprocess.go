package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// PrepareForOCR converts a captured frame to grayscale and scales its longest
// side down to maxDim when it exceeds it. Upscaling is never performed.
func PrepareForOCR(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	outW, outH := w, h
	if maxDim > 0 && (w > maxDim || h > maxDim) {
		if w >= h {
			outW = maxDim
			outH = h * maxDim / w
		} else {
			outH = maxDim
			outW = w * maxDim / h
		}
		if outW < 1 {
			outW = 1
		}
		if outH < 1 {
			outH = 1
		}
	}
	gray := image.NewGray(image.Rect(0, 0, outW, outH))
	xdraw.CatmullRom.Scale(gray, gray.Bounds(), img, bounds, xdraw.Src, nil)
	return gray
}

// EncodePNG serializes an image to PNG bytes for an OCR input.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding capture as png: %w", err)
	}
	return buf.Bytes(), nil
}
