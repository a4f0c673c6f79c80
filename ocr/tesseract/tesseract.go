// Package tesseract provides a gosseract-backed local OCR engine, mostly for
// the CLI and tests; production deployments talk to an out-of-process worker
// through the same ocr.Engine contract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/cliniscan/doctext/geo"
	"github.com/cliniscan/doctext/ocr"
)

// Engine implements ocr.Engine and ocr.BatchEngine using the gosseract
// client.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed OCR engine.
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize performs OCR on a single page image.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.PageResult, error) {
	c := e.clientFactory()
	defer c.Close()
	return e.recognizeWithClient(ctx, c, in)
}

// RecognizeBatch processes inputs sequentially, one client per input so a
// failed page cannot poison the next one's variables.
func (e *Engine) RecognizeBatch(ctx context.Context, inputs []ocr.Input) ([]ocr.PageResult, error) {
	results := make([]ocr.PageResult, 0, len(inputs))
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		c := e.clientFactory()
		res, err := e.recognizeWithClient(ctx, c, in)
		c.Close()
		if err != nil {
			return nil, fmt.Errorf("recognize page %d: %w", in.PageIndex, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) recognizeWithClient(_ context.Context, c *gosseract.Client, in ocr.Input) (ocr.PageResult, error) {
	imgData, err := cropImage(in.Image, in.Crop)
	if err != nil {
		return ocr.PageResult{}, err
	}
	if err := c.SetImageFromBytes(imgData); err != nil {
		return ocr.PageResult{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.PageResult{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return ocr.PageResult{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range in.Metadata {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.PageResult{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return ocr.PageResult{}, fmt.Errorf("recognize text: %w", err)
	}

	return ocr.PageResult{
		InputID:   in.ID,
		PageIndex: in.PageIndex,
		Text:      strings.TrimSpace(text),
		Lines:     extractLines(c),
		Meta:      map[string]string{"engine": "tesseract"},
	}, nil
}

func extractLines(c *gosseract.Client) []ocr.Line {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	lines := make([]ocr.Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, ocr.Line{
			Text:       text,
			Confidence: b.Confidence,
			Bounds: geo.Region{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
		})
	}
	return lines
}

// cropImage applies a normalized crop to the encoded image. Degenerate crops
// are treated as no-crop.
func cropImage(data []byte, crop *geo.Crop) ([]byte, error) {
	if crop == nil || crop.IsDegenerate() {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode for crop: %w", err)
	}
	n := crop.Normalize()
	bounds := img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	rect := image.Rect(
		bounds.Min.X+int(math.Round(n.X0*w)),
		bounds.Min.Y+int(math.Round(n.Y0*h)),
		bounds.Min.X+int(math.Round(n.X1*w)),
		bounds.Min.Y+int(math.Round(n.Y1*h)),
	).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("crop outside image bounds")
	}
	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("image does not support sub-image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), nil
}
