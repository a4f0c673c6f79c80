// Package ocr defines the worker-boundary contract for OCR recognition and
// the postprocessing that turns raw recognized lines into usable page text.
// Engines are black boxes: image in, recognized lines with boxes and
// confidence out. They can be local libraries or remote workers without
// leaking provider concerns into callers.
package ocr

import (
	"context"

	"github.com/cliniscan/doctext/geo"
)

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
)

// Zone is the optional header-region tag disambiguating lines recognized
// from fixed layouts (for example header_left vs header_right).
type Zone struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// Line is one recognized line. Text, confidence, and bounds are always
// present; zoning is an optional extension.
type Line struct {
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"` // 0..100
	Bounds     geo.Region `json:"bbox"`
	Zone       *Zone      `json:"zone,omitempty"`
}

// Input is one page image submitted for recognition.
type Input struct {
	// ID is echoed back in the result for correlation.
	ID string
	// PageIndex ties the input to its document page; replies may arrive
	// out of order, so this is the only page identity that matters.
	PageIndex int
	Image     []byte
	Format    ImageFormat
	Width     int
	Height    int
	// Crop restricts recognition to a normalized sub-rectangle of the
	// image. Nil means the full image.
	Crop *geo.Crop
	// DPI is the effective dots-per-inch; zero means unknown.
	DPI int
	// Languages holds trained-data hints such as "eng" or "spa".
	Languages []string
	// Metadata passes engine-specific knobs through without hard-coding
	// them into the API surface.
	Metadata map[string]string
}

// PageResult is the recognition output for one page.
type PageResult struct {
	InputID   string            `json:"inputId,omitempty"`
	PageIndex int               `json:"pageIndex"`
	Text      string            `json:"text"`
	Lines     []Line            `json:"lines"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// JobRequest batches one or more page inputs under a single job ID.
type JobRequest struct {
	JobID string
	Pages []Input
}

// JobReply carries the per-page results for a job. Page order within a reply
// is not guaranteed to match submission order.
type JobReply struct {
	JobID string
	Pages []PageResult
}

// Engine is the simplest provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (PageResult, error)
}

// BatchEngine handles several inputs in one call, for providers that
// amortize setup costs or remote round-trips.
type BatchEngine interface {
	Engine
	RecognizeBatch(ctx context.Context, inputs []Input) ([]PageResult, error)
}
