// Package layout reconstructs the spatial structure of a page from positioned
// text fragments: it clusters fragments into rows and blocks, scores
// figure-overlap contamination, estimates extraction completeness, and
// assembles block content back into reading-order text.
package layout

import (
	"sort"
	"unicode/utf8"

	"github.com/cliniscan/doctext/config"
	"github.com/cliniscan/doctext/geo"
)

// TextItem is one positioned text fragment from the PDF extraction layer.
// Coordinates follow PDF conventions: Y grows toward the top of the page.
// Items are never mutated.
type TextItem struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// Index is the fragment's position in the extraction order and is the
	// item's identity throughout the pipeline.
	Index int `json:"index"`
}

// Region returns the item's bounding box.
func (it TextItem) Region() geo.Region {
	return geo.Region{X: it.X, Y: it.Y, Width: it.Width, Height: it.Height}
}

// Block is an ordered group of items forming one visual paragraph or column
// segment. Rows preserve top-to-bottom order; items within a row are sorted
// left to right. Blocks are rebuilt fresh per page.
type Block struct {
	Rows [][]TextItem
}

// Items returns the block's items in reading order.
func (b *Block) Items() []TextItem {
	var out []TextItem
	for _, row := range b.Rows {
		out = append(out, row...)
	}
	return out
}

func (b *Block) span() (minX, maxX float64) {
	last := b.Rows[len(b.Rows)-1]
	minX = last[0].X
	maxX = last[0].X + last[0].Width
	for _, it := range last[1:] {
		if it.X < minX {
			minX = it.X
		}
		if r := it.X + it.Width; r > maxX {
			maxX = r
		}
	}
	return minX, maxX
}

// BuildBlocks clusters items into rows by vertical proximity and splits rows
// into blocks at large horizontal gaps. Every input item appears in exactly
// one block, and blocks come out in reading order: top to bottom, left to
// right within a vertical band.
func BuildBlocks(items []TextItem, cfg config.Layout) []*Block {
	if len(items) == 0 {
		return nil
	}

	rows := clusterRows(items, cfg.RowJitter)
	gap := gapThreshold(items, cfg.BlockGapGlyphMultiplier)

	var blocks []*Block
	// Open blocks from the previous row, keyed by their horizontal span.
	type open struct {
		block  *Block
		rowIdx int
		lo, hi float64
	}
	var opens []open

	for rowIdx, row := range rows {
		segments := splitRowSegments(row, gap)
		var nextOpens []open
		for _, seg := range segments {
			lo := seg[0].X
			hi := seg[len(seg)-1].X + seg[len(seg)-1].Width

			var target *Block
			for i, o := range opens {
				if o.rowIdx != rowIdx-1 {
					continue
				}
				if o.hi <= lo || o.lo >= hi {
					continue // no horizontal overlap
				}
				target = o.block
				opens = append(opens[:i], opens[i+1:]...)
				break
			}
			if target == nil {
				target = &Block{}
				blocks = append(blocks, target)
			}
			target.Rows = append(target.Rows, seg)
			nextOpens = append(nextOpens, open{block: target, rowIdx: rowIdx, lo: lo, hi: hi})
		}
		opens = nextOpens
	}
	return blocks
}

// clusterRows groups items into rows, tolerating small vertical jitter so a
// wobbling baseline stays on one line. Rows come out top-first.
func clusterRows(items []TextItem, jitter float64) [][]TextItem {
	sorted := make([]TextItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y // larger Y is higher on the page
		}
		return sorted[i].X < sorted[j].X
	})

	var rows [][]TextItem
	var current []TextItem
	refY := 0.0
	for _, it := range sorted {
		if current == nil {
			current = []TextItem{it}
			refY = it.Y
			continue
		}
		if refY-it.Y <= jitter {
			current = append(current, it)
			continue
		}
		rows = append(rows, sortRow(current))
		current = []TextItem{it}
		refY = it.Y
	}
	if current != nil {
		rows = append(rows, sortRow(current))
	}
	return rows
}

func sortRow(row []TextItem) []TextItem {
	sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
	return row
}

// splitRowSegments cuts a row at horizontal gaps wider than the threshold.
func splitRowSegments(row []TextItem, gap float64) [][]TextItem {
	var segments [][]TextItem
	var current []TextItem
	for _, it := range row {
		if len(current) == 0 {
			current = []TextItem{it}
			continue
		}
		prev := current[len(current)-1]
		if it.X-(prev.X+prev.Width) > gap {
			segments = append(segments, current)
			current = []TextItem{it}
			continue
		}
		current = append(current, it)
	}
	if len(current) > 0 {
		segments = append(segments, current)
	}
	return segments
}

// gapThreshold derives the block-splitting gap from the average glyph width
// across the page, so dense and sparse pages split consistently.
func gapThreshold(items []TextItem, multiplier float64) float64 {
	var width float64
	var glyphs int
	for _, it := range items {
		width += it.Width
		glyphs += utf8.RuneCountInString(it.Text)
	}
	if glyphs == 0 {
		return multiplier
	}
	return (width / float64(glyphs)) * multiplier
}
