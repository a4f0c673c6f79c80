package layout

import (
	"strings"
	"unicode/utf8"

	"github.com/cliniscan/doctext/config"
)

// AssembleText joins blocks back into reading-order page text. Contaminated
// short tokens are dropped, and a block that looks like a two-row label/value
// table is zipped so each label meets its value on one line. Returns the
// assembled text and the number of tokens excluded as contamination noise.
func AssembleText(blocks []*Block, contamination Contamination, cfg config.Layout) (string, int) {
	var parts []string
	excluded := 0

	for _, block := range blocks {
		rows := make([][]TextItem, 0, len(block.Rows))
		for _, row := range block.Rows {
			kept := make([]TextItem, 0, len(row))
			for _, it := range row {
				if contamination.IsExcluded(it) {
					excluded++
					continue
				}
				kept = append(kept, it)
			}
			if len(kept) > 0 {
				rows = append(rows, kept)
			}
		}
		if len(rows) == 0 {
			continue
		}

		if labels, values, ok := labelValueRows(rows, cfg); ok {
			parts = append(parts, zipLabelValue(labels, values))
			continue
		}

		var lines []string
		for _, row := range rows {
			lines = append(lines, rowText(row))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	return strings.Join(parts, "\n"), excluded
}

// segment is a horizontally contiguous run of items within one row.
type segment struct {
	items []TextItem
}

func (s segment) text() string { return rowText(s.items) }

func (s segment) left() float64 { return s.items[0].X }

func (s segment) right() float64 {
	last := s.items[len(s.items)-1]
	return last.X + last.Width
}

func (s segment) center() float64 { return (s.left() + s.right()) / 2 }

// labelValueRows reports whether the block is a two-row label/value table: a
// short label row directly above a column-aligned value row.
func labelValueRows(rows [][]TextItem, cfg config.Layout) ([]segment, []segment, bool) {
	if len(rows) != 2 {
		return nil, nil, false
	}
	all := append(append([]TextItem{}, rows[0]...), rows[1]...)
	gap := gapThreshold(all, cfg.CellGapGlyphMultiplier)

	labels := rowSegments(rows[0], gap)
	values := rowSegments(rows[1], gap)
	if len(labels) == 0 || len(values) == 0 {
		return nil, nil, false
	}

	if !labelLike(labels) {
		return nil, nil, false
	}

	// Require column alignment: some label must sit above a value segment.
	aligned := false
	for _, l := range labels {
		for _, v := range values {
			if l.right() > v.left() && l.left() < v.right() {
				aligned = true
				break
			}
		}
	}
	if !aligned {
		return nil, nil, false
	}
	return labels, values, true
}

// labelLike accepts rows whose segments read as field labels: trailing colons
// or uniformly short fragments.
func labelLike(labels []segment) bool {
	short := true
	for _, l := range labels {
		text := l.text()
		if strings.HasSuffix(strings.TrimSpace(text), ":") {
			return true
		}
		if utf8.RuneCountInString(text) > 24 || len(strings.Fields(text)) > 3 {
			short = false
		}
	}
	return short
}

// zipLabelValue pairs each label with its nearest value segment by horizontal
// proximity. Value segments left unmatched trail the zipped lines as
// continuation text rather than being dropped.
func zipLabelValue(labels, values []segment) string {
	used := make([]bool, len(values))
	var lines []string

	for _, l := range labels {
		bestIdx := -1
		bestDist := 0.0
		for i, v := range values {
			if used[i] {
				continue
			}
			dist := abs(l.center() - v.center())
			if bestIdx == -1 || dist < bestDist {
				bestIdx = i
				bestDist = dist
			}
		}
		if bestIdx == -1 {
			lines = append(lines, l.text())
			continue
		}
		used[bestIdx] = true
		lines = append(lines, l.text()+" "+values[bestIdx].text())
	}

	for i, v := range values {
		if !used[i] {
			lines = append(lines, v.text())
		}
	}
	return strings.Join(lines, "\n")
}

func rowSegments(row []TextItem, gap float64) []segment {
	raw := splitRowSegments(row, gap)
	out := make([]segment, 0, len(raw))
	for _, items := range raw {
		out = append(out, segment{items: items})
	}
	return out
}

func rowText(row []TextItem) string {
	parts := make([]string, 0, len(row))
	for _, it := range row {
		if t := strings.TrimSpace(it.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
