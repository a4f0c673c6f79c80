// Package geo provides the axis-aligned rectangle math shared by layout
// analysis, OCR line filtering, and capture cropping.
package geo

// Region describes a rectangular area with the origin in the upper-left
// corner. Width and height are always non-negative.
type Region struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Area returns the region's area, zero for empty regions.
func (r Region) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}

// Right returns the x coordinate of the right edge.
func (r Region) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Region) Bottom() float64 { return r.Y + r.Height }

// Expand grows the region by margin on every side. Negative margins shrink;
// a region shrunk past zero collapses to empty.
func (r Region) Expand(margin float64) Region {
	out := Region{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

// Intersect returns the overlapping sub-region of r and other, or an empty
// region when they are disjoint.
func (r Region) Intersect(other Region) Region {
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.Right(), other.Right())
	y1 := min(r.Bottom(), other.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Region{}
	}
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// OverlapFraction returns the fraction of r's area that lies inside other.
// Zero when r is empty.
func (r Region) OverlapFraction(other Region) float64 {
	area := r.Area()
	if area == 0 {
		return 0
	}
	return r.Intersect(other).Area() / area
}

// Crop is a normalized sub-rectangle of an image in [0,1] coordinates. A
// valid crop has X0 < X1 and Y0 < Y1.
type Crop struct {
	X0 float64 `json:"x0" yaml:"x0"`
	Y0 float64 `json:"y0" yaml:"y0"`
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
}

// Normalize returns the crop with inverted corner pairs swapped so that
// X0 <= X1 and Y0 <= Y1, clamped to the unit square.
func (c Crop) Normalize() Crop {
	if c.X1 < c.X0 {
		c.X0, c.X1 = c.X1, c.X0
	}
	if c.Y1 < c.Y0 {
		c.Y0, c.Y1 = c.Y1, c.Y0
	}
	c.X0 = clamp01(c.X0)
	c.Y0 = clamp01(c.Y0)
	c.X1 = clamp01(c.X1)
	c.Y1 = clamp01(c.Y1)
	return c
}

// IsDegenerate reports whether the normalized crop selects a point-like or
// line-like area that cannot carry recognizable text.
func (c Crop) IsDegenerate() bool {
	n := c.Normalize()
	const eps = 1e-6
	return n.X1-n.X0 < eps || n.Y1-n.Y0 < eps
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
