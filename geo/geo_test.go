package geo

import (
	"math"
	"testing"
)

func TestIntersectDisjoint(t *testing.T) {
	a := Region{X: 0, Y: 0, Width: 10, Height: 10}
	b := Region{X: 20, Y: 20, Width: 5, Height: 5}
	if got := a.Intersect(b); !got.IsEmpty() {
		t.Fatalf("expected empty intersection, got %+v", got)
	}
}

func TestOverlapFraction(t *testing.T) {
	text := Region{X: 0, Y: 0, Width: 10, Height: 10}
	figure := Region{X: 5, Y: 0, Width: 10, Height: 10}
	if got := text.OverlapFraction(figure); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("OverlapFraction() = %v, want 0.5", got)
	}
	if got := (Region{}).OverlapFraction(figure); got != 0 {
		t.Fatalf("empty region overlap = %v, want 0", got)
	}
}

func TestExpandClampsNegative(t *testing.T) {
	r := Region{X: 2, Y: 2, Width: 3, Height: 3}
	shrunk := r.Expand(-5)
	if !shrunk.IsEmpty() {
		t.Fatalf("over-shrunk region should be empty, got %+v", shrunk)
	}
	grown := r.Expand(1)
	if grown.X != 1 || grown.Width != 5 {
		t.Fatalf("unexpected expansion: %+v", grown)
	}
}

func TestCropNormalizeSwapsInvertedCorners(t *testing.T) {
	c := Crop{X0: 0.84, Y0: 0.9, X1: 0.14, Y1: 0.1}
	n := c.Normalize()
	want := Crop{X0: 0.14, Y0: 0.1, X1: 0.84, Y1: 0.9}
	if n != want {
		t.Fatalf("Normalize() = %+v, want %+v", n, want)
	}
}

func TestCropDegenerate(t *testing.T) {
	if !(Crop{X0: 0.5, Y0: 0.2, X1: 0.5, Y1: 0.8}).IsDegenerate() {
		t.Fatalf("zero-width crop should be degenerate")
	}
	if (Crop{X0: 0.1, Y0: 0.1, X1: 0.9, Y1: 0.9}).IsDegenerate() {
		t.Fatalf("full crop should not be degenerate")
	}
}
