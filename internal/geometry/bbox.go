// Package geometry provides axis-aligned bounding box overlap math for the
// violation detection engine.
package geometry

import "sort"

// BBox is an axis-aligned bounding box in pixel coordinates.
// X1,Y1 is the top-left corner, X2,Y2 the bottom-right corner.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Valid reports whether the box has positive width and height.
func (b BBox) Valid() bool {
	return b.X2 > b.X1 && b.Y2 > b.Y1
}

// Area returns the box area, or 0 for degenerate boxes.
func (b BBox) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// Center returns the center point of the box.
func (b BBox) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Intersection returns the area of overlap between two boxes.
// Zero-area boxes never intersect anything.
func Intersection(a, b BBox) float64 {
	if a.Area() == 0 || b.Area() == 0 {
		return 0
	}

	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}

// IoU returns the intersection-over-union of two boxes in [0,1].
func IoU(a, b BBox) float64 {
	inter := Intersection(a, b)
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Containment returns the intersection area divided by the smaller box area.
// This is preferred over IoU when one box (e.g. an ROI) is expected to be much
// larger than the other (a hand).
func Containment(a, b BBox) float64 {
	inter := Intersection(a, b)
	if inter == 0 {
		return 0
	}

	smaller := a.Area()
	if b.Area() < smaller {
		smaller = b.Area()
	}
	if smaller <= 0 {
		return 0
	}
	return inter / smaller
}

// Labeled pairs a bounding box with the label of whatever it bounds.
type Labeled struct {
	Label string
	Box   BBox
}

// Overlap is a candidate box together with its containment score against a
// target box.
type Overlap struct {
	Labeled
	Score float64
}

// Overlapping returns the candidates whose containment ratio with target
// exceeds threshold, ranked by score descending.
func Overlapping(target BBox, candidates []Labeled, threshold float64) []Overlap {
	var overlaps []Overlap
	for _, c := range candidates {
		score := Containment(target, c.Box)
		if score > threshold {
			overlaps = append(overlaps, Overlap{Labeled: c, Score: score})
		}
	}

	sort.Slice(overlaps, func(i, j int) bool {
		return overlaps[i].Score > overlaps[j].Score
	})

	return overlaps
}
