package rss

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// axisGap returns signed gap from interval [aMin, aMax] to interval [bMin, bMax].
// Positive when b lies after a, negative when b lies before a, zero when intervals overlap or touch.
func axisGap(aMin, aMax, bMin, bMax float64) float64 {
	switch {
	case bMin > aMax:
		return bMin - aMax
	case bMax < aMin:
		return bMax - aMin
	default:
		return 0
	}
}

// bounds returns axis-aligned bounds of the given corners
func bounds(corners [4]r2.Vec) r2.Box {
	box := r2.Box{
		Min: r2.Vec{X: math.Inf(1), Y: math.Inf(1)},
		Max: r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, c := range corners {
		box.Min.X = minFloat64(box.Min.X, c.X)
		box.Min.Y = minFloat64(box.Min.Y, c.Y)
		box.Max.X = maxFloat64(box.Max.X, c.X)
		box.Max.Y = maxFloat64(box.Max.Y, c.Y)
	}
	return box
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
