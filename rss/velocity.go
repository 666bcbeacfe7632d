package rss

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Components is velocity decomposed in some heading frame.
// Longitudinal is positive along heading, Lateral is positive to the right of it.
type Components struct {
	Longitudinal float64
	Lateral      float64
}

// Decompose projects world-frame velocity onto heading frame given by angle
func Decompose(angle float64, velocity r2.Vec) Components {
	local := Rotate(-angle, velocity)
	return Components{
		Longitudinal: local.Y,
		Lateral:      local.X,
	}
}

// KnownVelocity reports whether none of velocity components is NaN
func KnownVelocity(velocity r2.Vec) bool {
	return !math.IsNaN(velocity.X) && !math.IsNaN(velocity.Y)
}
