package rss

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Side is the outcome of a left/right test in a heading frame.
type Side uint8

const (
	// Collinear means both points project onto the same lateral coordinate
	Collinear Side = iota
	// Left means the first point lies to the left of the second one
	Left
	// Right means the first point lies to the right of the second one
	Right
)

func (s Side) String() string {
	switch s {
	case Collinear:
		return "Collinear"
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Rotate rotates vector counter-clockwise by angle (in radians) around the origin.
func Rotate(angle float64, vector r2.Vec) r2.Vec {
	return r2.Rotate(vector, angle, r2.Vec{})
}

// HeadingVector returns unit vector pointing along heading angle.
// Heading angles are measured counter-clockwise from +Y axis, so zero heading points to (0, 1)
// and pi/2 points to (-1, 0).
func HeadingVector(angle float64) r2.Vec {
	sin, cos := math.Sincos(angle)
	return r2.Vec{X: -sin, Y: cos}
}

// HeadingAngle is the inverse of HeadingVector
func HeadingAngle(heading r2.Vec) float64 {
	return math.Atan2(-heading.X, heading.Y)
}

// HeadingOf returns normalized direction of velocity.
// The second value is false when velocity has exactly zero magnitude (there is no heading to speak of).
func HeadingOf(velocity r2.Vec) (r2.Vec, bool) {
	norm := r2.Norm(velocity)
	if norm == 0 {
		return r2.Vec{}, false
	}
	return r2.Vec{X: velocity.X / norm, Y: velocity.Y / norm}, true
}

// Perpendicular returns heading rotated by 90 degrees clockwise, e.g. the direction to the right of it.
func Perpendicular(heading r2.Vec) r2.Vec {
	return r2.Vec{X: heading.Y, Y: -heading.X}
}

// SideOf tells whether pointA lies to the right of pointB in the frame whose forward axis is heading.
//
// Both points are brought into the canonical frame (heading along +Y) and their X coordinates are compared.
// The X coordinate in that frame is the projection onto Perpendicular(heading), which keeps the test exact
// for axis-aligned headings. Collinear is returned only when coordinates are exactly equal.
func SideOf(heading, pointA, pointB r2.Vec) Side {
	right := Perpendicular(heading)
	a := r2.Dot(pointA, right)
	b := r2.Dot(pointB, right)
	switch {
	case a > b:
		return Right
	case a < b:
		return Left
	default:
		return Collinear
	}
}

func euclideanDistance(p1, p2 r2.Vec) float64 {
	return r2.Norm(r2.Sub(p1, p2))
}
