package rss

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// OrientedBox is a rectangle on the ground plane described by its four corners.
// Corners built by constructors of this package go counter-clockwise: front-left, rear-left, rear-right, front-right.
// A box of a vehicle with unknown or negligible extent collapses to four coincident corners.
type OrientedBox struct {
	Corners [4]r2.Vec
}

// NewOrientedBox creates box centered at center, with length along heading and width across it.
func NewOrientedBox(center r2.Vec, heading, length, width float64) OrientedBox {
	forward := r2.Scale(length/2.0, HeadingVector(heading))
	right := r2.Scale(width/2.0, Perpendicular(HeadingVector(heading)))
	front := r2.Add(center, forward)
	rear := r2.Sub(center, forward)
	return OrientedBox{
		Corners: [4]r2.Vec{
			r2.Sub(front, right),
			r2.Sub(rear, right),
			r2.Add(rear, right),
			r2.Add(front, right),
		},
	}
}

// NewPointBox creates degenerate box for point-mass approximation
func NewPointBox(point r2.Vec) OrientedBox {
	return OrientedBox{
		Corners: [4]r2.Vec{point, point, point, point},
	}
}

// Center returns mean of box corners
func (box OrientedBox) Center() r2.Vec {
	sum := r2.Vec{}
	for _, c := range box.Corners {
		sum = r2.Add(sum, c)
	}
	return r2.Scale(0.25, sum)
}

// Rotated returns copy of the box rotated by angle around the origin
func (box OrientedBox) Rotated(angle float64) OrientedBox {
	rotation := r2.NewRotation(angle, r2.Vec{})
	rotated := OrientedBox{}
	for i, c := range box.Corners {
		rotated.Corners[i] = rotation.Rotate(c)
	}
	return rotated
}

// Displacement is the minimum-distance separation from ego box to target box.
// Local holds it in the ego heading frame: X is lateral (positive to the right of ego),
// Y is longitudinal (positive ahead of ego). Direction is always "target minus ego".
type Displacement struct {
	Local   r2.Vec
	Heading float64
}

// Longitudinal returns signed separation along ego heading
func (d Displacement) Longitudinal() float64 {
	return d.Local.Y
}

// Lateral returns signed separation across ego heading
func (d Displacement) Lateral() float64 {
	return d.Local.X
}

// World returns displacement in the world frame
func (d Displacement) World() r2.Vec {
	return Rotate(d.Heading, d.Local)
}

// Distance returns magnitude of displacement
func (d Displacement) Distance() float64 {
	return euclideanDistance(d.Local, r2.Vec{})
}

// Separation computes displacement between ego and target boxes by projecting both of them onto
// the axes of ego heading frame. Along each axis the gap between projected intervals is taken:
// zero if intervals overlap, signed distance between the nearest edges otherwise.
//
// The result does not depend on the order (or starting corner) of either box.
func Separation(ego, target OrientedBox, heading float64) Displacement {
	egoBounds := bounds(ego.Rotated(-heading).Corners)
	targetBounds := bounds(target.Rotated(-heading).Corners)
	return Displacement{
		Local: r2.Vec{
			X: axisGap(egoBounds.Min.X, egoBounds.Max.X, targetBounds.Min.X, targetBounds.Max.X),
			Y: axisGap(egoBounds.Min.Y, egoBounds.Max.Y, targetBounds.Min.Y, targetBounds.Max.Y),
		},
		Heading: heading,
	}
}
