package rss

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func squareBox(minX, minY, maxX, maxY float64) OrientedBox {
	return OrientedBox{
		Corners: [4]r2.Vec{
			{X: minX, Y: minY},
			{X: maxX, Y: minY},
			{X: maxX, Y: maxY},
			{X: minX, Y: maxY},
		},
	}
}

func shiftCorners(box OrientedBox, shift int) OrientedBox {
	shifted := OrientedBox{}
	for i := range box.Corners {
		shifted.Corners[i] = box.Corners[(i+shift)%4]
	}
	return shifted
}

func TestNewOrientedBox(t *testing.T) {
	box := NewOrientedBox(r2.Vec{X: 1, Y: 2}, 0, 4, 2)
	correctCorners := [4]r2.Vec{
		{X: 0, Y: 4}, // front-left
		{X: 0, Y: 0}, // rear-left
		{X: 2, Y: 0}, // rear-right
		{X: 2, Y: 4}, // front-right
	}
	for i := range correctCorners {
		if !vecAlmostEqual(box.Corners[i], correctCorners[i]) {
			t.Errorf("Corner %d. Wrong answer: %v, correct answer: %v", i, box.Corners[i], correctCorners[i])
		}
	}
	center := box.Center()
	if !vecAlmostEqual(center, r2.Vec{X: 1, Y: 2}) {
		t.Errorf("Wrong center: %v", center)
	}

	// Heading pi/2 points to -X: front corners have smaller X
	box = NewOrientedBox(r2.Vec{}, math.Pi/2, 4, 2)
	if !vecAlmostEqual(box.Corners[0], r2.Vec{X: -2, Y: -1}) {
		t.Errorf("Wrong front-left corner: %v", box.Corners[0])
	}
	if !vecAlmostEqual(box.Corners[3], r2.Vec{X: -2, Y: 1}) {
		t.Errorf("Wrong front-right corner: %v", box.Corners[3])
	}
	// Counter-clockwise order: positive signed area
	area := 0.0
	for i := range box.Corners {
		area += r2.Cross(box.Corners[i], box.Corners[(i+1)%4])
	}
	if math.Abs(area/2-8) > eps {
		t.Errorf("Wrong signed area: %v, correct area: %v", area/2, 8.0)
	}
}

func TestSeparation(t *testing.T) {
	unit := squareBox(0, 0, 1, 1)
	cases := []struct {
		name   string
		target OrientedBox
		want   r2.Vec
	}{
		{name: "side by side", target: squareBox(2, 0, 3, 1), want: r2.Vec{X: 1, Y: 0}},
		{name: "stacked", target: squareBox(0, 2, 1, 3), want: r2.Vec{X: 0, Y: 1}},
		{name: "diagonal behind left", target: squareBox(-2, -2, -1, -1), want: r2.Vec{X: -1, Y: -1}},
		{name: "overlapping", target: squareBox(0.5, 0.5, 1.5, 1.5), want: r2.Vec{X: 0, Y: 0}},
		{name: "touching", target: squareBox(1, 0, 2, 1), want: r2.Vec{X: 0, Y: 0}},
		{name: "point ahead", target: NewPointBox(r2.Vec{X: 0.5, Y: 4}), want: r2.Vec{X: 0, Y: 3}},
	}
	for _, c := range cases {
		answer := Separation(unit, c.target, 0)
		if !vecAlmostEqual(answer.Local, c.want) {
			t.Errorf("%s. Wrong answer: %v, correct answer: %v", c.name, answer.Local, c.want)
		}
	}
}

func TestSeparationCornerOrder(t *testing.T) {
	headings := []float64{0, 0.4, math.Pi / 2, -2.1}
	ego := NewOrientedBox(r2.Vec{X: 1, Y: -1}, 0.2, 4.084, 1.73)
	target := NewOrientedBox(r2.Vec{X: 4, Y: 9}, -0.5, 5, 2)
	for _, heading := range headings {
		reference := Separation(ego, target, heading)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				answer := Separation(shiftCorners(ego, i), shiftCorners(target, j), heading)
				if !vecAlmostEqual(answer.Local, reference.Local) {
					t.Errorf("Heading %v, shifts (%d, %d). Wrong answer: %v, correct answer: %v", heading, i, j, answer.Local, reference.Local)
				}
			}
		}
	}
}

func TestSeparationRotatedFrame(t *testing.T) {
	// Both boxes face -X (heading pi/2), target is 10 meters ahead of ego along heading
	heading := math.Pi / 2
	ego := NewOrientedBox(r2.Vec{}, heading, 4, 2)
	target := NewOrientedBox(r2.Vec{X: -10, Y: 0}, heading, 4, 2)
	answer := Separation(ego, target, heading)
	if math.Abs(answer.Longitudinal()-6) > eps {
		t.Errorf("Wrong longitudinal separation: %v, correct answer: %v", answer.Longitudinal(), 6.0)
	}
	if math.Abs(answer.Lateral()) > eps {
		t.Errorf("Wrong lateral separation: %v, correct answer: %v", answer.Lateral(), 0.0)
	}
	if !vecAlmostEqual(answer.World(), r2.Vec{X: -6, Y: 0}) {
		t.Errorf("Wrong world displacement: %v", answer.World())
	}
	if math.Abs(answer.Distance()-6) > eps {
		t.Errorf("Wrong distance: %v", answer.Distance())
	}

	// Target to the right of ego facing -X is at +Y in the world
	target = NewOrientedBox(r2.Vec{X: 0, Y: 5}, heading, 4, 2)
	answer = Separation(ego, target, heading)
	if math.Abs(answer.Lateral()-3) > eps {
		t.Errorf("Wrong lateral separation: %v, correct answer: %v", answer.Lateral(), 3.0)
	}
}

func TestSeparationDegenerate(t *testing.T) {
	cases := []struct {
		ego    OrientedBox
		target OrientedBox
	}{
		{ego: NewPointBox(r2.Vec{}), target: NewPointBox(r2.Vec{})},
		{ego: NewPointBox(r2.Vec{X: 1, Y: 1}), target: NewOrientedBox(r2.Vec{X: 1, Y: 1}, 0.3, 0, 0)},
		{ego: NewOrientedBox(r2.Vec{}, 1.1, 4, 0), target: NewPointBox(r2.Vec{X: -3, Y: 7})},
	}
	for i, c := range cases {
		answer := Separation(c.ego, c.target, 0.8)
		if math.IsNaN(answer.Local.X) || math.IsNaN(answer.Local.Y) {
			t.Errorf("Case %d. Separation should never be NaN: %v", i, answer.Local)
		}
	}
	answer := Separation(NewPointBox(r2.Vec{}), NewPointBox(r2.Vec{}), 0)
	if answer.Local != (r2.Vec{}) {
		t.Errorf("Coincident points should have zero separation: %v", answer.Local)
	}
}
