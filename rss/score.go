package rss

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

// Reason explains which axis made the score drop below 1
type Reason uint8

const (
	// ReasonNone means frame is safe
	ReasonNone Reason = iota
	ReasonLongitudinallyTooClose
	ReasonLaterallyTooClose
	// ReasonTooClose means both axes are violated at once
	ReasonTooClose
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonLongitudinallyTooClose:
		return "Longitudinally too close"
	case ReasonLaterallyTooClose:
		return "Laterally too close"
	case ReasonTooClose:
		return "Too close"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// ParseReason is the inverse of Reason.String
func ParseReason(s string) (Reason, error) {
	for _, r := range []Reason{ReasonNone, ReasonLongitudinallyTooClose, ReasonLaterallyTooClose, ReasonTooClose} {
		if r.String() == s {
			return r, nil
		}
	}
	return ReasonNone, errors.Errorf("unknown reason '%s'", s)
}

// Direction tells which longitudinal formula has been applied
type Direction uint8

const (
	// DirectionNotApplicable is used when ego is not behind the target, so longitudinal check is skipped
	DirectionNotApplicable Direction = iota
	DirectionSame
	DirectionOpposite
)

func (d Direction) String() string {
	switch d {
	case DirectionNotApplicable:
		return "n/a"
	case DirectionSame:
		return "same"
	case DirectionOpposite:
		return "opposite"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection is the inverse of Direction.String
func ParseDirection(s string) (Direction, error) {
	for _, d := range []Direction{DirectionNotApplicable, DirectionSame, DirectionOpposite} {
		if d.String() == s {
			return d, nil
		}
	}
	return DirectionNotApplicable, errors.Errorf("unknown direction '%s'", s)
}

// Gradients convert margin (in meters) into score per axis
type Gradients struct {
	Longitudinal float64
	Lateral      float64
}

// DefaultGradients returns 0.4 for longitudinal axis and 1 for lateral one
func DefaultGradients() Gradients {
	return Gradients{
		Longitudinal: 0.4,
		Lateral:      1,
	}
}

// ScoreRecord is the outcome of evaluating a single frame of (ego, instance) pair
type ScoreRecord struct {
	Instance   uuid.UUID
	Annotation uuid.UUID
	Frame      uuid.UUID
	Timestamp  time.Time

	Reason    Reason
	Score     float64
	LongScore float64
	LatScore  float64

	// Signed separation in the ego frame, target minus ego
	LongDistance float64
	LatDistance  float64
	// Zero when not applicable
	MinLongDistance float64
	MinLatDistance  float64

	EgoVelocity    Components
	TargetVelocity Components
	Direction      Direction
}

// Score maps safety margin onto [0, 1]
func Score(minDistance, actualDistance, gradient float64) float64 {
	margin := actualDistance - minDistance
	if margin <= 0 {
		return 0
	}
	return math.Min(1, gradient*margin)
}

func classify(score, longScore float64, prev *ScoreRecord) Reason {
	switch {
	case score == 1:
		return ReasonNone
	case score == 0:
		if prev != nil && prev.Reason != ReasonNone {
			return prev.Reason
		}
		return ReasonTooClose
	case score == longScore:
		return ReasonLongitudinallyTooClose
	default:
		return ReasonLaterallyTooClose
	}
}

// checkFrame tells whether pair of states can be scored at all
func checkFrame(ego, target VehicleState) (Components, SkipReason) {
	if ego.Excluded || target.Excluded {
		return Components{}, SkipExcluded
	}
	if !ego.HasVelocity() || !target.HasVelocity() {
		return Components{}, SkipUnknownVelocity
	}
	egoVelocity := Decompose(ego.Heading, ego.Velocity)
	if egoVelocity.Longitudinal < 0 {
		return egoVelocity, SkipEgoReversing
	}
	return egoVelocity, SkipNone
}

// EvaluateFrame scores target vehicle against ego vehicle in a single frame.
// prev is the previous record of the same instance (nil for the first one): when both axes are violated
// the specific reason of prev is carried forward.
//
// If the frame can't be scored, non-SkipNone reason is returned with zero record.
// Identification fields (Instance, Annotation, Frame) are left to the caller.
func EvaluateFrame(ego, target VehicleState, params Params, gradients Gradients, prev *ScoreRecord) (ScoreRecord, SkipReason, error) {
	egoVelocity, skip := checkFrame(ego, target)
	if skip != SkipNone {
		return ScoreRecord{}, skip, nil
	}
	targetVelocity := Decompose(ego.Heading, target.Velocity)
	separation := Separation(ego.Box, target.Box, ego.Heading)
	// Which vehicle is ahead (or on the left) is decided by centers, gaps only give distances
	centers := Rotate(-ego.Heading, r2.Sub(target.Box.Center(), ego.Box.Center()))
	origin := r2.Vec{}
	forward := r2.Vec{X: 0, Y: 1}

	record := ScoreRecord{
		Timestamp:      target.Timestamp,
		LongDistance:   separation.Longitudinal(),
		LatDistance:    separation.Lateral(),
		EgoVelocity:    egoVelocity,
		TargetVelocity: targetVelocity,
		Direction:      DirectionNotApplicable,
		LongScore:      1,
	}

	// Lateral: vehicle on the left goes first
	vLeft, vRight := egoVelocity.Lateral, targetVelocity.Lateral
	if SideOf(forward, origin, centers) == Right {
		vLeft, vRight = targetVelocity.Lateral, egoVelocity.Lateral
	}
	minLat, err := MinLatDistance(vLeft, vRight, params)
	if err != nil {
		return ScoreRecord{}, SkipNone, errors.Wrap(err, "lateral distance")
	}
	record.MinLatDistance = minLat
	record.LatScore = Score(minLat, math.Abs(separation.Lateral()), gradients.Lateral)

	// Longitudinal: only when target is ahead of ego
	egoBehind := SideOf(Perpendicular(forward), origin, centers) == Right
	if egoBehind {
		var minLong float64
		if targetVelocity.Longitudinal >= 0 {
			record.Direction = DirectionSame
			minLong, err = MinLongDistanceSameDirection(egoVelocity.Longitudinal, targetVelocity.Longitudinal, params)
		} else {
			record.Direction = DirectionOpposite
			minLong, err = MinLongDistanceOppositeDirection(egoVelocity.Longitudinal, targetVelocity.Longitudinal, params)
		}
		if err != nil {
			return ScoreRecord{}, SkipNone, errors.Wrap(err, "longitudinal distance")
		}
		record.MinLongDistance = minLong
		record.LongScore = Score(minLong, math.Abs(separation.Longitudinal()), gradients.Longitudinal)
	}

	record.Score = math.Max(record.LongScore, record.LatScore)
	record.Reason = classify(record.Score, record.LongScore, prev)
	return record, SkipNone, nil
}
