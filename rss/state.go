package rss

import (
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

// Pose is position and heading of a vehicle at some moment
type Pose struct {
	Position r2.Vec
	// Radians, counter-clockwise from +Y axis
	Heading   float64
	Timestamp time.Time
}

// VehicleState is everything the engine needs to know about vehicle in a single frame.
// Velocity is in the world frame; NaN in any of components means velocity is unknown.
type VehicleState struct {
	Pose
	Velocity r2.Vec
	Box      OrientedBox
	Excluded bool
}

// HasVelocity reports whether velocity is known
func (state VehicleState) HasVelocity() bool {
	return KnownVelocity(state.Velocity)
}

// TrackedState is a single annotated state of tracked instance.
// Next is uuid.Nil for the last state of trajectory.
type TrackedState struct {
	Token uuid.UUID
	Frame uuid.UUID
	Next  uuid.UUID
	VehicleState
}

// Trajectory is an arena of states of a single instance linked by Next tokens
type Trajectory struct {
	Instance uuid.UUID
	First    uuid.UUID
	States   map[uuid.UUID]TrackedState
}

// Walk iterates states from First following Next links.
// Iteration stops after yielding an error: ErrCycle if a state is visited twice, ErrBrokenLink if a link points nowhere.
func (trajectory Trajectory) Walk() iter.Seq2[TrackedState, error] {
	return func(yield func(TrackedState, error) bool) {
		visited := make(map[uuid.UUID]struct{}, len(trajectory.States))
		token := trajectory.First
		for token != uuid.Nil {
			if _, ok := visited[token]; ok {
				yield(TrackedState{Token: token}, errors.Wrapf(ErrCycle, "instance %s: state %s visited twice", trajectory.Instance, token))
				return
			}
			visited[token] = struct{}{}
			state, ok := trajectory.States[token]
			if !ok {
				yield(TrackedState{Token: token}, errors.Wrapf(ErrBrokenLink, "instance %s: state %s", trajectory.Instance, token))
				return
			}
			if !yield(state, nil) {
				return
			}
			token = state.Next
		}
	}
}
