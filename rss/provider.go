package rss

import (
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Frame is a single timestamped sample of a scene with instances annotated in it
type Frame struct {
	Token     uuid.UUID
	Timestamp time.Time
	Instances []InstanceRef
}

// InstanceRef references tracked instance and its object category (e.g. "vehicle.car")
type InstanceRef struct {
	Instance uuid.UUID
	Category string
}

// IsVehicle reports whether instance belongs to any vehicle category
func (ref InstanceRef) IsVehicle() bool {
	return strings.Contains(ref.Category, "vehicle")
}

// Provider is the source of recorded traffic states.
// Implementations must be safe for concurrent use: instances of a scene are evaluated in parallel.
type Provider interface {
	// InstanceTrajectory returns every annotated state of instance
	InstanceTrajectory(instance uuid.UUID) (Trajectory, error)
	// EgoState returns state of the ego vehicle in the given frame
	EgoState(frame uuid.UUID) (VehicleState, error)
	// IsExcluded reports whether state should not be scored (parked vehicle, etc.)
	IsExcluded(state TrackedState) bool
	// SceneFrames iterates frames of scene in temporal order
	SceneFrames(scene uuid.UUID) iter.Seq2[Frame, error]
}
