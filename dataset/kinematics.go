package dataset

import (
	"math"
	"time"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultMaxTimeDiff is the largest gap to a single neighbour for annotation velocity estimation.
// It is doubled when both neighbours are used.
const DefaultMaxTimeDiff = 1500 * time.Millisecond

// Fix is a timestamped position
type Fix struct {
	Position  r2.Vec
	Timestamp time.Time
}

// VelocityEstimator computes world-frame velocity of every fix of a track.
// Fixes are ordered by time. Velocity which can't be estimated is NaN in both components.
type VelocityEstimator interface {
	Estimate(fixes []Fix) ([]r2.Vec, error)
}

func unknownVelocity() r2.Vec {
	return r2.Vec{X: math.NaN(), Y: math.NaN()}
}

func checkOrder(fixes []Fix) error {
	for i := 1; i < len(fixes); i++ {
		if fixes[i].Timestamp.Before(fixes[i-1].Timestamp) {
			return errors.Wrapf(ErrUnordered, "fix %d at %s is before fix %d at %s", i, fixes[i].Timestamp, i-1, fixes[i-1].Timestamp)
		}
	}
	return nil
}

// CentralDifference estimates velocity as (p[i+1] - p[i-1]) / (t[i+1] - t[i-1]).
// At the ends of track the fix itself replaces missing neighbour; a single fix has unknown velocity.
type CentralDifference struct {
	// Zero means no limit
	MaxTimeDiff time.Duration
}

// Estimate implements VelocityEstimator
func (cd CentralDifference) Estimate(fixes []Fix) ([]r2.Vec, error) {
	if err := checkOrder(fixes); err != nil {
		return nil, err
	}
	velocities := make([]r2.Vec, len(fixes))
	for i := range fixes {
		hasPrev := i > 0
		hasNext := i+1 < len(fixes)
		if !hasPrev && !hasNext {
			velocities[i] = unknownVelocity()
			continue
		}
		first, last := fixes[i], fixes[i]
		if hasPrev {
			first = fixes[i-1]
		}
		if hasNext {
			last = fixes[i+1]
		}
		dt := last.Timestamp.Sub(first.Timestamp)
		maxTimeDiff := cd.MaxTimeDiff
		if hasPrev && hasNext {
			maxTimeDiff *= 2
		}
		if dt <= 0 || (maxTimeDiff > 0 && dt > maxTimeDiff) {
			velocities[i] = unknownVelocity()
			continue
		}
		velocities[i] = r2.Scale(1/dt.Seconds(), r2.Sub(last.Position, first.Position))
	}
	return velocities, nil
}

// KalmanSmoother runs positions through 2-D constant velocity Kalman filter and then
// takes central differences of filtered positions.
type KalmanSmoother struct {
	// Process noise (acceleration) standard deviation. Default is 2.0
	StdDevA float64
	// Measurement noise standard deviation in meters. Default is 0.1
	StdDevM float64
	// Passed to central difference
	MaxTimeDiff time.Duration
}

// Estimate implements VelocityEstimator
func (ks KalmanSmoother) Estimate(fixes []Fix) ([]r2.Vec, error) {
	if err := checkOrder(fixes); err != nil {
		return nil, err
	}
	if len(fixes) < 2 {
		return CentralDifference{MaxTimeDiff: ks.MaxTimeDiff}.Estimate(fixes)
	}
	stdDevA := ks.StdDevA
	if stdDevA <= 0 {
		stdDevA = 2.0
	}
	stdDevM := ks.StdDevM
	if stdDevM <= 0 {
		stdDevM = 0.1
	}
	// Filter works with fixed time step, so mean sampling interval is used
	dt := fixes[len(fixes)-1].Timestamp.Sub(fixes[0].Timestamp).Seconds() / float64(len(fixes)-1)
	if dt <= 0 {
		return CentralDifference{MaxTimeDiff: ks.MaxTimeDiff}.Estimate(fixes)
	}

	/* Kalman filter props */
	ux := 0.0
	uy := 0.0
	start := fixes[0].Position
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevM, stdDevM, kalman_filter.WithState2D(start.X, start.Y))

	smoothed := make([]Fix, len(fixes))
	smoothed[0] = fixes[0]
	for i := 1; i < len(fixes); i++ {
		kf.Predict()
		err := kf.Update(fixes[i].Position.X, fixes[i].Position.Y)
		if err != nil {
			return nil, errors.Wrapf(err, "can't update Kalman filter with fix %d", i)
		}
		x, y := kf.GetState()
		smoothed[i] = Fix{
			Position:  r2.Vec{X: x, Y: y},
			Timestamp: fixes[i].Timestamp,
		}
	}
	return CentralDifference{MaxTimeDiff: ks.MaxTimeDiff}.Estimate(smoothed)
}

// YawFromQuaternion returns rotation around Z axis (radians, counter-clockwise from +X) of the
// orientation given by unit quaternion (w, x, y, z).
func YawFromQuaternion(w, x, y, z float64) float64 {
	return math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
}

// HeadingFromYaw converts yaw measured from +X axis into heading measured from +Y axis
func HeadingFromYaw(yaw float64) float64 {
	return yaw - math.Pi/2
}
