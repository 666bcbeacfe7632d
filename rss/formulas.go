package rss

import (
	"math"
)

func nonNegative(op, arg string, value float64) error {
	if math.IsNaN(value) || value < 0 {
		return &DomainError{Op: op, Arg: arg, Value: value, Want: ">= 0"}
	}
	return nil
}

// MinLongDistanceSameDirection returns minimum safe longitudinal distance between two vehicles
// driving in the same direction. vRear is speed of the rear vehicle, vFront is speed of the front one.
//
// Rear vehicle accelerates with MaxAccelLong during reaction time and then brakes with MinBrakeLong,
// front vehicle brakes with MaxBrakeLong immediately.
func MinLongDistanceSameDirection(vRear, vFront float64, params Params) (float64, error) {
	const op = "MinLongDistanceSameDirection"
	if err := nonNegative(op, "vRear", vRear); err != nil {
		return 0, err
	}
	if err := nonNegative(op, "vFront", vFront); err != nil {
		return 0, err
	}
	p := params.ReactionTime
	vRearResponse := vRear + p*params.MaxAccelLong
	dMin := vRear*p +
		0.5*params.MaxAccelLong*p*p +
		vRearResponse*vRearResponse/(2*params.MinBrakeLong) -
		vFront*vFront/(2*params.MaxBrakeLong)
	return math.Max(0, dMin), nil
}

// MinLongDistanceOppositeDirection returns minimum safe longitudinal distance between two vehicles
// driving towards each other. v1 is speed of vehicle in its correct lane (non-negative),
// v2 is speed of the oncoming vehicle (strictly negative in the frame of the first one).
func MinLongDistanceOppositeDirection(v1, v2 float64, params Params) (float64, error) {
	const op = "MinLongDistanceOppositeDirection"
	if err := nonNegative(op, "v1", v1); err != nil {
		return 0, err
	}
	if math.IsNaN(v2) || v2 >= 0 {
		return 0, &DomainError{Op: op, Arg: "v2", Value: v2, Want: "< 0"}
	}
	p := params.ReactionTime
	v2Abs := math.Abs(v2)
	v1Response := v1 + p*params.MaxAccelLong
	v2Response := v2Abs + p*params.MaxAccelLong
	d1 := (v1+v1Response)*p/2 + v1Response*v1Response/(2*params.MinBrakeLongCorrected)
	d2 := (v2Abs+v2Response)*p/2 + v2Response*v2Response/(2*params.MinBrakeLong)
	return d1 + d2, nil
}

// MinLatDistance returns minimum safe lateral distance between vehicle on the left (vLeft) and vehicle
// on the right (vRight). Positive lateral velocity points to the right.
//
// When vehicles are already moving apart (vLeft < 0 or vRight > 0) the result is just Mu.
func MinLatDistance(vLeft, vRight float64, params Params) (float64, error) {
	const op = "MinLatDistance"
	if math.IsNaN(vLeft) {
		return 0, &DomainError{Op: op, Arg: "vLeft", Value: vLeft, Want: "a number"}
	}
	if math.IsNaN(vRight) {
		return 0, &DomainError{Op: op, Arg: "vRight", Value: vRight, Want: "a number"}
	}
	if vLeft < 0 || vRight > 0 {
		return params.Mu, nil
	}
	p := params.ReactionTime
	v1Response := vLeft + p*params.MaxAccelLat
	v2Response := vRight - p*params.MaxAccelLat
	leftTravel := (vLeft+v1Response)*p/2 + v1Response*v1Response/(2*params.MinBrakeLat)
	rightTravel := (vRight+v2Response)*p/2 - v2Response*v2Response/(2*params.MinBrakeLat)
	d := leftTravel - rightTravel
	return math.Max(params.Mu, params.Mu+d), nil
}
