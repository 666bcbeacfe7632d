package rss

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SkipReason tells why frame has not been scored
type SkipReason uint8

const (
	SkipNone SkipReason = iota
	// SkipExcluded means either ego or target state is excluded from scoring
	SkipExcluded
	// SkipUnknownVelocity means velocity of ego or target could not be estimated
	SkipUnknownVelocity
	// SkipEgoReversing means ego moves backwards, which RSS formulas do not cover
	SkipEgoReversing
)

func (s SkipReason) String() string {
	switch s {
	case SkipNone:
		return "none"
	case SkipExcluded:
		return "excluded"
	case SkipUnknownVelocity:
		return "unknown velocity"
	case SkipEgoReversing:
		return "ego reversing"
	default:
		return fmt.Sprintf("SkipReason(%d)", int(s))
	}
}

// SkippedFrame is a state of instance which has not been scored
type SkippedFrame struct {
	Annotation uuid.UUID
	Frame      uuid.UUID
	Reason     SkipReason
}

// InstanceResult holds every record and every skipped frame of a single instance in trajectory order
type InstanceResult struct {
	Instance uuid.UUID
	Records  []ScoreRecord
	Skipped  []SkippedFrame
}

// Worst returns the first record with minimum score. False if nothing has been scored.
func (result InstanceResult) Worst() (ScoreRecord, bool) {
	if len(result.Records) == 0 {
		return ScoreRecord{}, false
	}
	worst := 0
	for i := 1; i < len(result.Records); i++ {
		if result.Records[i].Score < result.Records[worst].Score {
			worst = i
		}
	}
	return result.Records[worst], true
}

// EvaluateInstance scores every state of instance trajectory against ego state of the same frame.
// Any failure, invalid params included, is returned as *EvalError.
func (engine *Engine) EvaluateInstance(instance uuid.UUID, params Params) (InstanceResult, error) {
	if err := params.Validate(); err != nil {
		return InstanceResult{Instance: instance}, &EvalError{Instance: instance, Err: err}
	}
	return engine.evaluateInstance(instance, params)
}

// evaluateInstance expects params to be validated already
func (engine *Engine) evaluateInstance(instance uuid.UUID, params Params) (InstanceResult, error) {
	result := InstanceResult{
		Instance: instance,
	}
	trajectory, err := engine.provider.InstanceTrajectory(instance)
	if err != nil {
		return result, &EvalError{Instance: instance, Err: errors.Wrap(err, "can't get trajectory")}
	}
	for state, err := range trajectory.Walk() {
		if err != nil {
			return result, &EvalError{Instance: instance, Annotation: state.Token, Err: err}
		}
		target := state.VehicleState
		if engine.provider.IsExcluded(state) {
			target.Excluded = true
		}
		if target.Excluded {
			result.skip(engine.logger, state, SkipExcluded)
			continue
		}
		ego, err := engine.provider.EgoState(state.Frame)
		if err != nil {
			return result, &EvalError{Instance: instance, Annotation: state.Token, Err: errors.Wrapf(err, "can't get ego state for frame %s", state.Frame)}
		}
		var prev *ScoreRecord
		if n := len(result.Records); n > 0 {
			prev = &result.Records[n-1]
		}
		record, skip, err := EvaluateFrame(ego, target, params, engine.gradients, prev)
		if err != nil {
			return result, &EvalError{Instance: instance, Annotation: state.Token, Err: err}
		}
		if skip != SkipNone {
			result.skip(engine.logger, state, skip)
			continue
		}
		record.Instance = instance
		record.Annotation = state.Token
		record.Frame = state.Frame
		result.Records = append(result.Records, record)
	}
	return result, nil
}

func (result *InstanceResult) skip(logger *slog.Logger, state TrackedState, reason SkipReason) {
	logger.Debug("frame skipped",
		slog.String("instance", result.Instance.String()),
		slog.String("annotation", state.Token.String()),
		slog.String("reason", reason.String()),
	)
	result.Skipped = append(result.Skipped, SkippedFrame{
		Annotation: state.Token,
		Frame:      state.Frame,
		Reason:     reason,
	})
}
