package dataset

import (
	"iter"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/LdDl/rss-go/rss"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrUnknownScene    = errors.New("unknown scene")
	ErrUnknownInstance = errors.New("unknown instance")
	ErrUnknownSample   = errors.New("unknown sample")
	ErrDuplicateToken  = errors.New("token is already registered")
	ErrUnordered       = errors.New("fixes are not ordered by time")
)

// Dimensions of a vehicle footprint in meters
type Dimensions struct {
	Length float64
	Width  float64
}

// RenaultZoe returns footprint of the data collection vehicle
func RenaultZoe() Dimensions {
	return Dimensions{
		Length: 4.084,
		Width:  1.730,
	}
}

// EgoPose is the pose of data collection vehicle in a sample
type EgoPose struct {
	Position r2.Vec
	Heading  float64
}

// Sample is a keyframe of a scene
type Sample struct {
	Token     uuid.UUID
	Timestamp time.Time
	Ego       EgoPose
}

// Annotation is a labeled box of instance in a sample
type Annotation struct {
	Token      uuid.UUID
	Sample     uuid.UUID
	Position   r2.Vec
	Heading    float64
	Size       Dimensions
	Attributes []string
}

type sampleRecord struct {
	Sample
	velocity  r2.Vec
	instances []rss.InstanceRef
}

// Arena is an in-memory trajectory provider. Scenes are added first, then instances annotated in their samples.
// Velocities of the ego and of every annotation are estimated once, when the record is added.
type Arena struct {
	mu          sync.RWMutex
	scenes      map[uuid.UUID][]uuid.UUID
	samples     map[uuid.UUID]*sampleRecord
	instances   map[uuid.UUID]rss.Trajectory
	annotations map[uuid.UUID][]string

	egoDimensions      Dimensions
	estimator          VelocityEstimator
	egoEstimator       VelocityEstimator
	excludedAttributes []string
}

// ArenaOption configures Arena
type ArenaOption func(*Arena)

// WithEgoDimensions sets footprint of the ego vehicle. Default is RenaultZoe()
func WithEgoDimensions(dimensions Dimensions) ArenaOption {
	return func(arena *Arena) {
		arena.egoDimensions = dimensions
	}
}

// WithVelocityEstimator sets estimator for annotations. Default is CentralDifference with DefaultMaxTimeDiff
func WithVelocityEstimator(estimator VelocityEstimator) ArenaOption {
	return func(arena *Arena) {
		arena.estimator = estimator
	}
}

// WithEgoVelocityEstimator sets estimator for the ego vehicle. Default is CentralDifference without time limit
func WithEgoVelocityEstimator(estimator VelocityEstimator) ArenaOption {
	return func(arena *Arena) {
		arena.egoEstimator = estimator
	}
}

// WithExcludedAttributes sets annotation attributes which exclude the state from scoring.
// Default is "vehicle.parked" and "cycle.without_rider"
func WithExcludedAttributes(attributes ...string) ArenaOption {
	return func(arena *Arena) {
		arena.excludedAttributes = attributes
	}
}

// NewArena creates empty arena
func NewArena(options ...ArenaOption) *Arena {
	arena := &Arena{
		scenes:             make(map[uuid.UUID][]uuid.UUID),
		samples:            make(map[uuid.UUID]*sampleRecord),
		instances:          make(map[uuid.UUID]rss.Trajectory),
		annotations:        make(map[uuid.UUID][]string),
		egoDimensions:      RenaultZoe(),
		estimator:          CentralDifference{MaxTimeDiff: DefaultMaxTimeDiff},
		egoEstimator:       CentralDifference{},
		excludedAttributes: []string{"vehicle.parked", "cycle.without_rider"},
	}
	for _, option := range options {
		option(arena)
	}
	return arena
}

// AddScene registers scene with its samples. Samples are ordered by timestamp.
func (arena *Arena) AddScene(token uuid.UUID, samples []Sample) error {
	arena.mu.Lock()
	defer arena.mu.Unlock()
	if _, ok := arena.scenes[token]; ok {
		return errors.Wrapf(ErrDuplicateToken, "scene %s", token)
	}
	ordered := slices.Clone(samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	fixes := make([]Fix, len(ordered))
	seenSamples := make(map[uuid.UUID]struct{}, len(ordered))
	for i, sample := range ordered {
		if _, ok := arena.samples[sample.Token]; ok {
			return errors.Wrapf(ErrDuplicateToken, "sample %s of scene %s", sample.Token, token)
		}
		if _, ok := seenSamples[sample.Token]; ok {
			return errors.Wrapf(ErrDuplicateToken, "sample %s is listed twice in scene %s", sample.Token, token)
		}
		seenSamples[sample.Token] = struct{}{}
		fixes[i] = Fix{Position: sample.Ego.Position, Timestamp: sample.Timestamp}
	}
	velocities, err := arena.egoEstimator.Estimate(fixes)
	if err != nil {
		return errors.Wrapf(err, "can't estimate ego velocity in scene %s", token)
	}
	tokens := make([]uuid.UUID, len(ordered))
	for i, sample := range ordered {
		arena.samples[sample.Token] = &sampleRecord{
			Sample:   sample,
			velocity: velocities[i],
		}
		tokens[i] = sample.Token
	}
	arena.scenes[token] = tokens
	return nil
}

// AddInstance registers tracked instance with its annotations. Every annotation must refer to a known sample,
// at most one annotation per sample.
func (arena *Arena) AddInstance(token uuid.UUID, category string, annotations []Annotation) error {
	arena.mu.Lock()
	defer arena.mu.Unlock()
	if _, ok := arena.instances[token]; ok {
		return errors.Wrapf(ErrDuplicateToken, "instance %s", token)
	}
	if len(annotations) == 0 {
		return errors.Errorf("instance %s has no annotations", token)
	}
	ordered := slices.Clone(annotations)
	usedSamples := make(map[uuid.UUID]struct{}, len(ordered))
	for _, ann := range ordered {
		if _, ok := arena.samples[ann.Sample]; !ok {
			return errors.Wrapf(ErrUnknownSample, "annotation %s of instance %s refers to sample %s", ann.Token, token, ann.Sample)
		}
		if _, ok := usedSamples[ann.Sample]; ok {
			return errors.Errorf("instance %s is annotated twice in sample %s", token, ann.Sample)
		}
		usedSamples[ann.Sample] = struct{}{}
		if _, ok := arena.annotations[ann.Token]; ok {
			return errors.Wrapf(ErrDuplicateToken, "annotation %s", ann.Token)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return arena.samples[ordered[i].Sample].Timestamp.Before(arena.samples[ordered[j].Sample].Timestamp)
	})

	fixes := make([]Fix, len(ordered))
	for i, ann := range ordered {
		fixes[i] = Fix{Position: ann.Position, Timestamp: arena.samples[ann.Sample].Timestamp}
	}
	velocities, err := arena.estimator.Estimate(fixes)
	if err != nil {
		return errors.Wrapf(err, "can't estimate velocity of instance %s", token)
	}

	trajectory := rss.Trajectory{
		Instance: token,
		First:    ordered[0].Token,
		States:   make(map[uuid.UUID]rss.TrackedState, len(ordered)),
	}
	ref := rss.InstanceRef{Instance: token, Category: category}
	for i, ann := range ordered {
		state := rss.TrackedState{
			Token: ann.Token,
			Frame: ann.Sample,
			VehicleState: rss.VehicleState{
				Pose: rss.Pose{
					Position:  ann.Position,
					Heading:   ann.Heading,
					Timestamp: fixes[i].Timestamp,
				},
				Velocity: velocities[i],
				Box:      rss.NewOrientedBox(ann.Position, ann.Heading, ann.Size.Length, ann.Size.Width),
			},
		}
		if i+1 < len(ordered) {
			state.Next = ordered[i+1].Token
		}
		trajectory.States[ann.Token] = state
		arena.annotations[ann.Token] = slices.Clone(ann.Attributes)
		sample := arena.samples[ann.Sample]
		sample.instances = append(sample.instances, ref)
	}
	arena.instances[token] = trajectory
	return nil
}

// InstanceTrajectory implements rss.Provider
func (arena *Arena) InstanceTrajectory(instance uuid.UUID) (rss.Trajectory, error) {
	arena.mu.RLock()
	defer arena.mu.RUnlock()
	trajectory, ok := arena.instances[instance]
	if !ok {
		return rss.Trajectory{}, errors.Wrapf(ErrUnknownInstance, "instance %s", instance)
	}
	return trajectory, nil
}

// EgoState implements rss.Provider
func (arena *Arena) EgoState(frame uuid.UUID) (rss.VehicleState, error) {
	arena.mu.RLock()
	defer arena.mu.RUnlock()
	sample, ok := arena.samples[frame]
	if !ok {
		return rss.VehicleState{}, errors.Wrapf(ErrUnknownSample, "sample %s", frame)
	}
	return rss.VehicleState{
		Pose: rss.Pose{
			Position:  sample.Ego.Position,
			Heading:   sample.Ego.Heading,
			Timestamp: sample.Timestamp,
		},
		Velocity: sample.velocity,
		Box:      rss.NewOrientedBox(sample.Ego.Position, sample.Ego.Heading, arena.egoDimensions.Length, arena.egoDimensions.Width),
	}, nil
}

// IsExcluded implements rss.Provider
func (arena *Arena) IsExcluded(state rss.TrackedState) bool {
	arena.mu.RLock()
	defer arena.mu.RUnlock()
	for _, attribute := range arena.annotations[state.Token] {
		if slices.Contains(arena.excludedAttributes, attribute) {
			return true
		}
	}
	return false
}

// SceneFrames implements rss.Provider
func (arena *Arena) SceneFrames(scene uuid.UUID) iter.Seq2[rss.Frame, error] {
	return func(yield func(rss.Frame, error) bool) {
		arena.mu.RLock()
		tokens, ok := arena.scenes[scene]
		frames := make([]rss.Frame, 0, len(tokens))
		for _, token := range tokens {
			sample := arena.samples[token]
			frames = append(frames, rss.Frame{
				Token:     sample.Token,
				Timestamp: sample.Timestamp,
				Instances: slices.Clone(sample.instances),
			})
		}
		arena.mu.RUnlock()
		if !ok {
			yield(rss.Frame{}, errors.Wrapf(ErrUnknownScene, "scene %s", scene))
			return
		}
		for _, frame := range frames {
			if !yield(frame, nil) {
				return
			}
		}
	}
}
