package dataset

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/LdDl/rss-go/rss"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

// nuScenes tokens are 32 hex digits
const sceneToken = "cc8c0bf57f984915a77078b10eb33198"

type fixture struct {
	arena   *Arena
	scene   uuid.UUID
	samples []Sample
}

// newFixture creates scene of 4 samples, ego drives along +Y at 10 m/s with 0.5 s step
func newFixture(t *testing.T, options ...ArenaOption) *fixture {
	t.Helper()
	f := &fixture{
		arena: NewArena(options...),
		scene: uuid.MustParse(sceneToken),
	}
	for i := 0; i < 4; i++ {
		f.samples = append(f.samples, Sample{
			Token:     uuid.New(),
			Timestamp: t0.Add(time.Duration(i) * 500 * time.Millisecond),
			Ego:       EgoPose{Position: r2.Vec{X: 0, Y: 5 * float64(i)}, Heading: 0},
		})
	}
	// Shuffled on purpose
	shuffled := []Sample{f.samples[2], f.samples[0], f.samples[3], f.samples[1]}
	require.NoError(t, f.arena.AddScene(f.scene, shuffled))
	return f
}

func (f *fixture) annotations(xs, ys []float64, attributes ...[]string) []Annotation {
	annotations := make([]Annotation, len(xs))
	for i := range xs {
		annotations[i] = Annotation{
			Token:    uuid.New(),
			Sample:   f.samples[i].Token,
			Position: r2.Vec{X: xs[i], Y: ys[i]},
			Size:     Dimensions{Length: 4.5, Width: 1.9},
		}
		if i < len(attributes) {
			annotations[i].Attributes = attributes[i]
		}
	}
	return annotations
}

func TestArenaSceneFrames(t *testing.T) {
	f := newFixture(t)
	car := uuid.New()
	require.NoError(t, f.arena.AddInstance(car, "vehicle.car", f.annotations([]float64{3, 3}, []float64{20, 22})))
	walker := uuid.New()
	require.NoError(t, f.arena.AddInstance(walker, "human.pedestrian.adult", f.annotations([]float64{-5}, []float64{0})))

	frames := make([]rss.Frame, 0)
	for frame, err := range f.arena.SceneFrames(f.scene) {
		require.NoError(t, err)
		frames = append(frames, frame)
	}
	require.Len(t, frames, 4)
	for i, frame := range frames {
		assert.Equal(t, f.samples[i].Token, frame.Token, "frames should be ordered by time")
	}
	require.Len(t, frames[0].Instances, 2)
	assert.Equal(t, rss.InstanceRef{Instance: car, Category: "vehicle.car"}, frames[0].Instances[0])
	assert.False(t, frames[0].Instances[1].IsVehicle())
	assert.Len(t, frames[1].Instances, 1)
	assert.Empty(t, frames[2].Instances)

	for _, err := range f.arena.SceneFrames(uuid.New()) {
		assert.True(t, errors.Is(err, ErrUnknownScene), "got %v", err)
	}
}

func TestArenaEgoState(t *testing.T) {
	f := newFixture(t, WithEgoDimensions(Dimensions{Length: 4, Width: 2}))
	ego, err := f.arena.EgoState(f.samples[1].Token)
	require.NoError(t, err)
	assert.Equal(t, r2.Vec{X: 0, Y: 5}, ego.Position)
	assert.InDelta(t, 0, ego.Velocity.X, 1e-9)
	assert.InDelta(t, 10, ego.Velocity.Y, 1e-9)
	assert.InDelta(t, 7, ego.Box.Corners[0].Y, 1e-9)
	assert.InDelta(t, -1, ego.Box.Corners[0].X, 1e-9)
	assert.True(t, ego.Timestamp.Equal(f.samples[1].Timestamp))

	_, err = f.arena.EgoState(uuid.New())
	assert.True(t, errors.Is(err, ErrUnknownSample), "got %v", err)
}

func TestArenaTrajectory(t *testing.T) {
	f := newFixture(t)
	car := uuid.New()
	annotations := f.annotations([]float64{3, 3, 3}, []float64{20, 22, 24}, nil, []string{"vehicle.parked"})
	// Reversed input order
	reversed := []Annotation{annotations[2], annotations[1], annotations[0]}
	require.NoError(t, f.arena.AddInstance(car, "vehicle.car", reversed))

	trajectory, err := f.arena.InstanceTrajectory(car)
	require.NoError(t, err)
	assert.Equal(t, car, trajectory.Instance)
	assert.Equal(t, annotations[0].Token, trajectory.First)

	visited := make([]rss.TrackedState, 0)
	for state, err := range trajectory.Walk() {
		require.NoError(t, err)
		visited = append(visited, state)
	}
	require.Len(t, visited, 3)
	for i, state := range visited {
		assert.Equal(t, annotations[i].Token, state.Token)
		assert.Equal(t, f.samples[i].Token, state.Frame)
		assert.InDelta(t, 4, state.Velocity.Y, 1e-9)
	}
	assert.Equal(t, uuid.Nil, visited[2].Next)
	assert.False(t, f.arena.IsExcluded(visited[0]))
	assert.True(t, f.arena.IsExcluded(visited[1]))

	_, err = f.arena.InstanceTrajectory(uuid.New())
	assert.True(t, errors.Is(err, ErrUnknownInstance), "got %v", err)
}

func TestArenaUnknownVelocity(t *testing.T) {
	f := newFixture(t)
	car := uuid.New()
	// Annotated in samples 0 and 3 only, 1.5 s apart
	annotations := f.annotations([]float64{3, 3, 3, 3}, []float64{20, 22, 24, 26})
	sparse := []Annotation{annotations[0], annotations[3]}
	require.NoError(t, f.arena.AddInstance(car, "vehicle.car", sparse))
	trajectory, err := f.arena.InstanceTrajectory(car)
	require.NoError(t, err)
	for state, err := range trajectory.Walk() {
		require.NoError(t, err)
		assert.InDelta(t, 4, state.Velocity.Y, 1e-9)
	}

	lonely := uuid.New()
	require.NoError(t, f.arena.AddInstance(lonely, "vehicle.truck", f.annotations([]float64{8}, []float64{8})))
	trajectory, err = f.arena.InstanceTrajectory(lonely)
	require.NoError(t, err)
	assert.False(t, trajectory.States[trajectory.First].HasVelocity())
}

func TestArenaAddErrors(t *testing.T) {
	f := newFixture(t)
	assert.True(t, errors.Is(f.arena.AddScene(f.scene, nil), ErrDuplicateToken))

	// Same sample twice within one scene
	repeated := Sample{Token: uuid.New(), Timestamp: t0}
	other := uuid.New()
	err := f.arena.AddScene(other, []Sample{repeated, repeated})
	assert.True(t, errors.Is(err, ErrDuplicateToken), "got %v", err)
	for _, err := range f.arena.SceneFrames(other) {
		assert.True(t, errors.Is(err, ErrUnknownScene), "scene should not be registered: %v", err)
	}
	_, err = f.arena.EgoState(repeated.Token)
	assert.True(t, errors.Is(err, ErrUnknownSample), "got %v", err)

	bad := f.annotations([]float64{1}, []float64{1})
	bad[0].Sample = uuid.New()
	err = f.arena.AddInstance(uuid.New(), "vehicle.car", bad)
	assert.True(t, errors.Is(err, ErrUnknownSample), "got %v", err)

	twice := f.annotations([]float64{1, 1}, []float64{1, 2})
	twice[1].Sample = twice[0].Sample
	assert.Error(t, f.arena.AddInstance(uuid.New(), "vehicle.car", twice))

	assert.Error(t, f.arena.AddInstance(uuid.New(), "vehicle.car", nil))

	car := uuid.New()
	require.NoError(t, f.arena.AddInstance(car, "vehicle.car", f.annotations([]float64{1}, []float64{1})))
	assert.True(t, errors.Is(f.arena.AddInstance(car, "vehicle.car", f.annotations([]float64{1}, []float64{1})), ErrDuplicateToken))
}

func TestArenaWithEngine(t *testing.T) {
	f := newFixture(t, WithVelocityEstimator(KalmanSmoother{MaxTimeDiff: DefaultMaxTimeDiff}))
	ahead := uuid.New()
	// Slower car 30 meters ahead in the same lane
	require.NoError(t, f.arena.AddInstance(ahead, "vehicle.car", f.annotations([]float64{0, 0, 0, 0}, []float64{30, 32.5, 35, 37.5})))
	beside := uuid.New()
	// Car in the next lane at the same speed
	require.NoError(t, f.arena.AddInstance(beside, "vehicle.car", f.annotations([]float64{6, 6, 6, 6}, []float64{0, 5, 10, 15})))
	parked := uuid.New()
	attrs := []string{"vehicle.parked"}
	require.NoError(t, f.arena.AddInstance(parked, "vehicle.car", f.annotations([]float64{3, 3}, []float64{3, 3}, attrs, attrs)))

	engine := rss.NewEngine(f.arena, rss.WithLogger(slog.New(slog.DiscardHandler)))
	result, err := engine.EvaluateScene(context.Background(), f.scene, rss.Conservative())
	require.NoError(t, err)
	assert.Empty(t, result.Failures)
	assert.Equal(t, []uuid.UUID{ahead, beside}, result.Order)

	worst := result.Records[ahead]
	assert.Equal(t, rss.DirectionSame, worst.Direction)
	assert.Less(t, worst.Score, 1.0)
	assert.False(t, math.IsNaN(worst.Score))
	assert.Equal(t, 1.0, result.Records[beside].Score)

	ranked := result.Ranked()
	require.Len(t, ranked, 2)
	assert.Equal(t, ahead, ranked[0].Instance)
}
