package rss

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Engine evaluates scenes pulled from Provider
type Engine struct {
	provider  Provider
	gradients Gradients
	// Max number of instances evaluated at once. Default is number of CPUs
	workers int
	logger  *slog.Logger
}

// EngineOption configures Engine
type EngineOption func(*Engine)

// WithGradients sets margin-to-score gradients
func WithGradients(gradients Gradients) EngineOption {
	return func(engine *Engine) {
		engine.gradients = gradients
	}
}

// WithWorkers limits number of instances evaluated concurrently. Values < 1 are ignored
func WithWorkers(n int) EngineOption {
	return func(engine *Engine) {
		if n > 0 {
			engine.workers = n
		}
	}
}

// WithLogger sets logger. Default is slog.Default()
func WithLogger(logger *slog.Logger) EngineOption {
	return func(engine *Engine) {
		if logger != nil {
			engine.logger = logger
		}
	}
}

// NewEngine creates new instance of Engine
func NewEngine(provider Provider, options ...EngineOption) *Engine {
	engine := &Engine{
		provider:  provider,
		gradients: DefaultGradients(),
		workers:   runtime.NumCPU(),
		logger:    slog.Default(),
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

// SceneResult is the worst record of every evaluated instance of a scene
type SceneResult struct {
	Scene  uuid.UUID
	Params string
	// Instances with at least one scored frame, in order of first encounter
	Order   []uuid.UUID
	Records map[uuid.UUID]ScoreRecord
	// Instances which failed to evaluate, in order of first encounter
	Failures []*EvalError
}

// Ranked returns records least safe first. Equal scores keep order of first encounter.
func (result *SceneResult) Ranked() []ScoreRecord {
	h := make(recordHeap, 0, len(result.Order))
	for i, instance := range result.Order {
		h.Push(&rankedRecord{
			record: result.Records[instance],
			order:  i,
		})
	}
	ranked := make([]ScoreRecord, 0, len(h))
	for h.Len() > 0 {
		ranked = append(ranked, h.Pop().record)
	}
	return ranked
}

// EvaluateScene collects vehicle instances of scene in order of their first appearance and evaluates each of them once.
// Failures of single instances are collected in SceneResult.Failures; error is returned only if
// the scene itself can't be scanned, params are invalid or ctx is done.
func (engine *Engine) EvaluateScene(ctx context.Context, scene uuid.UUID, params Params) (*SceneResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	// Seen-set is built before fan-out, so no instance is scheduled twice
	seen := make(map[uuid.UUID]struct{})
	instances := make([]uuid.UUID, 0)
	for frame, err := range engine.provider.SceneFrames(scene) {
		if err != nil {
			return nil, errors.Wrapf(err, "can't scan frames of scene %s", scene)
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "scene %s", scene)
		}
		for _, ref := range frame.Instances {
			if !ref.IsVehicle() {
				continue
			}
			if _, ok := seen[ref.Instance]; ok {
				continue
			}
			seen[ref.Instance] = struct{}{}
			instances = append(instances, ref.Instance)
		}
	}

	results := make([]InstanceResult, len(instances))
	failures := make([]error, len(instances))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(engine.workers)
	for i, instance := range instances {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], failures[i] = engine.evaluateInstance(instance, params)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "scene %s", scene)
	}

	result := &SceneResult{
		Scene:   scene,
		Params:  params.Name,
		Order:   make([]uuid.UUID, 0, len(instances)),
		Records: make(map[uuid.UUID]ScoreRecord, len(instances)),
	}
	for i, instance := range instances {
		if failures[i] != nil {
			evalErr := &EvalError{}
			if !errors.As(failures[i], &evalErr) {
				evalErr = &EvalError{Instance: instance, Err: failures[i]}
			}
			engine.logger.Warn("instance evaluation failed",
				slog.String("scene", scene.String()),
				slog.String("instance", instance.String()),
				slog.Any("error", evalErr.Err),
			)
			result.Failures = append(result.Failures, evalErr)
			continue
		}
		worst, ok := results[i].Worst()
		if !ok {
			continue
		}
		result.Order = append(result.Order, instance)
		result.Records[instance] = worst
	}
	engine.logger.Info("scene evaluated",
		slog.String("scene", scene.String()),
		slog.String("params", params.Name),
		slog.Int("instances", len(instances)),
		slog.Int("scored", len(result.Order)),
		slog.Int("failed", len(result.Failures)),
	)
	return result, nil
}
