package calibration

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/hydronet-sim/reservoir-core/internal/engine"
	"github.com/hydronet-sim/reservoir-core/pkg/logger"
	"github.com/hydronet-sim/reservoir-core/pkg/utils"
)

// Options configure the hill-climbing search. Zero values take defaults.
type Options struct {
	// MaxIterations bounds the search, default 100.
	MaxIterations int
	// StepSize is the initial perturbation as a fraction of each
	// coordinate's span, default 0.1.
	StepSize float64
	// Shrink multiplies the step after a stalled iteration, default 0.5.
	Shrink float64
	// Epsilon is the relative improvement that counts as progress,
	// default 1e-4.
	Epsilon float64
	// Patience is the number of stalled iterations before the search
	// stops, default 5.
	Patience int
	// Seed drives the joint perturbation stream. Zero means 1, so the
	// search is reproducible unless a seed is chosen.
	Seed int64
	// Leaderboard is the number of candidates kept in the result,
	// default 5.
	Leaderboard int
}

// Result is the outcome of a search.
type Result struct {
	BestValues  [][]float64
	BestScore   float64
	Iterations  int
	Evaluations int
	Converged   bool
	Reason      string
	Top         []Candidate
}

// Optimizer hill-climbs the variable parameters of a model against an
// objective. Every evaluation is a full model run.
type Optimizer struct {
	objective *Objective
	opts      Options
	logger    *slog.Logger
	rng       *utils.RandSource
}

// NewOptimizer creates an optimizer for the given objective.
func NewOptimizer(objective *Objective, opts Options) *Optimizer {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}
	if opts.StepSize <= 0 {
		opts.StepSize = 0.1
	}
	if opts.Shrink <= 0 || opts.Shrink >= 1 {
		opts.Shrink = 0.5
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = 1e-4
	}
	if opts.Patience <= 0 {
		opts.Patience = 5
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	if opts.Leaderboard <= 0 {
		opts.Leaderboard = 5
	}
	return &Optimizer{
		objective: objective,
		opts:      opts,
		logger:    logger.Default,
		rng:       utils.NewRandSource(opts.Seed),
	}
}

// WithLogger sets the optimizer's logger.
func (o *Optimizer) WithLogger(l *slog.Logger) *Optimizer {
	o.logger = l
	return o
}

// Optimize searches the model's variable space. The model is left holding
// the best values found.
func (o *Optimizer) Optimize(ctx context.Context, m *engine.Model) (*Result, error) {
	vars := Variables(m)
	if len(vars) == 0 {
		return nil, ErrNoVariables
	}

	board := NewLeaderboard(o.opts.Leaderboard)
	evaluations := 0

	evaluate := func(values [][]float64, iteration int) (float64, error) {
		if err := apply(vars, values); err != nil {
			return 0, err
		}
		results, err := m.Run(ctx)
		if err != nil {
			return 0, err
		}
		score, err := o.objective.Score(results)
		if err != nil {
			return 0, err
		}
		evaluations++
		board.Add(Candidate{Values: cloneValues(values), Score: score, Iteration: iteration})
		return score, nil
	}

	current := snapshot(vars)
	currentScore, err := evaluate(current, 0)
	if err != nil {
		return nil, fmt.Errorf("evaluating initial values: %w", err)
	}
	best := cloneValues(current)
	bestScore := currentScore

	o.logger.Info("calibration started",
		"objective", o.objective.Recorder,
		"direction", string(o.objective.Direction),
		"variables", len(vars),
		"initial_score", o.objective.Value(currentScore))

	step := o.opts.StepSize
	stalled := 0
	iterations := 0
	converged := false
	reason := "max iterations reached"

	for iter := 1; iter <= o.opts.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		iterations = iter

		bestNeighbor, bestNeighborScore, err := o.bestNeighbor(vars, current, step, iter, evaluate)
		if err != nil {
			return nil, err
		}

		margin := o.opts.Epsilon * math.Max(math.Abs(currentScore), 1)
		if bestNeighbor != nil && bestNeighborScore < currentScore-margin {
			current = bestNeighbor
			currentScore = bestNeighborScore
			stalled = 0
			if currentScore < bestScore {
				bestScore = currentScore
				best = cloneValues(current)
			}
			o.logger.Debug("calibration improved",
				"iteration", iter,
				"score", o.objective.Value(currentScore),
				"step", step)
			continue
		}

		stalled++
		step *= o.opts.Shrink
		o.logger.Debug("calibration stalled",
			"iteration", iter,
			"stalled", stalled,
			"step", step)
		if stalled >= o.opts.Patience {
			converged = true
			reason = fmt.Sprintf("no improvement for %d iterations", stalled)
			break
		}
	}

	if err := apply(vars, best); err != nil {
		return nil, err
	}

	o.logger.Info("calibration finished",
		"iterations", iterations,
		"evaluations", evaluations,
		"best_score", o.objective.Value(bestScore),
		"converged", converged,
		"reason", reason)

	return &Result{
		BestValues:  cloneValues(best),
		BestScore:   bestScore,
		Iterations:  iterations,
		Evaluations: evaluations,
		Converged:   converged,
		Reason:      reason,
		Top:         board.Sorted(),
	}, nil
}

// bestNeighbor evaluates the neighborhood of the current point and returns
// the lowest-scoring neighbor. Nil means every perturbation was clamped
// back onto the current point.
func (o *Optimizer) bestNeighbor(
	vars []Variable,
	current [][]float64,
	step float64,
	iteration int,
	evaluate func([][]float64, int) (float64, error),
) ([][]float64, float64, error) {
	neighbors := o.neighbors(vars, current, step)
	if len(neighbors) == 0 {
		return nil, 0, nil
	}

	var best [][]float64
	bestScore := math.Inf(1)
	for _, neighbor := range neighbors {
		score, err := evaluate(neighbor, iteration)
		if err != nil {
			return nil, 0, err
		}
		if score < bestScore {
			bestScore = score
			best = neighbor
		}
	}
	return best, bestScore, nil
}

// neighbors generates candidate coordinate vectors around the current point:
// two per coordinate stepping each way, plus one joint draw moving every
// coordinate at once.
func (o *Optimizer) neighbors(vars []Variable, current [][]float64, step float64) [][][]float64 {
	var out [][][]float64

	for vi, v := range vars {
		lower, upper := v.LowerBounds(), v.UpperBounds()
		for k := range current[vi] {
			span := coordSpan(current[vi][k], lower, upper, k)
			if span == 0 {
				continue
			}
			for _, dir := range []float64{1, -1} {
				cand := cloneValues(current)
				cand[vi][k] = clampCoord(cand[vi][k]+dir*step*span, lower, upper, k)
				if cand[vi][k] != current[vi][k] {
					out = append(out, cand)
				}
			}
		}
	}

	joint := cloneValues(current)
	changed := false
	for vi, v := range vars {
		lower, upper := v.LowerBounds(), v.UpperBounds()
		for k := range joint[vi] {
			span := coordSpan(joint[vi][k], lower, upper, k)
			if span == 0 {
				continue
			}
			delta := o.rng.UniformFloat64(-step*span, step*span)
			next := clampCoord(joint[vi][k]+delta, lower, upper, k)
			if next != joint[vi][k] {
				changed = true
			}
			joint[vi][k] = next
		}
	}
	if changed {
		out = append(out, joint)
	}
	return out
}

// coordSpan is the scale a coordinate's perturbations are relative to: the
// bound range when both bounds exist, otherwise the coordinate's own
// magnitude with a floor of one.
func coordSpan(value float64, lower, upper []float64, k int) float64 {
	if lower != nil && upper != nil {
		return upper[k] - lower[k]
	}
	return math.Max(math.Abs(value), 1)
}

// clampCoord clips a coordinate onto whichever bounds exist.
func clampCoord(value float64, lower, upper []float64, k int) float64 {
	if lower != nil && upper != nil {
		return utils.ClampFloat64(value, lower[k], upper[k])
	}
	if lower != nil && value < lower[k] {
		return lower[k]
	}
	if upper != nil && value > upper[k] {
		return upper[k]
	}
	return value
}
