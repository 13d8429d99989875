package calibration

import (
	"fmt"

	"github.com/hydronet-sim/reservoir-core/pkg/models"
)

// Direction states whether the objective value should shrink or grow.
type Direction string

const (
	Minimize Direction = "minimize"
	Maximize Direction = "maximize"
)

// Objective scores a candidate by one recorder's aggregated value. Scores
// are internally minimized; maximization negates.
type Objective struct {
	Recorder  string
	Direction Direction
}

// NewObjective creates an objective over the named recorder.
func NewObjective(recorder string, direction Direction) (*Objective, error) {
	if recorder == "" {
		return nil, fmt.Errorf("objective: recorder name required")
	}
	switch direction {
	case Minimize, Maximize:
	default:
		return nil, fmt.Errorf("objective: unknown direction %q", direction)
	}
	return &Objective{Recorder: recorder, Direction: direction}, nil
}

// Score reduces run results to a single value where lower is better.
func (o *Objective) Score(results *models.RunResults) (float64, error) {
	res, ok := results.Recorders[o.Recorder]
	if !ok {
		return 0, fmt.Errorf("objective: recorder %q not in results", o.Recorder)
	}
	if o.Direction == Maximize {
		return -res.AggregatedValue, nil
	}
	return res.AggregatedValue, nil
}

// Value converts an internal score back to the recorder's scale.
func (o *Objective) Value(score float64) float64 {
	if o.Direction == Maximize {
		return -score
	}
	return score
}
