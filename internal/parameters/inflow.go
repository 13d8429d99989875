package parameters

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hydronet-sim/reservoir-core/internal/network"
	"github.com/hydronet-sim/reservoir-core/internal/scenario"
)

func init() {
	Register("inflowseries", loadInflowSeries)
}

// InflowSeries generates stochastic inflows around a monthly mean profile.
// Each scenario draws from its own stream seeded by the global id, so runs
// are reproducible and ensemble members stay independent.
type InflowSeries struct {
	monthlyMean  [12]float64
	cv           float64
	distribution string
	seed         uint64
	src          []rand.Source
}

// InflowSeriesConfig collects the construction arguments of an InflowSeries.
type InflowSeriesConfig struct {
	// MonthlyMean is the seasonal mean inflow, January first.
	MonthlyMean []float64
	// CV is the coefficient of variation of the deviates. Zero makes the
	// series deterministic.
	CV float64
	// Distribution selects the deviate shape: "lognormal" (default) keeps
	// inflows positive, "normal" truncates at zero.
	Distribution string
	// Seed offsets every scenario stream.
	Seed uint64
}

// NewInflowSeries creates a stochastic inflow series.
func NewInflowSeries(cfg InflowSeriesConfig) (*InflowSeries, error) {
	if len(cfg.MonthlyMean) != 12 {
		return nil, fmt.Errorf("%w: inflow series takes exactly 12 monthly means, got %d",
			ErrConfiguration, len(cfg.MonthlyMean))
	}
	for i, m := range cfg.MonthlyMean {
		if m < 0 {
			return nil, fmt.Errorf("%w: monthly mean %d is negative (%g)", ErrConfiguration, i, m)
		}
	}
	if cfg.CV < 0 {
		return nil, fmt.Errorf("%w: cv must not be negative, got %g", ErrConfiguration, cfg.CV)
	}
	dist := cfg.Distribution
	if dist == "" {
		dist = "lognormal"
	}
	if dist != "lognormal" && dist != "normal" {
		return nil, fmt.Errorf("%w: unsupported distribution %q", ErrConfiguration, dist)
	}

	p := &InflowSeries{cv: cfg.CV, distribution: dist, seed: cfg.Seed}
	copy(p.monthlyMean[:], cfg.MonthlyMean)
	return p, nil
}

// Setup creates one random stream per ensemble member.
func (p *InflowSeries) Setup(n int) {
	p.src = make([]rand.Source, n)
	for gid := 0; gid < n; gid++ {
		p.src[gid] = rand.NewSource(p.seed + uint64(gid))
	}
}

// Reset re-seeds every stream so repeated runs reproduce the same series.
func (p *InflowSeries) Reset() {
	p.Setup(len(p.src))
}

// Value draws the inflow for the timestep's month and the scenario's stream.
func (p *InflowSeries) Value(ts scenario.Timestep, si scenario.Index) float64 {
	if p.src == nil {
		panic("inflow series: Setup not called before evaluation")
	}
	mean := p.monthlyMean[ts.Month()-1]
	if p.cv == 0 || mean == 0 {
		return mean
	}

	src := p.src[si.GlobalID]
	switch p.distribution {
	case "normal":
		v := distuv.Normal{Mu: mean, Sigma: p.cv * mean, Src: src}.Rand()
		return math.Max(0, v)
	default:
		// Lognormal deviate with unit mean: cv fixes sigma, sigma fixes mu.
		sigma := math.Sqrt(math.Log(1 + p.cv*p.cv))
		mu := -sigma * sigma / 2
		deviate := distuv.LogNormal{Mu: mu, Sigma: sigma, Src: src}.Rand()
		return mean * deviate
	}
}

func loadInflowSeries(r Resolver, def map[string]any) (network.Parameter, error) {
	cfg := InflowSeriesConfig{}

	raw, ok := def["mean"]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ErrConfiguration, "mean")
	}
	if scalar, isNum := floatValue(raw); isNum {
		cfg.MonthlyMean = make([]float64, 12)
		for i := range cfg.MonthlyMean {
			cfg.MonthlyMean[i] = scalar
		}
	} else {
		values, err := floatSlice(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", "mean", err)
		}
		cfg.MonthlyMean = values
	}

	var err error
	if cfg.CV, err = optionalFloat(def, "cv", 0); err != nil {
		return nil, err
	}
	if cfg.Distribution, err = optionalString(def, "distribution"); err != nil {
		return nil, err
	}
	seed, err := optionalFloat(def, "seed", 0)
	if err != nil {
		return nil, err
	}
	cfg.Seed = uint64(seed)

	return NewInflowSeries(cfg)
}
