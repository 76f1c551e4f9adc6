package simulation

import (
	"math"
	"math/rand"

	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// GBMParams describes a batch of geometric Brownian motion paths under the
// risk-neutral drift.
type GBMParams struct {
	Spot       float64
	Rate       float64
	Volatility float64
	Horizon    float64
	Steps      int
	Paths      int
}

// Validate checks the path simulator invariants
func (p GBMParams) Validate() error {
	for _, v := range []float64{p.Spot, p.Rate, p.Volatility, p.Horizon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.InvalidArgument("simulation parameters must be finite")
		}
	}

	switch {
	case p.Spot <= 0:
		return errors.InvalidArgumentf("spot must be positive, got %v", p.Spot)
	case p.Volatility < 0:
		return errors.InvalidArgumentf("volatility must be non-negative, got %v", p.Volatility)
	case p.Horizon <= 0:
		return errors.InvalidArgumentf("horizon must be positive, got %v", p.Horizon)
	case p.Steps < 0:
		return errors.InvalidArgumentf("steps must be non-negative, got %d", p.Steps)
	case p.Paths <= 0:
		return errors.InvalidArgumentf("paths must be positive, got %d", p.Paths)
	}
	return nil
}

// Simulate generates p.Paths independent paths of p.Steps+1 prices each,
// all starting at p.Spot. Draws are taken path by path, step by step, so the
// same generator state always yields the same paths.
func Simulate(p GBMParams, rng *rand.Rand) ([][]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.InvalidArgument("random generator is required")
	}

	paths := make([][]float64, p.Paths)
	for i := range paths {
		paths[i] = FillPath(p, rng, make([]float64, p.Steps+1))
	}
	return paths, nil
}

// FillPath writes one path into dst, which must have length p.Steps+1, and
// returns it. p is assumed valid.
func FillPath(p GBMParams, rng *rand.Rand, dst []float64) []float64 {
	dst[0] = p.Spot
	if p.Steps == 0 {
		return dst
	}

	dt := p.Horizon / float64(p.Steps)
	drift := (p.Rate - 0.5*p.Volatility*p.Volatility) * dt

	if p.Volatility == 0 {
		growth := math.Exp(drift)
		for k := 1; k <= p.Steps; k++ {
			dst[k] = dst[k-1] * growth
		}
		return dst
	}

	shock := p.Volatility * math.Sqrt(dt)
	for k := 1; k <= p.Steps; k++ {
		dst[k] = dst[k-1] * math.Exp(drift+shock*rng.NormFloat64())
	}
	return dst
}

// TerminalPrice returns the exact one-step GBM price at horizon for the
// standard normal draw z.
func TerminalPrice(spot, rate, volatility, horizon, z float64) float64 {
	return spot * math.Exp((rate-0.5*volatility*volatility)*horizon+volatility*math.Sqrt(horizon)*z)
}

// AveragePath returns the cross-sectional mean price at every time step
func AveragePath(paths [][]float64) []float64 {
	if len(paths) == 0 {
		return nil
	}

	avg := make([]float64, len(paths[0]))
	for _, path := range paths {
		for k, v := range path {
			avg[k] += v
		}
	}
	n := float64(len(paths))
	for k := range avg {
		avg[k] /= n
	}
	return avg
}

// Simulator wraps Simulate with seed handling and logging
type Simulator struct {
	log *logger.Logger
}

// NewSimulator creates a new path simulator
func NewSimulator(log *logger.Logger) *Simulator {
	if log == nil {
		log = logger.GetLogger("simulation.gbm")
	}
	return &Simulator{log: log}
}

// Simulate generates paths with a generator seeded from seed (nil means
// non-deterministic).
func (s *Simulator) Simulate(p GBMParams, seed *int64) ([][]float64, error) {
	paths, err := Simulate(p, NewRand(seed))
	if err != nil {
		s.log.Debugw("rejected simulation input", "params", p, "error", err)
		return nil, err
	}
	s.log.Debugw("simulated paths", "paths", p.Paths, "steps", p.Steps)
	return paths, nil
}
