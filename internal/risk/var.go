package risk

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// VaRMethod defines the method used for VaR calculation
type VaRMethod int

const (
	// HistoricalVaRMethod uses the empirical return distribution
	HistoricalVaRMethod VaRMethod = iota
	// ParametricVaRMethod assumes normally distributed returns
	ParametricVaRMethod
	// MonteCarloVaRMethod samples a normal fitted to the returns
	MonteCarloVaRMethod
)

func (m VaRMethod) String() string {
	switch m {
	case HistoricalVaRMethod:
		return "historical"
	case ParametricVaRMethod:
		return "parametric"
	case MonteCarloVaRMethod:
		return "monte_carlo"
	default:
		return "unknown"
	}
}

// HistoricalVaR is the negated empirical alpha-quantile of the returns,
// scaled by √horizon
func HistoricalVaR(returns []float64, alpha float64, horizon int) (float64, error) {
	xs, err := prepare(returns, alpha, horizon)
	if err != nil {
		return 0, err
	}
	return historicalVaR(sortedCopy(xs), alpha, horizon), nil
}

// ParametricVaR is -(μ + z_α·σ)·√horizon under a normal assumption
func ParametricVaR(returns []float64, alpha float64, horizon int) (float64, error) {
	xs, err := prepare(returns, alpha, horizon)
	if err != nil {
		return 0, err
	}
	return parametricVaR(Mean(xs), popStdDev(xs), alpha, horizon), nil
}

func prepare(returns []float64, alpha float64, horizon int) ([]float64, error) {
	if err := validateAlpha(alpha); err != nil {
		return nil, err
	}
	if err := validateHorizon(horizon); err != nil {
		return nil, err
	}
	return clean(returns)
}

func historicalVaR(sorted []float64, alpha float64, horizon int) float64 {
	return -lowerQuantile(sorted, alpha) * math.Sqrt(float64(horizon))
}

func parametricVaR(mean, std, alpha float64, horizon int) float64 {
	z := distuv.UnitNormal.Quantile(snapProbability(alpha))
	return -(mean + z*std) * math.Sqrt(float64(horizon))
}

// VaRCalculator calculates Value at Risk over a trailing window of returns
type VaRCalculator struct {
	method           VaRMethod
	confidenceLevel  float64
	historicalWindow int
	horizon          int
	simulationRuns   int
	rng              *rand.Rand
	log              *logger.Logger
}

// NewVaRCalculator creates a new Value at Risk calculator. rng is only used
// by the Monte Carlo method.
func NewVaRCalculator(method VaRMethod, confidenceLevel float64, historicalWindow int, rng *rand.Rand) *VaRCalculator {
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = 0.99
	}

	if historicalWindow <= 0 {
		historicalWindow = 252 // one year of trading days
	}

	return &VaRCalculator{
		method:           method,
		confidenceLevel:  confidenceLevel,
		historicalWindow: historicalWindow,
		horizon:          1,
		simulationRuns:   10000,
		rng:              rng,
		log:              logger.GetLogger("risk.var"),
	}
}

// SetSimulationRuns sets the number of simulation runs for Monte Carlo VaR
func (v *VaRCalculator) SetSimulationRuns(runs int) {
	if runs > 0 {
		v.simulationRuns = runs
	}
}

// SetHorizon sets the number of periods the one-period VaR is scaled to
func (v *VaRCalculator) SetHorizon(periods int) {
	if periods > 0 {
		v.horizon = periods
	}
}

// Method returns the configured method
func (v *VaRCalculator) Method() VaRMethod {
	return v.method
}

// Calculate returns VaR as a fraction of position value
func (v *VaRCalculator) Calculate(returns []float64) (float64, error) {
	sorted, alpha, err := v.distribution(returns)
	if err != nil {
		return 0, err
	}

	var value float64
	if v.method == ParametricVaRMethod {
		value = parametricVaR(Mean(sorted), popStdDev(sorted), alpha, v.horizon)
	} else {
		value = historicalVaR(sorted, alpha, v.horizon)
	}

	v.log.Debugw("calculated VaR", "method", v.method, "confidence", v.confidenceLevel, "observations", len(sorted), "var", value)
	return value, nil
}

// ExpectedShortfall returns the matching conditional VaR (expected loss
// beyond VaR) as a fraction of position value
func (v *VaRCalculator) ExpectedShortfall(returns []float64) (float64, error) {
	sorted, alpha, err := v.distribution(returns)
	if err != nil {
		return 0, err
	}

	if v.method == ParametricVaRMethod {
		return parametricCVaR(Mean(sorted), popStdDev(sorted), alpha, v.horizon), nil
	}
	return historicalCVaR(sorted, alpha, v.horizon), nil
}

// distribution returns the sorted sample the historical estimators run on:
// the trailing window, or for Monte Carlo a simulated sample from a normal
// fitted to that window.
func (v *VaRCalculator) distribution(returns []float64) ([]float64, float64, error) {
	xs, err := clean(returns)
	if err != nil {
		return nil, 0, err
	}

	if len(xs) > v.historicalWindow {
		xs = xs[len(xs)-v.historicalWindow:]
	}
	alpha := snapProbability(1 - v.confidenceLevel)

	switch v.method {
	case HistoricalVaRMethod, ParametricVaRMethod:
		return sortedCopy(xs), alpha, nil
	case MonteCarloVaRMethod:
		if v.rng == nil {
			return nil, 0, errors.InvalidArgument("monte carlo VaR requires a random generator")
		}
		mean, std := Mean(xs), popStdDev(xs)
		simulated := make([]float64, v.simulationRuns)
		for i := range simulated {
			simulated[i] = mean + std*v.rng.NormFloat64()
		}
		return sortedCopy(simulated), alpha, nil
	default:
		return nil, 0, errors.InvalidArgumentf("unknown VaR method %d", v.method)
	}
}
