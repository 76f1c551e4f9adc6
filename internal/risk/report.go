package risk

import (
	"math"
	"math/rand"

	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
)

// Options controls Evaluate
type Options struct {
	// Alpha is the tail probability, e.g. 0.05 for 95% VaR
	Alpha float64
	// Horizon scales the one-period VaR figures by √Horizon
	Horizon        int
	PeriodsPerYear float64
	RequiredReturn float64
	// Window keeps only the trailing observations; 0 uses the whole series
	Window int
	// SimulationRuns and Rand drive the Monte Carlo VaR, which is NaN when
	// either is unset
	SimulationRuns int
	Rand           *rand.Rand
}

// DefaultOptions returns 95% VaR over one daily period
func DefaultOptions() Options {
	return Options{
		Alpha:          0.05,
		Horizon:        1,
		PeriodsPerYear: 252,
		SimulationRuns: 10000,
	}
}

func (o Options) validate() error {
	if err := validateAlpha(o.Alpha); err != nil {
		return err
	}
	if err := validateHorizon(o.Horizon); err != nil {
		return err
	}
	if !(o.PeriodsPerYear > 0) || math.IsInf(o.PeriodsPerYear, 0) {
		return errors.InvalidArgumentf("periods per year must be positive, got %v", o.PeriodsPerYear)
	}
	if math.IsNaN(o.RequiredReturn) || math.IsInf(o.RequiredReturn, 0) {
		return errors.InvalidArgument("required return must be finite")
	}
	if o.Window < 0 {
		return errors.InvalidArgumentf("window must be non-negative, got %d", o.Window)
	}
	return nil
}

// Evaluate computes the full risk and performance suite of arithmetic
// returns. NaN observations are dropped from every statistic except the
// drawdown, which walks the caller's series so its indices refer to it.
func Evaluate(returns []float64, opts Options) (*models.RiskReport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	xs, err := clean(returns)
	if err != nil {
		return nil, err
	}
	raw := returns
	if opts.Window > 0 && len(xs) > opts.Window {
		xs = xs[len(xs)-opts.Window:]
		raw = lastObservations(returns, opts.Window)
	}

	sorted := sortedCopy(xs)
	mean, std := Mean(xs), popStdDev(xs)
	drawdown := MaxDrawdown(raw)
	cagr := CAGR(xs, opts.PeriodsPerYear)

	report := &models.RiskReport{
		Alpha:          opts.Alpha,
		Horizon:        opts.Horizon,
		Observations:   len(xs),
		Mean:           mean,
		Volatility:     StdDev(xs),
		ParametricVaR:  parametricVaR(mean, std, opts.Alpha, opts.Horizon),
		HistoricalVaR:  historicalVaR(sorted, opts.Alpha, opts.Horizon),
		ParametricCVaR: parametricCVaR(mean, std, opts.Alpha, opts.Horizon),
		HistoricalCVaR: historicalCVaR(sorted, opts.Alpha, opts.Horizon),
		MonteCarloVaR:  math.NaN(),
		MaxDrawdown:    drawdown,
		MeanOverStd:    MeanOverStd(xs),
		CAGR:           cagr,
		Calmar:         Calmar(cagr, drawdown.Depth),
		Sortino:        Sortino(xs, opts.RequiredReturn),
		MaxReturnToVol: MaxReturnToVol(xs),
		Skewness:       Skewness(xs),
		ExcessKurtosis: ExcessKurtosis(xs),
	}

	if opts.Rand != nil && opts.SimulationRuns > 0 {
		mc := NewVaRCalculator(MonteCarloVaRMethod, 1-opts.Alpha, len(xs), opts.Rand)
		mc.SetSimulationRuns(opts.SimulationRuns)
		mc.SetHorizon(opts.Horizon)
		if report.MonteCarloVaR, err = mc.Calculate(xs); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// lastObservations returns the shortest suffix of returns holding n non-NaN
// values
func lastObservations(returns []float64, n int) []float64 {
	i := len(returns)
	for count := 0; i > 0 && count < n; {
		i--
		if !math.IsNaN(returns[i]) {
			count++
		}
	}
	return returns[i:]
}
