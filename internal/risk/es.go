package risk

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// HistoricalCVaR is the negated mean of the returns at or below the empirical
// alpha-quantile, scaled by √horizon
func HistoricalCVaR(returns []float64, alpha float64, horizon int) (float64, error) {
	xs, err := prepare(returns, alpha, horizon)
	if err != nil {
		return 0, err
	}
	return historicalCVaR(sortedCopy(xs), alpha, horizon), nil
}

// ParametricCVaR is the normal expected shortfall -(μ - σ·φ(z_α)/α)·√horizon
func ParametricCVaR(returns []float64, alpha float64, horizon int) (float64, error) {
	xs, err := prepare(returns, alpha, horizon)
	if err != nil {
		return 0, err
	}
	return parametricCVaR(Mean(xs), popStdDev(xs), alpha, horizon), nil
}

func historicalCVaR(sorted []float64, alpha float64, horizon int) float64 {
	threshold := lowerQuantile(sorted, alpha)

	// the quantile is an observation, so the tail is never empty
	n := 0
	for n < len(sorted) && sorted[n] <= threshold {
		n++
	}
	return -Mean(sorted[:n]) * math.Sqrt(float64(horizon))
}

func parametricCVaR(mean, std, alpha float64, horizon int) float64 {
	alpha = snapProbability(alpha)
	z := distuv.UnitNormal.Quantile(alpha)
	phi := distuv.UnitNormal.Prob(z)
	return -(mean - std*phi/alpha) * math.Sqrt(float64(horizon))
}
