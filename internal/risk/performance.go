package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
)

// MaxDrawdown finds the deepest fall of the wealth index built from
// arithmetic returns, starting from a wealth of 1. NaN returns count as flat
// periods. PeakIndex is -1 when the peak is the starting capital, and both
// indices are -1 when wealth never falls.
func MaxDrawdown(returns []float64) models.Drawdown {
	worst := models.Drawdown{PeakIndex: -1, TroughIndex: -1}

	wealth, peak, peakIndex := 1.0, 1.0, -1
	for i, r := range returns {
		if math.IsNaN(r) {
			r = 0
		}
		wealth *= 1 + r
		if wealth > peak {
			peak, peakIndex = wealth, i
			continue
		}
		if depth := (peak - wealth) / peak; depth > worst.Depth {
			worst = models.Drawdown{Depth: depth, PeakIndex: peakIndex, TroughIndex: i}
		}
	}
	return worst
}

// CAGR annualizes the compounded growth of the returns, treating
// periodsPerYear observations as one year
func CAGR(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 || periodsPerYear <= 0 {
		return 0
	}

	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	if growth <= 0 {
		return -1
	}

	years := float64(len(returns)) / periodsPerYear
	return math.Pow(growth, 1/years) - 1
}

// Calmar is CAGR over maximum drawdown depth, NaN without a drawdown
func Calmar(cagr, drawdown float64) float64 {
	if drawdown == 0 {
		return math.NaN()
	}
	return cagr / drawdown
}

// MeanOverStd is the non-annualized Sharpe ratio with a zero benchmark
func MeanOverStd(returns []float64) float64 {
	return ratio(Mean(returns), popStdDev(returns))
}

// MaxReturnToVol is the best single-period return over volatility
func MaxReturnToVol(returns []float64) float64 {
	best := math.Inf(-1)
	for _, r := range returns {
		best = math.Max(best, r)
	}
	return ratio(best, popStdDev(returns))
}

// Sortino is the excess mean return over the deviation of returns below
// requiredReturn. With no downside deviation it is +Inf for a positive
// excess and 0 otherwise.
func Sortino(returns []float64, requiredReturn float64) float64 {
	mean := Mean(returns)

	var downside []float64
	for _, r := range returns {
		if r < requiredReturn {
			downside = append(downside, r)
		}
	}

	var deviation float64
	if len(downside) > 0 {
		deviation = popStdDev(downside)
	}
	if deviation == 0 {
		if mean > requiredReturn {
			return math.Inf(1)
		}
		return 0
	}
	return (mean - requiredReturn) / deviation
}

// Skewness is the sample skewness, NaN for fewer than three observations or
// a constant series
func Skewness(returns []float64) float64 {
	if len(returns) < 3 || popStdDev(returns) == 0 {
		return math.NaN()
	}
	return stat.Skew(returns, nil)
}

// ExcessKurtosis is the sample kurtosis minus 3, NaN for fewer than four
// observations or a constant series
func ExcessKurtosis(returns []float64) float64 {
	if len(returns) < 4 || popStdDev(returns) == 0 {
		return math.NaN()
	}
	return stat.ExKurtosis(returns, nil)
}

// LogReturns returns ln(p[t]/p[t-period]) for every t >= period
func LogReturns(prices []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, errors.InvalidArgumentf("period must be at least 1, got %d", period)
	}
	for _, p := range prices {
		if !(p > 0) || math.IsInf(p, 0) {
			return nil, errors.InvalidArgumentf("prices must be positive and finite, got %v", p)
		}
	}
	if len(prices) <= period {
		return []float64{}, nil
	}

	out := make([]float64, len(prices)-period)
	for t := period; t < len(prices); t++ {
		out[t-period] = math.Log(prices[t] / prices[t-period])
	}
	return out, nil
}

func ratio(num, den float64) float64 {
	if den == 0 {
		switch {
		case num > 0:
			return math.Inf(1)
		case num < 0:
			return math.Inf(-1)
		}
		return 0
	}
	return num / den
}
