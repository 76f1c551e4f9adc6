package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
)

// clean drops NaN observations and rejects infinite ones. The input is never
// modified.
func clean(returns []float64) ([]float64, error) {
	out := make([]float64, 0, len(returns))
	for _, r := range returns {
		if math.IsNaN(r) {
			continue
		}
		if math.IsInf(r, 0) {
			return nil, errors.InvalidArgument("returns must be finite")
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, errors.InvalidArgument("return series is empty")
	}
	return out, nil
}

// Mean is accumulated about the first observation, so a constant series
// yields exactly that constant.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	shift := xs[0]
	var sum float64
	for _, x := range xs {
		sum += x - shift
	}
	return shift + sum/float64(len(xs))
}

func variance(xs []float64, ddof int) float64 {
	if len(xs)-ddof <= 0 {
		return math.NaN()
	}
	mean := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss / float64(len(xs)-ddof)
}

// StdDev returns the sample standard deviation (n-1 denominator). A single
// observation has no spread.
func StdDev(xs []float64) float64 {
	if len(xs) == 1 {
		return 0
	}
	return math.Sqrt(variance(xs, 1))
}

// popStdDev uses the n denominator, as the ratio metrics do
func popStdDev(xs []float64) float64 {
	return math.Sqrt(variance(xs, 0))
}

func sortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

// lowerQuantile is the empirical (inverse CDF) quantile of sorted data
func lowerQuantile(sorted []float64, p float64) float64 {
	return stat.Quantile(snapProbability(p), stat.Empirical, sorted, nil)
}

// snapProbability removes representation noise such as 1-0.95 != 0.05, which
// would otherwise move an empirical quantile by one observation.
func snapProbability(p float64) float64 {
	return math.Round(p*1e12) / 1e12
}

func validateAlpha(alpha float64) error {
	if !(alpha > 0 && alpha < 1) {
		return errors.InvalidArgumentf("alpha must be in (0, 1), got %v", alpha)
	}
	return nil
}

func validateConfidence(confidence float64) error {
	if !(confidence > 0 && confidence < 1) {
		return errors.InvalidArgumentf("confidence level must be in (0, 1), got %v", confidence)
	}
	return nil
}

func validateHorizon(horizon int) error {
	if horizon < 1 {
		return errors.InvalidArgumentf("horizon must be at least 1, got %d", horizon)
	}
	return nil
}
