package risk

import (
	"github.com/rzzdr/quant-options-lab/pkg/models"
)

// Compute returns the mean, sample volatility and historical tail risk of a
// return series. Tail risk is the loss at the confidence level, i.e. the
// negated empirical (1-confidence) quantile; it is negative when even that
// quantile is a gain. NaN observations are ignored.
func Compute(returns []float64, confidence float64) (*models.RiskSummary, error) {
	if err := validateConfidence(confidence); err != nil {
		return nil, err
	}
	xs, err := clean(returns)
	if err != nil {
		return nil, err
	}

	return &models.RiskSummary{
		Mean:            Mean(xs),
		Volatility:      StdDev(xs),
		TailRisk:        -lowerQuantile(sortedCopy(xs), 1-confidence),
		ConfidenceLevel: confidence,
		Observations:    len(xs),
	}, nil
}
