package pricing

import (
	"math"

	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
)

// Greeks calculates the Black-Scholes sensitivities of a contract.
// Theta is per calendar day, Vega per 1% volatility and Rho per 1% rate.
func Greeks(c models.OptionContract) (*models.Greeks, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Volatility == 0 {
		return nil, errors.InvalidArgument("greeks are undefined for zero volatility")
	}

	S, K, r, sigma, T := c.Spot, c.Strike, c.RiskFreeRate, c.Volatility, c.TimeToExpiry
	sqrtT := math.Sqrt(T)
	d1, d2 := moments(S, K, r, sigma, T)
	discount := math.Exp(-r * T)

	greeks := &models.Greeks{
		Gamma: normalPDF(d1) / (S * sigma * sqrtT),
		Vega:  S * normalPDF(d1) * sqrtT / 100,
	}

	decay := -S * sigma * normalPDF(d1) / (2 * sqrtT)
	if c.Type == models.OptionTypeCall {
		greeks.Delta = normalCDF(d1)
		greeks.Theta = (decay - r*K*discount*normalCDF(d2)) / 365
		greeks.Rho = K * T * discount * normalCDF(d2) / 100
	} else {
		greeks.Delta = normalCDF(d1) - 1
		greeks.Theta = (decay + r*K*discount*normalCDF(-d2)) / 365
		greeks.Rho = -K * T * discount * normalCDF(-d2) / 100
	}

	return greeks, nil
}

// Greeks is the method form of the package-level Greeks
func (bs *BlackScholesPricer) Greeks(c models.OptionContract) (*models.Greeks, error) {
	g, err := Greeks(c)
	if err != nil {
		bs.log.Debugw("rejected greeks input", "contract", c, "error", err)
	}
	return g, err
}
