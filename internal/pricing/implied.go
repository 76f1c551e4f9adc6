package pricing

import (
	"math"

	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
)

const (
	ivInitialGuess   = 0.2
	ivTolerance      = 1e-8
	ivMaxIterations  = 100
	ivLowerBound     = 1e-6
	ivUpperBound     = 5.0
	ivMinVega        = 1e-10
	ivBisectionSteps = 200
)

// ImpliedVolatility solves for the volatility that reproduces marketPrice.
// The Volatility field of c is ignored. Newton-Raphson is tried first and
// bisection on [1e-6, 5] takes over when vega vanishes or Newton leaves the
// bracket.
func ImpliedVolatility(c models.OptionContract, marketPrice float64) (float64, error) {
	c.Volatility = ivInitialGuess
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if math.IsNaN(marketPrice) || marketPrice <= 0 {
		return 0, errors.InvalidArgumentf("market price must be positive, got %v", marketPrice)
	}

	lower, upper := noArbitrageBounds(c)
	if marketPrice < lower || marketPrice >= upper {
		return 0, errors.InvalidArgumentf("market price %v outside no-arbitrage bounds [%v, %v)", marketPrice, lower, upper)
	}

	priceAt := func(sigma float64) float64 {
		c.Volatility = sigma
		p, _ := PriceContract(c)
		return p
	}

	sigma := ivInitialGuess
	for i := 0; i < ivMaxIterations; i++ {
		diff := priceAt(sigma) - marketPrice
		if math.Abs(diff) < ivTolerance {
			return sigma, nil
		}

		d1, _ := moments(c.Spot, c.Strike, c.RiskFreeRate, sigma, c.TimeToExpiry)
		vega := c.Spot * normalPDF(d1) * math.Sqrt(c.TimeToExpiry)
		if vega < ivMinVega {
			break
		}

		sigma -= diff / vega
		if sigma <= ivLowerBound || sigma >= ivUpperBound {
			break
		}
	}

	lo, hi := ivLowerBound, ivUpperBound
	if (priceAt(lo)-marketPrice)*(priceAt(hi)-marketPrice) > 0 {
		return 0, errors.Numerical("implied volatility not bracketed by [1e-6, 5]")
	}
	for i := 0; i < ivBisectionSteps; i++ {
		mid := 0.5 * (lo + hi)
		diff := priceAt(mid) - marketPrice
		if math.Abs(diff) < ivTolerance || hi-lo < ivTolerance {
			return mid, nil
		}
		if diff > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}

	return 0, errors.Numerical("implied volatility did not converge")
}

// ImpliedVolatility is the method form of the package-level ImpliedVolatility
func (bs *BlackScholesPricer) ImpliedVolatility(c models.OptionContract, marketPrice float64) (float64, error) {
	sigma, err := ImpliedVolatility(c, marketPrice)
	if err != nil {
		bs.log.Warnw("implied volatility failed", "contract", c, "market_price", marketPrice, "error", err)
	}
	return sigma, err
}

func noArbitrageBounds(c models.OptionContract) (float64, float64) {
	discountedStrike := c.Strike * math.Exp(-c.RiskFreeRate*c.TimeToExpiry)
	if c.Type == models.OptionTypeCall {
		return math.Max(c.Spot-discountedStrike, 0), c.Spot
	}
	return math.Max(discountedStrike-c.Spot, 0), discountedStrike
}
