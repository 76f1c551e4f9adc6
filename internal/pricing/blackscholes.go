package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// Pricer prices a European option contract
type Pricer interface {
	Price(contract models.OptionContract) (float64, error)
}

// BlackScholesPricer implements the Black-Scholes option pricing model
type BlackScholesPricer struct {
	log *logger.Logger
}

// NewBlackScholesPricer creates a new Black-Scholes pricer
func NewBlackScholesPricer(log *logger.Logger) *BlackScholesPricer {
	if log == nil {
		log = logger.GetLogger("pricing.blackscholes")
	}
	return &BlackScholesPricer{log: log}
}

// Price calculates the closed-form price of a European option
func (bs *BlackScholesPricer) Price(contract models.OptionContract) (float64, error) {
	price, err := PriceContract(contract)
	if err != nil {
		bs.log.Debugw("rejected pricing input", "contract", contract, "error", err)
		return 0, err
	}
	return price, nil
}

// Price is the functional form of PriceContract
func Price(spot, strike, time, rate, volatility float64, optionType models.OptionType) (float64, error) {
	return PriceContract(models.OptionContract{
		Spot:         spot,
		Strike:       strike,
		TimeToExpiry: time,
		RiskFreeRate: rate,
		Volatility:   volatility,
		Type:         optionType,
	})
}

// PriceContract validates the contract and returns its Black-Scholes price.
// With zero volatility the price collapses to the discounted intrinsic value.
func PriceContract(c models.OptionContract) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	if c.Volatility == 0 {
		return Intrinsic(c.Spot, c.Strike, c.Type) * math.Exp(-c.RiskFreeRate*c.TimeToExpiry), nil
	}

	S, K, r, sigma, T := c.Spot, c.Strike, c.RiskFreeRate, c.Volatility, c.TimeToExpiry
	d1, d2 := moments(S, K, r, sigma, T)
	discountedStrike := K * math.Exp(-r*T)

	var price float64
	if c.Type == models.OptionTypeCall {
		price = S*normalCDF(d1) - discountedStrike*normalCDF(d2)
	} else {
		price = discountedStrike*normalCDF(-d2) - S*normalCDF(-d1)
	}

	// deep out-of-the-money rounding can dip a hair below zero
	return math.Max(price, 0), nil
}

// Intrinsic returns the undiscounted exercise value at the given spot
func Intrinsic(spot, strike float64, optionType models.OptionType) float64 {
	if optionType == models.OptionTypeCall {
		return math.Max(spot-strike, 0)
	}
	return math.Max(strike-spot, 0)
}

// PutCallParityGap returns C - P - (S - K·e^{-rT}), which is zero for
// consistent prices.
func PutCallParityGap(call, put float64, c models.OptionContract) float64 {
	return call - put - (c.Spot - c.Strike*math.Exp(-c.RiskFreeRate*c.TimeToExpiry))
}

func moments(S, K, r, sigma, T float64) (float64, float64) {
	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	return d1, d1 - sigma*sqrtT
}

func normalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

func normalPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}
