package pricing

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

func atmContract(t models.OptionType) models.OptionContract {
	return models.OptionContract{Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2, Type: t}
}

func TestPriceReferenceValues(t *testing.T) {
	call, err := Price(100, 100, 1, 0.05, 0.2, models.OptionTypeCall)
	require.NoError(t, err)
	assert.InDelta(t, 10.450583572185565, call, 1e-9)

	put, err := Price(100, 100, 1, 0.05, 0.2, models.OptionTypePut)
	require.NoError(t, err)
	assert.InDelta(t, 5.573526022256971, put, 1e-9)

	otm, err := Price(100, 105, 1, 0.05, 0.2, models.OptionTypeCall)
	require.NoError(t, err)
	assert.InDelta(t, 8.021352235143176, otm, 1e-9)
}

func TestPriceIsIdempotent(t *testing.T) {
	first, err := PriceContract(atmContract(models.OptionTypeCall))
	require.NoError(t, err)
	second, err := PriceContract(atmContract(models.OptionTypeCall))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPriceZeroVolatilityIsDiscountedIntrinsic(t *testing.T) {
	c := models.OptionContract{Spot: 120, Strike: 100, TimeToExpiry: 2, RiskFreeRate: 0.03, Volatility: 0, Type: models.OptionTypeCall}
	price, err := PriceContract(c)
	require.NoError(t, err)
	assert.Equal(t, 20*math.Exp(-0.06), price)

	c.Type = models.OptionTypePut
	price, err = PriceContract(c)
	require.NoError(t, err)
	assert.Equal(t, 0.0, price)
}

func TestPriceValidation(t *testing.T) {
	cases := []struct {
		name string
		spot float64
		strk float64
		time float64
		rate float64
		vol  float64
		typ  models.OptionType
	}{
		{"negative spot", -100, 100, 1, 0.05, 0.2, models.OptionTypeCall},
		{"negative strike", 100, -1, 1, 0.05, 0.2, models.OptionTypeCall},
		{"negative volatility", 100, 100, 1, 0.05, -0.2, models.OptionTypePut},
		{"zero time", 100, 100, 0, 0.05, 0.2, models.OptionTypeCall},
		{"negative time", 100, 100, -1, 0.05, 0.2, models.OptionTypePut},
		{"unknown type", 100, 100, 1, 0.05, 0.2, models.OptionType(7)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			price, err := Price(tc.spot, tc.strk, tc.time, tc.rate, tc.vol, tc.typ)
			assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
			assert.Zero(t, price)
		})
	}
}

func TestPutCallParity(t *testing.T) {
	c := atmContract(models.OptionTypeCall)
	call, err := PriceContract(c)
	require.NoError(t, err)
	c.Type = models.OptionTypePut
	put, err := PriceContract(c)
	require.NoError(t, err)

	assert.InDelta(t, 0, PutCallParityGap(call, put, c), 1e-9)
}

func TestBlackScholesPricerImplementsPricer(t *testing.T) {
	var p Pricer = NewBlackScholesPricer(logger.NewNop())
	price, err := p.Price(atmContract(models.OptionTypeCall))
	require.NoError(t, err)
	assert.InDelta(t, 10.4506, price, 1e-4)

	_, err = p.Price(models.OptionContract{})
	assert.Error(t, err)
}

func TestPricingProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("zero volatility returns discounted intrinsic value", prop.ForAll(
		func(spot, strike, time, rate float64, isCall bool) bool {
			typ := models.OptionTypePut
			if isCall {
				typ = models.OptionTypeCall
			}
			price, err := Price(spot, strike, time, rate, 0, typ)
			return err == nil && price == Intrinsic(spot, strike, typ)*math.Exp(-rate*time)
		},
		gen.Float64Range(1, 500),
		gen.Float64Range(1, 500),
		gen.Float64Range(0.01, 5),
		gen.Float64Range(-0.02, 0.15),
		gen.Bool(),
	))

	properties.Property("put-call parity holds", prop.ForAll(
		func(spot, strike, time, rate, vol float64) bool {
			c := models.OptionContract{Spot: spot, Strike: strike, TimeToExpiry: time, RiskFreeRate: rate, Volatility: vol, Type: models.OptionTypeCall}
			call, err := PriceContract(c)
			if err != nil {
				return false
			}
			c.Type = models.OptionTypePut
			put, err := PriceContract(c)
			if err != nil {
				return false
			}
			return math.Abs(PutCallParityGap(call, put, c)) < 1e-8*math.Max(spot, strike)
		},
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
		gen.Float64Range(0.05, 3),
		gen.Float64Range(0, 0.1),
		gen.Float64Range(0.05, 0.8),
	))

	properties.Property("call price is bounded by spot and lower bound", prop.ForAll(
		func(spot, strike, vol float64) bool {
			price, err := Price(spot, strike, 1, 0.05, vol, models.OptionTypeCall)
			lower := math.Max(spot-strike*math.Exp(-0.05), 0)
			return err == nil && price >= lower-1e-9 && price <= spot
		},
		gen.Float64Range(1, 300),
		gen.Float64Range(1, 300),
		gen.Float64Range(0.01, 1.5),
	))

	properties.TestingRun(t)
}
