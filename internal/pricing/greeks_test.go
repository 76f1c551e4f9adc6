package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

func TestGreeksAtTheMoney(t *testing.T) {
	call, err := Greeks(atmContract(models.OptionTypeCall))
	require.NoError(t, err)
	assert.InDelta(t, 0.636831, call.Delta, 1e-6)
	assert.InDelta(t, 0.018762, call.Gamma, 1e-6)
	assert.InDelta(t, 0.375240, call.Vega, 1e-6)
	assert.InDelta(t, 0.532325, call.Rho, 1e-6)
	assert.Less(t, call.Theta, 0.0)

	put, err := Greeks(atmContract(models.OptionTypePut))
	require.NoError(t, err)
	assert.InDelta(t, call.Delta-1, put.Delta, 1e-12)
	assert.InDelta(t, call.Gamma, put.Gamma, 1e-12)
	assert.InDelta(t, call.Vega, put.Vega, 1e-12)
	assert.Less(t, put.Rho, 0.0)
}

func TestGreeksDeltaMatchesFiniteDifference(t *testing.T) {
	c := atmContract(models.OptionTypeCall)
	g, err := Greeks(c)
	require.NoError(t, err)

	h := 1e-4
	up, down := c, c
	up.Spot += h
	down.Spot -= h
	pu, _ := PriceContract(up)
	pd, _ := PriceContract(down)

	assert.InDelta(t, (pu-pd)/(2*h), g.Delta, 1e-6)
}

func TestGreeksRejectZeroVolatility(t *testing.T) {
	c := atmContract(models.OptionTypeCall)
	c.Volatility = 0
	_, err := NewBlackScholesPricer(logger.NewNop()).Greeks(c)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	for _, vol := range []float64{0.05, 0.2, 0.65, 1.4} {
		for _, typ := range []models.OptionType{models.OptionTypeCall, models.OptionTypePut} {
			c := atmContract(typ)
			c.Strike = 110
			c.Volatility = vol
			price, err := PriceContract(c)
			require.NoError(t, err)

			c.Volatility = 0
			solved, err := ImpliedVolatility(c, price)
			require.NoError(t, err)
			assert.InDelta(t, vol, solved, 1e-5, "vol=%v type=%v", vol, typ)
		}
	}
}

func TestImpliedVolatilityRejectsArbitragePrices(t *testing.T) {
	pricer := NewBlackScholesPricer(logger.NewNop())
	c := atmContract(models.OptionTypeCall)

	_, err := pricer.ImpliedVolatility(c, 150)
	assert.True(t, errors.IsInvalidArgument(err))

	_, err = pricer.ImpliedVolatility(c, -1)
	assert.True(t, errors.IsInvalidArgument(err))
}
