package montecarlo

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-options-lab/internal/pricing"
	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

func seed(v int64) *int64 { return &v }

func atmCall() models.OptionContract {
	return models.OptionContract{
		Spot:         100,
		Strike:       100,
		TimeToExpiry: 1,
		RiskFreeRate: 0.05,
		Volatility:   0.2,
		Type:         models.OptionTypeCall,
	}
}

func newEstimator() *Estimator {
	return NewEstimator(Config{}, logger.NewNop())
}

func TestEstimateConvergesToClosedForm(t *testing.T) {
	if testing.Short() {
		t.Skip("long-running convergence test")
	}

	result, err := newEstimator().Estimate(context.Background(), atmCall(), 1_000_000, seed(42))
	require.NoError(t, err)

	assert.InDelta(t, 10.4506, result.Price, 0.05)
	assert.Equal(t, 1_000_000, result.Trials)
	assert.Equal(t, "european", result.Payoff)
	assert.Less(t, result.StandardError, 0.02)
}

func TestEstimateWithinThreeStandardErrors(t *testing.T) {
	for _, c := range []models.OptionContract{
		atmCall(),
		{Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2, Type: models.OptionTypePut},
		{Spot: 100, Strike: 110, TimeToExpiry: 0.5, RiskFreeRate: 0.03, Volatility: 0.35, Type: models.OptionTypeCall},
	} {
		exact, err := pricing.PriceContract(c)
		require.NoError(t, err)

		result, err := newEstimator().Estimate(context.Background(), c, 100_000, seed(2024))
		require.NoError(t, err)

		assert.InDelta(t, exact, result.Price, 3*result.StandardError, "%s K=%v", c.Type, c.Strike)
	}
}

func TestEstimateReproducibleWithSeed(t *testing.T) {
	e := newEstimator()
	a, err := e.Estimate(context.Background(), atmCall(), 10_000, seed(7))
	require.NoError(t, err)
	b, err := e.Estimate(context.Background(), atmCall(), 10_000, seed(7))
	require.NoError(t, err)
	assert.Equal(t, a.Price, b.Price)
	assert.Equal(t, a.StandardError, b.StandardError)
	require.NotNil(t, a.Seed)
	assert.Equal(t, int64(7), *a.Seed)

	c, err := e.Estimate(context.Background(), atmCall(), 10_000, seed(8))
	require.NoError(t, err)
	assert.NotEqual(t, a.Price, c.Price)
}

func TestEstimateUnseededRunsDiffer(t *testing.T) {
	e := newEstimator()
	a, err := e.Estimate(context.Background(), atmCall(), 1000, nil)
	require.NoError(t, err)
	b, err := e.Estimate(context.Background(), atmCall(), 1000, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Price, b.Price)
	assert.Nil(t, a.Seed)
}

func TestEstimateSingleTrialHasUndefinedError(t *testing.T) {
	result, err := newEstimator().Estimate(context.Background(), atmCall(), 1, seed(1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Trials)
	assert.True(t, math.IsNaN(result.StandardError))
	assert.GreaterOrEqual(t, result.Price, 0.0)
}

func TestEstimateFewerTrialsThanWorkers(t *testing.T) {
	e := NewEstimator(Config{Workers: 8}, logger.NewNop())
	result, err := e.Estimate(context.Background(), atmCall(), 3, seed(1))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Trials)
	assert.False(t, math.IsNaN(result.StandardError))
}

func TestEstimateZeroVolatilityIsDeterministic(t *testing.T) {
	c := atmCall()
	c.Volatility = 0
	result, err := newEstimator().Estimate(context.Background(), c, 500, seed(3))
	require.NoError(t, err)

	// every path ends at S·e^{rT}
	expected := math.Max(c.Spot*math.Exp(c.RiskFreeRate)-c.Strike, 0) * math.Exp(-c.RiskFreeRate)
	assert.InDelta(t, expected, result.Price, 1e-9)
	assert.InDelta(t, 0, result.StandardError, 1e-12)
}

func TestEstimateValidation(t *testing.T) {
	e := newEstimator()

	_, err := e.Estimate(context.Background(), atmCall(), 0, seed(1))
	assert.True(t, errors.IsInvalidArgument(err))

	_, err = e.Estimate(context.Background(), atmCall(), -10, seed(1))
	assert.True(t, errors.IsInvalidArgument(err))

	bad := atmCall()
	bad.Spot = -1
	_, err = e.Estimate(context.Background(), bad, 100, seed(1))
	assert.True(t, errors.IsInvalidArgument(err))

	_, err = e.EstimatePayoff(context.Background(), atmCall(), nil, 100, 1, seed(1))
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestEstimateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newEstimator().Estimate(ctx, atmCall(), 100_000, seed(1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestEstimateMultiStepEuropeanMatchesClosedForm(t *testing.T) {
	e := NewEstimator(Config{Steps: 12}, logger.NewNop())
	result, err := e.Estimate(context.Background(), atmCall(), 50_000, seed(99))
	require.NoError(t, err)
	assert.Equal(t, 12, result.Steps)
	assert.InDelta(t, 10.4506, result.Price, 4*result.StandardError)
}

func TestAsianCheaperThanEuropean(t *testing.T) {
	e := newEstimator()
	c := atmCall()

	asian, err := NewPayoff("asian", c)
	require.NoError(t, err)
	a, err := e.EstimatePayoff(context.Background(), c, asian, 50_000, 52, seed(5))
	require.NoError(t, err)

	eu, err := e.Estimate(context.Background(), c, 50_000, seed(5))
	require.NoError(t, err)

	assert.Equal(t, "asian", a.Payoff)
	assert.Less(t, a.Price, eu.Price)
	assert.Greater(t, a.Price, 0.0)
}

func TestPathDependentPayoffDefaultsToPathSteps(t *testing.T) {
	e := NewEstimator(Config{Steps: 1, PathSteps: 24, Workers: 2}, logger.NewNop())
	c := atmCall()

	asian, err := NewPayoff("asian", c)
	require.NoError(t, err)
	a, err := e.EstimatePayoff(context.Background(), c, asian, 20_000, 0, seed(3))
	require.NoError(t, err)
	eu, err := e.EstimatePayoff(context.Background(), c, EuropeanPayoff{Type: c.Type, Strike: c.Strike}, 20_000, 0, seed(3))
	require.NoError(t, err)

	assert.Equal(t, 24, a.Steps)
	assert.Equal(t, 1, eu.Steps)
	assert.Less(t, a.Price, eu.Price-3)
}

func TestPayoffs(t *testing.T) {
	call := atmCall()
	put := atmCall()
	put.Type = models.OptionTypePut

	path := []float64{100, 120, 90, 111}

	eu, err := NewPayoff("European", call)
	require.NoError(t, err)
	assert.False(t, eu.PathDependent())
	assert.InDelta(t, 11, eu.Value(path), 1e-12)

	euPut, err := NewPayoff("", put)
	require.NoError(t, err)
	assert.Equal(t, 0.0, euPut.Value(path))

	asian, err := NewPayoff("asian", call)
	require.NoError(t, err)
	assert.True(t, asian.PathDependent())
	// mean of 120, 90, 111 excludes the spot
	assert.InDelta(t, 7, asian.Value(path), 1e-12)

	asianPut, err := NewPayoff("asian", put)
	require.NoError(t, err)
	assert.Equal(t, 0.0, asianPut.Value(path))
	assert.Equal(t, 0.0, asian.Value([]float64{100}))

	_, err = NewPayoff("barrier", call)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestAccumulatorMergeMatchesSinglePass(t *testing.T) {
	xs := []float64{1, 4, 2, 8, 5, 7, 3, 6}

	var whole accumulator
	for _, x := range xs {
		whole.add(x)
	}

	var left, right accumulator
	for _, x := range xs[:3] {
		left.add(x)
	}
	for _, x := range xs[3:] {
		right.add(x)
	}
	left.merge(right)

	assert.Equal(t, whole.n, left.n)
	assert.InDelta(t, whole.mean, left.mean, 1e-12)
	assert.InDelta(t, whole.m2, left.m2, 1e-9)
	assert.InDelta(t, 4.5, whole.mean, 1e-12)
	// sample variance 6, n = 8
	assert.InDelta(t, math.Sqrt(6.0/8.0), whole.standardError(), 1e-12)
}
