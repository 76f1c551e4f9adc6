package service

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-options-lab/config"
	"github.com/rzzdr/quant-options-lab/pkg/metrics"
	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
)

func seed(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }

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

func newService(t *testing.T) (*Service, *metrics.Recorder) {
	t.Helper()
	recorder := metrics.NewRecorder()
	return New(Defaults{Trials: 20_000, Workers: 2, MaxPathPoints: 1000}, recorder), recorder
}

func TestDefaultsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Pricing.Trials = 123
	cfg.Pricing.Seed = seed(9)
	cfg.Risk.ConfidenceLevel = 0.99
	cfg.API.MaxPathPoints = 50

	d := DefaultsFromConfig(cfg)
	assert.Equal(t, 123, d.Trials)
	assert.Equal(t, int64(9), *d.Seed)
	assert.Equal(t, 0.99, d.ConfidenceLevel)
	assert.Equal(t, 50, d.MaxPathPoints)
}

func TestPriceRecordsMetrics(t *testing.T) {
	svc, recorder := newService(t)

	result, err := svc.Price(context.Background(), atmCall())
	require.NoError(t, err)
	assert.InDelta(t, 10.4506, result.Price, 1e-4)

	bad := atmCall()
	bad.Volatility = -1
	_, err = svc.Price(context.Background(), bad)
	assert.True(t, errors.IsInvalidArgument(err))

	body := scrape(t, recorder)
	assert.Contains(t, body, `qf_calculations_total{operation="price",status="ok"} 1`)
	assert.Contains(t, body, `qf_calculations_total{operation="price",status="error"} 1`)
}

func TestGreeksAndImpliedVolatility(t *testing.T) {
	svc, _ := newService(t)

	g, err := svc.Greeks(context.Background(), atmCall())
	require.NoError(t, err)
	assert.InDelta(t, 0.636831, g.Delta, 1e-6)

	iv, err := svc.ImpliedVolatility(context.Background(), models.ImpliedVolatilityRequest{
		OptionContract: atmCall(),
		MarketPrice:    10.450583572185565,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, iv.ImpliedVolatility, 1e-6)
}

func TestSimulateEnforcesPathLimit(t *testing.T) {
	svc, _ := newService(t)

	req := models.SimulateRequest{Spot: 100, Rate: 0.05, Volatility: 0.2, Horizon: 1, Steps: 9, Paths: 100, Seed: seed(1)}
	result, err := svc.Simulate(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Paths, 100)

	req.Paths = 101
	_, err = svc.Simulate(context.Background(), req)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestEstimateAppliesDefaults(t *testing.T) {
	svc, recorder := newService(t)

	result, err := svc.Estimate(context.Background(), models.EstimateRequest{OptionContract: atmCall(), Seed: seed(4)})
	require.NoError(t, err)
	assert.Equal(t, 20_000, result.Trials)
	assert.Equal(t, "european", result.Payoff)
	assert.InDelta(t, 10.4506, result.Price, 4*result.StandardError)

	count, err := testutil.GatherAndCount(recorder.Registry(), "qf_mc_standard_error")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.Estimate(context.Background(), models.EstimateRequest{OptionContract: atmCall(), Trials: intPtr(-1)})
	assert.True(t, errors.IsInvalidArgument(err))

	_, err = svc.Estimate(context.Background(), models.EstimateRequest{OptionContract: atmCall(), Trials: intPtr(0)})
	assert.True(t, errors.IsInvalidArgument(err))

	_, err = svc.Estimate(context.Background(), models.EstimateRequest{OptionContract: atmCall(), Payoff: "lookback"})
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestEstimateAsianMonitorsFullPath(t *testing.T) {
	svc := New(Defaults{Trials: 20_000, Steps: 1, PathSteps: 52, Workers: 2}, nil)

	asian, err := svc.Estimate(context.Background(), models.EstimateRequest{OptionContract: atmCall(), Payoff: "asian", Seed: seed(11)})
	require.NoError(t, err)
	european, err := svc.Estimate(context.Background(), models.EstimateRequest{OptionContract: atmCall(), Seed: seed(11)})
	require.NoError(t, err)

	assert.Equal(t, 52, asian.Steps)
	assert.Equal(t, 1, european.Steps)
	// averaging dampens volatility, so the arithmetic Asian call is worth
	// well under the European one (about 5.8 against 10.45)
	assert.Less(t, asian.Price, european.Price-3)

	oneStep, err := svc.Estimate(context.Background(), models.EstimateRequest{OptionContract: atmCall(), Payoff: "asian", Steps: 1, Seed: seed(11)})
	require.NoError(t, err)
	assert.Equal(t, 1, oneStep.Steps)
}

func TestEstimateUsesConfiguredSeed(t *testing.T) {
	svc := New(Defaults{Trials: 5000, Seed: seed(77)}, nil)

	a, err := svc.Estimate(context.Background(), models.EstimateRequest{OptionContract: atmCall()})
	require.NoError(t, err)
	b, err := svc.Estimate(context.Background(), models.EstimateRequest{OptionContract: atmCall()})
	require.NoError(t, err)
	assert.Equal(t, a.Price, b.Price)
}

func TestRiskOperations(t *testing.T) {
	svc, _ := newService(t)
	returns := []float64{-0.05, -0.04, -0.03, -0.02, -0.01, 0, 0.01, 0.02, 0.03, 0.04,
		0.05, 0.06, 0.07, 0.08, 0.09, 0.10, 0.11, 0.12, 0.13, 0.14}

	summary, err := svc.RiskSummary(context.Background(), models.RiskSummaryRequest{Returns: returns})
	require.NoError(t, err)
	assert.Equal(t, 0.95, summary.ConfidenceLevel)
	assert.InDelta(t, 0.05, summary.TailRisk, 1e-12)

	report, err := svc.RiskReport(context.Background(), models.RiskReportRequest{Returns: returns, Seed: seed(1)})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, report.Alpha, 1e-12)
	assert.Equal(t, 1, report.Horizon)
	assert.InDelta(t, 0.05, report.HistoricalVaR, 1e-12)
	assert.False(t, math.IsNaN(report.MonteCarloVaR))

	_, err = svc.RiskSummary(context.Background(), models.RiskSummaryRequest{})
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestDispatch(t *testing.T) {
	svc, _ := newService(t)
	payload, err := json.Marshal(atmCall())
	require.NoError(t, err)

	resp := svc.Dispatch(context.Background(), models.Request{ID: "r1", Operation: models.OperationPrice, Payload: payload})
	require.Nil(t, resp.Error)
	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, models.OperationPrice, resp.Operation)
	assert.InDelta(t, 10.4506, resp.Result.(*models.PriceResult).Price, 1e-4)
	assert.False(t, resp.Timestamp.IsZero())

	resp = svc.Dispatch(context.Background(), models.Request{ID: "r2", Operation: "teleport", Payload: payload})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_argument", resp.Error.Type)
	assert.Nil(t, resp.Result)

	resp = svc.Dispatch(context.Background(), models.Request{ID: "r3", Operation: models.OperationEstimate, Payload: json.RawMessage(`{"spot":`)})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_argument", resp.Error.Type)

	resp = svc.Dispatch(context.Background(), models.Request{ID: "r4", Operation: models.OperationRiskSummary})
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "payload")
}

func TestDispatchEveryOperation(t *testing.T) {
	svc, _ := newService(t)
	payloads := map[models.Operation]string{
		models.OperationPrice:             `{"spot":100,"strike":100,"time":1,"rate":0.05,"volatility":0.2,"type":"call"}`,
		models.OperationGreeks:            `{"spot":100,"strike":100,"time":1,"rate":0.05,"volatility":0.2,"type":"put"}`,
		models.OperationImpliedVolatility: `{"spot":100,"strike":100,"time":1,"rate":0.05,"type":"call","market_price":10.45}`,
		models.OperationSimulate:          `{"spot":100,"rate":0.05,"volatility":0.2,"horizon":1,"steps":4,"paths":2,"seed":3}`,
		models.OperationEstimate:          `{"spot":100,"strike":100,"time":1,"rate":0.05,"volatility":0.2,"type":"call","trials":1000,"seed":3}`,
		models.OperationRiskSummary:       `{"returns":[0.01,-0.02,0.03],"confidence_level":0.9}`,
		models.OperationRiskReport:        `{"returns":[0.01,-0.02,0.03,0.005],"alpha":0.1}`,
	}

	for op, payload := range payloads {
		t.Run(string(op), func(t *testing.T) {
			resp := svc.Dispatch(context.Background(), models.Request{ID: "x", Operation: op, Payload: json.RawMessage(payload)})
			require.Nil(t, resp.Error, "%+v", resp.Error)
			_, err := json.Marshal(resp)
			assert.NoError(t, err)
		})
	}
}

func scrape(t *testing.T, recorder *metrics.Recorder) string {
	t.Helper()
	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
