package service

import (
	"context"
	"time"

	"github.com/rzzdr/quant-options-lab/config"
	"github.com/rzzdr/quant-options-lab/internal/montecarlo"
	"github.com/rzzdr/quant-options-lab/internal/pricing"
	"github.com/rzzdr/quant-options-lab/internal/risk"
	"github.com/rzzdr/quant-options-lab/internal/simulation"
	"github.com/rzzdr/quant-options-lab/pkg/metrics"
	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// Defaults fill in request fields the caller left unset
type Defaults struct {
	Trials    int
	Steps     int
	PathSteps int
	Workers   int
	Seed      *int64

	ConfidenceLevel  float64
	Horizon          int
	PeriodsPerYear   float64
	RequiredReturn   float64
	SimulationRuns   int
	HistoricalWindow int

	MaxPathPoints int
}

// DefaultsFromConfig copies the request defaults out of the loaded config
func DefaultsFromConfig(cfg *config.Config) Defaults {
	return Defaults{
		Trials:           cfg.Pricing.Trials,
		Steps:            cfg.Pricing.Steps,
		PathSteps:        cfg.Pricing.PathSteps,
		Workers:          cfg.Pricing.Workers,
		Seed:             cfg.Pricing.Seed,
		ConfidenceLevel:  cfg.Risk.ConfidenceLevel,
		Horizon:          cfg.Risk.Horizon,
		PeriodsPerYear:   cfg.Risk.PeriodsPerYear,
		RequiredReturn:   cfg.Risk.RequiredReturn,
		SimulationRuns:   cfg.Risk.SimulationRuns,
		HistoricalWindow: cfg.Risk.HistoricalWindow,
		MaxPathPoints:    cfg.API.MaxPathPoints,
	}
}

// Service is the single entry point the HTTP API, the Kafka engine and the
// CLI share. It resolves defaults, records metrics and logs failures; the
// calculations themselves stay in the core packages.
type Service struct {
	defaults  Defaults
	pricer    *pricing.BlackScholesPricer
	simulator *simulation.Simulator
	estimator *montecarlo.Estimator
	recorder  *metrics.Recorder
	log       *logger.Logger
}

// New creates a new service. recorder may be nil.
func New(defaults Defaults, recorder *metrics.Recorder) *Service {
	if defaults.Trials <= 0 {
		defaults.Trials = 100_000
	}
	if defaults.ConfidenceLevel <= 0 || defaults.ConfidenceLevel >= 1 {
		defaults.ConfidenceLevel = 0.95
	}
	if defaults.Horizon <= 0 {
		defaults.Horizon = 1
	}
	if defaults.PeriodsPerYear <= 0 {
		defaults.PeriodsPerYear = 252
	}
	if defaults.MaxPathPoints <= 0 {
		defaults.MaxPathPoints = 1_000_000
	}

	return &Service{
		defaults:  defaults,
		pricer:    pricing.NewBlackScholesPricer(nil),
		simulator: simulation.NewSimulator(nil),
		estimator: montecarlo.NewEstimator(montecarlo.Config{
			Steps:     defaults.Steps,
			PathSteps: defaults.PathSteps,
			Workers:   defaults.Workers,
		}, nil),
		recorder: recorder,
		log:      logger.GetLogger("service"),
	}
}

// Price returns the closed-form price of a contract
func (s *Service) Price(ctx context.Context, c models.OptionContract) (result *models.PriceResult, err error) {
	defer s.observe(models.OperationPrice, time.Now(), &err)

	price, err := s.pricer.Price(c)
	if err != nil {
		return nil, err
	}
	return &models.PriceResult{Price: price}, nil
}

// Greeks returns the closed-form sensitivities of a contract
func (s *Service) Greeks(ctx context.Context, c models.OptionContract) (result *models.Greeks, err error) {
	defer s.observe(models.OperationGreeks, time.Now(), &err)

	return s.pricer.Greeks(c)
}

// ImpliedVolatility solves for the volatility matching a market price
func (s *Service) ImpliedVolatility(ctx context.Context, req models.ImpliedVolatilityRequest) (result *models.ImpliedVolatilityResult, err error) {
	defer s.observe(models.OperationImpliedVolatility, time.Now(), &err)

	vol, err := s.pricer.ImpliedVolatility(req.OptionContract, req.MarketPrice)
	if err != nil {
		return nil, err
	}
	return &models.ImpliedVolatilityResult{ImpliedVolatility: vol}, nil
}

// Simulate generates GBM paths, refusing batches above the configured size
func (s *Service) Simulate(ctx context.Context, req models.SimulateRequest) (result *models.SimulateResult, err error) {
	defer s.observe(models.OperationSimulate, time.Now(), &err)

	if req.Paths > 0 && req.Steps >= 0 {
		if points := int64(req.Paths) * int64(req.Steps+1); points > int64(s.defaults.MaxPathPoints) {
			return nil, errors.InvalidArgumentf("%d path points exceed the limit of %d", points, s.defaults.MaxPathPoints)
		}
	}

	paths, err := s.simulator.Simulate(simulation.GBMParams{
		Spot:       req.Spot,
		Rate:       req.Rate,
		Volatility: req.Volatility,
		Horizon:    req.Horizon,
		Steps:      req.Steps,
		Paths:      req.Paths,
	}, s.seed(req.Seed))
	if err != nil {
		return nil, err
	}
	return &models.SimulateResult{Paths: paths}, nil
}

// Estimate prices a contract by Monte Carlo simulation
func (s *Service) Estimate(ctx context.Context, req models.EstimateRequest) (result *models.MonteCarloResult, err error) {
	defer s.observe(models.OperationEstimate, time.Now(), &err)

	payoff, err := montecarlo.NewPayoff(req.Payoff, req.OptionContract)
	if err != nil {
		return nil, err
	}

	trials := s.defaults.Trials
	if req.Trials != nil {
		trials = *req.Trials
	}
	if req.Steps < 0 {
		return nil, errors.InvalidArgumentf("steps must be non-negative, got %d", req.Steps)
	}

	result, err = s.estimator.EstimatePayoff(ctx, req.OptionContract, payoff, trials, req.Steps, s.seed(req.Seed))
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.RecordMonteCarlo(result.Payoff, result.Trials, result.StandardError)
	}
	return result, nil
}

// RiskSummary returns mean, volatility and tail risk of a return series
func (s *Service) RiskSummary(ctx context.Context, req models.RiskSummaryRequest) (result *models.RiskSummary, err error) {
	defer s.observe(models.OperationRiskSummary, time.Now(), &err)

	confidence := req.ConfidenceLevel
	if confidence == 0 {
		confidence = s.defaults.ConfidenceLevel
	}
	return risk.Compute(req.Returns, confidence)
}

// RiskReport returns the full metric suite of a return series
func (s *Service) RiskReport(ctx context.Context, req models.RiskReportRequest) (result *models.RiskReport, err error) {
	defer s.observe(models.OperationRiskReport, time.Now(), &err)

	opts := risk.Options{
		Alpha:          req.Alpha,
		Horizon:        req.Horizon,
		PeriodsPerYear: req.PeriodsPerYear,
		RequiredReturn: s.defaults.RequiredReturn,
		Window:         s.defaults.HistoricalWindow,
		SimulationRuns: s.defaults.SimulationRuns,
		Rand:           simulation.NewRand(s.seed(req.Seed)),
	}
	if opts.Alpha == 0 {
		opts.Alpha = 1 - s.defaults.ConfidenceLevel
	}
	if opts.Horizon == 0 {
		opts.Horizon = s.defaults.Horizon
	}
	if opts.PeriodsPerYear == 0 {
		opts.PeriodsPerYear = s.defaults.PeriodsPerYear
	}
	if req.RequiredReturn != nil {
		opts.RequiredReturn = *req.RequiredReturn
	}

	return risk.Evaluate(req.Returns, opts)
}

func (s *Service) seed(requested *int64) *int64 {
	if requested != nil {
		return requested
	}
	return s.defaults.Seed
}

func (s *Service) observe(op models.Operation, start time.Time, errp *error) {
	err := *errp
	if s.recorder != nil {
		s.recorder.RecordCalculation(string(op), err, time.Since(start))
	}

	switch {
	case err == nil:
		s.log.Debugw("calculation completed", "operation", op, "duration", time.Since(start))
	case errors.IsInvalidArgument(err):
		s.log.Warnw("rejected request", "operation", op, "error", err)
	default:
		s.log.Errorw("calculation failed", "operation", op, "error", err)
	}
}
