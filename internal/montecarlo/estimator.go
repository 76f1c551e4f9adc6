package montecarlo

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/quant-options-lab/internal/simulation"
	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// Config contains configuration for the Monte Carlo estimator
type Config struct {
	// Steps is the number of time steps per trial. Path-independent payoffs
	// only need one exact step.
	Steps int
	// PathSteps is the monitoring step count used for path-dependent payoffs
	// when the caller does not set one
	PathSteps int
	// Workers is the number of goroutines sharing the trials. Results are
	// reproducible for a fixed seed and worker count.
	Workers int
	// CheckEvery is how many trials a worker runs between context checks
	CheckEvery int
}

// Estimator prices options by averaging discounted simulated payoffs
type Estimator struct {
	config Config
	log    *logger.Logger
}

// NewEstimator creates a new Monte Carlo estimator
func NewEstimator(config Config, log *logger.Logger) *Estimator {
	if config.Steps <= 0 {
		config.Steps = 1
	}
	if config.PathSteps <= 0 {
		config.PathSteps = 252
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.CheckEvery <= 0 {
		config.CheckEvery = 10000
	}
	if log == nil {
		log = logger.GetLogger("montecarlo.estimator")
	}

	return &Estimator{config: config, log: log}
}

// Estimate prices a European option with the configured number of steps
func (e *Estimator) Estimate(ctx context.Context, contract models.OptionContract, trials int, seed *int64) (*models.MonteCarloResult, error) {
	return e.EstimatePayoff(ctx, contract, EuropeanPayoff{Type: contract.Type, Strike: contract.Strike}, trials, 0, seed)
}

// EstimatePayoff prices an arbitrary payoff. steps <= 0 uses the configured
// step count, or PathSteps when the payoff depends on the whole path.
func (e *Estimator) EstimatePayoff(ctx context.Context, contract models.OptionContract, payoff Payoff, trials, steps int, seed *int64) (*models.MonteCarloResult, error) {
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	if trials <= 0 {
		return nil, errors.InvalidArgumentf("trials must be positive, got %d", trials)
	}
	if payoff == nil {
		return nil, errors.InvalidArgument("payoff is required")
	}
	if steps <= 0 {
		steps = e.config.Steps
		if payoff.PathDependent() {
			steps = e.config.PathSteps
		}
	}

	start := time.Now()
	params := simulation.GBMParams{
		Spot:       contract.Spot,
		Rate:       contract.RiskFreeRate,
		Volatility: contract.Volatility,
		Horizon:    contract.TimeToExpiry,
		Steps:      steps,
		Paths:      trials,
	}
	discount := math.Exp(-contract.RiskFreeRate * contract.TimeToExpiry)

	workers := min(e.config.Workers, trials)
	streams := simulation.Streams(seed, workers)
	partials := make([]accumulator, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		n := trials / workers
		if w < trials%workers {
			n++
		}
		w := w
		g.Go(func() error {
			acc, err := e.runTrials(gctx, params, payoff, discount, n, streams[w])
			partials[w] = acc
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total accumulator
	for _, p := range partials {
		total.merge(p)
	}

	result := &models.MonteCarloResult{
		Price:         total.mean,
		StandardError: total.standardError(),
		Trials:        total.n,
		Steps:         steps,
		Payoff:        payoff.Name(),
	}
	if seed != nil {
		s := *seed
		result.Seed = &s
	}

	e.log.Debugw("monte carlo estimate",
		"payoff", result.Payoff,
		"trials", trials,
		"steps", steps,
		"workers", workers,
		"price", result.Price,
		"duration", time.Since(start),
	)
	return result, nil
}

func (e *Estimator) runTrials(ctx context.Context, p simulation.GBMParams, payoff Payoff, discount float64, n int, rng *rand.Rand) (accumulator, error) {
	var acc accumulator
	path := make([]float64, p.Steps+1)

	for i := 0; i < n; i++ {
		if i%e.config.CheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return acc, err
			}
		}

		if p.Steps == 1 {
			path[0] = p.Spot
			path[1] = simulation.TerminalPrice(p.Spot, p.Rate, p.Volatility, p.Horizon, rng.NormFloat64())
		} else {
			simulation.FillPath(p, rng, path)
		}

		acc.add(discount * payoff.Value(path))
	}
	return acc, nil
}

// accumulator keeps a running mean and sum of squared deviations (Welford)
type accumulator struct {
	n    int
	mean float64
	m2   float64
}

func (a *accumulator) add(x float64) {
	a.n++
	delta := x - a.mean
	a.mean += delta / float64(a.n)
	a.m2 += delta * (x - a.mean)
}

// merge folds b into a using the pairwise update of Chan et al.
func (a *accumulator) merge(b accumulator) {
	if b.n == 0 {
		return
	}
	if a.n == 0 {
		*a = b
		return
	}
	n := a.n + b.n
	delta := b.mean - a.mean
	a.mean += delta * float64(b.n) / float64(n)
	a.m2 += b.m2 + delta*delta*float64(a.n)*float64(b.n)/float64(n)
	a.n = n
}

// standardError is the sample standard deviation over √n, undefined (NaN)
// for a single observation.
func (a accumulator) standardError() float64 {
	if a.n < 2 {
		return math.NaN()
	}
	variance := a.m2 / float64(a.n-1)
	return math.Sqrt(variance / float64(a.n))
}
