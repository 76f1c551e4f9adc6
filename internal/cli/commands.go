package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rzzdr/quant-options-lab/pkg/models"
)

// addContractFlags registers the flags that describe one option contract.
// An unset --rate falls back to pricing.risk_free_rate.
func addContractFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("spot", 0, "spot price of the underlying")
	cmd.Flags().Float64("strike", 0, "strike price")
	cmd.Flags().Float64("time", 0, "time to expiry in years")
	cmd.Flags().Float64("rate", 0, "annual risk-free rate")
	cmd.Flags().Float64("vol", 0, "annual volatility")
	cmd.Flags().String("type", "call", "option type (call or put)")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strike")
	_ = cmd.MarkFlagRequired("time")
}

func contractFromFlags(cmd *cobra.Command, app *App) (models.OptionContract, error) {
	spot, _ := cmd.Flags().GetFloat64("spot")
	strike, _ := cmd.Flags().GetFloat64("strike")
	t, _ := cmd.Flags().GetFloat64("time")
	rate, _ := cmd.Flags().GetFloat64("rate")
	vol, _ := cmd.Flags().GetFloat64("vol")
	typ, _ := cmd.Flags().GetString("type")

	if !cmd.Flags().Changed("rate") {
		rate = app.Config.Pricing.RiskFreeRate
	}

	optionType, err := models.ParseOptionType(typ)
	if err != nil {
		return models.OptionContract{}, err
	}

	return models.OptionContract{
		Spot:         spot,
		Strike:       strike,
		TimeToExpiry: t,
		RiskFreeRate: rate,
		Volatility:   vol,
		Type:         optionType,
	}, nil
}

// seedFromFlags returns nil unless --seed was given
func seedFromFlags(cmd *cobra.Command) *int64 {
	if !cmd.Flags().Changed("seed") {
		return nil
	}
	seed, _ := cmd.Flags().GetInt64("seed")
	return &seed
}

func newPriceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "price",
		Short:   "Closed-form Black-Scholes price",
		Example: `  optionlab price --spot 100 --strike 100 --time 1 --rate 0.05 --vol 0.2`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := contractFromFlags(cmd, app)
			if err != nil {
				return err
			}
			result, err := app.Service.Price(cmd.Context(), contract)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	addContractFlags(cmd)
	return cmd
}

func newGreeksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "greeks",
		Short:   "Closed-form delta, gamma, theta, vega and rho",
		Example: `  optionlab greeks --spot 100 --strike 95 --time 0.5 --vol 0.25 --type put`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := contractFromFlags(cmd, app)
			if err != nil {
				return err
			}
			result, err := app.Service.Greeks(cmd.Context(), contract)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	addContractFlags(cmd)
	return cmd
}

func newImpliedVolCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "iv",
		Short:   "Implied volatility of a quoted option price",
		Example: `  optionlab iv --spot 100 --strike 100 --time 1 --rate 0.05 --market-price 10.45`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := contractFromFlags(cmd, app)
			if err != nil {
				return err
			}
			marketPrice, _ := cmd.Flags().GetFloat64("market-price")

			result, err := app.Service.ImpliedVolatility(cmd.Context(), models.ImpliedVolatilityRequest{
				OptionContract: contract,
				MarketPrice:    marketPrice,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	addContractFlags(cmd)
	cmd.Flags().Float64("market-price", 0, "quoted option price")
	_ = cmd.MarkFlagRequired("market-price")
	return cmd
}

func newSimulateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate geometric Brownian motion price paths",
		Long: `Simulate price paths under geometric Brownian motion. Each path holds
steps+1 prices, starting at the spot.`,
		Example: `  optionlab simulate --spot 100 --vol 0.2 --horizon 1 --steps 252 --paths 10 --seed 7`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spot, _ := cmd.Flags().GetFloat64("spot")
			rate, _ := cmd.Flags().GetFloat64("rate")
			vol, _ := cmd.Flags().GetFloat64("vol")
			horizon, _ := cmd.Flags().GetFloat64("horizon")
			steps, _ := cmd.Flags().GetInt("steps")
			paths, _ := cmd.Flags().GetInt("paths")
			if !cmd.Flags().Changed("rate") {
				rate = app.Config.Pricing.RiskFreeRate
			}

			result, err := app.Service.Simulate(cmd.Context(), models.SimulateRequest{
				Spot:       spot,
				Rate:       rate,
				Volatility: vol,
				Horizon:    horizon,
				Steps:      steps,
				Paths:      paths,
				Seed:       seedFromFlags(cmd),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Float64("spot", 0, "initial price")
	cmd.Flags().Float64("rate", 0, "annual drift")
	cmd.Flags().Float64("vol", 0, "annual volatility")
	cmd.Flags().Float64("horizon", 1, "horizon in years")
	cmd.Flags().Int("steps", 252, "time steps per path")
	cmd.Flags().Int("paths", 1, "number of paths")
	cmd.Flags().Int64("seed", 0, "random seed")
	_ = cmd.MarkFlagRequired("spot")
	return cmd
}

func newEstimateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Monte Carlo price with standard error",
		Example: `  optionlab estimate --spot 100 --strike 100 --time 1 --rate 0.05 --vol 0.2 --trials 1000000 --seed 42
  optionlab estimate --spot 100 --strike 100 --time 1 --vol 0.2 --payoff asian --steps 52`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := contractFromFlags(cmd, app)
			if err != nil {
				return err
			}
			steps, _ := cmd.Flags().GetInt("steps")
			payoff, _ := cmd.Flags().GetString("payoff")

			req := models.EstimateRequest{
				OptionContract: contract,
				Steps:          steps,
				Payoff:         payoff,
				Seed:           seedFromFlags(cmd),
			}
			if cmd.Flags().Changed("trials") {
				trials, _ := cmd.Flags().GetInt("trials")
				req.Trials = &trials
			}

			result, err := app.Service.Estimate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	addContractFlags(cmd)
	cmd.Flags().Int("trials", 0, "number of trials (default: pricing.trials)")
	cmd.Flags().Int("steps", 0, "time steps per trial (default: pricing.steps, or pricing.path_steps for asian)")
	cmd.Flags().String("payoff", "european", "payoff (european or asian)")
	cmd.Flags().Int64("seed", 0, "random seed")
	return cmd
}

func newRiskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Risk metrics of a return series",
		Long: `Summarize a series of periodic returns. By default prints mean, volatility
and tail risk; --report prints the full suite of VaR, CVaR, drawdown and
performance ratios.`,
		Example: `  optionlab risk --returns 0.01,-0.02,0.015 --confidence 0.99
  optionlab risk --file returns.txt --report --alpha 0.01 --horizon 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			returns, err := returnsFromFlags(cmd)
			if err != nil {
				return err
			}

			if report, _ := cmd.Flags().GetBool("report"); report {
				alpha, _ := cmd.Flags().GetFloat64("alpha")
				horizon, _ := cmd.Flags().GetInt("horizon")
				periods, _ := cmd.Flags().GetFloat64("periods")
				req := models.RiskReportRequest{
					Returns:        returns,
					Alpha:          alpha,
					Horizon:        horizon,
					PeriodsPerYear: periods,
					Seed:           seedFromFlags(cmd),
				}
				if cmd.Flags().Changed("required-return") {
					required, _ := cmd.Flags().GetFloat64("required-return")
					req.RequiredReturn = &required
				}

				result, err := app.Service.RiskReport(cmd.Context(), req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			}

			confidence, _ := cmd.Flags().GetFloat64("confidence")
			result, err := app.Service.RiskSummary(cmd.Context(), models.RiskSummaryRequest{
				Returns:         returns,
				ConfidenceLevel: confidence,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().String("returns", "", "comma separated returns")
	cmd.Flags().String("file", "", "file with one return per line ('-' for stdin)")
	cmd.Flags().Float64("confidence", 0, "confidence level (default: risk.confidence_level)")
	cmd.Flags().Bool("report", false, "print the full risk report")
	cmd.Flags().Float64("alpha", 0, "tail probability for VaR and CVaR (report only)")
	cmd.Flags().Int("horizon", 0, "holding period in observations (report only)")
	cmd.Flags().Float64("periods", 0, "observations per year (report only)")
	cmd.Flags().Float64("required-return", 0, "Sortino target return (report only)")
	cmd.Flags().Int64("seed", 0, "seed for simulated VaR (report only)")
	cmd.MarkFlagsMutuallyExclusive("returns", "file")
	cmd.MarkFlagsOneRequired("returns", "file")
	return cmd
}

func returnsFromFlags(cmd *cobra.Command) ([]float64, error) {
	if list, _ := cmd.Flags().GetString("returns"); list != "" {
		return parseReturnList(list)
	}

	path, _ := cmd.Flags().GetString("file")
	if path == "-" {
		return readReturns(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open returns file: %w", err)
	}
	defer f.Close()
	return readReturns(f)
}
