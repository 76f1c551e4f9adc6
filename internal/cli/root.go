// Package cli provides the optionlab command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rzzdr/quant-options-lab/config"
	"github.com/rzzdr/quant-options-lab/internal/service"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// App holds what every subcommand needs once configuration is loaded
type App struct {
	Config  *config.Config
	Service *service.Service
}

// NewRootCmd creates the root command. Configuration is loaded lazily so
// --help works without a config file.
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "optionlab",
		Short: "Option pricing, Monte Carlo estimation and return risk metrics",
		Long: `optionlab prices European options in closed form and by Monte Carlo,
simulates geometric Brownian motion paths and summarizes the risk of a
return series. Every command prints JSON on stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			level := cfg.App.LogLevel
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				level = "debug"
			}
			logger.Init(level, cfg.App.Environment)

			app.Config = cfg
			app.Service = service.New(service.DefaultsFromConfig(cfg), nil)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "configuration file (default: $QUANT_CONFIG_PATH or ./config/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newGreeksCmd(app))
	rootCmd.AddCommand(newImpliedVolCmd(app))
	rootCmd.AddCommand(newSimulateCmd(app))
	rootCmd.AddCommand(newEstimateCmd(app))
	rootCmd.AddCommand(newRiskCmd(app))

	return rootCmd
}

// Execute runs the root command, cancelling long estimations on interrupt
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
