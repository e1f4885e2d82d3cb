package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	envPath string
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})

	rootCmd := &cobra.Command{
		Use:   "vcp",
		Short: "Taiwan equity VCP scanner",
		Long: `Scans TWSE and TPEx common stocks for the volatility contraction pattern:
rising SMA-60, a tight close range (reset after overnight gaps), contracting
volume and a liquidity floor. Without a subcommand it runs the Telegram bot.`,
		SilenceUsage: true,
		RunE:         runBot,
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "dotenv file loaded before environment overrides")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "bot",
			Short: "Run the Telegram bot with the daily scheduled scan",
			Args:  cobra.NoArgs,
			RunE:  runBot,
		},
		&cobra.Command{
			Use:   "scan [YYMMDD]",
			Short: "Scan the universe for one session and print qualifying symbols",
			Long: `Scan every listed and OTC common stock for the given session (today if
omitted) and print the qualifying symbols one per line.

Examples:
  vcp scan
  vcp scan 250314`,
			Args: cobra.MaximumNArgs(1),
			RunE: runScan,
		},
		&cobra.Command{
			Use:   "diagnose YYMMDD SYMBOL",
			Short: "Explain every criterion for one stock on one session",
			Long: `Evaluate one stock in exhaustive mode and print the report. SYMBOL may be a
bare code (2330), tried on the listed then the OTC market, or carry a suffix.

Examples:
  vcp diagnose 250314 2330
  vcp diagnose 250314 6488.TWO`,
			Args: cobra.ExactArgs(2),
			RunE: runDiagnose,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
