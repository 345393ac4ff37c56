package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Ayodukale/S-B/config"
)

var rootCmd = &cobra.Command{
	Use:   "swingbot",
	Short: "An end-of-day swing trading screener",
	Long: `SwingBot screens a stock watchlist at end of day for dual-EMA swing
setups and maintains a persistent position ledger across runs.

It provides tools for:
  - Screening daily bars for 9/20 EMA pullback entries
  - Gating entries on a SPY/QQQ market regime check
  - Suppressing entries ahead of earnings
  - Tracking open positions with ATR-multiple peak excursion
  - Publishing highlights to files and Discord`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; API keys may come from the environment.
		_ = godotenv.Load()
	},
}

var cfgPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "path to config file (YAML or JSON)")
}

// loadConfig resolves the active configuration and applies its log settings.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, err
		}
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	return cfg, nil
}
