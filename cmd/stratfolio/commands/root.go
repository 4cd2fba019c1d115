package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wonny/stratfolio/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
	offline    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stratfolio",
	Short: "Stratfolio - 멀티 전략 선물 포트폴리오 분석기",
	Long: `Stratfolio Unified CLI

전략별 거래 로그(TradeStation / MultiCharts / NinjaTrader)를 합쳐
포트폴리오 통계, 상관관계, 증거금, Monte Carlo, 스트레스 테스트를 계산합니다.

Usage:
  go run ./cmd/stratfolio [command]

Examples:
  go run ./cmd/stratfolio analyze --format ninjatrader --file es.csv --qty 2 --file nq.csv
  go run ./cmd/stratfolio montecarlo --manifest run.yaml --sims 5000
  go run ./cmd/stratfolio stress --manifest run.yaml --remove 5
  go run ./cmd/stratfolio margins fetch --type overnight
  go run ./cmd/stratfolio api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "static margin tables only (no scraping, no cache store)")
}

// loadConfig applies the global flags on top of config.Load
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", configFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
