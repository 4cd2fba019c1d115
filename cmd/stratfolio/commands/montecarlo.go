package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/wonny/stratfolio/internal/risk"
)

// montecarloCmd represents the montecarlo command
var montecarloCmd = &cobra.Command{
	Use:   "montecarlo",
	Short: "Monte Carlo 시뮬레이션",
	Long: `포트폴리오 거래로 Monte Carlo 경로를 생성하고 분포를 집계합니다.

Ctrl+C 로 중단하면 완료된 경로만으로 부분 결과를 출력합니다.

Example:
  go run ./cmd/stratfolio montecarlo --manifest run.yaml
  go run ./cmd/stratfolio montecarlo --file es.csv --sims 5000 --timeframe 2y --method parametric --seed 42`,
	RunE: runMonteCarlo,
}

var (
	mcFlags     inputFlags
	mcSims      int
	mcTimeframe string
	mcMethod    string
	mcSeed      int64
	mcCapital   float64
)

func init() {
	rootCmd.AddCommand(montecarloCmd)
	mcFlags.bind(montecarloCmd)

	montecarloCmd.Flags().IntVar(&mcSims, "sims", 0, "number of simulations (default 1000)")
	montecarloCmd.Flags().StringVar(&mcTimeframe, "timeframe", "", "6m|1y|2y|5y|10y (default 1y)")
	montecarloCmd.Flags().StringVar(&mcMethod, "method", "", "bootstrap|parametric (default bootstrap)")
	montecarloCmd.Flags().Int64Var(&mcSeed, "seed", 0, "random seed (0 = time based)")
	montecarloCmd.Flags().Float64Var(&mcCapital, "capital", 0, "starting capital (default MC_STARTING_CAPITAL)")
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	data, in, err := buildPortfolio(ctx, a, &mcFlags)
	if err != nil {
		return err
	}

	// manifest → flags 순으로 덮어쓰기
	cfg := a.orch.Defaults().MonteCarlo
	if in.manifest != nil {
		if cfg, err = in.manifest.MonteCarloConfig(cfg); err != nil {
			return err
		}
	}
	if mcSims > 0 {
		cfg.NumSimulations = mcSims
	}
	if mcTimeframe != "" {
		if cfg.Timeframe, err = risk.ParseTimeframe(mcTimeframe); err != nil {
			return err
		}
	}
	if mcMethod != "" {
		if cfg.Method, err = risk.ParseMethod(mcMethod); err != nil {
			return err
		}
	}
	if mcSeed != 0 {
		cfg.Seed = mcSeed
	}
	if mcCapital > 0 {
		cfg.StartingCapital = mcCapital
	}

	if !mcFlags.jsonOut {
		bar := initProgressBar(cfg.NumSimulations)
		cfg.Progress = func(done, total int) {
			bar.Set(done)
		}
		defer bar.Finish()
	}

	res, err := a.orch.MonteCarlo(ctx, data, cfg)
	if err != nil && !(errors.Is(err, risk.ErrSimulationCancelled) && res != nil) {
		return err
	}

	if mcFlags.jsonOut {
		return PrintJSON(res)
	}
	fmt.Println()
	printMonteCarlo(res)
	return nil
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Simulating paths..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
