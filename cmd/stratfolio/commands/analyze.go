package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "포트폴리오 분석",
	Long: `거래 로그를 합쳐 포트폴리오 통계/상관관계/증거금을 계산합니다.

Example:
  go run ./cmd/stratfolio analyze --format ninjatrader --file es.csv --qty 2 --file nq.csv
  go run ./cmd/stratfolio analyze --manifest run.yaml --from 2024-01-01 --to 2024-06-30
  go run ./cmd/stratfolio analyze --manifest run.yaml --json > portfolio.json`,
	RunE: runAnalyze,
}

var analyzeFlags inputFlags

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeFlags.bind(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	data, _, err := buildPortfolio(ctx, a, &analyzeFlags)
	if err != nil {
		return err
	}

	if analyzeFlags.jsonOut {
		return PrintJSON(data)
	}

	PrintHeader("Portfolio Analysis",
		fmt.Sprintf("Strategies : %d", len(data.Strategies)),
		fmt.Sprintf("Trades     : %d", len(data.PortfolioTrades)),
	)
	printPortfolio(data)
	fmt.Println()
	PrintSuccess(fmt.Sprintf("Analysis completed in %.2fs", time.Since(start).Seconds()))
	return nil
}
