package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// stressCmd represents the stress command
var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "스트레스 테스트 (최고 수익 거래 제거)",
	Long: `수익 상위 N% 거래를 제거하고 통계를 다시 계산합니다.
증거금은 원본 값을 그대로 유지합니다.

Example:
  go run ./cmd/stratfolio stress --manifest run.yaml --remove 5
  go run ./cmd/stratfolio stress --file es.csv --file nq.csv --remove 10 --json`,
	RunE: runStress,
}

var (
	stressFlags  inputFlags
	stressRemove float64
)

func init() {
	rootCmd.AddCommand(stressCmd)
	stressFlags.bind(stressCmd)

	stressCmd.Flags().Float64Var(&stressRemove, "remove", 0, "percentage of winners to remove, 1-20 (default manifest value or 5)")
}

func runStress(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	data, in, err := buildPortfolio(ctx, a, &stressFlags)
	if err != nil {
		return err
	}

	removal := stressRemove
	if removal == 0 && in.manifest != nil {
		removal = in.manifest.Stress.RemovalPct
	}
	if removal == 0 {
		removal = 5
	}

	res, err := a.orch.Stress(ctx, data, removal, stressFlags.marginType)
	if err != nil {
		return err
	}

	if stressFlags.jsonOut {
		return PrintJSON(res)
	}
	printStress(res)
	return nil
}
