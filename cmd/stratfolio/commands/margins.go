package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stratfolio/internal/contracts"
)

// marginsCmd represents the margins command
var marginsCmd = &cobra.Command{
	Use:   "margins",
	Short: "증거금 요율 관리",
	Long: `종목별 증거금 요율을 조회하거나 갱신합니다.

Subcommands:
  fetch  - 소스에서 새로 가져와 캐시에 저장
  show   - 캐시 → 소스 → stale → 기본표 순으로 해석된 요율

Example:
  go run ./cmd/stratfolio margins fetch --type overnight
  go run ./cmd/stratfolio margins show --type intraday --offline`,
}

var (
	marginsFetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "증거금 요율 새로 가져오기",
		RunE:  runMarginsFetch,
	}

	marginsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "현재 적용되는 증거금 요율",
		RunE:  runMarginsShow,
	}

	marginsType string
	marginsJSON bool
)

func init() {
	rootCmd.AddCommand(marginsCmd)
	marginsCmd.AddCommand(marginsFetchCmd)
	marginsCmd.AddCommand(marginsShowCmd)

	marginsCmd.PersistentFlags().StringVar(&marginsType, "type", "", "intraday|overnight (default MARGIN_TYPE)")
	marginsCmd.PersistentFlags().BoolVar(&marginsJSON, "json", false, "print JSON")
}

func runMarginsFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	provider, err := a.requireProvider()
	if err != nil {
		return err
	}
	mt, ok := contracts.ParseMarginType(marginsType, contracts.MarginType(a.cfg.Engine.DefaultMarginType))
	if !ok || !mt.Valid() {
		return fmt.Errorf("unknown margin type %q", marginsType)
	}

	snap, err := provider.Refresh(ctx, mt)
	if err != nil {
		return fmt.Errorf("fetch %s margins: %w", mt, err)
	}

	if marginsJSON {
		return PrintJSON(snap)
	}
	PrintHeader("Margin Rates",
		fmt.Sprintf("Type    : %s", mt),
		fmt.Sprintf("Source  : %s", snap.Source),
		fmt.Sprintf("Fetched : %s", snap.FetchedAt.Format("2006-01-02 15:04:05")),
	)
	printRates(snap.Rates)
	fmt.Println()
	PrintSuccess(fmt.Sprintf("%d symbols stored", len(snap.Rates)))
	return nil
}

func runMarginsShow(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	mt, rates, err := a.orch.Margins(ctx, marginsType)
	if err != nil {
		return err
	}

	if marginsJSON {
		return PrintJSON(map[string]interface{}{"marginType": mt, "rates": rates})
	}
	PrintHeader("Margin Rates", fmt.Sprintf("Type : %s", mt))
	printRates(rates)
	return nil
}
