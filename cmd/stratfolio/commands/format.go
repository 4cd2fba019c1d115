package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/risk"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		PrintSeparator()
		for _, l := range lines {
			fmt.Printf("  %s\n", l)
		}
	}
	PrintDoubleSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintJSON writes v as indented JSON to stdout
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// printPortfolio prints the analyze summary
func printPortfolio(data *contracts.PortfolioData) {
	fmt.Println()
	fmt.Println("📊 Strategies")
	widths := []int{24, 8, 5, 7, 14}
	PrintTableHeader([]string{"Name", "Symbol", "Qty", "Trades", "Net Profit"}, widths)
	for _, s := range data.Strategies {
		PrintTableRow([]string{
			s.Name, s.Symbol, fmt.Sprint(s.Quantity), fmt.Sprint(len(s.Trades)), money(s.NetProfit),
		}, widths)
	}

	printStatistics("📈 Portfolio Statistics", data.Statistics)

	fmt.Println()
	fmt.Printf("💰 Margins (%s)\n", data.MarginType)
	PrintKeyValue("Strategy margins", money(data.Margins.TotalStrategyMargin()), 22)
	PrintKeyValue("Minimum account", money(data.Margins.MinimumAccountRequired), 22)
	PrintKeyValue("Real minimum account", money(data.Margins.RealMinimumAccountReq), 22)
	PrintKeyValue("Max used margin", money(data.Margins.MaxUsedMargin), 22)
	PrintKeyValue("  occurrences", fmt.Sprint(data.Margins.MaxUsedMarginOccurrences), 22)
	PrintKeyValue("  first date", data.Margins.MaxUsedMarginFirstDate, 22)

	if n := data.CorrelationMatrix.Size(); n > 1 {
		fmt.Println()
		fmt.Printf("🔗 Correlation (%s)\n", data.CorrelationMethod)
		for i := 0; i < n; i++ {
			cells := make([]string, n)
			for j := 0; j < n; j++ {
				cells[j] = fmt.Sprintf("%6.2f", data.CorrelationMatrix[i][j])
			}
			fmt.Printf("   %-24s %s\n", data.Strategies[i].Name, strings.Join(cells, " "))
		}
	}

	if len(data.MonthlyReturns) > 0 {
		fmt.Println()
		fmt.Println("🗓  Monthly P&L")
		months := make([]string, 0, len(data.MonthlyReturns))
		for m := range data.MonthlyReturns {
			months = append(months, m)
		}
		sort.Strings(months)
		for _, m := range months {
			PrintKeyValue(m, money(data.MonthlyReturns[m]), 8)
		}
	}

	printWarnings(data.Warnings)
}

func printStatistics(title string, st contracts.Statistics) {
	fmt.Println()
	fmt.Println(title)
	const w = 22
	PrintKeyValue("Net profit", money(st.TotalNetProfit), w)
	PrintKeyValue("Gross profit / loss", money(st.GrossProfit)+" / "+money(st.GrossLoss), w)
	PrintKeyValue("Max drawdown", money(st.MaxDrawdown), w)
	PrintKeyValue("Net profit / max DD", st.NetProfitMaxDD.String(), w)
	PrintKeyValue("Profit factor", st.ProfitFactor.String(), w)
	PrintKeyValue("Win ratio", pct(st.WinRatioPercentage), w)
	PrintKeyValue("Risk / reward", st.RiskRewardRatio.String(), w)
	PrintKeyValue("Trades (W/L)", fmt.Sprintf("%d (%d/%d)", st.TotalTrades, st.WinningTrades, st.LosingTrades), w)
	PrintKeyValue("Avg trade", money(st.AverageTradeProfit), w)
	PrintKeyValue("Max consec. W / L", fmt.Sprintf("%d / %d", st.MaxConsecutiveWinningTrades, st.MaxConsecutiveLosingTrades), w)
	PrintKeyValue("Net profit / month", money(st.NetProfitPerMonth), w)
	PrintKeyValue("Sharpe / Sortino", fmt.Sprintf("%.2f / %.2f", st.SharpeRatio, st.SortinoRatio), w)
}

func printWarnings(warnings []contracts.FileWarning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Println()
	for _, w := range warnings {
		PrintWarning(fmt.Sprintf("%s: %s", w.File, w.Reason))
	}
}

func printDistribution(name string, d risk.Distribution, format func(float64) string) {
	PrintTableRow([]string{name, format(d.P5), format(d.P50), format(d.P95)}, []int{16, 14, 14, 14})
}

// printMonteCarlo prints the Monte Carlo summary
func printMonteCarlo(res *risk.MonteCarloResult) {
	fmt.Println()
	fmt.Printf("🎲 Monte Carlo (%s, %s, %d/%d runs)\n",
		res.Config.Method, res.Config.Timeframe, res.CompletedSimulations, res.Config.NumSimulations)
	if res.Partial {
		PrintWarning("cancelled: partial aggregate")
	}
	PrintKeyValue("Trades per year", fmt.Sprintf("%.1f", res.TradesPerYear), 22)
	PrintKeyValue("Trades per run", fmt.Sprint(res.TradesPerRun), 22)
	fmt.Println()

	PrintTableHeader([]string{"Metric", "P5", "P50", "P95"}, []int{16, 14, 14, 14})
	printDistribution("Final equity", res.FinalEquity, money)
	printDistribution("Max drawdown", res.MaxDrawdown, money)
	printDistribution("Annual return", res.AnnualReturn, func(v float64) string { return pct(v * 100) })
	printDistribution("Profit factor", res.ProfitFactor, func(v float64) string { return fmt.Sprintf("%.2f", v) })
	printDistribution("Sharpe", res.SharpeRatio, func(v float64) string { return fmt.Sprintf("%.2f", v) })

	fmt.Println()
	PrintKeyValue("P(profit)", pct(res.ProbabilityOfProfit*100), 22)
	PrintKeyValue("P(large drawdown)", pct(res.ProbabilityOfLargeDrawdown*100), 22)
	PrintKeyValue("Mean / std final", money(res.MeanFinalEquity)+" / "+money(res.StdFinalEquity), 22)
	PrintKeyValue("P&L VaR95 / CVaR95", money(res.FinalEquityVaR.VaR)+" / "+money(res.FinalEquityVaR.CVaR), 22)
	PrintKeyValue("Annual return VaR95", pct(res.AnnualReturnVaR.VaR*100), 22)
	PrintKeyValue("Annual return CVaR95", pct(res.AnnualReturnVaR.CVaR*100), 22)
}

// printStress prints the stress test summary
func printStress(res *risk.StressTestResult) {
	fmt.Println()
	fmt.Printf("🔥 Stress test: top %.0f%% winners removed\n", res.RemovalPercentage)
	PrintKeyValue("Removed trades", fmt.Sprint(res.RemovedTradesCount), 22)
	PrintKeyValue("Removed value", money(res.RemovedTradesValue), 22)

	fmt.Println()
	widths := []int{16, 14, 14, 10}
	PrintTableHeader([]string{"Metric", "Original", "Stressed", "Impact"}, widths)
	o, s := res.Original, res.Stressed.Statistics
	PrintTableRow([]string{"Net profit", money(o.TotalNetProfit), money(s.TotalNetProfit), pct(res.Impact.NetProfit)}, widths)
	PrintTableRow([]string{"Max drawdown", money(o.MaxDrawdown), money(s.MaxDrawdown), pct(res.Impact.MaxDrawdown)}, widths)
	PrintTableRow([]string{"Profit factor", o.ProfitFactor.String(), s.ProfitFactor.String(), pct(res.Impact.ProfitFactor)}, widths)
	PrintTableRow([]string{"Win ratio", pct(o.WinRatioPercentage), pct(s.WinRatioPercentage), pct(res.Impact.WinRatio)}, widths)
	PrintTableRow([]string{"Sharpe", fmt.Sprintf("%.2f", o.SharpeRatio), fmt.Sprintf("%.2f", s.SharpeRatio), pct(res.Impact.SharpeRatio)}, widths)
}

// printRates prints a symbol -> margin table sorted by symbol
func printRates(rates map[string]float64) {
	symbols := make([]string, 0, len(rates))
	for s := range rates {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	widths := []int{8, 12}
	PrintTableHeader([]string{"Symbol", "Margin"}, widths)
	for _, s := range symbols {
		PrintTableRow([]string{s, money(rates[s])}, widths)
	}
}
