package ingest

import (
	"io"

	"github.com/wonny/stratfolio/internal/contracts"
)

// NinjaTrader parses the Trade Performance grid export
// 1 header line; col 0 = entry time, col 1 = exit time (YYYY-MM-DD HH:MM[:SS]), col 2 = profit
type NinjaTrader struct{}

// Name implements Adapter
func (NinjaTrader) Name() string { return FormatNinjaTrader }

// Parse implements Adapter
func (NinjaTrader) Parse(r io.Reader, quantity int) (*ParseResult, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	res := &ParseResult{}
	for i := 1; i < len(lines); i++ {
		if lines[i] == "" {
			continue
		}
		res.Rows++

		row := splitRecord(lines[i])
		entryStr, exitStr, profitStr := field(row, 0), field(row, 1), field(row, 2)
		if entryStr == "" || exitStr == "" || profitStr == "" {
			res.Skipped++
			continue
		}

		openTime, err := parseTime(entryStr, ninjaTraderLayouts)
		if err != nil {
			res.Skipped++
			continue
		}
		exitTime, err := parseTime(exitStr, ninjaTraderLayouts)
		if err != nil {
			res.Skipped++
			continue
		}
		profit, err := scaledProfit(profitStr, quantity)
		if err != nil {
			res.Skipped++
			continue
		}

		res.Trades = append(res.Trades, contracts.Trade{
			OpenTime: openTime,
			ExitTime: exitTime,
			Profit:   profit,
		})
	}

	return res, nil
}
