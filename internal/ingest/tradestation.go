package ingest

import (
	"io"

	"github.com/wonny/stratfolio/internal/contracts"
)

// TradeStation parses the "Trades List" export
// Layout: 6 header lines, then 2 rows per trade (entry row + exit row).
// entry row col 2 = entry time (DD/MM/YYYY HH:MM), col 7 = trade profit; exit row col 2 = exit time
type TradeStation struct{}

const tradeStationHeaderLines = 6

// Name implements Adapter
func (TradeStation) Name() string { return FormatTradeStation }

// Parse implements Adapter
func (TradeStation) Parse(r io.Reader, quantity int) (*ParseResult, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	res := &ParseResult{}
	for i := tradeStationHeaderLines; i+1 < len(lines); i += 2 {
		res.Rows++

		openRow := splitRecord(lines[i])
		closeRow := splitRecord(lines[i+1])

		openStr := field(openRow, 2)
		exitStr := field(closeRow, 2)
		profitStr := field(openRow, 7)
		if openStr == "" || exitStr == "" || profitStr == "" {
			res.Skipped++
			continue
		}

		openTime, err := parseTime(openStr, tradeStationLayouts)
		if err != nil {
			res.Skipped++
			continue
		}
		exitTime, err := parseTime(exitStr, tradeStationLayouts)
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
