package ingest

import (
	"io"

	"github.com/wonny/stratfolio/internal/contracts"
)

// MultiCharts parses the Strategy Performance Report trade list
// 1 header line; col 0/1 = exit date/time, col 5/6 = entry date/time (MM/DD/YYYY), col 10 = profit
type MultiCharts struct{}

// Name implements Adapter
func (MultiCharts) Name() string { return FormatMultiCharts }

// Parse implements Adapter
func (MultiCharts) Parse(r io.Reader, quantity int) (*ParseResult, error) {
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
		exitDate, exitClock := field(row, 0), field(row, 1)
		entryDate, entryClock := field(row, 5), field(row, 6)
		profitStr := field(row, 10)
		if exitDate == "" || exitClock == "" || entryDate == "" || entryClock == "" || profitStr == "" {
			res.Skipped++
			continue
		}

		exitTime, err := parseTime(exitDate+" "+exitClock, multiChartsLayouts)
		if err != nil {
			res.Skipped++
			continue
		}
		openTime, err := parseTime(entryDate+" "+entryClock, multiChartsLayouts)
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
