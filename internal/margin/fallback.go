package margin

import (
	"context"

	"github.com/wonny/stratfolio/internal/contracts"
)

// overnightFallback 최근 확인된 TradeStation 오버나이트 증거금 (USD/EUR per contract)
var overnightFallback = RateTable{
	"CL":   5810,
	"ES":   16563,
	"FDXM": 7573,
	"FESX": 3579,
	"GC":   12650,
	"MCL":  583,
	"MES":  1656,
	"MGC":  1265,
	"MNQ":  2513,
	"NQ":   25135,
	"RB":   6481,
	"ZS":   2200,
	"ZW":   1925,
}

// intradayFallback 일반적인 데이트레이딩 증거금
var intradayFallback = RateTable{
	"CL":   1000,
	"ES":   500,
	"FDXM": 1500,
	"FESX": 700,
	"GC":   1000,
	"MCL":  100,
	"MES":  50,
	"MGC":  100,
	"MNQ":  100,
	"NQ":   1000,
	"RB":   1300,
	"ZS":   440,
	"ZW":   385,
}

// Fallback returns a copy of the static table for a margin type
func Fallback(marginType contracts.MarginType) RateTable {
	if marginType == contracts.MarginIntraday {
		return intradayFallback.Clone()
	}
	return overnightFallback.Clone()
}

// StaticProvider serves only the fallback tables
type StaticProvider struct{}

// Rates implements RateProvider
func (StaticProvider) Rates(_ context.Context, marginType contracts.MarginType) (RateTable, error) {
	return Fallback(marginType), nil
}
