package contracts

// Statistics is a pure function of (trades, equity, drawdowns)
// ⭐ SSOT: 정의는 internal/stats.Compute 에서만 계산
// Ratio fields may hold +Inf (zero divisor); see Ratio for the JSON form.
type Statistics struct {
	TotalNetProfit              float64 `json:"totalNetProfit"`
	GrossProfit                 float64 `json:"grossProfit"`
	GrossLoss                   float64 `json:"grossLoss"` // absolute value
	MaxDrawdown                 float64 `json:"maxDrawdown"`  // positive magnitude
	MeanDrawdown                float64 `json:"meanDrawdown"` // positive magnitude
	NetProfitMaxDD              Ratio   `json:"netProfitMaxDD"`
	NetProfitMeanDD             Ratio   `json:"netProfitMeanDD"`
	ProfitFactor                Ratio   `json:"profitFactor"`
	WinRatioPercentage          float64 `json:"winRatioPercentage"`
	RiskRewardRatio             Ratio   `json:"riskRewardRatio"`
	TotalTrades                 int     `json:"totalTrades"`
	WinningTrades               int     `json:"winningTrades"`
	LosingTrades                int     `json:"losingTrades"`
	AverageWin                  float64 `json:"averageWin"`
	AverageLoss                 float64 `json:"averageLoss"` // positive magnitude
	AverageTradeProfit          float64 `json:"averageTradeProfit"`
	MaxConsecutiveWinningTrades int     `json:"maxConsecutiveWinningTrades"`
	MaxConsecutiveLosingTrades  int     `json:"maxConsecutiveLosingTrades"`
	MonthsSpan                  int     `json:"monthsSpan"`
	TradesPerMonth              float64 `json:"tradesPerMonth"`
	NetProfitPerMonth           float64 `json:"netProfitPerMonth"`
	SharpeRatio                 float64 `json:"sharpeRatio"` // per-trade, not annualized
	SortinoRatio                float64 `json:"sortinoRatio"`
}
