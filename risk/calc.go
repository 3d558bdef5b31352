package risk

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/stage"
)

// percentOf returns amount as a percent of balance, or 0 when the balance
// cannot carry a percentage. The result is rounded to 6 places so an amount
// derived from a percent of the same balance compares equal to that percent.
func percentOf(amount, balance float64) float64 {
	if balance <= 0 {
		return 0
	}
	return decimal.NewFromFloat(amount).
		Div(decimal.NewFromFloat(balance)).
		Mul(decimal.NewFromInt(100)).
		Round(6).
		InexactFloat64()
}

// drawdownPercent only counts losses.
func drawdownPercent(pnl, balance float64) float64 {
	return percentOf(math.Abs(math.Min(0, pnl)), balance)
}

func num(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

type SizeSuggestion struct {
	Lots        float64 `json:"lots"`
	RiskAmount  float64 `json:"risk_amount"`
	RiskPercent float64 `json:"risk_percent"`
}

// SuggestPositionSize sizes a trade at the stage's maximum risk, clamped to
// the stage's lot cap. ok is false when the stage cannot trade.
func SuggestPositionSize(balance float64, s stage.Stage, stopPips float64, pair string) (SizeSuggestion, bool) {
	limits, ok := stage.LimitsFor(s)
	if !ok {
		return SizeSuggestion{}, false
	}
	lots := market.PositionSizeLots(balance, limits.MaxRiskPerTradePercent, stopPips, pair)
	return SizeSuggestion{
		Lots:        math.Min(lots, limits.MaxLotSize),
		RiskAmount:  market.RiskAmount(balance, limits.MaxRiskPerTradePercent),
		RiskPercent: limits.MaxRiskPerTradePercent,
	}, true
}
