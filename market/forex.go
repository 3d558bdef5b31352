package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StandardLot is the number of base-currency units in one lot.
const StandardLot = 100_000

// PipSize returns 0.01 for pairs quoted to 2 pip decimals and 0.0001 for
// everything else, including pairs missing from the catalog.
func PipSize(pair string) float64 {
	if info, ok := Pairs[pair]; ok && info.PipDecimalPlace == 2 {
		return 0.01
	}
	return 0.0001
}

// PipValuePerLot is the quote-currency value of one pip on one standard lot.
func PipValuePerLot(pair string) float64 {
	return decimal.NewFromFloat(PipSize(pair)).Mul(decimal.NewFromInt(StandardLot)).InexactFloat64()
}

func StopDistancePips(entry, stop float64, pair string) float64 {
	dist := decimal.NewFromFloat(entry).Sub(decimal.NewFromFloat(stop)).Abs()
	return dist.Div(decimal.NewFromFloat(PipSize(pair))).InexactFloat64()
}

// RiskRewardRatio is |target-entry| / |entry-stop| rounded to 2 places.
// A zero stop distance yields 0.
func RiskRewardRatio(entry, stop, target float64) float64 {
	e := decimal.NewFromFloat(entry)
	risk := e.Sub(decimal.NewFromFloat(stop)).Abs()
	if risk.IsZero() {
		return 0
	}
	reward := decimal.NewFromFloat(target).Sub(e).Abs()
	return reward.Div(risk).Round(2).InexactFloat64()
}

func RiskAmount(balance, riskPercent float64) float64 {
	return decimal.NewFromFloat(balance).Mul(decimal.NewFromFloat(riskPercent)).Div(decimal.NewFromInt(100)).InexactFloat64()
}

// PositionSizeLots sizes a position so that a stop-out loses riskPercent of
// balance. The result is floored to 0.01 lots.
func PositionSizeLots(balance, riskPercent, stopPips float64, pair string) float64 {
	if balance <= 0 || riskPercent <= 0 || stopPips <= 0 {
		return 0
	}
	if _, ok := Pairs[pair]; !ok {
		return 0
	}

	risk := decimal.NewFromFloat(balance).Mul(decimal.NewFromFloat(riskPercent)).Div(decimal.NewFromInt(100))
	perLot := decimal.NewFromFloat(stopPips).Mul(decimal.NewFromFloat(PipValuePerLot(pair)))
	lots := risk.Div(perLot)
	return lots.Shift(2).Floor().Shift(-2).InexactFloat64()
}

// PnLPips is positive when price moved in the trade's favour. Rounded to 0.1.
func PnLPips(dir Direction, entry, exit float64, pair string) float64 {
	move := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry))
	if dir == Short {
		move = move.Neg()
	}
	return move.Div(decimal.NewFromFloat(PipSize(pair))).Round(1).InexactFloat64()
}

// PnLAmount converts pips to quote-currency value, rounded to cents.
func PnLAmount(pnlPips, lotSize float64, pair string) float64 {
	return decimal.NewFromFloat(pnlPips).
		Mul(decimal.NewFromFloat(lotSize)).
		Mul(decimal.NewFromFloat(PipValuePerLot(pair))).
		Round(2).
		InexactFloat64()
}

// Round rounds half away from zero.
func Round(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

func FormatPrice(price float64, pair string) string {
	if PipSize(pair) == 0.01 {
		return decimal.NewFromFloat(price).StringFixed(3)
	}
	return decimal.NewFromFloat(price).StringFixed(5)
}

func FormatPips(pips float64) string {
	sign := ""
	if pips > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%s pips", sign, decimal.NewFromFloat(pips).StringFixed(1))
}
