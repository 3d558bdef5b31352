package risk

import (
	"fmt"
	"time"

	"github.com/forexgate/forexgate/market"
	"github.com/forexgate/forexgate/stage"
)

const (
	CodeStageLocked      = "STAGE_LOCKED"
	CodeNoBalance        = "NO_BALANCE"
	CodeCooldownActive   = "COOLDOWN_ACTIVE"
	CodeRiskTooHigh      = "RISK_TOO_HIGH"
	CodeDailyDrawdown    = "DAILY_DRAWDOWN"
	CodeWeeklyDrawdown   = "WEEKLY_DRAWDOWN"
	CodeMaxOpenPositions = "MAX_OPEN_POSITIONS"
	CodeMaxDailyTrades   = "MAX_DAILY_TRADES"
	CodeLotTooLarge      = "LOT_TOO_LARGE"
	CodePairNotAllowed   = "PAIR_NOT_ALLOWED"
	CodeRRTooLow         = "RR_TOO_LOW"
)

// Validate checks a proposal against the limits of stage s. Every rule is
// evaluated; a blocked decision lists all of them, not just the first.
func Validate(p Proposal, st State, s stage.Stage, now time.Time) Decision {
	d := Decision{Blockers: []Violation{}, Warnings: []string{}}

	limits, ok := stage.LimitsFor(s)
	if !ok {
		d.add(CodeStageLocked, "Trading is not available at your current stage.")
		return d
	}

	stopPips := market.StopDistancePips(p.EntryPrice, p.StopLossPrice, p.Pair)
	riskPct := percentOf(p.RiskAmount, st.AccountBalance)
	var rr *float64
	if p.TakeProfitPrice != nil && *p.TakeProfitPrice > 0 {
		v := market.RiskRewardRatio(p.EntryPrice, p.StopLossPrice, *p.TakeProfitPrice)
		rr = &v
	}

	d.Calculated = CalculatedRisk{
		RiskAmount:       p.RiskAmount,
		RiskPercent:      riskPct,
		PositionSize:     market.PositionSizeLots(st.AccountBalance, limits.MaxRiskPerTradePercent, stopPips, p.Pair),
		StopDistancePips: stopPips,
		RiskRewardRatio:  rr,
	}

	if st.AccountBalance <= 0 {
		d.add(CodeNoBalance, "Account balance must be positive to trade.")
	}

	if st.CooldownActive(now) {
		d.add(CodeCooldownActive, "Cooldown active. Trading is temporarily suspended.")
	}

	if riskPct > limits.MaxRiskPerTradePercent {
		d.add(CodeRiskTooHigh, fmt.Sprintf("Risk per trade (%.2f%%) exceeds maximum (%s%%).",
			riskPct, num(limits.MaxRiskPerTradePercent)))
	}

	dailyDD := st.DailyDrawdownPercent()
	if dailyDD >= limits.MaxDailyDrawdownPercent {
		d.add(CodeDailyDrawdown, fmt.Sprintf("Daily drawdown limit reached (%.2f%%).", dailyDD))
	}

	weeklyDD := st.WeeklyDrawdownPercent()
	if weeklyDD >= limits.MaxWeeklyDrawdownPercent {
		d.add(CodeWeeklyDrawdown, fmt.Sprintf("Weekly drawdown limit reached (%.2f%%).", weeklyDD))
	}

	if st.OpenPositionCount >= limits.MaxOpenPositions {
		d.add(CodeMaxOpenPositions, fmt.Sprintf("Maximum open positions reached (%d/%d).",
			st.OpenPositionCount, limits.MaxOpenPositions))
	}

	if st.DailyTradeCount >= limits.MaxDailyTrades {
		d.add(CodeMaxDailyTrades, fmt.Sprintf("Daily trade limit reached (%d/%d).",
			st.DailyTradeCount, limits.MaxDailyTrades))
	}

	if p.LotSize > limits.MaxLotSize {
		d.add(CodeLotTooLarge, fmt.Sprintf("Lot size (%s) exceeds maximum for your stage (%s).",
			num(p.LotSize), num(limits.MaxLotSize)))
	}

	// Pairs outside the catalog have no category and are not checked.
	if info, known := market.Lookup(p.Pair); known && !limits.AllowsCategory(info.Category) {
		d.add(CodePairNotAllowed, fmt.Sprintf("%s (%s) is not available at your current stage.", p.Pair, info.Category))
	}

	if rr != nil && *rr < limits.MinRiskRewardRatio {
		d.add(CodeRRTooLow, fmt.Sprintf("Risk-reward ratio (%.2f) is below minimum (%s).",
			*rr, num(limits.MinRiskRewardRatio)))
	}

	if riskPct > limits.MaxRiskPerTradePercent*0.8 && riskPct <= limits.MaxRiskPerTradePercent {
		d.warn(fmt.Sprintf("Risk is %.2f%% - approaching the %s%% limit.", riskPct, num(limits.MaxRiskPerTradePercent)))
	}
	if dailyDD > limits.MaxDailyDrawdownPercent*0.6 {
		d.warn(fmt.Sprintf("Daily drawdown is at %.2f%% - approaching limit.", dailyDD))
	}
	if st.ConsecutiveLosses >= 2 {
		d.warn(fmt.Sprintf("You have %d consecutive losses. Consider reviewing your approach.", st.ConsecutiveLosses))
	}

	return d
}
