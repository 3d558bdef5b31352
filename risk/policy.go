package risk

import (
	"time"

	"github.com/forexgate/forexgate/market"
)

// Proposal is a trade about to be executed.
type Proposal struct {
	Pair            string           `json:"pair"`
	Direction       market.Direction `json:"direction"`
	EntryPrice      float64          `json:"entry_price"`
	StopLossPrice   float64          `json:"stop_loss_price"`
	TakeProfitPrice *float64         `json:"take_profit_price,omitempty"`
	LotSize         float64          `json:"lot_size"`
	RiskAmount      float64          `json:"risk_amount"`
	RiskPercent     float64          `json:"risk_percent"`
}

// State is the running risk state of one account. Daily and weekly fields
// are reset by the scheduler.
type State struct {
	AccountBalance    float64    `json:"account_balance"`
	DailyPnL          float64    `json:"daily_pnl"`
	WeeklyPnL         float64    `json:"weekly_pnl"`
	DailyTradeCount   int        `json:"daily_trade_count"`
	OpenPositionCount int        `json:"open_position_count"`
	ConsecutiveLosses int        `json:"consecutive_losses"`
	InCooldown        bool       `json:"in_cooldown"`
	CooldownEndsAt    *time.Time `json:"cooldown_ends_at,omitempty"`
	LastTradeAt       *time.Time `json:"last_trade_at,omitempty"`
}

// CooldownActive reports whether a cooldown blocks trading at now. A
// cooldown without an end time never lapses on its own.
func (s State) CooldownActive(now time.Time) bool {
	if !s.InCooldown {
		return false
	}
	return s.CooldownEndsAt == nil || s.CooldownEndsAt.After(now)
}

func (s State) DailyDrawdownPercent() float64 {
	return drawdownPercent(s.DailyPnL, s.AccountBalance)
}

func (s State) WeeklyDrawdownPercent() float64 {
	return drawdownPercent(s.WeeklyPnL, s.AccountBalance)
}

type Violation struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type CalculatedRisk struct {
	RiskAmount       float64  `json:"risk_amount"`
	RiskPercent      float64  `json:"risk_percent"`
	PositionSize     float64  `json:"position_size"`
	StopDistancePips float64  `json:"stop_distance_pips"`
	RiskRewardRatio  *float64 `json:"risk_reward_ratio"`
}

type Decision struct {
	Blocked    bool           `json:"blocked"`
	Blockers   []Violation    `json:"blockers"`
	Warnings   []string       `json:"warnings"`
	Calculated CalculatedRisk `json:"calculated"`
}

func (d *Decision) add(code, msg string) {
	d.Blockers = append(d.Blockers, Violation{Code: code, Msg: msg})
	d.Blocked = true
}

func (d *Decision) warn(msg string) {
	d.Warnings = append(d.Warnings, msg)
}

// Messages returns the blocker messages in evaluation order.
func (d Decision) Messages() []string {
	out := make([]string, 0, len(d.Blockers))
	for _, v := range d.Blockers {
		out = append(out, v.Msg)
	}
	return out
}

// Has reports whether a blocker with the given code was raised.
func (d Decision) Has(code string) bool {
	for _, v := range d.Blockers {
		if v.Code == code {
			return true
		}
	}
	return false
}
