// Package sim holds the simulated-execution rules used by practice
// sessions: spread and slippage, stop and target triggers, and the
// pass/fail verdict for a finished session.
package sim

import (
	"math/rand"

	"github.com/forexgate/forexgate/market"
	"github.com/shopspring/decimal"
)

type SessionType string

const (
	DemoBasic     SessionType = "demo_basic"
	DemoRealistic SessionType = "demo_realistic"
	MarketReplay  SessionType = "market_replay"
	StressTest    SessionType = "stress_test"
)

func (t SessionType) Valid() bool {
	switch t {
	case DemoBasic, DemoRealistic, MarketReplay, StressTest:
		return true
	}
	return false
}

const DefaultInitialBalance = 10000

// Config describes the execution conditions of a session.
type Config struct {
	Pair                 string      `json:"pair" yaml:"pair"`
	SessionType          SessionType `json:"session_type" yaml:"session_type"`
	SpreadPips           float64     `json:"spread_pips" yaml:"spread_pips"`
	SlippagePips         float64     `json:"slippage_pips" yaml:"slippage_pips"`
	VolatilityMultiplier float64     `json:"volatility_multiplier" yaml:"volatility_multiplier"`
	InitialBalance       float64     `json:"initial_balance" yaml:"initial_balance"`
}

func DefaultConfig(t SessionType, pair string) Config {
	cfg := Config{
		Pair:                 pair,
		SessionType:          t,
		VolatilityMultiplier: 1,
		InitialBalance:       DefaultInitialBalance,
	}
	switch t {
	case DemoRealistic:
		cfg.SpreadPips, cfg.SlippagePips = 1.5, 0.5
	case StressTest:
		cfg.SpreadPips, cfg.SlippagePips, cfg.VolatilityMultiplier = 3.0, 2.0, 2.0
	}
	return cfg
}

type Fill struct {
	ExecutionPrice float64 `json:"execution_price"`
	Spread         float64 `json:"spread"`
	Slippage       float64 `json:"slippage"`
}

// ApplyConditions moves price against the trader by half the spread plus a
// random slippage drawn from rnd. Values are rounded to 5 places.
func ApplyConditions(price float64, cfg Config, dir market.Direction, rnd *rand.Rand) Fill {
	pip := market.PipSize(market.NormalizePair(cfg.Pair))
	spread := cfg.SpreadPips * pip
	var slippage float64
	if cfg.SlippagePips > 0 {
		slippage = rnd.Float64() * cfg.SlippagePips * pip
	}

	exec := price + spread/2 + slippage
	if dir == market.Short {
		exec = price - spread/2 - slippage
	}
	return Fill{
		ExecutionPrice: round5(exec),
		Spread:         round5(spread),
		Slippage:       round5(slippage),
	}
}

func round5(x float64) float64 {
	return decimal.NewFromFloat(x).Round(5).InexactFloat64()
}

type Performance struct {
	TotalTrades   int     `json:"total_trades"`
	WinRate       float64 `json:"win_rate"`
	AvgRR         float64 `json:"avg_rr"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	BehaviorScore int     `json:"behavior_score"`
}

// StartingPerformance is recorded when a session opens.
func StartingPerformance() Performance {
	return Performance{BehaviorScore: 100}
}

// Verdict decides whether a finished session passed and lists every
// failed check.
func Verdict(p Performance) (bool, []string) {
	reasons := []string{}
	if p.WinRate < 40 {
		reasons = append(reasons, "Win rate below 40%")
	}
	if p.AvgRR < 1.5 {
		reasons = append(reasons, "Average R:R below 1.5")
	}
	if p.BehaviorScore < 70 {
		reasons = append(reasons, "Behavior score below 70")
	}
	if p.MaxDrawdown > 5 {
		reasons = append(reasons, "Max drawdown exceeded 5%")
	}
	return len(reasons) == 0, reasons
}
