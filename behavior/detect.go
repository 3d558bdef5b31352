package behavior

import (
	"fmt"
	"time"
)

const (
	overtradingWindow = 30 * time.Minute
	revengeWindow     = 5 * time.Minute
)

// TradeSnapshot is the slice of a trade the detectors look at.
type TradeSnapshot struct {
	EntryTime     time.Time
	ExitTime      *time.Time
	PnLAmount     *float64
	LotSize       float64
	Status        string
	ExitReason    string
	EntryPrice    float64
	StopLossPrice float64
	PlannedRR     *float64
	ActualRR      *float64
}

type StateSnapshot struct {
	DailyTradeCount   int
	ConsecutiveLosses int
	LastTradeAt       *time.Time
	DailyPnL          float64
}

type ProposedTrade struct {
	LotSize float64
	Pair    string
}

// Context is everything a detection pass needs. RecentTrades must be
// ordered oldest first.
type Context struct {
	UserID       string
	RecentTrades []TradeSnapshot
	State        StateSnapshot
	Proposed     *ProposedTrade
	Now          time.Time
}

func (c Context) last() (TradeSnapshot, bool) {
	if len(c.RecentTrades) == 0 {
		return TradeSnapshot{}, false
	}
	return c.RecentTrades[len(c.RecentTrades)-1], true
}

// Detect runs the detectors for phase and returns their flags in order.
func Detect(phase Phase, c Context) []Detected {
	flags := []Detected{}
	switch phase {
	case PreTrade:
		flags = append(flags, overtrading(c)...)
		flags = append(flags, revengeTrading(c)...)
		flags = append(flags, lossChasing(c)...)
	case PostTrade:
		flags = append(flags, earlyExit(c)...)
	}
	return flags
}

func overtrading(c Context) []Detected {
	since := c.Now.Add(-overtradingWindow)
	n := 0
	for _, t := range c.RecentTrades {
		if t.EntryTime.After(since) {
			n++
		}
	}

	switch {
	case n >= 3:
		return []Detected{{
			Type:     Overtrading,
			Severity: Critical,
			Details:  fmt.Sprintf("%d trades in the last 30 minutes. This indicates impulsive trading behavior.", n),
		}}
	case n >= 2:
		return []Detected{{
			Type:     Overtrading,
			Severity: Warning,
			Details:  fmt.Sprintf("%d trades in the last 30 minutes. Slow down and evaluate each setup carefully.", n),
		}}
	}
	return nil
}

func revengeTrading(c Context) []Detected {
	last, ok := c.last()
	if !ok || last.ExitTime == nil || last.PnLAmount == nil || *last.PnLAmount >= 0 {
		return nil
	}

	var out []Detected
	if c.Now.Sub(*last.ExitTime) < revengeWindow {
		out = append(out, Detected{
			Type:     RevengeTrading,
			Severity: Critical,
			Details:  "New trade attempted within 5 minutes of a loss. This is a common revenge trading pattern.",
		})
	}
	if c.Proposed != nil && c.Proposed.LotSize > last.LotSize {
		out = append(out, Detected{
			Type:     RevengeTrading,
			Severity: Critical,
			Details:  "Position size increased after a loss. This suggests attempting to recover losses aggressively.",
		})
	}
	return out
}

func lossChasing(c Context) []Detected {
	if c.Proposed == nil || len(c.RecentTrades) < 2 {
		return nil
	}

	var losses []TradeSnapshot
	for _, t := range c.RecentTrades {
		if t.PnLAmount != nil && *t.PnLAmount < 0 {
			losses = append(losses, t)
		}
	}
	if len(losses) > 3 {
		losses = losses[len(losses)-3:]
	}
	if len(losses) < 2 {
		return nil
	}

	var sum float64
	for _, t := range losses {
		sum += t.LotSize
	}
	avg := sum / float64(len(losses))
	if c.Proposed.LotSize > avg*1.2 {
		return []Detected{{
			Type:     LossChasing,
			Severity: Critical,
			Details:  "Increasing position size after consecutive losses. This is loss-chasing behavior.",
		}}
	}
	return nil
}

func earlyExit(c Context) []Detected {
	last, ok := c.last()
	if !ok || last.ActualRR == nil || last.PlannedRR == nil || *last.ActualRR == 0 || *last.PlannedRR == 0 {
		return nil
	}
	if last.ExitReason != "manual_exit" || last.PnLAmount == nil || *last.PnLAmount <= 0 {
		return nil
	}
	if *last.ActualRR < *last.PlannedRR*0.5 {
		return []Detected{{
			Type:     EarlyExit,
			Severity: Warning,
			Details: fmt.Sprintf("Exited at %.1fR when plan targeted %.1fR. Less than 50%% of planned move captured.",
				*last.ActualRR, *last.PlannedRR),
		}}
	}
	return nil
}
