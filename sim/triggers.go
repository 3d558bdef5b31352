package sim

import "github.com/forexgate/forexgate/market"

type ExitReason string

const (
	TPHit       ExitReason = "tp_hit"
	SLHit       ExitReason = "sl_hit"
	ManualExit  ExitReason = "manual_exit"
	TimeExit    ExitReason = "time_exit"
	ForcedClose ExitReason = "forced_close"
)

func (r ExitReason) Valid() bool {
	switch r {
	case TPHit, SLHit, ManualExit, TimeExit, ForcedClose:
		return true
	}
	return false
}

func hitStopLoss(dir market.Direction, stop, price float64) bool {
	if stop == 0 {
		return false
	}
	if dir == market.Long {
		return price <= stop
	}
	return price >= stop
}

func hitTakeProfit(dir market.Direction, target *float64, price float64) bool {
	if target == nil || *target == 0 {
		return false
	}
	if dir == market.Long {
		return price >= *target
	}
	return price <= *target
}

// ClassifyExit names the reason a position closed at price. The stop is
// checked first.
func ClassifyExit(dir market.Direction, stop float64, target *float64, price float64) ExitReason {
	if hitStopLoss(dir, stop, price) {
		return SLHit
	}
	if hitTakeProfit(dir, target, price) {
		return TPHit
	}
	return ManualExit
}
